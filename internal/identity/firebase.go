package identity

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"github.com/Redish03/StepCounter/internal/domain"
)

// Firebase resolves users from request claims and deletes accounts through
// Firebase Auth.
type Firebase struct {
	FromClaims
	client *fbauth.Client
}

// NewFirebase initialises the Firebase app for the project. Credentials come
// from the ambient environment.
func NewFirebase(ctx context.Context, projectID string) (*Firebase, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &Firebase{client: client}, nil
}

// DeleteAccount removes the auth record. The backend reports stale
// credentials with a CREDENTIAL_TOO_OLD code, which callers must be able to
// tell apart from a generic failure so they can prompt for re-login.
func (f *Firebase) DeleteAccount(ctx context.Context, uid string) error {
	if uid == "" {
		return domain.ErrNoAuthenticatedUser
	}
	err := f.client.DeleteUser(ctx, uid)
	if err == nil {
		return nil
	}
	if fbauth.IsUserNotFound(err) {
		// Already gone; deletion is idempotent.
		return nil
	}
	if strings.Contains(err.Error(), "CREDENTIAL_TOO_OLD") {
		return fmt.Errorf("%w: %v", domain.ErrRequiresRecentLogin, err)
	}
	return err
}
