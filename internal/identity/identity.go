// Package identity resolves the acting user for coordinator operations.
package identity

import (
	"context"

	"github.com/Redish03/StepCounter/internal/auth"
	"github.com/Redish03/StepCounter/internal/domain"
)

// User is an authenticated identity.
type User struct {
	UID         string
	DisplayName string
}

// Provider yields the current user and supports account removal. Every
// coordinator operation starts by resolving the user; a failed resolution
// surfaces as domain.ErrNoAuthenticatedUser.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
	DeleteAccount(ctx context.Context, uid string) error
}

// Static is a fixed identity, used by the device agent where the user is
// configured once at startup.
type Static struct {
	User User
}

// CurrentUser returns the configured user.
func (s Static) CurrentUser(context.Context) (User, error) {
	if s.User.UID == "" {
		return User{}, domain.ErrNoAuthenticatedUser
	}
	return s.User, nil
}

// DeleteAccount is not supported for the device identity.
func (s Static) DeleteAccount(context.Context, string) error {
	return domain.ErrNoAuthenticatedUser
}

// FromClaims resolves the user from bearer-token claims on the context,
// used by the HTTP API where identity is per-request.
type FromClaims struct{}

// CurrentUser reads the auth claims placed on the context by the middleware.
func (FromClaims) CurrentUser(ctx context.Context) (User, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok || claims.Subject == "" {
		return User{}, domain.ErrNoAuthenticatedUser
	}
	name := claims.DisplayName
	if name == "" {
		name = "anonymous"
	}
	return User{UID: claims.Subject, DisplayName: name}, nil
}

// DeleteAccount requires an auth backend; the claims provider has none.
func (FromClaims) DeleteAccount(context.Context, string) error {
	return domain.ErrNoAuthenticatedUser
}
