package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Redish03/StepCounter/internal/auth"
	"github.com/Redish03/StepCounter/internal/domain"
)

func TestStaticCurrentUser(t *testing.T) {
	ident := Static{User: User{UID: "device-1", DisplayName: "Kitchen Tablet"}}

	user, err := ident.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "device-1", user.UID)
	require.Equal(t, "Kitchen Tablet", user.DisplayName)
}

func TestStaticRequiresUID(t *testing.T) {
	_, err := Static{}.CurrentUser(context.Background())
	require.ErrorIs(t, err, domain.ErrNoAuthenticatedUser)
}

func TestFromClaimsReadsContext(t *testing.T) {
	ctx := auth.WithClaims(context.Background(), &auth.Claims{
		Subject:     "alice",
		DisplayName: "Alice",
	})

	user, err := FromClaims{}.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", user.UID)
	require.Equal(t, "Alice", user.DisplayName)
}

func TestFromClaimsDefaultsDisplayName(t *testing.T) {
	ctx := auth.WithClaims(context.Background(), &auth.Claims{Subject: "alice"})

	user, err := FromClaims{}.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "anonymous", user.DisplayName)
}

func TestFromClaimsWithoutClaims(t *testing.T) {
	_, err := FromClaims{}.CurrentUser(context.Background())
	require.ErrorIs(t, err, domain.ErrNoAuthenticatedUser)
}
