package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "step-backend"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":          "alice",
		"display_name": "Alice",
		"iss":          testIssuer,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"scopes":       []string{ScopeStepsWrite, ScopeGroupsWrite},
	})

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "Alice", claims.DisplayName)
	require.True(t, claims.HasScope(ScopeStepsWrite))
	require.True(t, claims.HasScope(ScopeGroupsWrite))
	require.False(t, claims.HasScope(ScopeGroupsRead))
}

func TestParseScopesAsSpaceSeparatedString(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "alice",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": ScopeGroupsRead + " " + ScopeGroupsWrite,
	})

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeGroupsRead))
	require.True(t, claims.HasScope(ScopeGroupsWrite))
}

func TestParseRejectsMissingSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "alice",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "alice",
		"iss": testIssuer,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := other.SignedString([]byte("different-secret"))
	require.NoError(t, err)

	_, err = Parse(signed, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseEmptyToken(t *testing.T) {
	_, err := Parse("  ", Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "alice",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	var seen *Claims
	handler := NewMiddleware(Config{Secret: testSecret, Issuer: testIssuer}).
		Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = FromContext(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ranking", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "alice", seen.Subject)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	handler := NewMiddleware(Config{Secret: testSecret, Issuer: testIssuer}).
		Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without credentials")
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ranking", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareSkipsHealthz(t *testing.T) {
	var called bool
	handler := NewMiddleware(Config{Secret: testSecret, Issuer: testIssuer}).
		Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}
