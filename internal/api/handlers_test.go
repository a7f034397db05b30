package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Redish03/StepCounter/internal/auth"
	"github.com/Redish03/StepCounter/internal/groups"
	"github.com/Redish03/StepCounter/internal/identity"
	"github.com/Redish03/StepCounter/internal/remote/memory"
)

func newTestMux(t *testing.T, store *memory.Store) *http.ServeMux {
	t.Helper()
	coordinator := groups.NewCoordinator(store, identity.FromClaims{},
		groups.WithCodeGenerator(func() string { return "123456" }))
	mux := http.NewServeMux()
	NewHandler(coordinator).RegisterRoutes(mux)
	return mux
}

func claimsFor(uid, name string, scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &auth.Claims{Subject: uid, DisplayName: name, Scopes: set}
}

func doRequest(mux *http.ServeMux, method, path string, body any, claims *auth.Claims) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(context.Background(), claims))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCreateGroupReturnsInviteCode(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, claims)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[CreateGroupResponse](t, rec)
	require.Equal(t, "123456", resp.EnterCode)
}

func TestCreateGroupRequiresName(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "  "}, claims)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "validation_failed", body["type"])
}

func TestCreateGroupWithoutClaims(t *testing.T) {
	mux := newTestMux(t, memory.New())

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateGroupRequiresWriteScope(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsRead)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, claims)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinGroupUnknownCodeMapsTo404(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("bob", "Bob", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/groups/join", JoinGroupRequest{EnterCode: "999999"}, claims)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "code_not_found", body["type"])
}

func TestJoinGroupTwiceMapsTo409(t *testing.T) {
	mux := newTestMux(t, memory.New())
	alice := claimsFor("alice", "Alice", auth.ScopeGroupsWrite)
	bob := claimsFor("bob", "Bob", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/v1/groups/join", JoinGroupRequest{EnterCode: "123456"}, bob)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/v1/groups/join", JoinGroupRequest{EnterCode: "123456"}, bob)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "already_member", body["type"])
}

func TestRankingReflectsPublishedSteps(t *testing.T) {
	mux := newTestMux(t, memory.New())
	alice := claimsFor("alice", "Alice", auth.ScopeGroupsWrite, auth.ScopeStepsWrite)
	bob := claimsFor("bob", "Bob", auth.ScopeGroupsWrite, auth.ScopeStepsWrite, auth.ScopeGroupsRead)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(mux, http.MethodPost, "/v1/groups/join", JoinGroupRequest{EnterCode: "123456"}, bob)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/v1/steps", PublishStepsRequest{Steps: 100}, alice)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = doRequest(mux, http.MethodPost, "/v1/steps", PublishStepsRequest{Steps: 300}, bob)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/v1/ranking", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[RankingResponse](t, rec)
	require.Equal(t, "walkers", resp.GroupName)
	require.Equal(t, "alice", resp.LeaderUID)
	require.Len(t, resp.Members, 2)
	require.Equal(t, 1, resp.Members[0].Rank)
	require.Equal(t, "bob", resp.Members[0].UID)
	require.Equal(t, 300, resp.Members[0].Steps)
	require.Equal(t, 2, resp.Members[1].Rank)
	require.Equal(t, "alice", resp.Members[1].UID)
}

func TestRankingWithoutGroupMapsTo404(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsRead)

	rec := doRequest(mux, http.MethodGet, "/v1/ranking", nil, claims)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "group_not_found", body["type"])
}

func TestPublishStepsRejectsNegative(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeStepsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/steps", PublishStepsRequest{Steps: -1}, claims)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishStepsRequiresStepsScope(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodPost, "/v1/steps", PublishStepsRequest{Steps: 10}, claims)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeaveGroupFlow(t *testing.T) {
	mux := newTestMux(t, memory.New())
	alice := claimsFor("alice", "Alice", auth.ScopeGroupsWrite, auth.ScopeGroupsRead)

	rec := doRequest(mux, http.MethodPost, "/v1/groups", CreateGroupRequest{GroupName: "walkers"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/v1/ranking", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	ranking := decodeBody[RankingResponse](t, rec)

	rec = doRequest(mux, http.MethodPost, "/v1/groups/leave", LeaveGroupRequest{GroupID: ranking.GroupID}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/v1/ranking", nil, alice)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, memory.New())
	claims := claimsFor("alice", "Alice", auth.ScopeGroupsWrite)

	rec := doRequest(mux, http.MethodGet, "/v1/groups", nil, claims)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzIsOpen(t *testing.T) {
	mux := newTestMux(t, memory.New())

	rec := doRequest(mux, http.MethodGet, "/healthz", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
