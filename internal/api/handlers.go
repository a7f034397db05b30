// Package api exposes HTTP handlers over the group membership coordinator.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Redish03/StepCounter/internal/auth"
	"github.com/Redish03/StepCounter/internal/domain"
	"github.com/Redish03/StepCounter/internal/groups"
)

// Handler coordinates HTTP requests with the coordinator.
type Handler struct {
	coordinator *groups.Coordinator
}

// NewHandler builds a Handler.
func NewHandler(coordinator *groups.Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/groups", h.createGroup)
	mux.HandleFunc("/v1/groups/join", h.joinGroup)
	mux.HandleFunc("/v1/groups/leave", h.leaveGroup)
	mux.HandleFunc("/v1/ranking", h.ranking)
	mux.HandleFunc("/v1/steps", h.publishSteps)
	mux.HandleFunc("/v1/account", h.deleteAccount)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CreateGroupRequest is the payload for POST /v1/groups.
type CreateGroupRequest struct {
	GroupName string `json:"group_name"`
}

// CreateGroupResponse returns the shareable invite code.
type CreateGroupResponse struct {
	EnterCode string `json:"enter_code"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeGroupsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope groups:write required")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.GroupName) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "group_name is required")
		return
	}

	code, err := h.coordinator.CreateGroup(r.Context(), req.GroupName)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateGroupResponse{EnterCode: code})
}

// JoinGroupRequest is the payload for POST /v1/groups/join.
type JoinGroupRequest struct {
	EnterCode string `json:"enter_code"`
}

func (h *Handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeGroupsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope groups:write required")
		return
	}

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.EnterCode) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "enter_code is required")
		return
	}

	if err := h.coordinator.JoinGroup(r.Context(), req.EnterCode); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// LeaveGroupRequest is the payload for POST /v1/groups/leave.
type LeaveGroupRequest struct {
	GroupID string `json:"group_id"`
}

func (h *Handler) leaveGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeGroupsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope groups:write required")
		return
	}

	var req LeaveGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.GroupID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "group_id is required")
		return
	}

	if err := h.coordinator.LeaveGroup(r.Context(), req.GroupID); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// MemberView is one ranked member.
type MemberView struct {
	Rank  int    `json:"rank"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

// RankingResponse packages the caller's group and its ranked members.
type RankingResponse struct {
	GroupID   string       `json:"group_id"`
	GroupName string       `json:"group_name"`
	EnterCode string       `json:"enter_code"`
	LeaderUID string       `json:"leader_uid"`
	Members   []MemberView `json:"members"`
}

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeGroupsRead) && !claims.HasScope(auth.ScopeGroupsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope groups:read required")
		return
	}

	group, members, err := h.coordinator.MyGroup(r.Context())
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}

	resp := RankingResponse{
		GroupID:   group.GroupID,
		GroupName: group.GroupName,
		EnterCode: group.EnterCode,
		LeaderUID: group.LeaderUID,
		Members:   make([]MemberView, 0, len(members)),
	}
	for i, m := range members {
		resp.Members = append(resp.Members, MemberView{
			Rank:  i + 1,
			UID:   m.UID,
			Name:  m.Name,
			Steps: m.Steps,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PublishStepsRequest is the payload for POST /v1/steps.
type PublishStepsRequest struct {
	Steps int `json:"steps"`
}

func (h *Handler) publishSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeStepsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope steps:write required")
		return
	}

	var req PublishStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.Steps < 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "steps must be >= 0")
		return
	}

	if err := h.coordinator.PublishSteps(r.Context(), req.Steps); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeGroupsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope groups:write required")
		return
	}

	if err := h.coordinator.DeleteAccount(r.Context()); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeCoordinatorError maps the coordinator taxonomy onto HTTP statuses.
// RequiresRecentLogin gets its own code so clients can prompt for re-login
// instead of showing a generic error.
func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoAuthenticatedUser):
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
	case errors.Is(err, domain.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, "code_not_found", "no active group matches that invite code")
	case errors.Is(err, domain.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "already_member", "caller already belongs to this group")
	case errors.Is(err, domain.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "group_not_found", "caller has no group")
	case errors.Is(err, domain.ErrRequiresRecentLogin):
		writeError(w, http.StatusForbidden, "requires_recent_login", "re-authentication required")
	case errors.Is(err, domain.ErrTransactionConflict):
		writeError(w, http.StatusConflict, "transaction_conflict", "concurrent update, retry the request")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "remote store unreachable")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
