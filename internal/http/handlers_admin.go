package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/service"
)

// AdminServiceInterface is the role and session administration behavior the handlers need.
type AdminServiceInterface interface {
	ProvisionRole(ctx context.Context, actor service.Actor, in service.ProvisionRoleInput) (*service.ProvisionRoleResult, error)
	RevokeSessions(ctx context.Context, actor service.Actor, userID string) (int, error)
	ListSessions(ctx context.Context, actor service.Actor, userID string) ([]domainauth.Session, error)
}

var _ AdminServiceInterface = (*service.AdminService)(nil)

// AdminHandlers serves the admin API.
type AdminHandlers struct {
	Svc    AdminServiceInterface
	Logger *slog.Logger
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func actorFrom(r *http.Request) service.Actor {
	return service.SessionActor(GetSessionFromContext(r.Context()))
}

type provisionRoleRequest struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
}

type provisionRoleResponse struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	RevokedSessions int    `json:"revoked_sessions"`
}

// ProvisionRole handles POST /api/admin/roles.
func (h *AdminHandlers) ProvisionRole(w http.ResponseWriter, r *http.Request) {
	var req provisionRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Svc.ProvisionRole(r.Context(), actorFrom(r), service.ProvisionRoleInput{
		Email:        req.Email,
		Role:         req.Role,
		Organization: req.Organization,
	})
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, provisionRoleResponse{
		Email:           req.Email,
		Role:            string(res.Role),
		RevokedSessions: res.RevokedSessions,
	})
}

// sessionSummary is the admin view of a session. Tokens are never exposed.
type sessionSummary struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Organization      string    `json:"organization,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// ListSessions handles GET /api/admin/users/{id}/sessions.
func (h *AdminHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListSessions(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	out := make([]sessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, sessionSummary{
			ID:                s.ID,
			Email:             s.Email,
			Role:              string(s.Role),
			Organization:      s.Organization,
			CreatedAt:         s.CreatedAt,
			ExpiresAt:         s.ExpiresAt,
			AbsoluteExpiresAt: s.AbsoluteExpiresAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// RevokeSessions handles DELETE /api/admin/users/{id}/sessions.
func (h *AdminHandlers) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.RevokeSessions(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"revoked_sessions": n})
}
