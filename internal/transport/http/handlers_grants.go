package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"accesshub/internal/domain"
	"accesshub/internal/grant"
	"accesshub/internal/platform/middleware"
	"accesshub/internal/store"
	"accesshub/internal/transport/http/shared"
	"accesshub/pkg/apperrors"
)

// GrantService defines the grant operations the transport needs.
type GrantService interface {
	SetLevel(ctx context.Context, userID, applicationID int, level domain.Level, actorID int, origin domain.Origin) (domain.Level, error)
	ListGrants(ctx context.Context, filter store.GrantFilter) ([]domain.Grant, error)
	BulkSetLevel(ctx context.Context, userID int, level domain.Level, actorID int, origin domain.Origin) (grant.BulkResult, error)
	ListUserApplications(ctx context.Context, userID int) ([]domain.Application, error)
}

// GrantHandler serves the grant management endpoints.
type GrantHandler struct {
	grants GrantService
	logger *slog.Logger
}

func NewGrantHandler(grants GrantService, logger *slog.Logger) *GrantHandler {
	return &GrantHandler{grants: grants, logger: logger}
}

// RegisterAdmin mounts the admin-only grant routes on an already-guarded
// router.
func (h *GrantHandler) RegisterAdmin(r chi.Router) {
	r.Post("/user-access-roles", h.handleSetLevel)
	r.Get("/user-access-roles", h.handleListGrants)
	r.Post("/user-access-roles/bulk", h.handleBulkSetLevel)
}

// Register mounts the routes any authenticated user may call.
func (h *GrantHandler) Register(r chi.Router) {
	r.Get("/user-applications", h.handleListUserApplications)
}

type setLevelRequest struct {
	UserID        int    `json:"utilisateur_id"`
	ApplicationID int    `json:"application_id"`
	AccessLevel   string `json:"access_level"`
}

type setLevelResponse struct {
	UserID        int          `json:"utilisateur_id"`
	ApplicationID int          `json:"application_id"`
	AccessLevel   domain.Level `json:"access_level"`
}

func (h *GrantHandler) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		// RequireAdmin guarantees a principal; reaching here is a wiring bug.
		h.logger.ErrorContext(ctx, "principal missing from context",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, apperrors.New(apperrors.CodeInternal, "authentication context error"))
		return
	}

	origin := domain.Origin{
		IPAddress: middleware.GetClientIP(ctx),
		UserAgent: middleware.GetUserAgent(ctx),
	}
	level, err := h.grants.SetLevel(ctx, req.UserID, req.ApplicationID, domain.Level(req.AccessLevel), principal.UserID, origin)
	if err != nil {
		h.logGrantError(ctx, "set access level failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, setLevelResponse{
		UserID:        req.UserID,
		ApplicationID: req.ApplicationID,
		AccessLevel:   level,
	})
}

func (h *GrantHandler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.GrantFilter{
		UserID:        queryInt(r, "utilisateur_id"),
		ApplicationID: queryInt(r, "application_id"),
	}
	grants, err := h.grants.ListGrants(ctx, filter)
	if err != nil {
		h.logGrantError(ctx, "list grants failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"roles": grants})
}

type bulkSetLevelRequest struct {
	UserID      int    `json:"utilisateur_id"`
	AccessLevel string `json:"access_level"`
}

func (h *GrantHandler) handleBulkSetLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bulkSetLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, apperrors.New(apperrors.CodeInternal, "authentication context error"))
		return
	}

	origin := domain.Origin{
		IPAddress: middleware.GetClientIP(ctx),
		UserAgent: middleware.GetUserAgent(ctx),
	}
	result, err := h.grants.BulkSetLevel(ctx, req.UserID, domain.Level(req.AccessLevel), principal.UserID, origin)
	if err != nil {
		h.logGrantError(ctx, "bulk set access level failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

// handleListUserApplications returns the applications the caller holds any
// access on. Admins may inspect another user via utilisateur_id.
func (h *GrantHandler) handleListUserApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, apperrors.New(apperrors.CodeInternal, "authentication context error"))
		return
	}

	userID := principal.UserID
	if requested := queryInt(r, "utilisateur_id"); requested > 0 && requested != principal.UserID {
		if principal.Role != domain.RoleAdmin {
			shared.WriteError(w, apperrors.New(apperrors.CodeForbidden, "cannot view another user's applications"))
			return
		}
		userID = requested
	}

	apps, err := h.grants.ListUserApplications(ctx, userID)
	if err != nil {
		h.logGrantError(ctx, "list user applications failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *GrantHandler) logGrantError(ctx context.Context, msg string, err error) {
	if apperrors.CodeOf(err) == apperrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
