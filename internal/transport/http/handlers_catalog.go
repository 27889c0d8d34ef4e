package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"accesshub/internal/domain"
	"accesshub/internal/platform/middleware"
	"accesshub/internal/transport/http/shared"
)

// CatalogService defines the reference-data reads the transport needs.
type CatalogService interface {
	Users(ctx context.Context) ([]domain.User, error)
	Applications(ctx context.Context) ([]domain.Application, error)
}

// CatalogHandler serves the user directory and application catalog.
type CatalogHandler struct {
	catalog CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/applications", h.handleListApplications)
}

func (h *CatalogHandler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.handleListUsers)
}

func (h *CatalogHandler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.catalog.Applications(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list applications failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *CatalogHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.catalog.Users(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}
