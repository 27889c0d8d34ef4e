package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"accesshub/internal/ledger"
	"accesshub/internal/platform/middleware"
	"accesshub/internal/transport/http/shared"
	"accesshub/pkg/apperrors"
)

// LedgerService defines the audit trail operations the transport needs.
type LedgerService interface {
	Query(ctx context.Context, params ledger.QueryParams) (ledger.QueryResult, error)
	Prune(ctx context.Context, olderThanDays int) (ledger.PruneResult, error)
}

// HistoryHandler serves the audit trail endpoints. Both are admin-only.
type HistoryHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

func NewHistoryHandler(l LedgerService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{ledger: l, logger: logger}
}

func (h *HistoryHandler) RegisterAdmin(r chi.Router) {
	r.Get("/access-history", h.handleQuery)
	r.Delete("/access-history", h.handlePrune)
}

func (h *HistoryHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := ledger.QueryParams{
		UserID:        queryInt(r, "utilisateur_id"),
		ApplicationID: queryInt(r, "application_id"),
		Limit:         queryInt(r, "limit"),
		Offset:        queryInt(r, "offset"),
	}
	result, err := h.ledger.Query(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "history query failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"history": result.Entries,
		"total":   result.Total,
		"limit":   result.Limit,
		"offset":  result.Offset,
		"hasMore": result.HasMore,
	})
}

type pruneRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

func (h *HistoryHandler) handlePrune(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := pruneRequest{OlderThanDays: queryInt(r, "older_than_days")}
	if req.OlderThanDays == 0 && r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, apperrors.New(apperrors.CodeBadRequest, "older_than_days must be a positive integer"))
			return
		}
	}

	result, err := h.ledger.Prune(ctx, req.OlderThanDays)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeInternal {
			h.logger.ErrorContext(ctx, "history prune failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "history prune requested",
		"request_id", middleware.GetRequestID(ctx),
		"older_than_days", req.OlderThanDays,
		"deleted", result.Deleted,
	)
	shared.WriteJSON(w, http.StatusOK, map[string]int{
		"deleted_count":   result.Deleted,
		"remaining_count": result.Remaining,
	})
}
