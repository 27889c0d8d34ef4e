// Package httptransport is the thin HTTP layer. Handlers delegate to the
// domain services and never embed business logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accesshub/internal/platform/metrics"
	"accesshub/internal/platform/middleware"
	"accesshub/internal/transport/http/shared"
)

// RouterConfig carries everything the router needs wired.
type RouterConfig struct {
	Grants    GrantService
	Ledger    LedgerService
	Catalog   CatalogService
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// Health reports backend readiness. Nil means always ready.
	Health func(ctx context.Context) error
}

// NewRouter wires middleware and all endpoints. Admin routes live under
// /api/admin and are guarded by RequireAdmin; the rest of /api needs any
// valid token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", handleHealth(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	grantHandler := NewGrantHandler(cfg.Grants, cfg.Logger)
	historyHandler := NewHistoryHandler(cfg.Ledger, cfg.Logger)
	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
			grantHandler.Register(authed)
			catalogHandler.Register(authed)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(cfg.Validator, cfg.Logger))
			grantHandler.RegisterAdmin(admin)
			historyHandler.RegisterAdmin(admin)
			catalogHandler.RegisterAdmin(admin)
		})
	})

	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
