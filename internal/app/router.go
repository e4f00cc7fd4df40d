package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/meridian-erp/meridian-pricing/internal/audit/http"
	"github.com/meridian-erp/meridian-pricing/internal/observability"
	"github.com/meridian-erp/meridian-pricing/internal/overrides"
	"github.com/meridian-erp/meridian-pricing/internal/pricing"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	PricingHandler   *pricing.Handler
	OverridesHandler *overrides.Handler
	AuditHandler     *audithttp.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		params.PricingHandler.MountRoutes(api)

		api.Group(func(admin chi.Router) {
			admin.Use(RequireAdminToken(params.Config.AdminTokenHash))
			params.OverridesHandler.MountRoutes(admin)
			params.AuditHandler.MountRoutes(admin)
		})
	})

	return r
}
