package overrides

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/meridian-erp/meridian-pricing/internal/shared"
)

const mutationRateLimit = 30
const mutationRateWindow = time.Minute

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overrides", h.List)
	r.Get("/overrides/{id}", h.Show)

	limiter := httprate.Limit(mutationRateLimit, mutationRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/overrides", h.Create)
		gr.Patch("/overrides/{id}", h.Update)
		gr.Post("/overrides/{id}/deactivate", h.Deactivate)
		gr.Delete("/overrides/{id}", h.Delete)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := shared.ActorFromContext(r.Context()); actor.ID != "" {
		return "actor:" + actor.ID, nil
	}
	return httprate.KeyByIP(r)
}
