package app

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/unrolled/secure"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-pricing/internal/observability"
	"github.com/meridian-erp/meridian-pricing/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the base middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	return []func(http.Handler) http.Handler{
		secureMiddleware.Handler,
		cfg.Metrics.Middleware,
		ActorMiddleware,
	}
}

// ActorMiddleware copies the principal forwarded by the gateway into the
// request context. Authentication itself happens upstream.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
		if actorID != "" {
			ctx := shared.ContextWithActor(r.Context(), shared.Actor{
				ID:   actorID,
				Name: strings.TrimSpace(r.Header.Get("X-Actor-Name")),
			})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminToken gates administrative routes behind a bearer token matched
// against the configured bcrypt hash.
func RequireAdminToken(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if !found || subtle.ConstantTimeCompare([]byte(strings.ToLower(scheme)), []byte("bearer")) != 1 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(strings.TrimSpace(token))); err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
