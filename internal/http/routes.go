package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenkit/tenkit/internal/http/middlewares"
	"github.com/tenkit/tenkit/internal/rate"
)

// RouterConfig carries the wired handlers; construction happens in the
// command so this package never imports them.
type RouterConfig struct {
	BasePath string

	Schema stdhttp.Handler
	Token  stdhttp.Handler
	Readyz stdhttp.Handler

	Limiter rate.Limiter
}

// NewRouter builds the public surface. Middleware order: request ID first,
// then logging, metrics, and rate limiting on the tenant-facing routes.
func NewRouter(cfg RouterConfig) stdhttp.Handler {
	r := chi.NewRouter()

	limited := func(h stdhttp.Handler) stdhttp.Handler {
		return middlewares.Chain(h, middlewares.WithRateLimit(cfg.Limiter))
	}

	r.Route(cfg.BasePath, func(api chi.Router) {
		api.Method(stdhttp.MethodGet, "/schema", limited(cfg.Schema))
		api.Method(stdhttp.MethodPost, "/token", limited(cfg.Token))
	})
	r.Method(stdhttp.MethodGet, "/readyz", cfg.Readyz)

	return middlewares.Chain(r,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		WithMetrics,
	)
}
