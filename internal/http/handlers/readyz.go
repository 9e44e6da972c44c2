package handlers

import (
	"net/http"

	"github.com/tenkit/tenkit/internal/app"
	httpx "github.com/tenkit/tenkit/internal/http"
	"github.com/tenkit/tenkit/internal/observability/logger"
)

// Readyz reports readiness: the store must answer a ping.
func Readyz(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Store.Ping(r.Context()); err != nil {
			logger.From(r.Context()).Warn("store ping failed", logger.Err(err))
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"store":  err.Error(),
			})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"identity": c.OAuth.Signer.Alg(),
		})
	}
}
