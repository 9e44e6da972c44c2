package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tenkit/tenkit/internal/app"
	httpx "github.com/tenkit/tenkit/internal/http"
	"github.com/tenkit/tenkit/internal/observability/logger"
	"github.com/tenkit/tenkit/internal/schemaref"
	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
	"github.com/tenkit/tenkit/internal/token"
	"github.com/tenkit/tenkit/internal/util"
)

// Schema proxies a tenant-owned schema document. The caller authenticates
// with either the owner's access key or a one-shot account token; every
// cross-reference in the served document is rewritten to come back through
// this endpoint.
func Schema(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx)

		ns := r.URL.Query().Get("ns")
		uri := r.URL.Query().Get("uri")
		key := r.URL.Query().Get("key")
		tok := r.URL.Query().Get("token")

		if ns == "" || uri == "" {
			httpx.RecordSchemaServe("error")
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "ns and uri parameters are required")
			return
		}

		owner, acc := resolveCaller(c, r)
		if acc == nil {
			presented := tok
			if presented == "" {
				presented = key
			}
			notify(c, r, presented)
			log.Warn("schema access rejected",
				logger.Namespace(ns),
				logger.URI(uri),
				zap.String("token", util.MaskToken(presented)),
			)
			httpx.RecordSchemaServe("unauthorized")
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "401 Unauthorized")
			return
		}

		ctx = tenant.With(ctx, acc)
		schema, err := c.Store.FindSchema(ctx, ns, uri)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				log.Error("schema lookup failed", logger.Namespace(ns), logger.URI(uri), logger.Err(err))
			}
			httpx.RecordSchemaServe("not_found")
			httpx.WriteError(w, http.StatusNotFound, "not_found", "404 Not Found")
			return
		}

		base := c.Cfg.ServiceURL
		if base == "" {
			base = requestBaseURL(r)
		}
		body, err := schemaref.Rewrite(schemaref.Request{
			Schema:     schema,
			UserKey:    owner.UniqueKey,
			ServiceURL: base,
			SchemaPath: c.Cfg.SchemaPath(),
		})
		if err != nil {
			log.Error("schema rewrite failed", logger.Namespace(ns), logger.URI(uri), logger.Err(err))
			httpx.RecordSchemaServe("error")
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "schema rewrite failed")
			return
		}

		httpx.RecordSchemaServe("ok")
		w.Header().Set("Content-Type", contentType(schema.SchemaType))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

// resolveCaller turns the presented credential into the tenant account and
// its owner. Account tokens are one-shot: the lookup destroys them.
func resolveCaller(c *app.Container, r *http.Request) (*core.User, *core.Account) {
	ctx := r.Context()

	if v := r.URL.Query().Get("token"); v != "" {
		at, err := token.Redeem(ctx, c.Store, token.Account, v)
		if err != nil {
			return nil, nil
		}
		acc, err := c.Store.GetAccount(ctx, at.AccountID)
		if err != nil {
			return nil, nil
		}
		owner, err := c.Store.GetUser(ctx, acc.OwnerID)
		if err != nil {
			return nil, nil
		}
		return owner, acc
	}

	if v := r.URL.Query().Get("key"); v != "" {
		user, err := c.Store.GetUserByUniqueKey(ctx, v)
		if err != nil {
			return nil, nil
		}
		acc, err := c.Store.GetAccount(ctx, user.AccountID)
		if err != nil {
			return nil, nil
		}
		// Rewritten links always carry the owner's key, even when a
		// non-owner member presented theirs.
		owner, err := c.Store.GetUser(ctx, acc.OwnerID)
		if err != nil {
			return nil, nil
		}
		return owner, acc
	}

	return nil, nil
}

// requestBaseURL reconstructs the base the client reached us on, for
// deployments that never configured a public service URL.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// notify records the rejected access attempt. With no resolved account the
// notification lands in the global collection.
func notify(c *app.Container, r *http.Request, presented string) {
	n := &core.Notification{
		Type:      core.NotificationError,
		Message:   fmt.Sprintf("Accessing service with an invalid token: %s", presented),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.Store.CreateNotification(r.Context(), n); err != nil {
		logger.From(r.Context()).Error("notification write failed", logger.Err(err))
	}
}

func contentType(st core.SchemaType) string {
	switch st {
	case core.SchemaTypeJSON:
		return "application/json; charset=utf-8"
	default:
		return "application/xml; charset=utf-8"
	}
}
