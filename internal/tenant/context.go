// Package tenant carries the current account through request contexts and
// derives per-tenant collection names.
//
// The current account is an explicit context value, never a process global:
// concurrent requests for different tenants cannot observe each other, and
// the value dies with the request context on every exit path.
package tenant

import (
	"context"

	"github.com/tenkit/tenkit/internal/store/core"
)

type ctxKey struct{}

// With returns a context carrying acc as the current account.
func With(ctx context.Context, acc *core.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acc)
}

// Clear returns a context with no current account, shadowing any account
// set further up the chain.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, (*core.Account)(nil))
}

// Current returns the current account, or nil when none is set.
func Current(ctx context.Context) *core.Account {
	acc, _ := ctx.Value(ctxKey{}).(*core.Account)
	return acc
}

// CollectionPrefix builds the tenant namespace prefix "acc<id><sep>", or ""
// when acc is nil. An empty separator yields the form used for prefix
// lookups.
func CollectionPrefix(acc *core.Account, sep string) string {
	if acc == nil || acc.ID == "" {
		return ""
	}
	return "acc" + acc.ID + sep
}

// CollectionName builds the concrete collection name for a tenant-scoped
// model: "acc<id>_<model>", or just the model name when acc is nil.
func CollectionName(acc *core.Account, model string) string {
	return CollectionPrefix(acc, "_") + model
}

// CollectionNameFromContext is CollectionName using the ambient account:
// explicit account wins, then the context's current account, then none.
func CollectionNameFromContext(ctx context.Context, acc *core.Account, model string) string {
	if acc == nil {
		acc = Current(ctx)
	}
	return CollectionName(acc, model)
}
