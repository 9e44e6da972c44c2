// Package rate provides fixed-window request limiting with pluggable
// backends: redis for multi-instance deployments, in-process memory for
// single instances and tests.
package rate

import (
	"context"
	"math"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// NopLimiter allows everything; used when limiting is disabled.
type NopLimiter struct{}

func (NopLimiter) Allow(ctx context.Context, key string) (Result, error) {
	return Result{Allowed: true, Remaining: math.MaxInt64}, nil
}
