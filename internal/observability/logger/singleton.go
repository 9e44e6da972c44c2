// Package logger provides a singleton zap logger with context-based
// scoping. Init once in main; From(ctx) everywhere else falls back to the
// singleton when no request-scoped logger was injected.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init initializes the singleton. Idempotent: only the first call has an
// effect.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L returns the singleton, initializing a default dev logger on first use
// when Init was never called.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Named returns a component-named logger off the singleton.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With returns the singleton with extra persistent fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes buffered entries. Defer in main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
