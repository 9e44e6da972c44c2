package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/store/memory"
	"github.com/tenkit/tenkit/internal/store/mongo"
)

type Config struct {
	Driver string
	Mongo  MongoConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

// Open returns the store adapter for the configured driver.
func Open(ctx context.Context, cfg Config) (core.Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case "mongo", "mongodb":
		return mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "memory", "":
		return memory.New(), nil
	case "postgres", "pg", "postgresql":
		// The per-tenant dynamic collection model has no SQL adapter yet.
		return nil, fmt.Errorf("postgres: %w", core.ErrNotImplemented)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
