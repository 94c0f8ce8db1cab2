// Package cache is the local durable tier: opaque payloads under string
// keys, each paired with its last-write time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key has never been written.
var ErrMiss = errors.New("cache miss")

// Entry is a cached payload and the time it was written.
type Entry struct {
	Payload   []byte
	UpdatedAt time.Time
}

// Store is implemented by every cache driver.
type Store interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// ShapesKey namespaces a plan's shapes.
func ShapesKey(planID string) string { return "shapes_" + planID }

// PlansKey namespaces a project's plan list.
func PlansKey(projectID string) string { return "plans_" + projectID }

// Options selects and configures a driver.
type Options struct {
	Driver     string // sqlite | redis | memory
	SQLitePath string
	RedisURL   string
}

// Open returns the driver named by opts.Driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "redis":
		return NewRedisStore(opts.RedisURL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", opts.Driver)
	}
}
