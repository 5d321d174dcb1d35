// Package cache provides the TTL key-value store backing authorization
// snapshot resolution.
//
// Backends:
//   - memory (in-process, the default single-instance shape)
//   - redis (shared cache for multi-instance deployments)
package cache

import (
	"context"
	"errors"
	"time"
)

// Store is the operation set callers depend on. Expiry is lazy: a value
// whose TTL has elapsed behaves as a miss on read, whether or not any
// sweep has reclaimed it yet.
type Store interface {
	// Get returns a value. ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL, overwriting any prior entry.
	// A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key unconditionally. After Delete returns, the next
	// Get for that key misses.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every key under this store's prefix.
	DeleteAll(ctx context.Context) error

	// Exists reports whether a live (non-expired) entry is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Stats returns backend counters.
	Stats(ctx context.Context) (Stats, error)
}

type Stats struct {
	Driver     string
	Keys       int64
	UsedMemory string
	Hits       int64
	Misses     int64
}

// Config selects and parameterizes a backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string // prepended to every key
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// ErrClosed is returned by writes against a closed store.
var ErrClosed = errors.New("cache: store is closed")

// IsNotFound reports whether the error is a cache miss.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a Store from config. Unknown drivers fall back to memory.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
