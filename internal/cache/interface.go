package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns ErrMiss when the key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores val for ttl
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Driver names the backend for logs and metrics
	Driver() string

	// Close gracefully closes any connections
	Close() error
}
