// Package cache stores short-lived serialized query results.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL cache. A miss is (nil, false, nil); errors
// are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
