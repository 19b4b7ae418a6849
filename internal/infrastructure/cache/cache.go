// Package cache provides the key-value cache used in front of the license store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a key-value cache with per-key TTL. Values are JSON encoded.
// Every method may fail; callers treat failures as "no cache available".
type Cache interface {
	// Get decodes the value at key into dest. It returns false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value at key for ttl
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes every key matching a glob pattern and returns how many were removed
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	// Close releases resources held by the cache
	Close() error
}

// Error wraps a backend failure. It never crosses the repository boundary.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Get is the typed form of Cache.Get
func Get[T any](ctx context.Context, c Cache, key string) (*T, bool, error) {
	var v T
	ok, err := c.Get(ctx, key, &v)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}
