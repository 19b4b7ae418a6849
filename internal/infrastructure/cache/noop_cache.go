package cache

import (
	"context"
	"time"
)

// NoopCache never stores anything. Every read is a miss.
type NoopCache struct{}

// NewNoopCache creates a cache that disables caching
func NewNoopCache() NoopCache {
	return NoopCache{}
}

func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error { return nil }
func (NoopCache) DeleteByPattern(context.Context, string) (int64, error) { return 0, nil }
func (NoopCache) Ping(context.Context) error { return nil }
func (NoopCache) Close() error { return nil }

var _ Cache = NoopCache{}
