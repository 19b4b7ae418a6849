package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// MemoryCache implements Cache in process. It serves single-instance
// deployments and stands in for Redis when Redis is unreachable.
type MemoryCache struct {
	entries         sync.Map // map[string]*memoryEntry
	cleanupInterval time.Duration
	logger          *zap.Logger
	stopCh          chan struct{}
	stopped         int32

	hits   int64
	misses int64
}

// memoryEntry holds the encoded value so readers never share memory with writers
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCacheOption is a functional option for configuring the cache
type MemoryCacheOption func(*MemoryCache)

// WithMemoryLogger sets the logger for the cache
func WithMemoryLogger(logger *zap.Logger) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.logger = logger
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(d time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// NewMemoryCache creates an in-memory cache and starts its cleanup loop
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		cleanupInterval: defaultCleanupInterval,
		logger:          zap.NewNop(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()

	return c
}

// Get retrieves and decodes a value
func (c *MemoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, ok := c.entries.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return false, nil
	}
	entry := value.(*memoryEntry)
	if entry.isExpired(time.Now()) {
		c.entries.Delete(key)
		atomic.AddInt64(&c.misses, 1)
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		c.entries.Delete(key)
		return false, &Error{Op: "decode", Key: key, Err: err}
	}
	atomic.AddInt64(&c.hits, 1)
	return true, nil
}

// Set encodes and stores a value. A zero ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &Error{Op: "encode", Key: key, Err: err}
	}
	entry := &memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries.Store(key, entry)
	return nil
}

// Delete removes keys
func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Delete(k)
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern (path.Match syntax)
func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, &Error{Op: "pattern", Key: pattern, Err: err}
	}

	var deleted int64
	c.entries.Range(func(k, _ any) bool {
		key := k.(string)
		if ok, _ := path.Match(pattern, key); ok {
			c.entries.Delete(key)
			deleted++
		}
		return true
	})
	return deleted, nil
}

// Ping always succeeds
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup loop
func (c *MemoryCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns hit and miss counters
func (c *MemoryCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len counts live entries
func (c *MemoryCache) Len() int {
	n := 0
	now := time.Now()
	c.entries.Range(func(_, v any) bool {
		if !v.(*memoryEntry).isExpired(now) {
			n++
		}
		return true
	})
	return n
}

func (c *MemoryCache) cleanupExpired() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in memory cache cleanup", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *MemoryCache) doCleanup() {
	now := time.Now()
	removed := 0
	c.entries.Range(func(k, v any) bool {
		if v.(*memoryEntry).isExpired(now) {
			c.entries.Delete(k)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Removed expired cache entries", zap.Int("count", removed))
	}
}

var _ Cache = (*MemoryCache)(nil)
