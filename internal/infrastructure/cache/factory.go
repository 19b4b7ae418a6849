package cache

import (
	"fmt"

	"github.com/umkm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend names accepted in configuration
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Factory creates the configured cache backend
type Factory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache when Redis is unavailable.
// Default is taken from configuration.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cacheCfg.AllowMemoryFallback,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) redisOptions() []RedisCacheOption {
	return []RedisCacheOption{
		WithRedisLogger(f.logger),
		WithKeyPrefix(f.cacheConfig.KeyPrefix),
		WithScanBatchSize(f.cacheConfig.ScanBatchSize),
	}
}

// Create builds the cache named by configuration. Redis falls back to memory
// when unreachable and fallback is allowed.
func (f *Factory) Create() (Cache, error) {
	switch f.cacheConfig.Backend {
	case BackendNone:
		f.logger.Info("Caching disabled")
		return NewNoopCache(), nil
	case BackendMemory:
		f.logger.Info("Using in-memory cache")
		return NewMemoryCache(WithMemoryLogger(f.logger)), nil
	case BackendRedis, "":
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cacheConfig.Backend)
	}

	c, err := NewRedisCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.redisOptions()...)
	if err == nil {
		f.logger.Info("Using Redis cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
		"Invalidations will not propagate across instances.",
		zap.Error(err),
	)
	return NewMemoryCache(WithMemoryLogger(f.logger)), nil
}
