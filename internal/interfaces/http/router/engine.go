package router

import (
	"github.com/gin-gonic/gin"
	"github.com/umkm/backend/internal/infrastructure/auth"
	"github.com/umkm/backend/internal/infrastructure/config"
	"github.com/umkm/backend/internal/infrastructure/logger"
	"github.com/umkm/backend/internal/interfaces/http/handler"
	"github.com/umkm/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig carries everything the HTTP engine is built from
type EngineConfig struct {
	HTTP           config.HTTPConfig
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP server metrics; nil disables them
	Meter  metric.Meter
	Logger *zap.Logger

	JWTService *auth.JWTService
	Licenses   *handler.LicenseHandler
	Health     *handler.HealthHandler
}

// NewEngine builds the gin engine with the full middleware chain and all routes mounted
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = cfg.TracingEnabled
	if cfg.ServiceName != "" {
		tracing.ServiceName = cfg.ServiceName
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(tracing),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.CORSWithConfig(cors),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Health)
	}

	permissions := middleware.PermissionConfig{Logger: log}
	jwtCfg := middleware.DefaultJWTConfig(cfg.JWTService)
	jwtCfg.Logger = log

	r := NewRouter(engine, WithAPIMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.SpanAttributes(),
	))
	if cfg.Health != nil {
		r.Register(NewDomainGroup("health", "/health").GET("", cfg.Health.Health))
	}
	r.Register(LicenseRoutes(cfg.Licenses,
		middleware.RequireReviewer(permissions),
		middleware.RequireAdmin(permissions),
	))
	r.Setup()

	return engine, nil
}
