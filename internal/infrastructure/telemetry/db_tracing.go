package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (development only)
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
	// TracerProvider overrides the global provider for query spans.
	TracerProvider trace.TracerProvider
}

// DefaultDBTracingConfig returns the secure defaults
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "postgresql",
	}
}

// DBTracingPlugin is a gorm plugin that installs otelgorm and marks slow queries.
// When a meter is set it also records query durations.
type DBTracingPlugin struct {
	config   DBTracingConfig
	logger   *zap.Logger
	duration metric.Float64Histogram
}

// NewDBTracingPlugin creates a new database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, meter metric.Meter, logger *zap.Logger) (*DBTracingPlugin, error) {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &DBTracingPlugin{config: cfg, logger: logger}
	if meter != nil {
		h, err := meter.Float64Histogram("db_query_duration_seconds",
			metric.WithDescription("Database query duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return nil, err
		}
		p.duration = h
	}
	return p, nil
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "umkm:db_tracing"
}

// Initialize implements gorm.Plugin
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// The timing hooks must run before otelgorm ends the query span.
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("umkm_timing:before_create", p.before),
		cb.Query().Before("gorm:query").Register("umkm_timing:before_query", p.before),
		cb.Update().Before("gorm:update").Register("umkm_timing:before_update", p.before),
		cb.Delete().Before("gorm:delete").Register("umkm_timing:before_delete", p.before),
		cb.Row().Before("gorm:row").Register("umkm_timing:before_row", p.before),
		cb.Raw().Before("gorm:raw").Register("umkm_timing:before_raw", p.before),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("umkm_timing:after_create", p.after("create")),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("umkm_timing:after_query", p.after("query")),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("umkm_timing:after_update", p.after("update")),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("umkm_timing:after_delete", p.after("delete")),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("umkm_timing:after_row", p.after("row")),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("umkm_timing:after_raw", p.after("raw")),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "db_query_start_time"

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartTimeKey).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		if p.duration != nil {
			p.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
				attribute.String("operation", op),
				attribute.String("table", db.Statement.Table),
			))
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)
