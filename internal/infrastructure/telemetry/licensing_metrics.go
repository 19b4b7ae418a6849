package telemetry

import (
	"context"
	"time"

	"github.com/umkm/backend/internal/domain/licensing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LicensingMetrics records license workflow and cache metrics
type LicensingMetrics struct {
	transitions        metric.Int64Counter
	assignmentRejected metric.Int64Counter
	decisionDuration   metric.Float64Histogram
	cacheLookups       metric.Int64Counter
}

// NewLicensingMetrics creates the license workflow instruments on meter
func NewLicensingMetrics(meter metric.Meter) (*LicensingMetrics, error) {
	transitions, err := meter.Int64Counter("license_status_transitions_total",
		metric.WithDescription("License application status transitions"),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("license_reviewer_assignments_rejected_total",
		metric.WithDescription("Reviewer assignments refused because the reviewer is at capacity"),
	)
	if err != nil {
		return nil, err
	}
	decision, err := meter.Float64Histogram("license_decision_duration_hours",
		metric.WithDescription("Time from submission to final decision"),
		metric.WithUnit("h"),
		metric.WithExplicitBucketBoundaries(1, 8, 24, 48, 72, 120, 168, 336),
	)
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter("license_cache_lookups_total",
		metric.WithDescription("Repository cache lookups by keyspace and result"),
	)
	if err != nil {
		return nil, err
	}
	return &LicensingMetrics{
		transitions:        transitions,
		assignmentRejected: rejected,
		decisionDuration:   decision,
		cacheLookups:       lookups,
	}, nil
}

// RecordTransition counts one status transition
func (m *LicensingMetrics) RecordTransition(ctx context.Context, action licensing.Action, from, to licensing.ApplicationStatus) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action.String()),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// RecordAssignmentRejected counts one refused reviewer assignment
func (m *LicensingMetrics) RecordAssignmentRejected(ctx context.Context) {
	m.assignmentRejected.Add(ctx, 1)
}

// RecordDecision records the submission-to-decision time of an approval or rejection
func (m *LicensingMetrics) RecordDecision(ctx context.Context, action licensing.Action, elapsed time.Duration) {
	m.decisionDuration.Record(ctx, elapsed.Hours(), metric.WithAttributes(
		attribute.String("action", action.String()),
	))
}

// RecordCacheLookup counts one cache read
func (m *LicensingMetrics) RecordCacheLookup(ctx context.Context, keyspace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("keyspace", keyspace),
		attribute.String("result", result),
	))
}
