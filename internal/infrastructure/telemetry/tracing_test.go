package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	recorder := withRecorder(t)
	id := uuid.New()

	ctx, span := StartServiceSpan(context.Background(), "license_application", "approve",
		SpanAttrApplicationID, id,
	)
	assert.NotEmpty(t, TraceID(ctx))
	SetAttributes(span, SpanAttrAttempt, 2, SpanAttrToStatus, "APPROVED", 42, "skipped", "dangling")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "license_application.approve", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, id.String(), attrs[SpanAttrApplicationID])
	assert.Equal(t, "2", attrs[SpanAttrAttempt])
	assert.Equal(t, "APPROVED", attrs[SpanAttrToStatus])
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartServiceSpan(context.Background(), "license_application", "reject")
	RecordError(span, errors.New("conflict"))
	RecordError(span, nil)
	RecordError(nil, errors.New("ignored"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "conflict", spans[0].Status().Description)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
