package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

// testHandler records the events it receives
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
	block      chan struct{}
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func newSubmittedEvent(t *testing.T) shared.DomainEvent {
	t.Helper()
	app, err := licensing.NewApplication(licensing.NewApplicationInput{
		CompanyID:   uuid.New(),
		ApplicantID: uuid.New(),
		LicenseType: licensing.LicenseTypeNIB,
		Title:       "Bengkel Motor Jaya",
	})
	require.NoError(t, err)
	return licensing.NewApplicationSubmittedEvent(app)
}

func startedBus(t *testing.T, opts ...BusOption) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop(), opts...)
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func stop(t *testing.T, bus *InMemoryEventBus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	bus.Subscribe(handler)

	event := newSubmittedEvent(t)
	require.NoError(t, bus.Publish(context.Background(), event))
	stop(t, bus)

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := startedBus(t, WithSynchronousDelivery())
	handler1 := newTestHandler(licensing.EventTypeApplicationSubmitted)
	handler2 := newTestHandler(licensing.EventTypeApplicationSubmitted)
	other := newTestHandler(licensing.EventTypeApplicationApproved)
	wildcard := newTestHandler()
	bus.Subscribe(handler1)
	bus.Subscribe(handler2)
	bus.Subscribe(other)
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent(t), newSubmittedEvent(t)))

	assert.Len(t, handler1.getHandled(), 2)
	assert.Len(t, handler2.getHandled(), 2)
	assert.Len(t, wildcard.getHandled(), 2)
	assert.Empty(t, other.getHandled())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core), WithSynchronousDelivery())
	require.NoError(t, bus.Start(context.Background()))

	failing := newTestHandler(licensing.EventTypeApplicationSubmitted)
	failing.err = errors.New("smtp down")
	panicking := newTestHandler(licensing.EventTypeApplicationSubmitted)
	panicking.panicMsg = "boom"
	healthy := newTestHandler(licensing.EventTypeApplicationSubmitted)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent(t)))

	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 1, logs.FilterMessage("handler failed to process event").Len())
	assert.Equal(t, 1, logs.FilterMessage("handler panicked").Len())
}

func TestInMemoryEventBus_DeliveryOutlivesPublisherContext(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	handler.block = make(chan struct{})
	bus.Subscribe(handler)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newSubmittedEvent(t)))
	cancel()
	close(handler.block)

	stop(t, bus)
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StopWaitsForInFlight(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	handler.block = make(chan struct{})
	bus.Subscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent(t)))

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(short), context.DeadlineExceeded)

	close(handler.block)
	stop(t, bus)
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_PublishAfterStop(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	bus.Subscribe(handler)
	stop(t, bus)

	err := bus.Publish(context.Background(), newSubmittedEvent(t))
	assert.ErrorIs(t, err, ErrBusStopped)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t, WithSynchronousDelivery())
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent(t)))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent(t)))

	assert.Len(t, handler.getHandled(), 1)
}
