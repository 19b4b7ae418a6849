package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type mockExpirer struct {
	mock.Mock
	calls atomic.Int32
}

func (m *mockExpirer) ExpireDue(ctx context.Context, limit int) (int, error) {
	m.calls.Add(1)
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func TestDefaultExpirySweeperConfig(t *testing.T) {
	cfg := DefaultExpirySweeperConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.SweepTimeout)
}

func TestNewExpirySweeper_FillsZeroValues(t *testing.T) {
	s := NewExpirySweeper(&mockExpirer{}, nil, ExpirySweeperConfig{Enabled: true})

	assert.Equal(t, time.Hour, s.config.Interval)
	assert.Equal(t, 100, s.config.BatchSize)
	assert.Equal(t, 5*time.Minute, s.config.SweepTimeout)
}

func TestExpirySweeper_SweepOnce(t *testing.T) {
	t.Run("returns expired count", func(t *testing.T) {
		expirer := &mockExpirer{}
		expirer.On("ExpireDue", mock.Anything, 25).Return(3, nil)
		core, logs := observer.New(zapcore.InfoLevel)

		s := NewExpirySweeper(expirer, zap.New(core), ExpirySweeperConfig{Enabled: true, BatchSize: 25})

		assert.Equal(t, 3, s.SweepOnce(context.Background()))
		assert.Equal(t, 1, logs.FilterMessage("License expiry sweep completed").Len())
		expirer.AssertExpectations(t)
	})

	t.Run("logs failures", func(t *testing.T) {
		expirer := &mockExpirer{}
		expirer.On("ExpireDue", mock.Anything, 100).Return(0, errors.New("db down"))
		core, logs := observer.New(zapcore.InfoLevel)

		s := NewExpirySweeper(expirer, zap.New(core), DefaultExpirySweeperConfig())

		assert.Equal(t, 0, s.SweepOnce(context.Background()))
		assert.Equal(t, 1, logs.FilterMessage("License expiry sweep failed").Len())
	})

	t.Run("applies sweep timeout", func(t *testing.T) {
		expirer := &mockExpirer{}
		expirer.On("ExpireDue", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), 100).Return(0, nil)

		s := NewExpirySweeper(expirer, nil, DefaultExpirySweeperConfig())
		s.SweepOnce(context.Background())

		expirer.AssertExpectations(t)
	})
}

func TestExpirySweeper_StartStop(t *testing.T) {
	expirer := &mockExpirer{}
	expirer.On("ExpireDue", mock.Anything, 100).Return(0, nil)

	s := NewExpirySweeper(expirer, nil, ExpirySweeperConfig{Enabled: true, Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}

func TestExpirySweeper_Disabled(t *testing.T) {
	expirer := &mockExpirer{}
	s := NewExpirySweeper(expirer, nil, ExpirySweeperConfig{Enabled: false})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	expirer.AssertNotCalled(t, "ExpireDue", mock.Anything, mock.Anything)
}
