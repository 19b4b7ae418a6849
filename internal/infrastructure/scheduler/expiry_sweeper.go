package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LicenseExpirer expires issued licenses past their expiry date
type LicenseExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// ExpirySweeperConfig holds configuration for the expiry sweeper
type ExpirySweeperConfig struct {
	// Enabled determines if the sweeper is active
	Enabled bool

	// Interval is the time between sweeps
	Interval time.Duration

	// BatchSize is the maximum number of licenses expired per sweep
	BatchSize int

	// SweepTimeout is the maximum time for a sweep run
	SweepTimeout time.Duration
}

// DefaultExpirySweeperConfig returns default configuration
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Enabled:      true,
		Interval:     time.Hour,
		BatchSize:    100,
		SweepTimeout: 5 * time.Minute,
	}
}

// ExpirySweeper periodically expires approved and suspended licenses past their expiry date
type ExpirySweeper struct {
	expirer   LicenseExpirer
	logger    *zap.Logger
	config    ExpirySweeperConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(expirer LicenseExpirer, logger *zap.Logger, config ExpirySweeperConfig) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultExpirySweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = defaults.SweepTimeout
	}
	return &ExpirySweeper{
		expirer: expirer,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweeper loop. The first sweep runs immediately.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("License expiry sweeper is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("License expiry sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop gracefully stops the sweeper
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("License expiry sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("License expiry sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the sweeper loop is active
func (s *ExpirySweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Expiry sweep loop stopping")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and returns the number of licenses expired
func (s *ExpirySweeper) SweepOnce(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	started := time.Now()
	expired, err := s.expirer.ExpireDue(sweepCtx, s.config.BatchSize)
	if err != nil {
		s.logger.Error("License expiry sweep failed", zap.Error(err))
		return expired
	}
	if expired > 0 {
		s.logger.Info("License expiry sweep completed",
			zap.Int("expired", expired),
			zap.Duration("duration", time.Since(started)),
		)
	}
	return expired
}
