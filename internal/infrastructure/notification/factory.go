package notification

import (
	"context"
	"fmt"

	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewNotifier creates the notifier selected by cfg.Provider.
// Disabled notifications fall back to the log notifier.
func NewNotifier(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (licensingapp.Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	if !cfg.Enabled || cfg.Provider == "log" {
		logger.Info("Using log notifier", zap.Bool("enabled", cfg.Enabled))
		return NewLogNotifier(renderer, logger), nil
	}

	switch cfg.Provider {
	case "ses":
		client, err := NewSESClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SES notifier",
			zap.String("region", cfg.Region),
			zap.String("from", cfg.FromAddress),
		)
		return NewSESNotifier(client, renderer, cfg.FromAddress, cfg.SendTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown notification provider: %s", cfg.Provider)
	}
}
