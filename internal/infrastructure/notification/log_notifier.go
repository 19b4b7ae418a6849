package notification

import (
	"context"

	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"go.uber.org/zap"
)

var _ licensingapp.Notifier = (*LogNotifier)(nil)

// LogNotifier writes rendered notifications to the log instead of sending them.
// Used in development and when notifications are disabled.
type LogNotifier struct {
	renderer *Renderer
	logger   *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(renderer *Renderer, logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{renderer: renderer, logger: logger}
}

// Send logs the rendered notification
func (l *LogNotifier) Send(ctx context.Context, n licensingapp.Notification) error {
	msg, err := l.renderer.Render(n.Template, n.Variables)
	if err != nil {
		return err
	}
	l.logger.Info("Notification",
		zap.String("recipient", n.Recipient),
		zap.String("template", n.Template),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
