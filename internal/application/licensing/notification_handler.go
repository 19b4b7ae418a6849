package licensing

import (
	"context"
	"fmt"
	"time"

	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Notification templates
const (
	TemplateSubmitted         = "license_submitted"
	TemplateApproved          = "license_approved"
	TemplateRejected          = "license_rejected"
	TemplateRevisionRequested = "license_revision_requested"
	TemplateExpired           = "license_expired"
)

// Notification is one message to an applicant
type Notification struct {
	Recipient string
	Template  string
	Variables map[string]string
}

// Notifier delivers notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationHandler turns application events into applicant notifications.
// Delivery is fire-and-forget: failures are logged and never fail the workflow.
type NotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NotificationHandlerOption is a functional option for configuring the handler
type NotificationHandlerOption func(*NotificationHandler)

// WithNotificationLogger sets the logger
func WithNotificationLogger(l *zap.Logger) NotificationHandlerOption {
	return func(h *NotificationHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewNotificationHandler creates a new handler for application events
func NewNotificationHandler(notifier Notifier, opts ...NotificationHandlerOption) *NotificationHandler {
	h := &NotificationHandler{
		notifier: notifier,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		licensing.EventTypeApplicationSubmitted,
		licensing.EventTypeApplicationApproved,
		licensing.EventTypeApplicationRejected,
		licensing.EventTypeApplicationRevisionRequested,
		licensing.EventTypeApplicationExpired,
	}
}

// Handle sends the notification for event. It only returns an error for unexpected event types.
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, ok := h.build(event)
	if !ok {
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	if n.Recipient == "" {
		h.logger.Debug("Skipping notification without recipient",
			zap.String("event_type", event.EventType()),
			zap.String("application_id", event.AggregateID().String()),
		)
		return nil
	}

	if err := h.notifier.Send(ctx, n); err != nil {
		h.logger.Warn("Failed to send notification",
			zap.String("template", n.Template),
			zap.String("application_id", event.AggregateID().String()),
			zap.Error(err),
		)
		return nil
	}
	h.logger.Info("Notification sent",
		zap.String("template", n.Template),
		zap.String("application_id", event.AggregateID().String()),
	)
	return nil
}

func (h *NotificationHandler) build(event shared.DomainEvent) (Notification, bool) {
	switch e := event.(type) {
	case *licensing.ApplicationSubmittedEvent:
		n := newNotification(TemplateSubmitted, e.ApplicationEventData)
		n.Variables["priority"] = e.Priority.String()
		if !e.EstimatedCompletionAt.IsZero() {
			n.Variables["estimated_completion"] = e.EstimatedCompletionAt.Format(time.DateOnly)
		}
		return n, true
	case *licensing.ApplicationApprovedEvent:
		n := newNotification(TemplateApproved, e.ApplicationEventData)
		n.Variables["license_number"] = e.LicenseNumber
		n.Variables["issuing_authority"] = e.IssuingAuthority
		n.Variables["issue_date"] = e.IssueDate.Format(time.DateOnly)
		if e.ExpiryDate != nil {
			n.Variables["expiry_date"] = e.ExpiryDate.Format(time.DateOnly)
		}
		return n, true
	case *licensing.ApplicationRejectedEvent:
		n := newNotification(TemplateRejected, e.ApplicationEventData)
		n.Variables["reason"] = e.Reason
		return n, true
	case *licensing.ApplicationRevisionRequestedEvent:
		n := newNotification(TemplateRevisionRequested, e.ApplicationEventData)
		n.Variables["comments"] = e.Comments
		return n, true
	case *licensing.ApplicationExpiredEvent:
		n := newNotification(TemplateExpired, e.ApplicationEventData)
		n.Variables["license_number"] = e.LicenseNumber
		return n, true
	}
	return Notification{}, false
}

func newNotification(template string, data licensing.ApplicationEventData) Notification {
	return Notification{
		Recipient: data.ContactEmail,
		Template:  template,
		Variables: map[string]string{
			"application_id": data.ApplicationID.String(),
			"title":          data.Title,
			"license_type":   data.LicenseType.DisplayName(),
		},
	}
}
