package licensing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func newEventApplication(t *testing.T, email string) *licensing.Application {
	t.Helper()
	app, err := licensing.NewApplication(licensing.NewApplicationInput{
		CompanyID:    uuid.New(),
		ApplicantID:  uuid.New(),
		LicenseType:  licensing.LicenseTypeNIB,
		Title:        "Kopi Nusantara",
		ContactEmail: email,
	})
	require.NoError(t, err)
	return app
}

func TestNotificationHandler_EventTypes(t *testing.T) {
	h := NewNotificationHandler(&mockNotifier{})
	assert.ElementsMatch(t, []string{
		licensing.EventTypeApplicationSubmitted,
		licensing.EventTypeApplicationApproved,
		licensing.EventTypeApplicationRejected,
		licensing.EventTypeApplicationRevisionRequested,
		licensing.EventTypeApplicationExpired,
	}, h.EventTypes())
}

func TestNotificationHandler_Handle(t *testing.T) {
	ctx := context.Background()
	app := newEventApplication(t, "owner@example.com")
	app.LicenseNumber = "NIB-20260301-ABCDEF12"
	app.IssuingAuthority = "Lembaga OSS"
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	app.IssueDate = &issued
	app.RejectionReason = "Incomplete deed"

	tests := []struct {
		name     string
		event    shared.DomainEvent
		template string
		vars     map[string]string
	}{
		{"submitted", licensing.NewApplicationSubmittedEvent(app), TemplateSubmitted, map[string]string{"priority": "NORMAL"}},
		{"approved", licensing.NewApplicationApprovedEvent(app), TemplateApproved, map[string]string{
			"license_number": "NIB-20260301-ABCDEF12", "issue_date": "2026-03-01", "issuing_authority": "Lembaga OSS",
		}},
		{"rejected", licensing.NewApplicationRejectedEvent(app), TemplateRejected, map[string]string{"reason": "Incomplete deed"}},
		{"revision", licensing.NewApplicationRevisionRequestedEvent(app, "Upload KTP"), TemplateRevisionRequested, map[string]string{"comments": "Upload KTP"}},
		{"expired", licensing.NewApplicationExpiredEvent(app), TemplateExpired, map[string]string{"license_number": "NIB-20260301-ABCDEF12"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			notifier.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
				if n.Recipient != "owner@example.com" || n.Template != tt.template {
					return false
				}
				if n.Variables["application_id"] != app.ID.String() || n.Variables["title"] != "Kopi Nusantara" {
					return false
				}
				for k, v := range tt.vars {
					if n.Variables[k] != v {
						return false
					}
				}
				return true
			})).Return(nil).Once()

			h := NewNotificationHandler(notifier)
			require.NoError(t, h.Handle(ctx, tt.event))
			notifier.AssertExpectations(t)
		})
	}
}

func TestNotificationHandler_SkipsWithoutRecipient(t *testing.T) {
	notifier := &mockNotifier{}
	h := NewNotificationHandler(notifier)

	err := h.Handle(context.Background(), licensing.NewApplicationSubmittedEvent(newEventApplication(t, "")))
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestNotificationHandler_DeliveryFailureIsSwallowed(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("ses throttled"))
	core, logs := observer.New(zapcore.WarnLevel)

	h := NewNotificationHandler(notifier, WithNotificationLogger(zap.New(core)))
	err := h.Handle(context.Background(), licensing.NewApplicationRejectedEvent(newEventApplication(t, "a@b.co")))

	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Failed to send notification").Len())
}

type otherEvent struct {
	shared.BaseDomainEvent
}

func TestNotificationHandler_UnexpectedEvent(t *testing.T) {
	h := NewNotificationHandler(&mockNotifier{})
	ev := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", "Other", uuid.New(), uuid.New())}

	assert.Error(t, h.Handle(context.Background(), ev))
}
