package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func TestRenderer_Render(t *testing.T) {
	r := newRenderer(t)

	msg, err := r.Render(licensingapp.TemplateApproved, map[string]string{
		"title":             "Kopi Nusantara",
		"license_type":      "Nomor Induk Berusaha",
		"license_number":    "NIB-20260301-ABCDEF12",
		"issuing_authority": "Lembaga OSS",
		"issue_date":        "2026-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Izin Nomor Induk Berusaha disetujui: NIB-20260301-ABCDEF12", msg.Subject)
	assert.Contains(t, msg.Body, "Diterbitkan oleh: Lembaga OSS")
	assert.NotContains(t, msg.Body, "Berlaku sampai")
}

func TestRenderer_MissingVariablesRenderEmpty(t *testing.T) {
	r := newRenderer(t)

	msg, err := r.Render(licensingapp.TemplateRejected, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(msg.Body, "Alasan: "))
	assert.NotContains(t, msg.Body, "no value")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	_, err := newRenderer(t).Render("nope", nil)
	assert.Error(t, err)
}

func TestRenderer_AllTemplatesRegistered(t *testing.T) {
	r := newRenderer(t)
	for _, name := range []string{
		licensingapp.TemplateSubmitted,
		licensingapp.TemplateApproved,
		licensingapp.TemplateRejected,
		licensingapp.TemplateRevisionRequested,
		licensingapp.TemplateExpired,
	} {
		_, err := r.Render(name, map[string]string{})
		assert.NoError(t, err, name)
	}
}

func TestSESNotifier_Send(t *testing.T) {
	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "perizinan@umkm.go.id" &&
			len(in.Destination.ToAddresses) == 1 &&
			in.Destination.ToAddresses[0] == "owner@example.com" &&
			aws.ToString(in.Message.Subject.Data) == "Permohonan NIB ditolak" &&
			aws.ToString(in.Message.Body.Text.Data) != ""
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil).Once()

	n := NewSESNotifier(client, newRenderer(t), "perizinan@umkm.go.id", time.Second, zap.NewNop())
	err := n.Send(context.Background(), licensingapp.Notification{
		Recipient: "owner@example.com",
		Template:  licensingapp.TemplateRejected,
		Variables: map[string]string{"license_type": "NIB", "reason": "Akta tidak lengkap"},
	})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSESNotifier_SendFailure(t *testing.T) {
	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := NewSESNotifier(client, newRenderer(t), "from@example.com", 0, nil)
	err := n.Send(context.Background(), licensingapp.Notification{
		Recipient: "owner@example.com",
		Template:  licensingapp.TemplateExpired,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSESNotifier_RequiresRecipient(t *testing.T) {
	client := &mockSES{}
	n := NewSESNotifier(client, newRenderer(t), "from@example.com", 0, nil)

	err := n.Send(context.Background(), licensingapp.Notification{Template: licensingapp.TemplateExpired})

	require.Error(t, err)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(newRenderer(t), zap.New(core))

	err := n.Send(context.Background(), licensingapp.Notification{
		Recipient: "owner@example.com",
		Template:  licensingapp.TemplateRevisionRequested,
		Variables: map[string]string{"comments": "Unggah KTP"},
	})

	require.NoError(t, err)
	entries := logs.FilterMessage("Notification").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["body"], "Unggah KTP")
}

func TestNewNotifier(t *testing.T) {
	t.Run("disabled uses log notifier", func(t *testing.T) {
		n, err := NewNotifier(context.Background(), config.NotificationConfig{Provider: "ses"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &LogNotifier{}, n)
	})

	t.Run("ses provider", func(t *testing.T) {
		n, err := NewNotifier(context.Background(), config.NotificationConfig{
			Enabled:     true,
			Provider:    "ses",
			Region:      "ap-southeast-3",
			AccessKey:   "key",
			SecretKey:   "secret",
			FromAddress: "perizinan@umkm.go.id",
		}, nil)
		require.NoError(t, err)
		assert.IsType(t, &SESNotifier{}, n)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewNotifier(context.Background(), config.NotificationConfig{Enabled: true, Provider: "pigeon"}, nil)
		assert.Error(t, err)
	})
}
