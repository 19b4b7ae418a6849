package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ licensingapp.Notifier = (*SESNotifier)(nil)

// SESAPI is the subset of the SES client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends notifications as email through Amazon SES
type SESNotifier struct {
	client   SESAPI
	renderer *Renderer
	from     string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSESNotifier creates a notifier around an existing SES client
func NewSESNotifier(client SESAPI, renderer *Renderer, from string, timeout time.Duration, logger *zap.Logger) *SESNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SESNotifier{
		client:   client,
		renderer: renderer,
		from:     from,
		timeout:  timeout,
		logger:   logger,
	}
}

// NewSESClient builds an SES client from configuration.
// Static credentials are used when both keys are set, otherwise the default AWS chain.
func NewSESClient(ctx context.Context, cfg config.NotificationConfig) (*ses.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Send renders n and sends it to its recipient
func (s *SESNotifier) Send(ctx context.Context, n licensingapp.Notification) error {
	if n.Recipient == "" {
		return errors.New("notification recipient is required")
	}
	msg, err := s.renderer.Render(n.Template, n.Variables)
	if err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	s.logger.Debug("Notification sent",
		zap.String("template", n.Template),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
