package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// SESConfig configures an SESSender. Empty keys fall back to the default
// AWS credential chain.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Envelope  Envelope
}

// sesAPI is the subset of the SES v2 client used for sending.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers raw MIME messages through AWS SES.
type SESSender struct {
	client sesAPI
	logger *slog.Logger
	now    func() time.Time
	env    Envelope
}

// NewSESSender loads AWS configuration and returns a sender.
func NewSESSender(ctx context.Context, cfg SESConfig, logger *slog.Logger) (*SESSender, error) {
	if err := cfg.Envelope.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config: %w", common.ErrInvalidConfig, err)
	}

	return newSESSender(sesv2.NewFromConfig(awsCfg), cfg.Envelope, logger), nil
}

func newSESSender(client sesAPI, env Envelope, logger *slog.Logger) *SESSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SESSender{client: client, env: env, logger: logger, now: time.Now}
}

// Send builds the message and submits it as raw content.
func (s *SESSender) Send(ctx context.Context, email service.Email) error {
	msg, err := BuildMessage(s.env, email, s.now())
	if err != nil {
		return err
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.env.From),
		Destination:      &types.Destination{ToAddresses: s.env.To},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: msg},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: ses: %w", common.ErrEmailSend, err)
	}

	s.logger.Info("Email sent",
		"transport", "ses",
		"message_id", aws.ToString(out.MessageId),
		"recipients", len(s.env.To),
		"attachments", len(email.Attachments))
	return nil
}
