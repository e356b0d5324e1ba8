// Package ses implements mail.Transport on Amazon SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	mailer "github.com/phrazzld/boardnotify/internal/mail"
)

// API is the subset of the SES v2 client used by the transport.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// Transport sends email through SES.
type Transport struct {
	client API
	from   string
	logger *slog.Logger
}

// NewFromEnvironment loads AWS configuration from the default credential
// chain, optionally pinning the region, and builds a Transport.
func NewFromEnvironment(ctx context.Context, region, fromAddress, fromName string, logger *slog.Logger) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return New(sesv2.NewFromConfig(cfg), fromAddress, fromName, logger)
}

// New creates a Transport on an existing client.
func New(client API, fromAddress, fromName string, logger *slog.Logger) (*Transport, error) {
	if fromAddress == "" {
		return nil, fmt.Errorf("%w: from address is required", mailer.ErrNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}

	from := (&mail.Address{Name: fromName, Address: fromAddress}).String()
	return &Transport{
		client: client,
		from:   from,
		logger: logger.With(slog.String("component", "ses_transport")),
	}, nil
}

// Ensure Transport implements mail.Transport interface
var _ mailer.Transport = (*Transport)(nil)

// Send implements mail.Transport.Send. Provider rejections are reported in
// the Result; network and throttling failures are returned as errors.
func (t *Transport) Send(ctx context.Context, msg mailer.Message) (*mailer.Result, error) {
	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	out, err := t.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(t.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		var rejected *types.MessageRejected
		var notVerified *types.MailFromDomainNotVerifiedException
		if errors.As(err, &rejected) || errors.As(err, &notVerified) {
			t.logger.Warn("ses rejected message", slog.String("to", msg.To), slog.String("error", err.Error()))
			return &mailer.Result{Success: false, Error: errorMessage(err)}, nil
		}
		return nil, fmt.Errorf("ses send email: %w", err)
	}

	return &mailer.Result{Success: true, MessageID: aws.ToString(out.MessageId)}, nil
}

// Verify implements mail.Transport.Verify by reading the account's sending status.
func (t *Transport) Verify(ctx context.Context) error {
	out, err := t.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return fmt.Errorf("ses get account: %w", err)
	}
	if !out.SendingEnabled {
		return fmt.Errorf("%w: ses sending is disabled for this account", mailer.ErrNotConfigured)
	}
	return nil
}

func errorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
	}
	return err.Error()
}
