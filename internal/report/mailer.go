package report

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

// ErrNoRecipients is returned when a report has nobody to go to.
var ErrNoRecipients = errors.New("report has no recipients")

// SESAPI is the part of the SES v2 client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer delivers rendered reports.
type Mailer struct {
	client     SESAPI
	from       string
	recipients []string
}

// NewMailer builds an SES client from cfg. Static keys are used when set,
// otherwise the default credential chain.
func NewMailer(ctx context.Context, cfg config.ReportConfig) (*Mailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for SES: %w", err)
	}
	return NewMailerWithClient(sesv2.NewFromConfig(awsCfg), cfg.FromAddress, cfg.Recipients), nil
}

// NewMailerWithClient wraps an existing SES client.
func NewMailerWithClient(client SESAPI, from string, recipients []string) *Mailer {
	return &Mailer{client: client, from: from, recipients: recipients}
}

// Send mails body to the configured recipients. The markdown goes out as
// the text part and, preformatted, as the HTML part. It returns the SES
// message id.
func (m *Mailer) Send(ctx context.Context, subject, body string) (string, error) {
	if len(m.recipients) == 0 {
		return "", ErrNoRecipients
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: m.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String("<pre>" + html.EscapeString(body) + "</pre>"), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("source"), Value: aws.String("marketing-analytics")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}

	id := aws.ToString(out.MessageId)
	logger.Info("report emailed", "subject", subject, "recipients", len(m.recipients), "message_id", id)
	return id, nil
}
