package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	commonaws "orderflow/internal/common/aws"
)

// EmailSender is the mail-sending collaborator the dispatcher hands off to.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SESEmailSender sends templated HTML mail through SES.
type SESEmailSender struct {
	client commonaws.SESAPI
	from   string
}

func NewSESEmailSender(client commonaws.SESAPI, from string) *SESEmailSender {
	return &SESEmailSender{client: client, from: from}
}

func (s *SESEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(subject)},
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(s.from),
	})
	return err
}

// DisabledEmailSender accepts and drops mail. Used when the email channel
// is switched off in config.
type DisabledEmailSender struct{}

func (DisabledEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	return nil
}

// RenderEmailHTML wraps a message body in the standard mail layout.
func RenderEmailHTML(title, body string) string {
	return fmt.Sprintf(
		`<html><body><h2>%s</h2><p>%s</p><p style="color:#888;font-size:12px">You are receiving this because you placed an order.</p></body></html>`,
		title, body)
}
