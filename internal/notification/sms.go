package notification

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "orderflow/internal/common/aws"
)

// SMSSender is the SMS collaborator, isolated from email so the two channels
// fail independently.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// DisabledSMSSender accepts and drops messages. Used when the SMS channel
// is switched off in config.
type DisabledSMSSender struct{}

func (DisabledSMSSender) Send(ctx context.Context, to, body string) error {
	return nil
}

// SNSSMSSender publishes SMS messages through SNS.
type SNSSMSSender struct {
	client   commonaws.SNSAPI
	senderID string
}

func NewSNSSMSSender(client commonaws.SNSAPI, senderID string) *SNSSMSSender {
	return &SNSSMSSender{client: client, senderID: senderID}
}

func (s *SNSSMSSender) Send(ctx context.Context, to, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}
	_, err := s.client.Publish(ctx, input)
	return err
}
