package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/pricepulse/backend/internal/model"
)

const charsetUTF8 = "UTF-8"

// SESTransport sends mail through Amazon SES from a fixed verified sender
type SESTransport struct {
	client *ses.Client
	sender string
}

// NewSESTransport builds a transport against the given region using ambient
// AWS credentials.
func NewSESTransport(ctx context.Context, region, sender string) (*SESTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESTransport{
		client: ses.NewFromConfig(cfg),
		sender: sender,
	}, nil
}

func (t *SESTransport) Send(ctx context.Context, notification model.EmailNotification) error {
	input := &ses.SendEmailInput{
		Source: aws.String(t.sender),
		Destination: &types.Destination{
			ToAddresses: []string{notification.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(notification.Subject),
				Charset: aws.String(charsetUTF8),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(notification.Body),
					Charset: aws.String(charsetUTF8),
				},
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending email to %s: %w", notification.Recipient, err)
	}
	return nil
}

func (t *SESTransport) VerifiedAddresses(ctx context.Context) ([]string, error) {
	out, err := t.client.ListVerifiedEmailAddresses(ctx, &ses.ListVerifiedEmailAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("listing verified addresses: %w", err)
	}
	return out.VerifiedEmailAddresses, nil
}
