package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish publishes a raw message to the given SNS topic ARN.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	body := string(message)
	input := &sns.PublishInput{
		TopicArn: &topicArn,
		Message:  &body,
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}

// OrderEventPublisher adapts an SNSPublisher to the reconciliation
// event interface used by the webhook controller.
type OrderEventPublisher struct {
	sns      SNSPublisher
	topicArn string
}

func NewOrderEventPublisher(publisher SNSPublisher, topicArn string) *OrderEventPublisher {
	return &OrderEventPublisher{sns: publisher, topicArn: topicArn}
}

func (p *OrderEventPublisher) PublishOrderReconciled(ctx context.Context, evt models.OrderReconciledEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.sns.Publish(ctx, p.topicArn, data)
}
