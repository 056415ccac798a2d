package kafka

import (
	"context"
	"encoding/json"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"github.com/segmentio/kafka-go"
)

// ReconcileEventProducer publishes order-reconciled events for
// downstream consumers (notifications, analytics).
type ReconcileEventProducer struct {
	writer *kafka.Writer
}

func NewReconcileEventProducer(brokers []string, topic string) *ReconcileEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &ReconcileEventProducer{writer: w}
}

func (p *ReconcileEventProducer) PublishOrderReconciled(ctx context.Context, evt models.OrderReconciledEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.SessionID),
		Value: data,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *ReconcileEventProducer) Close() error {
	return p.writer.Close()
}
