package queue

import (
	"context"
	"strconv"
	"time"

	"conduit/internal/broker"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

// DeadLetterPublisher hands dead-lettered messages to durable storage
// outside the gateway.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg *models.Message, reason string) error
}

type NopDeadLetterPublisher struct{}

func (NopDeadLetterPublisher) Publish(context.Context, *models.Message, string) error { return nil }

// BrokerDeadLetterPublisher writes dead-lettered messages as JSON to a topic.
type BrokerDeadLetterPublisher struct {
	producer broker.Producer
	topic    string
}

func NewBrokerDeadLetterPublisher(producer broker.Producer, topic string) *BrokerDeadLetterPublisher {
	return &BrokerDeadLetterPublisher{producer: producer, topic: topic}
}

func (p *BrokerDeadLetterPublisher) Publish(ctx context.Context, msg *models.Message, reason string) error {
	headers := map[string]string{
		broker.HeaderDLQReason:    reason,
		broker.HeaderDLQTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
		"x-queue":                 msg.Queue,
		"x-endpoint-id":           msg.EndpointID,
		"x-retry-count":           strconv.Itoa(msg.RetryCount),
	}
	if err := broker.PublishJSON(ctx, p.producer, p.topic, msg.ID, msg, headers); err != nil {
		return err
	}
	metrics.DLQMessagesTotal.WithLabelValues(msg.Queue, "max_retries_exceeded").Inc()
	return nil
}
