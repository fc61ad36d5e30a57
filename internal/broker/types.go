// Package broker carries records over Kafka for the inbound consumer, the
// dead-letter topic and the event sink.
package broker

import (
	"context"
	"time"
)

// Record is a broker-neutral message.
type Record struct {
	Key     string
	Value   []byte
	Headers map[string]string
	Topic   string
	Time    time.Time
}

type Producer interface {
	Publish(ctx context.Context, topic string, rec Record) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, rec Record) error
