package bootstrap

import (
	"context"
	"fmt"

	"conduit/internal/broker"
	"conduit/internal/config"
	"conduit/internal/logger"
)

// Base holds what every process needs: configuration, the logger and, when
// Kafka is configured, a shared producer and the inbound consumer.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker connects the producer, and the consumer when an inbound topic
// is configured. Without brokers it does nothing.
func (b *Base) InitBroker(serviceName string) error {
	kafkaCfg := b.Config.Broker.Kafka
	if !kafkaCfg.Enabled() {
		b.Logger.Info("Kafka not configured, broker features disabled")
		return nil
	}

	producer, err := broker.NewProducer(kafkaCfg, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer

	if kafkaCfg.InboundTopic == "" {
		return nil
	}

	consumer, err := broker.NewConsumer(kafkaCfg, b.Logger)
	if err != nil {
		producer.Close()
		b.Producer = nil
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}
	b.Consumer = consumer
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

// Shutdown closes the broker clients, then runs additionalShutdown.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
