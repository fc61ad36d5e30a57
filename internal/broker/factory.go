package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"conduit/internal/config"
	"conduit/internal/logger"
)

func NewProducer(cfg config.KafkaConfig, log logger.Logger) (Producer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	return NewKafkaProducer(cfg, log), nil
}

func NewConsumer(cfg config.KafkaConfig, log logger.Logger) (Consumer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer requires a group id")
	}
	return NewKafkaConsumer(cfg, log), nil
}

// PublishJSON marshals v and publishes it under key.
func PublishJSON(ctx context.Context, p Producer, topic, key string, v interface{}, headers map[string]string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return p.Publish(ctx, topic, Record{Key: key, Value: body, Headers: headers})
}
