package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

// KafkaAdapter publishes the payload as one record on a topic.
//
// Endpoint config: brokers (list or comma separated, required), topic
// (required), key (static record key, defaults to the request id).
type KafkaAdapter struct {
	writers       *clientCache[*kafka.Writer]
	dialer        *kafka.Dialer
	healthTimeout time.Duration
}

func NewKafkaAdapter(healthTimeout time.Duration) *KafkaAdapter {
	if healthTimeout <= 0 {
		healthTimeout = constants.DefaultHealthCheckTimeout
	}
	return &KafkaAdapter{
		writers:       newClientCache(func(w *kafka.Writer) error { return w.Close() }),
		dialer:        &kafka.Dialer{Timeout: constants.KafkaDialTimeout},
		healthTimeout: healthTimeout,
	}
}

func (a *KafkaAdapter) Protocol() string { return constants.ProtocolKafka }

func (a *KafkaAdapter) ValidateEndpoint(_ context.Context, endpoint *models.Endpoint) error {
	if err := requireConfig(endpoint, "topic"); err != nil {
		return err
	}
	if len(endpoint.ConfigStrings("brokers")) == 0 {
		return apperrors.NewValidation("config.brokers", "at least one broker is required")
	}
	return nil
}

func (a *KafkaAdapter) writer(endpoint *models.Endpoint) (*kafka.Writer, error) {
	brokers := endpoint.ConfigStrings("brokers")
	topic := endpoint.ConfigString("topic")
	key := strings.Join(brokers, ",") + "|" + topic

	return a.writers.get(key, func() (*kafka.Writer, error) {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           constants.KafkaBatchTimeout,
			WriteTimeout:           constants.KafkaWriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		}, nil
	})
}

func (a *KafkaAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(a.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	if err := a.ValidateEndpoint(ctx, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	w, err := a.writer(endpoint)
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	key := endpoint.ConfigString("key")
	if key == "" {
		key = req.ID
	}

	headers := make([]kafka.Header, 0, 8)
	for k, v := range requestHeaders(req) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if req.Format != "" {
		headers = append(headers, kafka.Header{Key: "content_format", Value: []byte(req.Format)})
	}
	headers = tracing.InjectTraceContext(ctx, headers)

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   req.Payload,
		Headers: headers,
		Time:    started,
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}
	metrics.IncKafkaMessagesWritten(w.Topic)
	metrics.ObserveKafkaWriteDuration(w.Topic, time.Since(started))

	return models.SuccessResponse(req, endpoint, started), nil
}

// CheckHealth dials a broker and reads the topic's partitions.
func (a *KafkaAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus {
	brokers := endpoint.ConfigStrings("brokers")
	topic := endpoint.ConfigString("topic")
	if len(brokers) == 0 {
		return models.HealthUnhealthy
	}

	return probe(ctx, a.healthTimeout, func(ctx context.Context) error {
		var lastErr error
		for _, broker := range brokers {
			conn, err := a.dialer.DialContext(ctx, "tcp", broker)
			if err != nil {
				lastErr = err
				continue
			}
			_, err = conn.ReadPartitions(topic)
			conn.Close()
			return err
		}
		return lastErr
	})
}

func (a *KafkaAdapter) Close() error {
	return a.writers.closeAll()
}
