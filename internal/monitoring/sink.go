package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"conduit/internal/broker"
	"conduit/internal/constants"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

// Sink persists audit events outside the process.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []models.Event) error
}

type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return constants.SinkPostgres }

func (s *PostgresSink) Write(ctx context.Context, events []models.Event) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "insert_events", err, time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin event transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+constants.EventsTable+` (id, tenant_id, type, endpoint_id, message_id, request_id, queue, protocol, success, duration_ms, error, attributes, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		attributes, marshalErr := json.Marshal(e.Attributes)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal event attributes: %w", marshalErr)
		}
		_, err = stmt.ExecContext(ctx,
			e.ID, nullString(e.TenantID), string(e.Type),
			nullString(e.EndpointID), nullString(e.MessageID), nullString(e.RequestID),
			nullString(e.Queue), nullString(e.Protocol),
			e.Success, e.Duration.Milliseconds(), nullString(e.Error),
			attributes, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type MongoSink struct {
	collection *mongo.Collection
}

func NewMongoSink(db *mongo.Database) *MongoSink {
	return &MongoSink{collection: db.Collection(constants.EventsCollection)}
}

func (s *MongoSink) Name() string { return constants.SinkMongoDB }

func (s *MongoSink) Write(ctx context.Context, events []models.Event) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("mongodb", "insert_events", err, time.Since(start)) }()

	docs := make([]interface{}, len(events))
	for i := range events {
		docs[i] = events[i]
	}
	_, err = s.collection.InsertMany(ctx, docs)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	return nil
}

// KafkaSink publishes each event as JSON keyed by event id.
type KafkaSink struct {
	producer broker.Producer
	topic    string
}

func NewKafkaSink(producer broker.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return constants.SinkKafka }

func (s *KafkaSink) Write(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		headers := map[string]string{"x-event-type": string(e.Type)}
		if err := broker.PublishJSON(ctx, s.producer, s.topic, e.ID, e, headers); err != nil {
			return err
		}
	}
	return nil
}

// MultiSink writes to every sink and joins their errors. A failing sink does
// not stop the others.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Write(ctx context.Context, events []models.Event) error {
	var errs []error
	for _, s := range m {
		if err := writeWithRetry(ctx, s, events); err != nil {
			metrics.IncEventSinkError(s.Name())
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
