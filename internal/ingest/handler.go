// Package ingest turns records from the inbound topic into queued messages.
package ingest

import (
	"context"
	"encoding/json"
	"errors"

	"conduit/internal/broker"
	"conduit/internal/constants"
	"conduit/internal/logger"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/logging"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, msg models.Message, priority models.Priority) (string, error)
}

type Handler struct {
	queue  Enqueuer
	logger logger.Logger
}

func NewHandler(queue Enqueuer, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Handler{queue: queue, logger: log}
}

// Decode parses rec into an envelope. Headers fill the tenant and
// correlation id when the body leaves them empty.
func Decode(rec broker.Record) (*models.InboundEnvelope, error) {
	var env models.InboundEnvelope
	if err := json.Unmarshal(rec.Value, &env); err != nil {
		return nil, apperrors.NewValidation("envelope", "malformed JSON").WithCause(err)
	}
	if err := models.ValidateInboundEnvelope(&env); err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return nil, apperrors.NewValidation(ve.Field, ve.Message)
		}
		return nil, apperrors.ErrValidation.WithCause(err)
	}

	if env.TenantID == "" {
		env.TenantID = rec.Headers[constants.HeaderTenantID]
	}
	if id := rec.Headers[constants.HeaderCorrelationID]; id != "" {
		if env.Metadata == nil {
			env.Metadata = make(map[string]string, 1)
		}
		if _, ok := env.Metadata["correlation_id"]; !ok {
			env.Metadata["correlation_id"] = id
		}
	}
	return &env, nil
}

// Handle is a broker.HandlerFunc. Invalid records fail with a validation
// error, which the consumer routes to the DLQ without retrying. A message
// already seen is acknowledged.
func (h *Handler) Handle(ctx context.Context, rec broker.Record) (err error) {
	ctx, span := tracing.GetTracer("conduit-ingest").Start(ctx, "ingest.handle")
	defer func() { tracing.EndSpan(span, err) }()

	env, err := Decode(rec)
	if err != nil {
		h.logger.WarnwCtx(ctx, "Rejected inbound record", "topic", rec.Topic, "key", string(rec.Key), "error", err)
		return err
	}

	msg := env.ToMessage()
	if msg.ID != "" {
		ctx = logging.WithMessageID(ctx, msg.ID)
	}
	if cid := msg.Metadata["correlation_id"]; cid != "" {
		ctx = logging.WithCorrelationID(ctx, cid)
	}

	id, err := h.queue.Enqueue(ctx, *msg, env.Priority)
	switch {
	case apperrors.IsDuplicate(err):
		h.logger.InfowCtx(ctx, "Skipped duplicate inbound message", "message_id", msg.ID)
		return nil
	case err != nil:
		h.logger.ErrorwCtx(ctx, "Failed to enqueue inbound message", "queue", msg.Queue, "error", err)
		return err
	}

	h.logger.DebugwCtx(ctx, "Inbound message enqueued", "message_id", id, "queue", msg.Queue)
	return nil
}

// Run consumes topic until ctx is done.
func (h *Handler) Run(ctx context.Context, consumer broker.Consumer, topic string) error {
	h.logger.InfowCtx(ctx, "Starting inbound consumer", "topic", topic)
	return consumer.Consume(ctx, topic, h.Handle)
}
