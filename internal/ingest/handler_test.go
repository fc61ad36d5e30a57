package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/broker"
	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

type enqueueCall struct {
	msg      models.Message
	priority models.Priority
}

type fakeQueue struct {
	calls []enqueueCall
	err   error
}

func (f *fakeQueue) Enqueue(_ context.Context, msg models.Message, priority models.Priority) (string, error) {
	f.calls = append(f.calls, enqueueCall{msg: msg, priority: priority})
	if f.err != nil {
		return "", f.err
	}
	if msg.ID == "" {
		return "generated", nil
	}
	return msg.ID, nil
}

func TestHandle_EnqueuesEnvelope(t *testing.T) {
	q := &fakeQueue{}
	h := NewHandler(q, nil)

	rec := broker.Record{
		Topic: "inbound",
		Value: []byte(`{"id":"m1","queue":"orders","endpoint_id":"e1","priority":"high","payload":{"n":1},"metadata":{"k":"v"}}`),
		Headers: map[string]string{
			constants.HeaderTenantID:      "acme",
			constants.HeaderCorrelationID: "corr-1",
		},
	}
	require.NoError(t, h.Handle(context.Background(), rec))

	require.Len(t, q.calls, 1)
	call := q.calls[0]
	assert.Equal(t, models.PriorityHigh, call.priority)
	assert.Equal(t, "m1", call.msg.ID)
	assert.Equal(t, "orders", call.msg.Queue)
	assert.Equal(t, "e1", call.msg.EndpointID)
	assert.Equal(t, "acme", call.msg.TenantID)
	assert.JSONEq(t, `{"n":1}`, string(call.msg.Payload))
	assert.Equal(t, "v", call.msg.Metadata["k"])
	assert.Equal(t, "corr-1", call.msg.Metadata["correlation_id"])
}

func TestHandle_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name  string
		value string
		field string
	}{
		{"malformed", `{"queue":`, "envelope"},
		{"missing queue", `{"endpoint_id":"e1","payload":{}}`, "queue"},
		{"missing endpoint", `{"queue":"q","payload":{}}`, "endpoint_id"},
		{"missing payload", `{"queue":"q","endpoint_id":"e1"}`, "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			err := NewHandler(q, nil).Handle(context.Background(), broker.Record{Value: []byte(tt.value)})

			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.True(t, appErr.IsFatal(), "validation failures must not be retried")
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Empty(t, q.calls)
		})
	}
}

func TestHandle_DuplicateIsAcknowledged(t *testing.T) {
	q := &fakeQueue{err: apperrors.NewDuplicate("message", "m1")}
	rec := broker.Record{Value: []byte(`{"id":"m1","queue":"q","endpoint_id":"e1","payload":{}}`)}

	assert.NoError(t, NewHandler(q, nil).Handle(context.Background(), rec))
}

func TestHandle_PropagatesQueueFailure(t *testing.T) {
	q := &fakeQueue{err: apperrors.ErrServiceUnavailable}
	rec := broker.Record{Value: []byte(`{"queue":"q","endpoint_id":"e1","payload":{}}`)}

	err := NewHandler(q, nil).Handle(context.Background(), rec)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestDecode_BodyTenantWins(t *testing.T) {
	env, err := Decode(broker.Record{
		Value:   []byte(`{"tenant_id":"body","queue":"q","endpoint_id":"e1","payload":"a: 1","format":"yaml"}`),
		Headers: map[string]string{constants.HeaderTenantID: "header"},
	})
	require.NoError(t, err)
	assert.Equal(t, "body", env.TenantID)
	assert.Equal(t, "a: 1", string(env.ToMessage().Payload))
}
