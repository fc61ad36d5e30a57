package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/broker"
	"conduit/internal/logger"
	"conduit/pkg/models"
)

func TestWorkerPool_DrainsQueues(t *testing.T) {
	h := newHarness(t, WithQueues("outbound", "bulk"))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		m := message(fmt.Sprintf("m%d", i), models.PriorityNormal)
		if i%2 == 0 {
			m.Queue = "bulk"
		}
		_, err := h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
		require.NoError(t, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	pool := NewWorkerPool(h.orchestrator, nil, 3, logger.NopLogger())
	go func() { done <- pool.Run(runCtx) }()

	require.Eventually(t, func() bool { return len(h.adapter.sent()) == 10 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker pool did not stop")
	}

	for _, s := range h.orchestrator.QueueStatus(ctx) {
		assert.Equal(t, 0, s.Depth, s.Queue)
		assert.Equal(t, 0, s.Processing, s.Queue)
	}
}

type captureProducer struct {
	topic string
	rec   broker.Record
}

func (p *captureProducer) Publish(_ context.Context, topic string, rec broker.Record) error {
	p.topic = topic
	p.rec = rec
	return nil
}

func (p *captureProducer) Close() error { return nil }

func TestBrokerDeadLetterPublisher(t *testing.T) {
	producer := &captureProducer{}
	pub := NewBrokerDeadLetterPublisher(producer, "conduit.dlq")

	msg := &models.Message{ID: "m1", Queue: "outbound", EndpointID: "e1", RetryCount: 3}
	require.NoError(t, pub.Publish(context.Background(), msg, "timeout"))

	assert.Equal(t, "conduit.dlq", producer.topic)
	assert.Equal(t, "m1", producer.rec.Key)
	assert.Equal(t, "timeout", producer.rec.Headers[broker.HeaderDLQReason])
	assert.Equal(t, "3", producer.rec.Headers["x-retry-count"])
	assert.Contains(t, string(producer.rec.Value), `"id":"m1"`)
}

func TestWorkerPool_ServesQueuesCreatedWhileRunning(t *testing.T) {
	h := newHarness(t, WithQueues("outbound"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewWorkerPool(h.orchestrator, nil, 1, logger.NopLogger())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	m := message("late", models.PriorityNormal)
	m.Queue = "billing"
	_, err := h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(h.adapter.sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	_, err = h.orchestrator.Message(ctx, "late")
	assert.Error(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker pool did not stop")
	}
}
