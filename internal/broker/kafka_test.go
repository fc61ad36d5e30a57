package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/config"
	"conduit/internal/logger"
	apperrors "conduit/pkg/errors"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type recordingProducer struct {
	mu      sync.Mutex
	records []Record
	topics  []string
}

func (p *recordingProducer) Publish(_ context.Context, topic string, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) published() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.records...)
}

func newTestConsumer(r reader, dlq Producer) *KafkaConsumer {
	c := NewKafkaConsumer(config.KafkaConfig{
		GroupID:  "test",
		DLQTopic: "conduit.dlq",
		Retry:    config.RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, logger.NopLogger())
	c.newReader = func(string) reader { return r }
	c.dlqProducer = dlq
	return c
}

func TestKafkaConsumer_HandlesAndCommits(t *testing.T) {
	r := &fakeReader{messages: []kafka.Message{
		{Topic: "in", Key: []byte("m1"), Value: []byte(`{"a":1}`), Headers: []kafka.Header{{Key: "h", Value: []byte("v")}}},
	}}
	dlq := &recordingProducer{}
	c := newTestConsumer(r, dlq)

	var got []Record
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, "in", func(_ context.Context, rec Record) error {
			mu.Lock()
			got = append(got, rec)
			mu.Unlock()
			return nil
		})
	}()

	require.Eventually(t, func() bool { return r.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].Key)
	assert.Equal(t, "v", got[0].Headers["h"])
	assert.Empty(t, dlq.published())
	assert.True(t, r.closed)
}

func TestKafkaConsumer_ForwardsToDLQAfterRetries(t *testing.T) {
	r := &fakeReader{messages: []kafka.Message{{Topic: "in", Key: []byte("m1"), Value: []byte("x")}}}
	dlq := &recordingProducer{}
	c := newTestConsumer(r, dlq)

	var attempts int
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = c.Consume(ctx, "in", func(context.Context, Record) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return errors.New("downstream unavailable")
		})
	}()

	require.Eventually(t, func() bool { return r.committedCount() == 1 }, time.Second, 5*time.Millisecond)

	published := dlq.published()
	require.Len(t, published, 1)
	assert.Equal(t, "m1", published[0].Key)
	assert.Equal(t, "in", published[0].Headers[HeaderDLQSourceTopic])
	assert.Contains(t, published[0].Headers[HeaderDLQReason], "downstream unavailable")
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestKafkaConsumer_ValidationErrorsAreNotRetried(t *testing.T) {
	r := &fakeReader{messages: []kafka.Message{{Topic: "in", Key: []byte("bad"), Value: []byte("x")}}}
	dlq := &recordingProducer{}
	c := newTestConsumer(r, dlq)

	var attempts int
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = c.Consume(ctx, "in", func(context.Context, Record) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return apperrors.NewValidation("payload", "not json")
		})
	}()

	require.Eventually(t, func() bool { return r.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, attempts)
	mu.Unlock()
	assert.Len(t, dlq.published(), 1)
}

func TestHeaders_RoundTrip(t *testing.T) {
	in := map[string]string{"b": "2", "a": "1"}

	headers := toKafkaHeaders(in)
	require.Len(t, headers, 2)
	assert.Equal(t, "a", headers[0].Key)
	assert.Equal(t, in, fromKafkaHeaders(headers))
	assert.Nil(t, toKafkaHeaders(nil))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{}, logger.NopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, logger.NopLogger())
	assert.Error(t, err)
}
