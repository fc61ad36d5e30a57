package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/adapter"
	"conduit/internal/registry"
	"conduit/internal/tenant"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
	"conduit/pkg/retry"
)

type scriptedAdapter struct {
	mu       sync.Mutex
	outcomes []bool
	requests []*models.Request
}

func (a *scriptedAdapter) Protocol() string { return "http" }

// Send pops the next scripted outcome; once the script runs out every send
// succeeds.
func (a *scriptedAdapter) Send(_ context.Context, req *models.Request, ep *models.Endpoint) (*models.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)

	ok := true
	if len(a.outcomes) > 0 {
		ok = a.outcomes[0]
		a.outcomes = a.outcomes[1:]
	}
	if ok {
		return models.SuccessResponse(req, ep, time.Now()), nil
	}
	return models.FailureResponse(req, ep, time.Now(), apperrors.ErrTimeout, true), nil
}

func (a *scriptedAdapter) ValidateEndpoint(context.Context, *models.Endpoint) error { return nil }

func (a *scriptedAdapter) CheckHealth(context.Context, *models.Endpoint) models.HealthStatus {
	return models.HealthHealthy
}

func (a *scriptedAdapter) sent() []*models.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*models.Request(nil), a.requests...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg *models.Message, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type harness struct {
	orchestrator *Orchestrator
	adapter      *scriptedAdapter
	registry     *registry.Registry
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	a := &scriptedAdapter{}
	set, err := adapter.NewSet(a)
	require.NoError(t, err)

	reg := registry.New(set)
	_, err = reg.Register(context.Background(), models.Endpoint{ID: "e1", Name: "orders", Protocol: "http", Enabled: true})
	require.NoError(t, err)

	base := []Option{WithSchedule(retry.Schedule{InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 2})}
	return &harness{
		orchestrator: New(reg, set, append(base, opts...)...),
		adapter:      a,
		registry:     reg,
	}
}

func message(id string, p models.Priority) models.Message {
	return models.Message{ID: id, Queue: "outbound", EndpointID: "e1", Priority: p, Payload: []byte(`{"n":1}`), Format: "json"}
}

func dequeueNow(t *testing.T, o *Orchestrator, queue string) (*models.Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return o.Dequeue(ctx, queue)
}

func TestOrchestrator_DequeueOrdersByPriorityThenFIFO(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, m := range []models.Message{
		message("low", models.PriorityLow),
		message("high-1", models.PriorityHigh),
		message("normal", models.PriorityNormal),
		message("high-2", models.PriorityHigh),
		message("critical", models.PriorityCritical),
	} {
		_, err := h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
		require.NoError(t, err)
	}

	var order []string
	for i := 0; i < 5; i++ {
		msg, err := dequeueNow(t, h.orchestrator, "outbound")
		require.NoError(t, err)
		assert.Equal(t, models.StateProcessing, msg.State)
		order = append(order, msg.ID)
	}
	assert.Equal(t, []string{"critical", "high-1", "high-2", "normal", "low"}, order)
}

func TestOrchestrator_EnqueueDefaults(t *testing.T) {
	h := newHarness(t, WithMaxRetries(7), WithTenantProvider(tenant.StaticProvider("acme")))

	id, err := h.orchestrator.Enqueue(context.Background(), models.Message{EndpointID: "e1", Payload: []byte("{}")}, models.PriorityUnset)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msg, err := h.orchestrator.Message(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "default", msg.Queue)
	assert.Equal(t, models.PriorityNormal, msg.Priority)
	assert.Equal(t, models.StateQueued, msg.State)
	assert.Equal(t, 7, msg.MaxRetries)
	assert.Equal(t, "acme", msg.TenantID)
	assert.Equal(t, "json", msg.Format)
	assert.False(t, msg.EnqueuedAt.IsZero())
}

func TestOrchestrator_EnqueuePriorityArgumentWins(t *testing.T) {
	h := newHarness(t)

	id, err := h.orchestrator.Enqueue(context.Background(), message("m1", models.PriorityLow), models.PriorityCritical)
	require.NoError(t, err)

	msg, err := h.orchestrator.Message(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, msg.Priority)
}

func TestOrchestrator_EnqueueRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orchestrator.Enqueue(ctx, models.Message{ID: "m0", Payload: []byte("{}")}, models.PriorityUnset)
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.orchestrator.Enqueue(ctx, message("m1", models.PriorityNormal), models.Priority(42))
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.orchestrator.Enqueue(ctx, message("m2", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)
	_, err = h.orchestrator.Enqueue(ctx, message("m2", models.PriorityHigh), models.PriorityUnset)
	assert.True(t, apperrors.IsDuplicate(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = h.orchestrator.Enqueue(cancelled, message("m3", models.PriorityNormal), models.PriorityUnset)
	assert.True(t, apperrors.IsCanceled(err))
}

type denyDeduplicator struct{ err error }

func (d denyDeduplicator) IsDuplicate(context.Context, *models.Message) (bool, error) {
	return d.err == nil, d.err
}

func TestOrchestrator_EnqueueConsultsDeduplicator(t *testing.T) {
	h := newHarness(t, WithDeduplicator(denyDeduplicator{}))
	_, err := h.orchestrator.Enqueue(context.Background(), message("m1", models.PriorityNormal), models.PriorityUnset)
	assert.True(t, apperrors.IsDuplicate(err))

	h = newHarness(t, WithDeduplicator(denyDeduplicator{err: errors.New("redis down")}))
	_, err = h.orchestrator.Enqueue(context.Background(), message("m1", models.PriorityNormal), models.PriorityUnset)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavailable))
}

func TestOrchestrator_EnqueueResolvesEndpoint(t *testing.T) {
	h := newHarness(t, WithResolver(func(_ context.Context, req *models.Request) (string, error) {
		assert.Equal(t, "create", req.Operation)
		return "e1", nil
	}))

	id, err := h.orchestrator.Enqueue(context.Background(), models.Message{Operation: "create", Payload: []byte("{}")}, models.PriorityUnset)
	require.NoError(t, err)

	msg, err := h.orchestrator.Message(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "e1", msg.EndpointID)
}

func TestOrchestrator_DequeueCancelLeavesQueueIntact(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.orchestrator.Dequeue(ctx, "outbound")
	assert.True(t, apperrors.IsCanceled(err))

	_, err = h.orchestrator.Enqueue(context.Background(), message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)

	_, err = h.orchestrator.Dequeue(ctx, "outbound")
	assert.True(t, apperrors.IsCanceled(err))

	status := h.orchestrator.QueueStatus(context.Background())
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Depth)
	assert.Equal(t, 0, status[0].Processing)
}

func TestOrchestrator_DequeueWaitsForEnqueue(t *testing.T) {
	h := newHarness(t)

	got := make(chan *models.Message, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		msg, err := h.orchestrator.Dequeue(ctx, "outbound")
		if err == nil {
			got <- msg
		}
		close(got)
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := h.orchestrator.Enqueue(context.Background(), message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)

	select {
	case msg := <-got:
		require.NotNil(t, msg)
		assert.Equal(t, "m1", msg.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestOrchestrator_ConcurrentDequeueDeliversEachMessageOnce(t *testing.T) {
	h := newHarness(t)
	const total = 200

	for i := 0; i < total; i++ {
		_, err := h.orchestrator.Enqueue(context.Background(), message(fmt.Sprintf("m%03d", i), models.Priority(i%4+1)), models.PriorityUnset)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
				msg, err := h.orchestrator.Dequeue(ctx, "outbound")
				cancel()
				if err != nil {
					return
				}
				mu.Lock()
				seen[msg.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestOrchestrator_FailedMessageWaitsOutBackoff(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHarness(t, WithClock(clock.Now))
	h.adapter.outcomes = []bool{false}
	ctx := context.Background()

	_, err := h.orchestrator.Enqueue(ctx, message("urgent", models.PriorityCritical), models.PriorityUnset)
	require.NoError(t, err)

	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	failed, err := h.orchestrator.Message(ctx, "urgent")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, failed.State)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, clock.Now().Add(time.Second), failed.NextAttemptAt)
	assert.NotEmpty(t, failed.LastError)

	_, err = h.orchestrator.Enqueue(ctx, message("later", models.PriorityLow), models.PriorityUnset)
	require.NoError(t, err)

	next, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	assert.Equal(t, "later", next.ID)

	_, err = dequeueNow(t, h.orchestrator, "outbound")
	assert.True(t, apperrors.IsCanceled(err))

	clock.Advance(time.Second)
	retried, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	assert.Equal(t, "urgent", retried.ID)
	assert.Equal(t, 1, retried.RetryCount)
}

func TestOrchestrator_DeadLetterAndManualRetry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	publisher := &recordingPublisher{}
	h := newHarness(t, WithClock(clock.Now), WithDeadLetterPublisher(publisher))
	h.adapter.outcomes = []bool{false, false}
	ctx := context.Background()

	m := message("m1", models.PriorityNormal)
	m.MaxRetries = 2
	_, err := h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
	require.NoError(t, err)

	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	clock.Advance(time.Minute)
	msg, err = dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	err = h.orchestrator.Process(ctx, msg)
	assert.True(t, apperrors.IsDeadLetterExceeded(err))

	status := h.orchestrator.QueueStatus(ctx)
	require.Len(t, status, 1)
	assert.Equal(t, 0, status[0].Depth)
	assert.Equal(t, 1, status[0].DeadLettered)

	dead := h.orchestrator.DeadLetters(ctx, "outbound")
	require.Len(t, dead, 1)
	assert.Equal(t, models.StateDeadLettered, dead[0].State)
	assert.Equal(t, 2, dead[0].RetryCount)
	publisher.mu.Lock()
	assert.Len(t, publisher.messages, 1)
	publisher.mu.Unlock()

	_, err = dequeueNow(t, h.orchestrator, "outbound")
	assert.True(t, apperrors.IsCanceled(err))

	require.NoError(t, h.orchestrator.RetryFailed(ctx, "m1"))
	requeued, err := h.orchestrator.Message(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, requeued.State)
	assert.Equal(t, 0, requeued.RetryCount)

	msg, err = dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	_, err = h.orchestrator.Message(ctx, "m1")
	assert.True(t, apperrors.IsNotFound(err))
	status = h.orchestrator.QueueStatus(ctx)
	assert.Equal(t, 0, status[0].DeadLettered)
	assert.Equal(t, 0, status[0].Depth)
}

func TestOrchestrator_RetryFailedSkipsBackoff(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHarness(t, WithClock(clock.Now))
	h.adapter.outcomes = []bool{false}
	ctx := context.Background()

	_, err := h.orchestrator.Enqueue(ctx, message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)
	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	require.NoError(t, h.orchestrator.RetryFailed(ctx, "m1"))

	msg, err = dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, 0, msg.RetryCount)
}

func TestOrchestrator_RetryFailedRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.True(t, apperrors.IsNotFound(h.orchestrator.RetryFailed(ctx, "missing")))

	_, err := h.orchestrator.Enqueue(ctx, message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)
	assert.True(t, apperrors.IsValidation(h.orchestrator.RetryFailed(ctx, "m1")))

	_, err = dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	assert.True(t, apperrors.IsValidation(h.orchestrator.RetryFailed(ctx, "m1")))
}

func TestOrchestrator_ProcessRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.True(t, apperrors.IsValidation(h.orchestrator.Process(ctx, nil)))
	assert.True(t, apperrors.IsNotFound(h.orchestrator.Process(ctx, &models.Message{ID: "ghost"})))

	_, err := h.orchestrator.Enqueue(ctx, message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)
	assert.True(t, apperrors.IsValidation(h.orchestrator.Process(ctx, &models.Message{ID: "m1"})))
}

func TestOrchestrator_DisabledEndpointCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.registry.SetEnabled(ctx, "e1", false)
	require.NoError(t, err)

	_, err = h.orchestrator.Enqueue(ctx, message("m1", models.PriorityNormal), models.PriorityUnset)
	require.NoError(t, err)
	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	failed, err := h.orchestrator.Message(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, failed.State)
	assert.Contains(t, failed.LastError, apperrors.CodeEndpointDisabled)
	assert.Empty(t, h.adapter.sent())
}

func TestOrchestrator_ProcessTransformsToEndpointFormat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.registry.Register(ctx, models.Endpoint{
		ID:       "e2",
		Protocol: "http",
		Enabled:  true,
		Config:   map[string]interface{}{"format": "yaml"},
	})
	require.NoError(t, err)

	m := message("m1", models.PriorityNormal)
	m.EndpointID = "e2"
	_, err = h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
	require.NoError(t, err)

	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	sent := h.adapter.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "yaml", sent[0].Format)
	assert.Equal(t, "n: 1\n", string(sent[0].Payload))
}

func TestOrchestrator_Transform(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := message("m1", models.PriorityNormal)

	out, err := h.orchestrator.Transform(ctx, &msg, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", out.Format)
	assert.Equal(t, "json", msg.Format)
	assert.Equal(t, `{"n":1}`, string(msg.Payload))

	_, err = h.orchestrator.Transform(ctx, &msg, "protobuf")
	assert.True(t, apperrors.IsUnsupportedFormat(err))
}

func TestOrchestrator_QueueStatus(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHarness(t, WithClock(clock.Now), WithQueues("alpha", "outbound"))
	h.adapter.outcomes = []bool{false}
	ctx := context.Background()

	for _, m := range []models.Message{
		message("a", models.PriorityHigh),
		message("b", models.PriorityHigh),
		message("c", models.PriorityLow),
		message("d", models.PriorityNormal),
	} {
		_, err := h.orchestrator.Enqueue(ctx, m, models.PriorityUnset)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	first, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, first))
	_, err = dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)

	status := h.orchestrator.QueueStatus(ctx)
	require.Len(t, status, 2)
	assert.Equal(t, "alpha", status[0].Queue)
	assert.Equal(t, 0, status[0].Depth)
	assert.Len(t, status[0].ByPriority, 4)

	out := status[1]
	assert.Equal(t, "outbound", out.Queue)
	assert.Equal(t, 3, out.Depth)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Processing)
	assert.Equal(t, 1, out.ByPriority[models.PriorityHigh])
	assert.Equal(t, 1, out.ByPriority[models.PriorityLow])
	assert.Equal(t, 1, out.ByPriority[models.PriorityNormal])
	assert.Equal(t, 0, out.ByPriority[models.PriorityCritical])
	assert.Equal(t, 4*time.Second, out.OldestAge)
}

// An outbound message fails once with a timeout, becomes eligible again
// after its backoff and is then delivered.
func TestOrchestrator_RetryThenDeliver(t *testing.T) {
	h := newHarness(t, WithSchedule(retry.Schedule{InitialInterval: 20 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}))
	h.adapter.outcomes = []bool{false, true}
	ctx := context.Background()

	id, err := h.orchestrator.Enqueue(ctx, message("M1", models.PriorityUnset), models.PriorityHigh)
	require.NoError(t, err)

	msg, err := dequeueNow(t, h.orchestrator, "outbound")
	require.NoError(t, err)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	failed, err := h.orchestrator.Message(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, models.StateFailed, failed.State)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	started := time.Now()
	msg, err = h.orchestrator.Dequeue(waitCtx, "outbound")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 10*time.Millisecond)
	require.NoError(t, h.orchestrator.Process(ctx, msg))

	_, err = h.orchestrator.Message(ctx, id)
	assert.True(t, apperrors.IsNotFound(err))

	status := h.orchestrator.QueueStatus(ctx)
	require.Len(t, status, 1)
	assert.Equal(t, 0, status[0].Depth)
	assert.Equal(t, 0, status[0].Processing)
	assert.Equal(t, 0, status[0].Failed)
	assert.Equal(t, 0, status[0].DeadLettered)
	assert.Len(t, h.adapter.sent(), 2)
}

func TestOrchestrator_FailedCountFollowsTransitions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHarness(t, WithClock(clock.Now))
	h.adapter.outcomes = []bool{false, false}
	ctx := context.Background()

	failedCount := func() int {
		status := h.orchestrator.QueueStatus(ctx)
		require.Len(t, status, 1)
		return status[0].Failed
	}

	for _, id := range []string{"m1", "m2"} {
		_, err := h.orchestrator.Enqueue(ctx, message(id, models.PriorityNormal), models.PriorityUnset)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		msg, err := dequeueNow(t, h.orchestrator, "outbound")
		require.NoError(t, err)
		require.NoError(t, h.orchestrator.Process(ctx, msg))
	}
	assert.Equal(t, 2, failedCount())

	require.NoError(t, h.orchestrator.RetryFailed(ctx, "m1"))
	assert.Equal(t, 1, failedCount())

	clock.Advance(time.Second)
	for i := 0; i < 2; i++ {
		_, err := dequeueNow(t, h.orchestrator, "outbound")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, failedCount())
}
