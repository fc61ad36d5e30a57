// Package queue holds the priority queues of outbound messages and drives
// their delivery, retry and dead-lettering.
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"conduit/internal/adapter"
	"conduit/internal/constants"
	"conduit/internal/logger"
	"conduit/internal/tenant"
	"conduit/internal/transform"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/retry"
	"conduit/pkg/tracing"
)

const defaultMaxRetries = 5

type EndpointSource interface {
	Get(ctx context.Context, id string) (*models.Endpoint, error)
}

type AdapterSource interface {
	Get(protocol string) (adapter.Adapter, error)
}

// Transformer converts payloads between formats; *transform.Registry
// satisfies it.
type Transformer interface {
	Transform(ctx context.Context, source, target string, payload []byte) ([]byte, error)
}

// Deduplicator reports whether a message id was already accepted.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, msg *models.Message) (bool, error)
}

// ResolveFunc picks an endpoint for a message enqueued without one.
type ResolveFunc func(ctx context.Context, req *models.Request) (string, error)

type Orchestrator struct {
	mu       sync.Mutex
	channels map[string]*channel
	index    map[string]*entry
	seq      uint64
	// added is closed and replaced whenever a queue is created.
	added chan struct{}

	endpoints    EndpointSource
	adapters     AdapterSource
	transformer  Transformer
	dedup        Deduplicator
	deadLetters  DeadLetterPublisher
	resolve      ResolveFunc
	events       models.EventLogger
	tenants      tenant.Provider
	logger       logger.Logger
	schedule     retry.Schedule
	maxRetries   int
	defaultQueue string
	now          func() time.Time
}

type Option func(*Orchestrator)

// WithQueues makes the named queues known before any message arrives.
func WithQueues(names ...string) Option {
	return func(o *Orchestrator) {
		for _, name := range names {
			if name != "" {
				o.channelLocked(name)
			}
		}
	}
}

func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) { o.transformer = t }
}

func WithDeduplicator(d Deduplicator) Option {
	return func(o *Orchestrator) { o.dedup = d }
}

func WithDeadLetterPublisher(p DeadLetterPublisher) Option {
	return func(o *Orchestrator) { o.deadLetters = p }
}

func WithResolver(fn ResolveFunc) Option {
	return func(o *Orchestrator) { o.resolve = fn }
}

func WithEventLogger(events models.EventLogger) Option {
	return func(o *Orchestrator) { o.events = events }
}

func WithTenantProvider(p tenant.Provider) Option {
	return func(o *Orchestrator) { o.tenants = p }
}

func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = log }
}

func WithSchedule(s retry.Schedule) Option {
	return func(o *Orchestrator) { o.schedule = s }
}

// WithMaxRetries sets the retry budget of messages that do not carry their
// own.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(endpoints EndpointSource, adapters AdapterSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		channels:     make(map[string]*channel),
		index:        make(map[string]*entry),
		added:        make(chan struct{}),
		endpoints:    endpoints,
		adapters:     adapters,
		transformer:  transform.NewDefaultRegistry(),
		deadLetters:  NopDeadLetterPublisher{},
		events:       models.NopEventLogger{},
		logger:       logger.NopLogger(),
		schedule:     retry.DefaultSchedule(),
		maxRetries:   defaultMaxRetries,
		defaultQueue: constants.DefaultQueueName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) channelLocked(name string) *channel {
	c, ok := o.channels[name]
	if !ok {
		c = newChannel(name)
		o.channels[name] = c
		close(o.added)
		o.added = make(chan struct{})
	}
	return c
}

func (o *Orchestrator) updateDepthLocked(c *channel) {
	metrics.SetQueueDepth(c.name, "waiting", c.ready.Len()+c.delayed.Len())
	metrics.SetQueueDepth(c.name, "failed", c.failed)
	metrics.SetQueueDepth(c.name, "processing", c.processing)
	metrics.SetQueueDepth(c.name, "dead_lettered", c.deadLettered)
}

// Enqueue accepts msg for asynchronous delivery and returns its id. An unset
// priority argument falls back to the message's own priority, then Normal.
func (o *Orchestrator) Enqueue(ctx context.Context, msg models.Message, priority models.Priority) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.FromContext(err)
	}

	m := msg.Clone()
	switch {
	case priority.Valid():
		m.Priority = priority
	case priority != models.PriorityUnset:
		return "", apperrors.NewValidation("priority", "unknown priority "+priority.String())
	case m.Priority == models.PriorityUnset:
		m.Priority = models.PriorityNormal
	case !m.Priority.Valid():
		return "", apperrors.NewValidation("priority", "unknown priority "+m.Priority.String())
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Queue == "" {
		m.Queue = o.defaultQueue
	}
	if m.Format == "" {
		m.Format = constants.DefaultPayloadFormat
	}
	m.TenantID = tenant.Resolve(ctx, o.tenants, m.TenantID)

	if m.EndpointID == "" {
		if o.resolve == nil {
			return "", apperrors.NewValidation("endpoint_id", "endpoint is required")
		}
		id, err := o.resolve(ctx, m.ToRequest())
		if err != nil {
			return "", err
		}
		m.EndpointID = id
	}

	if o.dedup != nil {
		dup, err := o.dedup.IsDuplicate(ctx, m)
		if err != nil {
			return "", apperrors.ErrServiceUnavailable.WithMessage("deduplication check failed").WithCause(err)
		}
		if dup {
			return "", apperrors.NewDuplicate("message", m.ID).WithDetail("message_id", m.ID)
		}
	}

	now := o.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = o.maxRetries
	}
	m.State = models.StateQueued
	m.RetryCount = 0
	m.LastError = ""
	m.NextAttemptAt = time.Time{}
	m.EnqueuedAt = now
	m.UpdatedAt = now

	o.mu.Lock()
	if _, exists := o.index[m.ID]; exists {
		o.mu.Unlock()
		return "", apperrors.NewDuplicate("message", m.ID).WithDetail("message_id", m.ID)
	}
	o.seq++
	e := &entry{msg: m, seq: o.seq, index: -1}
	o.index[m.ID] = e
	c := o.channelLocked(m.Queue)
	c.push(e, now)
	o.updateDepthLocked(c)
	o.mu.Unlock()

	metrics.IncQueueTransition(m.Queue, "enqueued")
	o.logger.DebugwCtx(ctx, "Message enqueued",
		"message_id", m.ID,
		"queue", m.Queue,
		"priority", m.Priority.String(),
		"endpoint_id", m.EndpointID,
	)
	o.events.LogEvent(ctx, models.Event{
		Type:       models.EventMessageEnqueued,
		TenantID:   m.TenantID,
		MessageID:  m.ID,
		EndpointID: m.EndpointID,
		Queue:      m.Queue,
		Success:    true,
		Timestamp:  now,
		Attributes: map[string]string{"priority": m.Priority.String()},
	})
	return m.ID, nil
}

// Dequeue blocks until a message is eligible on the queue or ctx is done.
// The returned copy is already marked Processing, so no other caller can
// receive the same message until Process settles it. Cancellation leaves the
// queue untouched and returns a CANCELED error.
func (o *Orchestrator) Dequeue(ctx context.Context, queueName string) (*models.Message, error) {
	if queueName == "" {
		queueName = o.defaultQueue
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.FromContext(context.Canceled).WithCause(err)
		}

		o.mu.Lock()
		c := o.channelLocked(queueName)
		now := o.now()
		c.promote(now)

		if e := c.popReady(); e != nil {
			wait := now.Sub(e.msg.EnqueuedAt)
			if !e.msg.NextAttemptAt.IsZero() {
				wait = now.Sub(e.msg.NextAttemptAt)
			}
			if e.msg.State == models.StateFailed {
				c.failed--
			}
			e.msg.State = models.StateProcessing
			e.msg.UpdatedAt = now
			c.processing++
			o.updateDepthLocked(c)
			out := e.msg.Clone()
			o.mu.Unlock()

			metrics.IncQueueTransition(queueName, "dequeued")
			metrics.ObserveQueueWait(queueName, wait)
			return out, nil
		}

		wake := c.wake
		var timer *time.Timer
		var deadline <-chan time.Time
		if next, ok := c.nextDeadline(); ok {
			timer = time.NewTimer(next.Sub(now))
			deadline = timer.C
		}
		o.mu.Unlock()

		select {
		case <-ctx.Done():
		case <-wake:
		case <-deadline:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Process delivers a message obtained from Dequeue. It returns nil on
// delivery and on a scheduled retry, and DEAD_LETTER_EXCEEDED once the retry
// budget is spent.
func (o *Orchestrator) Process(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return apperrors.NewValidation("message", "message is nil")
	}

	o.mu.Lock()
	e, ok := o.index[msg.ID]
	if !ok {
		o.mu.Unlock()
		return apperrors.NewNotFound("message", msg.ID)
	}
	if e.msg.State != models.StateProcessing {
		state := e.msg.State
		o.mu.Unlock()
		return apperrors.NewValidation("state", "message "+msg.ID+" is "+state.String()+", not processing")
	}
	current := e.msg.Clone()
	o.mu.Unlock()

	ctx, span := tracing.GetTracer("conduit-queue").Start(ctx, "queue.process",
		trace.WithAttributes(
			tracing.AttrMessageID.String(current.ID),
			tracing.AttrQueue.String(current.Queue),
			tracing.AttrTenantID.String(current.TenantID),
		),
	)

	started := time.Now()
	resp, endpoint, err := o.deliver(ctx, current)
	duration := time.Since(started)

	if err == nil && resp != nil && resp.Success {
		o.markDelivered(ctx, current, endpoint, duration)
		tracing.EndSpan(span, nil)
		return nil
	}

	reason := "unknown failure"
	switch {
	case err != nil:
		reason = err.Error()
	case resp != nil && resp.Error != "":
		reason = resp.Error
	case resp != nil:
		reason = "delivery failed"
	}
	failErr := o.markFailed(ctx, current, endpoint, reason, duration)
	if failErr != nil {
		tracing.EndSpan(span, failErr)
	} else {
		span.SetAttributes(tracing.AttrRetryable.Bool(true))
		tracing.EndSpan(span, nil)
	}
	return failErr
}

// deliver resolves the endpoint and adapter and sends the message.
func (o *Orchestrator) deliver(ctx context.Context, msg *models.Message) (*models.Response, *models.Endpoint, error) {
	endpoint, err := o.endpoints.Get(ctx, msg.EndpointID)
	if err != nil {
		return nil, nil, err
	}
	if !endpoint.Enabled {
		return nil, endpoint, apperrors.NewEndpointDisabled(endpoint.ID)
	}
	a, err := o.adapters.Get(endpoint.Protocol)
	if err != nil {
		return nil, endpoint, err
	}

	if target := endpoint.ConfigString("format"); target != "" && o.transformer != nil {
		transformed, err := o.Transform(ctx, msg, target)
		if err != nil {
			return nil, endpoint, err
		}
		msg = transformed
	}

	resp, err := a.Send(ctx, msg.ToRequest(), endpoint)
	return resp, endpoint, err
}

func (o *Orchestrator) markDelivered(ctx context.Context, msg *models.Message, endpoint *models.Endpoint, duration time.Duration) {
	now := o.now()

	o.mu.Lock()
	if e, ok := o.index[msg.ID]; ok && e.msg.State == models.StateProcessing {
		delete(o.index, msg.ID)
		c := o.channelLocked(e.msg.Queue)
		c.processing--
		o.updateDepthLocked(c)
	}
	o.mu.Unlock()

	metrics.IncQueueTransition(msg.Queue, "delivered")
	metrics.ObserveQueueProcessing(msg.Queue, true, duration)
	o.logger.DebugwCtx(ctx, "Message delivered", "message_id", msg.ID, "queue", msg.Queue, "endpoint_id", msg.EndpointID)
	o.events.LogEvent(ctx, models.Event{
		Type:       models.EventMessageDelivered,
		TenantID:   msg.TenantID,
		MessageID:  msg.ID,
		EndpointID: msg.EndpointID,
		Queue:      msg.Queue,
		Protocol:   protocolOf(endpoint),
		Success:    true,
		Duration:   duration,
		Timestamp:  now,
	})
}

func (o *Orchestrator) markFailed(ctx context.Context, msg *models.Message, endpoint *models.Endpoint, reason string, duration time.Duration) error {
	now := o.now()

	o.mu.Lock()
	e, ok := o.index[msg.ID]
	if !ok || e.msg.State != models.StateProcessing {
		o.mu.Unlock()
		return nil
	}
	c := o.channelLocked(e.msg.Queue)
	c.processing--

	e.msg.RetryCount++
	e.msg.LastError = reason
	e.msg.UpdatedAt = now

	deadLettered := e.msg.RetryCount >= e.msg.MaxRetries
	if deadLettered {
		e.msg.State = models.StateDeadLettered
		e.msg.NextAttemptAt = time.Time{}
		c.deadLettered++
	} else {
		e.msg.State = models.StateFailed
		e.msg.NextAttemptAt = now.Add(o.schedule.Delay(e.msg.RetryCount))
		c.failed++
		c.push(e, now)
	}
	o.updateDepthLocked(c)
	snapshot := e.msg.Clone()
	o.mu.Unlock()

	metrics.ObserveQueueProcessing(snapshot.Queue, false, duration)
	event := models.Event{
		TenantID:   snapshot.TenantID,
		MessageID:  snapshot.ID,
		EndpointID: snapshot.EndpointID,
		Queue:      snapshot.Queue,
		Protocol:   protocolOf(endpoint),
		Success:    false,
		Duration:   duration,
		Error:      reason,
		Timestamp:  now,
	}

	if !deadLettered {
		metrics.IncQueueTransition(snapshot.Queue, "failed")
		metrics.RetryAttemptsTotal.WithLabelValues("queue", snapshot.Queue).Inc()
		o.logger.WarnwCtx(ctx, "Message delivery failed, retry scheduled",
			"message_id", snapshot.ID,
			"queue", snapshot.Queue,
			"retry_count", snapshot.RetryCount,
			"max_retries", snapshot.MaxRetries,
			"next_attempt_at", snapshot.NextAttemptAt,
			"error", reason,
		)
		event.Type = models.EventMessageFailed
		o.events.LogEvent(ctx, event)
		return nil
	}

	metrics.IncQueueTransition(snapshot.Queue, "dead_lettered")
	o.logger.ErrorwCtx(ctx, "Message dead-lettered",
		"message_id", snapshot.ID,
		"queue", snapshot.Queue,
		"retry_count", snapshot.RetryCount,
		"error", reason,
	)
	event.Type = models.EventMessageDeadLettered
	o.events.LogEvent(ctx, event)

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.KafkaWriteTimeout)
	defer cancel()
	if err := o.deadLetters.Publish(publishCtx, snapshot, reason); err != nil {
		o.logger.ErrorwCtx(ctx, "Failed to publish dead-lettered message",
			"message_id", snapshot.ID,
			"error", err,
		)
	}

	return apperrors.NewDeadLetterExceeded(snapshot.ID, snapshot.RetryCount).WithMessage(reason)
}

func protocolOf(endpoint *models.Endpoint) string {
	if endpoint == nil {
		return ""
	}
	return endpoint.Protocol
}

// Transform returns a copy of msg with its payload converted to
// targetFormat. msg itself is not modified.
func (o *Orchestrator) Transform(ctx context.Context, msg *models.Message, targetFormat string) (*models.Message, error) {
	if msg == nil {
		return nil, apperrors.NewValidation("message", "message is nil")
	}
	out := msg.Clone()
	if targetFormat == "" || targetFormat == msg.Format {
		return out, nil
	}
	if o.transformer == nil {
		return nil, apperrors.NewUnsupportedFormat(msg.Format, targetFormat)
	}

	payload, err := o.transformer.Transform(transform.WithMetadata(ctx, msg.Metadata), msg.Format, targetFormat, msg.Payload)
	if err != nil {
		return nil, err
	}
	out.Payload = payload
	out.Format = targetFormat
	return out, nil
}

// RetryFailed puts a failed or dead-lettered message back in its queue with
// a fresh retry budget.
func (o *Orchestrator) RetryFailed(ctx context.Context, id string) error {
	now := o.now()

	o.mu.Lock()
	e, ok := o.index[id]
	if !ok {
		o.mu.Unlock()
		return apperrors.NewNotFound("message", id)
	}
	c := o.channelLocked(e.msg.Queue)
	switch e.msg.State {
	case models.StateFailed:
		c.remove(e)
		c.failed--
	case models.StateDeadLettered:
		c.deadLettered--
	default:
		state := e.msg.State
		o.mu.Unlock()
		return apperrors.NewValidation("state", "message "+id+" is "+state.String()+", only failed or dead-lettered messages can be retried")
	}

	e.msg.State = models.StateQueued
	e.msg.RetryCount = 0
	e.msg.NextAttemptAt = time.Time{}
	e.msg.UpdatedAt = now
	c.push(e, now)
	o.updateDepthLocked(c)
	snapshot := e.msg.Clone()
	o.mu.Unlock()

	metrics.IncQueueTransition(snapshot.Queue, "retried")
	o.logger.InfowCtx(ctx, "Message re-queued manually", "message_id", id, "queue", snapshot.Queue)
	o.events.LogEvent(ctx, models.Event{
		Type:       models.EventMessageRetried,
		TenantID:   snapshot.TenantID,
		MessageID:  snapshot.ID,
		EndpointID: snapshot.EndpointID,
		Queue:      snapshot.Queue,
		Success:    true,
		Timestamp:  now,
	})
	return nil
}

// Message returns a copy of a live message.
func (o *Orchestrator) Message(_ context.Context, id string) (*models.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.index[id]
	if !ok {
		return nil, apperrors.NewNotFound("message", id)
	}
	return e.msg.Clone(), nil
}

// DeadLetters lists the dead-lettered messages of a queue, oldest first. An
// empty name lists every queue.
func (o *Orchestrator) DeadLetters(_ context.Context, queueName string) []models.Message {
	o.mu.Lock()
	out := make([]models.Message, 0)
	for _, e := range o.index {
		if e.msg.State != models.StateDeadLettered {
			continue
		}
		if queueName != "" && e.msg.Queue != queueName {
			continue
		}
		out = append(out, *e.msg.Clone())
	}
	o.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// QueueStatus returns one snapshot per known queue, sorted by name. Depth
// counts messages waiting in the queue, including failed ones waiting out
// their backoff.
func (o *Orchestrator) QueueStatus(_ context.Context) []models.QueueStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	out := make([]models.QueueStatus, 0, len(o.channels))
	for _, c := range o.channels {
		status := models.QueueStatus{
			Queue:        c.name,
			Processing:   c.processing,
			Failed:       c.failed,
			DeadLettered: c.deadLettered,
			ByPriority:   make(map[models.Priority]int, 4),
		}
		for _, p := range models.Priorities() {
			status.ByPriority[p] = 0
		}

		var oldest time.Time
		for _, e := range c.waiting() {
			status.Depth++
			status.ByPriority[e.msg.Priority]++
			if oldest.IsZero() || e.msg.EnqueuedAt.Before(oldest) {
				oldest = e.msg.EnqueuedAt
			}
		}
		if !oldest.IsZero() {
			status.OldestAge = now.Sub(oldest)
		}
		out = append(out, status)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Queue < out[j].Queue })
	return out
}

// watchQueues returns the known queue names together with a channel that is
// closed once another queue is created.
func (o *Orchestrator) watchQueues() ([]string, <-chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.channels))
	for name := range o.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, o.added
}
