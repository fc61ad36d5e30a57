package monitoring

import (
	"context"
	"time"

	"conduit/internal/constants"
	"conduit/internal/logger"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/retry"
)

const maxBatch = 100

var sinkRetryPolicy = retry.Policy{
	MaxAttempts:     3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	Multiplier:      2.0,
	MaxElapsedTime:  5 * time.Second,
}

// writeWithRetry retries transient sink failures. Fatal errors, such as a
// batch the sink rejects as invalid, are returned at once.
func writeWithRetry(ctx context.Context, sink Sink, batch []models.Event) error {
	return retry.Retry(ctx, sinkRetryPolicy, func() error {
		return sink.Write(ctx, batch)
	})
}

// dispatcher forwards events to a sink off the caller's path. When the
// buffer is full events are dropped and counted.
type dispatcher struct {
	sink   Sink
	buf    chan models.Event
	logger logger.Logger
}

func newDispatcher(sink Sink, size int, log logger.Logger) *dispatcher {
	if size <= 0 {
		size = constants.DefaultEventsBufferSize
	}
	return &dispatcher{sink: sink, buf: make(chan models.Event, size), logger: log}
}

func (d *dispatcher) offer(e models.Event) {
	select {
	case d.buf <- e:
	default:
		metrics.EventsDroppedTotal.Inc()
	}
}

// run drains the buffer until ctx is done, then flushes what is left with a
// bounded timeout.
func (d *dispatcher) run(ctx context.Context) error {
	for {
		select {
		case e := <-d.buf:
			d.write(ctx, d.collect(e))
		case <-ctx.Done():
			d.flush()
			return nil
		}
	}
}

func (d *dispatcher) collect(first models.Event) []models.Event {
	batch := []models.Event{first}
	for len(batch) < maxBatch {
		select {
		case e := <-d.buf:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

func (d *dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	for {
		select {
		case e := <-d.buf:
			d.write(ctx, d.collect(e))
		default:
			return
		}
	}
}

func (d *dispatcher) write(ctx context.Context, batch []models.Event) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	// MultiSink retries and counts failures per member.
	_, multi := d.sink.(MultiSink)
	var err error
	if multi {
		err = d.sink.Write(writeCtx, batch)
	} else {
		err = writeWithRetry(writeCtx, d.sink, batch)
	}
	if err != nil {
		if !multi {
			metrics.IncEventSinkError(d.sink.Name())
		}
		d.logger.Warnw("Failed to write events to sink",
			"sink", d.sink.Name(),
			"events", len(batch),
			"error", err,
		)
	}
}
