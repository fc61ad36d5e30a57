package queue

import (
	"context"

	"golang.org/x/sync/errgroup"

	"conduit/internal/logger"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/logging"
)

// WorkerPool drains queues by repeatedly dequeuing and processing messages.
type WorkerPool struct {
	orchestrator *Orchestrator
	queues       []string
	workers      int
	logger       logger.Logger
}

func NewWorkerPool(o *Orchestrator, queues []string, workersPerQueue int, log logger.Logger) *WorkerPool {
	if workersPerQueue < 1 {
		workersPerQueue = 1
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &WorkerPool{
		orchestrator: o,
		queues:       queues,
		workers:      workersPerQueue,
		logger:       log,
	}
}

// Run blocks until ctx is done. It serves the configured queues plus every
// queue the orchestrator knows, including queues created while it runs. A
// message being processed when ctx ends is finished with its own context cut
// loose from ctx's cancellation.
func (p *WorkerPool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	started := make(map[string]bool)

	start := func(names []string) {
		var added []string
		for _, name := range names {
			if name == "" || started[name] {
				continue
			}
			started[name] = true
			added = append(added, name)
			for i := 0; i < p.workers; i++ {
				name, id := name, i
				g.Go(func() error {
					p.work(gctx, name, id)
					return nil
				})
			}
		}
		if len(added) > 0 {
			p.logger.Infow("Queue workers started", "queues", added, "workers_per_queue", p.workers)
		}
	}

	start(p.queues)
	for {
		names, changed := p.orchestrator.watchQueues()
		start(names)
		select {
		case <-gctx.Done():
			err := g.Wait()
			p.logger.Infow("Queue workers stopped")
			return err
		case <-changed:
		}
	}
}

func (p *WorkerPool) work(ctx context.Context, queueName string, id int) {
	for {
		msg, err := p.orchestrator.Dequeue(ctx, queueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Errorw("Dequeue failed", "queue", queueName, "worker", id, "error", err)
			continue
		}

		msgCtx := logging.WithMessageID(context.WithoutCancel(ctx), msg.ID)
		msgCtx = logging.WithEndpointID(msgCtx, msg.EndpointID)
		msgCtx = logging.WithTenantID(msgCtx, msg.TenantID)

		err = apperrors.SafeCall(func() error { return p.orchestrator.Process(msgCtx, msg) })
		switch {
		case err == nil:
		case apperrors.IsDeadLetterExceeded(err):
			// already logged by the orchestrator
		default:
			p.logger.ErrorwCtx(msgCtx, "Message processing failed",
				"queue", queueName,
				"worker", id,
				"error", err,
			)
		}
	}
}
