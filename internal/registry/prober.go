package registry

import (
	"context"
	"time"
)

// RunProber calls CheckAll every interval until ctx is done. Each round
// records the probed status on the endpoints and emits endpoint.health
// events.
func (r *Registry) RunProber(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.InfowCtx(ctx, "Endpoint health prober started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.InfowCtx(ctx, "Endpoint health prober stopped")
			return nil
		case <-ticker.C:
			results := r.CheckAll(ctx)
			failing := 0
			for _, res := range results {
				if res.Status.IsFailing() {
					failing++
				}
			}
			r.logger.DebugwCtx(ctx, "Endpoint health round finished",
				"endpoints", len(results),
				"failing", failing,
			)
		}
	}
}
