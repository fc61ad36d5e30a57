package dedup

import (
	"context"
	"fmt"
	"time"

	"conduit/internal/config"
	"conduit/pkg/circuitbreaker"
)

// BreakerStore stops calling a failing Store until its breaker closes again.
type BreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

// NewBreakerStore returns store unchanged when the breaker is disabled.
func NewBreakerStore(store Store, cfg config.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return store
	}

	cbConfig := circuitbreaker.DefaultConfig("redis-dedup")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = circuitbreaker.FailureRatioTrip(cfg.MinRequests, cfg.FailureRatio)
	}

	return &BreakerStore{store: store, cb: circuitbreaker.NewWrapper(cbConfig)}
}

func (b *BreakerStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	result, err := b.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return b.store.SetNX(ctx, key, value, ttl)
	})
	if err != nil {
		if b.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for redis-dedup: %w", err)
		}
		return false, err
	}

	ok, valid := result.(bool)
	if !valid {
		return false, fmt.Errorf("store returned invalid result type %T", result)
	}
	return ok, nil
}

func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
