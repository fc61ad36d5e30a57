package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"conduit/internal/config"
	"conduit/internal/logger"
	"conduit/pkg/circuitbreaker"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

var errRemoteFailure = errors.New("remote failure response")

// BreakerAdapter guards an adapter with one circuit breaker per endpoint.
// Retryable failure responses count against the breaker. While a breaker is
// open, Send short-circuits with a retryable failure response.
type BreakerAdapter struct {
	next   Adapter
	cfg    config.CircuitBreakerConfig
	logger logger.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Wrapper
}

// WithCircuitBreaker returns a unchanged when the breaker is disabled.
func WithCircuitBreaker(a Adapter, cfg config.CircuitBreakerConfig, log logger.Logger) Adapter {
	if !cfg.Enabled {
		return a
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &BreakerAdapter{
		next:     a,
		cfg:      cfg,
		logger:   log,
		breakers: make(map[string]*circuitbreaker.Wrapper),
	}
}

func (b *BreakerAdapter) breakerConfig(name string) circuitbreaker.Config {
	cbConfig := circuitbreaker.DefaultConfig(name)
	if b.cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = b.cfg.MaxRequests
	}
	if b.cfg.Interval > 0 {
		cbConfig.Interval = b.cfg.Interval
	}
	if b.cfg.Timeout > 0 {
		cbConfig.Timeout = b.cfg.Timeout
	}
	if b.cfg.FailureRatio > 0 && b.cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = circuitbreaker.FailureRatioTrip(b.cfg.MinRequests, b.cfg.FailureRatio)
	}
	// Contract violations and caller cancellation say nothing about the
	// remote side.
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || apperrors.IsValidation(err) || errors.Is(err, context.Canceled) || apperrors.IsCanceled(err)
	}
	cbConfig.OnStateChange = func(name string, from, to gobreaker.State) {
		b.logger.Warnw("Circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
	return cbConfig
}

func (b *BreakerAdapter) breaker(endpointID string) *circuitbreaker.Wrapper {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[endpointID]; ok {
		return cb
	}
	cb := circuitbreaker.NewWrapper(b.breakerConfig(b.next.Protocol() + ":" + endpointID))
	b.breakers[endpointID] = cb
	return cb
}

// State reports the breaker state for an endpoint; endpoints that never sent
// report closed.
func (b *BreakerAdapter) State(endpointID string) gobreaker.State {
	b.mu.Lock()
	cb, ok := b.breakers[endpointID]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// ReleaseEndpoint drops the breaker of an endpoint that is gone.
func (b *BreakerAdapter) ReleaseEndpoint(endpointID string) {
	b.mu.Lock()
	delete(b.breakers, endpointID)
	b.mu.Unlock()
	releaseEndpoint(b.next, endpointID)
}

func (b *BreakerAdapter) Protocol() string { return b.next.Protocol() }

func (b *BreakerAdapter) ValidateEndpoint(ctx context.Context, endpoint *models.Endpoint) error {
	return b.next.ValidateEndpoint(ctx, endpoint)
}

func (b *BreakerAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus {
	status := b.next.CheckHealth(ctx, endpoint)
	if status == models.HealthHealthy && endpoint != nil && b.State(endpoint.ID) == gobreaker.StateOpen {
		return models.HealthDegraded
	}
	return status
}

func (b *BreakerAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(b.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	var resp *models.Response
	_, err := b.breaker(endpoint.ID).ExecuteWithContext(ctx, func() (interface{}, error) {
		r, err := b.next.Send(ctx, req, endpoint)
		if err != nil {
			return nil, err
		}
		resp = r
		if !r.Success && r.Retryable {
			return r, errRemoteFailure
		}
		return r, nil
	})

	switch {
	case err == nil, errors.Is(err, errRemoteFailure):
		return resp, nil
	case circuitbreaker.IsBreakerError(err):
		return models.FailureResponse(req, endpoint, started,
			apperrors.ErrServiceUnavailable.WithCause(err).WithDetail("endpoint_id", endpoint.ID), true), nil
	case ctx.Err() != nil:
		return remoteFailure(ctx, req, endpoint, started, ctx.Err())
	default:
		return nil, err
	}
}

func (b *BreakerAdapter) Close() error {
	if c, ok := b.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
