// Package routing resolves integration requests to endpoints and delivers
// them synchronously through the matching adapter.
package routing

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"conduit/internal/adapter"
	"conduit/internal/logger"
	"conduit/internal/tenant"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

type Endpoints interface {
	Get(ctx context.Context, id string) (*models.Endpoint, error)
	Endpoints(ctx context.Context) iter.Seq[models.Endpoint]
	CheckAll(ctx context.Context) []models.EndpointHealth
}

type Adapters interface {
	Get(protocol string) (adapter.Adapter, error)
}

type Gateway struct {
	endpoints Endpoints
	adapters  Adapters
	resolver  Resolver
	events    models.EventLogger
	tenants   tenant.Provider
	logger    logger.Logger
	threshold float64
	now       func() time.Time
}

type Option func(*Gateway)

func WithResolver(r Resolver) Option {
	return func(g *Gateway) { g.resolver = r }
}

func WithEventLogger(events models.EventLogger) Option {
	return func(g *Gateway) { g.events = events }
}

func WithTenantProvider(p tenant.Provider) Option {
	return func(g *Gateway) { g.tenants = p }
}

func WithLogger(log logger.Logger) Option {
	return func(g *Gateway) { g.logger = log }
}

// WithFailureThreshold sets the fraction of failing endpoints tolerated
// before CheckHealth reports the gateway unhealthy.
func WithFailureThreshold(fraction float64) Option {
	return func(g *Gateway) {
		if fraction >= 0 && fraction <= 1 {
			g.threshold = fraction
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(endpoints Endpoints, adapters Adapters, opts ...Option) *Gateway {
	g := &Gateway{
		endpoints: endpoints,
		adapters:  adapters,
		resolver:  ExplicitResolver{},
		events:    models.NopEventLogger{},
		logger:    logger.NopLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveEndpoint runs the resolver and fails with NOT_FOUND when it yields
// no endpoint.
func (g *Gateway) ResolveEndpoint(ctx context.Context, req *models.Request) (string, error) {
	id, err := g.resolver.Resolve(ctx, req, g.endpoints.Endpoints(ctx))
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", apperrors.NewNotFound("endpoint", "").WithMessage("no endpoint resolved for request")
	}
	return id, nil
}

// Route delivers req synchronously. Resolution and contract failures are
// returned as errors; remote failures come back inside the response, which
// is returned exactly as the adapter produced it. Every outcome is recorded
// as a request.routed event.
func (g *Gateway) Route(ctx context.Context, req *models.Request) (*models.Response, error) {
	if req == nil {
		return nil, apperrors.NewValidation("request", "request is nil")
	}

	r := *req
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = g.now()
	}
	r.TenantID = tenant.Resolve(ctx, g.tenants, r.TenantID)

	ctx, span := tracing.GetTracer("conduit-routing").Start(ctx, "gateway.route")
	span.SetAttributes(
		tracing.AttrRequestID.String(r.ID),
		tracing.AttrOperation.String(r.Operation),
		tracing.AttrTenantID.String(r.TenantID),
	)

	started := g.now()
	resp, endpoint, err := g.route(ctx, &r)
	g.record(ctx, &r, endpoint, resp, err, g.now().Sub(started))

	spanErr := err
	if spanErr == nil && resp != nil && !resp.Success {
		spanErr = apperrors.NewTransportFailure(nil).WithMessage(resp.Error)
	}
	tracing.EndSpan(span, spanErr)
	return resp, err
}

func (g *Gateway) route(ctx context.Context, req *models.Request) (*models.Response, *models.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, apperrors.FromContext(err)
	}

	id, err := g.ResolveEndpoint(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	req.EndpointID = id

	endpoint, err := g.endpoints.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !endpoint.Enabled {
		return nil, endpoint, apperrors.NewEndpointDisabled(id)
	}
	a, err := g.adapters.Get(endpoint.Protocol)
	if err != nil {
		return nil, endpoint, err
	}

	resp, err := a.Send(ctx, req, endpoint)
	return resp, endpoint, err
}

func (g *Gateway) record(ctx context.Context, req *models.Request, endpoint *models.Endpoint, resp *models.Response, err error, duration time.Duration) {
	event := models.Event{
		Type:       models.EventRequestRouted,
		TenantID:   req.TenantID,
		RequestID:  req.ID,
		EndpointID: req.EndpointID,
		Duration:   duration,
		Timestamp:  g.now(),
	}
	if endpoint != nil {
		event.Protocol = endpoint.Protocol
	}

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		event.Error = err.Error()
		g.logger.WarnwCtx(ctx, "Request routing failed",
			"request_id", req.ID,
			"endpoint_id", req.EndpointID,
			"error", err,
		)
	case resp == nil || !resp.Success:
		outcome = "failure"
		if resp != nil {
			event.Error = resp.Error
			if resp.Duration > 0 {
				event.Duration = resp.Duration
			}
		}
	default:
		event.Success = true
		if resp.Duration > 0 {
			event.Duration = resp.Duration
		}
	}

	metrics.IncRouteRequest(outcome)
	g.events.LogEvent(ctx, event)
}

// CheckHealth probes every endpoint. The gateway is healthy when the
// fraction of failing endpoints does not exceed the configured threshold;
// with no endpoints it is healthy.
func (g *Gateway) CheckHealth(ctx context.Context) models.GatewayHealth {
	results := g.endpoints.CheckAll(ctx)

	failing := 0
	for _, r := range results {
		if r.Status.IsFailing() {
			failing++
		}
	}

	health := models.GatewayHealth{
		Healthy:          true,
		Total:            len(results),
		Failing:          failing,
		FailureThreshold: g.threshold,
		Endpoints:        results,
		CheckedAt:        g.now(),
	}
	if len(results) > 0 {
		health.FailureFraction = float64(failing) / float64(len(results))
		health.Healthy = health.FailureFraction <= g.threshold
	}
	return health
}
