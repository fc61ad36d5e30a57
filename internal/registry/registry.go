// Package registry owns the set of integration endpoints the gateway can
// reach.
package registry

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conduit/internal/adapter"
	"conduit/internal/constants"
	"conduit/internal/logger"
	"conduit/internal/tenant"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*models.Endpoint
	order     []string

	adapters      *adapter.Set
	store         Store
	events        models.EventLogger
	tenants       tenant.Provider
	logger        logger.Logger
	healthTimeout time.Duration
	concurrency   int
	now           func() time.Time
}

type Option func(*Registry)

func WithStore(store Store) Option {
	return func(r *Registry) { r.store = store }
}

func WithEventLogger(events models.EventLogger) Option {
	return func(r *Registry) { r.events = events }
}

func WithTenantProvider(p tenant.Provider) Option {
	return func(r *Registry) { r.tenants = p }
}

func WithLogger(log logger.Logger) Option {
	return func(r *Registry) { r.logger = log }
}

// WithHealthCheck sets the per-probe timeout and how many probes CheckAll
// runs at once.
func WithHealthCheck(timeout time.Duration, concurrency int) Option {
	return func(r *Registry) {
		if timeout > 0 {
			r.healthTimeout = timeout
		}
		if concurrency > 0 {
			r.concurrency = concurrency
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(adapters *adapter.Set, opts ...Option) *Registry {
	r := &Registry{
		endpoints:     make(map[string]*models.Endpoint),
		adapters:      adapters,
		store:         NewMemoryStore(),
		events:        models.NopEventLogger{},
		logger:        logger.NopLogger(),
		healthTimeout: constants.DefaultHealthCheckTimeout,
		concurrency:   8,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory set with the store's contents.
func (r *Registry) Load(ctx context.Context) error {
	endpoints, err := r.store.List(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.endpoints = make(map[string]*models.Endpoint, len(endpoints))
	r.order = r.order[:0]
	for i := range endpoints {
		ep := endpoints[i]
		if ep.Health == "" {
			ep.Health = models.HealthUnknown
		}
		r.endpoints[ep.ID] = &ep
		r.order = append(r.order, ep.ID)
	}

	r.logger.InfowCtx(ctx, "Loaded endpoints from store", "count", len(endpoints))
	return nil
}

func (r *Registry) validate(ctx context.Context, endpoint *models.Endpoint) error {
	if endpoint.Protocol == "" {
		return apperrors.NewValidation("protocol", "protocol is required")
	}
	if r.adapters == nil {
		return nil
	}
	a, err := r.adapters.Get(endpoint.Protocol)
	if err != nil {
		// Endpoints for protocols without an adapter may still be
		// registered; routing reports ADAPTER_UNAVAILABLE for them.
		return nil
	}
	if err := a.ValidateEndpoint(ctx, endpoint); err != nil {
		if apperrors.IsValidation(err) {
			return err
		}
		return apperrors.NewValidation("config", err.Error()).WithCause(err)
	}
	return nil
}

// Register stores a copy of endpoint and returns it with generated fields
// filled in.
func (r *Registry) Register(ctx context.Context, endpoint models.Endpoint) (*models.Endpoint, error) {
	ep := endpoint.Clone()
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	ep.TenantID = tenant.Resolve(ctx, r.tenants, ep.TenantID)
	if err := r.validate(ctx, &ep); err != nil {
		return nil, err
	}

	now := r.now()
	ep.Health = models.HealthUnknown
	ep.LastCheckedAt = nil
	ep.CreatedAt = now
	ep.UpdatedAt = now

	r.mu.Lock()
	if _, exists := r.endpoints[ep.ID]; exists {
		r.mu.Unlock()
		return nil, apperrors.NewDuplicate("endpoint", ep.ID).WithDetail("endpoint_id", ep.ID)
	}
	// The write lock is held across the store call so a concurrent
	// Register of the same id cannot slip in between.
	if err := r.store.Create(ctx, &ep); err != nil {
		r.mu.Unlock()
		if apperrors.IsDuplicate(err) {
			return nil, apperrors.NewDuplicate("endpoint", ep.ID).WithDetail("endpoint_id", ep.ID)
		}
		return nil, apperrors.ErrInternal.WithMessage("failed to persist endpoint").WithCause(err)
	}
	stored := ep.Clone()
	r.endpoints[ep.ID] = &stored
	r.order = append(r.order, ep.ID)
	r.mu.Unlock()

	r.logger.InfowCtx(ctx, "Endpoint registered",
		"endpoint_id", ep.ID,
		"protocol", ep.Protocol,
		"enabled", ep.Enabled,
	)
	r.events.LogEvent(ctx, models.Event{
		Type:       models.EventEndpointRegistered,
		TenantID:   ep.TenantID,
		EndpointID: ep.ID,
		Protocol:   ep.Protocol,
		Success:    true,
		Timestamp:  now,
	})
	return &ep, nil
}

// Unregister removes the endpoint. Requests already routed to it are left
// to finish.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	ep, exists := r.endpoints[id]
	if !exists {
		r.mu.Unlock()
		return apperrors.NewNotFound("endpoint", id)
	}
	if err := r.store.Delete(ctx, id); err != nil && !apperrors.IsNotFound(err) {
		r.mu.Unlock()
		return apperrors.ErrInternal.WithMessage("failed to delete endpoint").WithCause(err)
	}
	delete(r.endpoints, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	removed := ep.Clone()
	r.mu.Unlock()

	if r.adapters != nil {
		r.adapters.ReleaseEndpoint(removed.Protocol, removed.ID)
	}
	metrics.DeleteEndpointHealth(removed.ID, removed.Protocol)
	r.logger.InfowCtx(ctx, "Endpoint unregistered", "endpoint_id", id)
	r.events.LogEvent(ctx, models.Event{
		Type:       models.EventEndpointUnregistered,
		TenantID:   removed.TenantID,
		EndpointID: removed.ID,
		Protocol:   removed.Protocol,
		Success:    true,
		Timestamp:  r.now(),
	})
	return nil
}

func (r *Registry) Get(_ context.Context, id string) (*models.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return nil, apperrors.NewNotFound("endpoint", id)
	}
	out := ep.Clone()
	return &out, nil
}

// Endpoints yields the endpoints registered when each element is reached.
// The id list is taken when iteration starts; endpoints removed since then
// are skipped. The sequence can be ranged over any number of times.
func (r *Registry) Endpoints(_ context.Context) iter.Seq[models.Endpoint] {
	return func(yield func(models.Endpoint) bool) {
		r.mu.RLock()
		ids := make([]string, len(r.order))
		copy(ids, r.order)
		r.mu.RUnlock()

		for _, id := range ids {
			r.mu.RLock()
			ep, ok := r.endpoints[id]
			var out models.Endpoint
			if ok {
				out = ep.Clone()
			}
			r.mu.RUnlock()

			if !ok {
				continue
			}
			if !yield(out) {
				return
			}
		}
	}
}

// List returns the endpoints sorted by id.
func (r *Registry) List(ctx context.Context) []models.Endpoint {
	var out []models.Endpoint
	for ep := range r.Endpoints(ctx) {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return nil, apperrors.NewNotFound("endpoint", id)
	}
	updated := ep.Clone()
	updated.Enabled = enabled
	updated.UpdatedAt = r.now()
	if err := r.store.Update(ctx, &updated); err != nil {
		return nil, apperrors.ErrInternal.WithMessage("failed to update endpoint").WithCause(err)
	}
	r.endpoints[id] = &updated

	r.logger.InfowCtx(ctx, "Endpoint enabled flag changed", "endpoint_id", id, "enabled", enabled)
	out := updated.Clone()
	return &out, nil
}

// CheckEndpointHealth probes the endpoint through its adapter and records
// the resulting status on it.
func (r *Registry) CheckEndpointHealth(ctx context.Context, id string) (models.HealthStatus, error) {
	ep, err := r.Get(ctx, id)
	if err != nil {
		return models.HealthUnknown, err
	}
	if r.adapters == nil {
		return models.HealthUnknown, apperrors.NewAdapterUnavailable(ep.Protocol)
	}
	a, err := r.adapters.Get(ep.Protocol)
	if err != nil {
		return models.HealthUnknown, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	status := a.CheckHealth(probeCtx, ep)
	cancel()

	if err := ctx.Err(); err != nil {
		return models.HealthUnknown, apperrors.FromContext(err)
	}

	r.recordHealth(ctx, ep, status)
	return status, nil
}

func (r *Registry) recordHealth(ctx context.Context, probed *models.Endpoint, status models.HealthStatus) {
	checkedAt := r.now()

	r.mu.Lock()
	ep, ok := r.endpoints[probed.ID]
	var previous models.HealthStatus
	var snapshot models.Endpoint
	if ok {
		previous = ep.Health
		updated := ep.Clone()
		updated.Health = status
		updated.LastCheckedAt = &checkedAt
		r.endpoints[probed.ID] = &updated
		snapshot = updated.Clone()
	}
	r.mu.Unlock()

	if !ok {
		// Unregistered while the probe was running.
		return
	}

	// Health is runtime state; a failed store write only loses it across
	// restarts. Only the health columns are written so a concurrent
	// SetEnabled is never overwritten.
	if err := r.store.UpdateHealth(ctx, snapshot.ID, status, checkedAt); err != nil && !apperrors.IsNotFound(err) {
		r.logger.WarnwCtx(ctx, "Failed to persist endpoint health", "endpoint_id", snapshot.ID, "error", err)
	}

	metrics.SetEndpointHealth(snapshot.ID, snapshot.Protocol, healthCode(status))
	if previous != status {
		r.logger.InfowCtx(ctx, "Endpoint health changed",
			"endpoint_id", snapshot.ID,
			"from", string(previous),
			"to", string(status),
		)
	}
	r.events.LogEvent(ctx, models.Event{
		Type:       models.EventEndpointHealth,
		TenantID:   snapshot.TenantID,
		EndpointID: snapshot.ID,
		Protocol:   snapshot.Protocol,
		Success:    !status.IsFailing(),
		Timestamp:  checkedAt,
		Attributes: map[string]string{"status": string(status), "previous": string(previous)},
	})
}

// CheckAll probes every registered endpoint concurrently. Endpoints whose
// protocol has no adapter are reported unhealthy with the reason.
func (r *Registry) CheckAll(ctx context.Context) []models.EndpointHealth {
	var targets []models.Endpoint
	for ep := range r.Endpoints(ctx) {
		targets = append(targets, ep)
	}

	results := make([]models.EndpointHealth, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, ep := range targets {
		results[i] = models.EndpointHealth{
			EndpointID: ep.ID,
			Name:       ep.Name,
			Protocol:   ep.Protocol,
			Enabled:    ep.Enabled,
			Status:     models.HealthUnknown,
		}
		g.Go(func() error {
			status, err := r.CheckEndpointHealth(gctx, ep.ID)
			switch {
			case apperrors.IsAdapterUnavailable(err):
				results[i].Status = models.HealthUnhealthy
				results[i].Error = err.Error()
			case err != nil:
				results[i].Error = err.Error()
			default:
				results[i].Status = status
			}
			if current, err := r.Get(gctx, ep.ID); err == nil {
				results[i].LastCheckedAt = current.LastCheckedAt
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].EndpointID < results[j].EndpointID })
	return results
}

// Snapshot reports the last known health of every endpoint without probing.
func (r *Registry) Snapshot(ctx context.Context) []models.EndpointHealth {
	var out []models.EndpointHealth
	for ep := range r.Endpoints(ctx) {
		out = append(out, models.EndpointHealth{
			EndpointID:    ep.ID,
			Name:          ep.Name,
			Protocol:      ep.Protocol,
			Enabled:       ep.Enabled,
			Status:        ep.Health,
			LastCheckedAt: ep.LastCheckedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndpointID < out[j].EndpointID })
	return out
}

func healthCode(status models.HealthStatus) int {
	switch status {
	case models.HealthHealthy:
		return 1
	case models.HealthDegraded:
		return 2
	case models.HealthUnhealthy:
		return 3
	default:
		return 0
	}
}
