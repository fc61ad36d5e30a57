// Package monitoring owns the audit event log, the metrics derived from it,
// alert rules and the health dashboard.
package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conduit/internal/config"
	"conduit/internal/logger"
	"conduit/internal/tenant"
	"conduit/pkg/cel"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

const (
	defaultMaxEvents       = 100000
	defaultRetention       = 24 * time.Hour
	defaultDashboardWindow = 15 * time.Minute
	defaultAlertHistory    = 500
)

type EndpointSource interface {
	Snapshot(ctx context.Context) []models.EndpointHealth
}

type QueueSource interface {
	QueueStatus(ctx context.Context) []models.QueueStatus
}

// Service never mutates endpoint or message state; it only observes.
type Service struct {
	log        *eventLog
	dispatcher *dispatcher
	evaluator  *cel.Evaluator

	alertsMu    sync.RWMutex
	rules       map[string]*models.AlertRule
	active      map[string]*models.Alert
	history     []models.Alert
	historySize int

	endpoints       EndpointSource
	queues          QueueSource
	tenants         tenant.Provider
	logger          logger.Logger
	dashboardWindow time.Duration
	evalInterval    time.Duration
	now             func() time.Time
}

type Option func(*Service)

// WithSink forwards every logged event to sink through a buffer of
// bufferSize events.
func WithSink(sink Sink, bufferSize int) Option {
	return func(s *Service) {
		if sink != nil {
			s.dispatcher = newDispatcher(sink, bufferSize, s.logger)
		}
	}
}

func WithEndpointSource(src EndpointSource) Option {
	return func(s *Service) { s.endpoints = src }
}

func WithQueueSource(src QueueSource) Option {
	return func(s *Service) { s.queues = src }
}

func WithTenantProvider(p tenant.Provider) Option {
	return func(s *Service) { s.tenants = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConfig applies retention, dashboard and alerting settings.
func WithConfig(cfg config.MonitoringConfig) Option {
	return func(s *Service) {
		if cfg.MaxEvents > 0 {
			s.log.maxEvents = cfg.MaxEvents
		}
		if cfg.Retention > 0 {
			s.log.retention = cfg.Retention
		}
		if cfg.DashboardWindow > 0 {
			s.dashboardWindow = cfg.DashboardWindow
		}
		if cfg.AlertHistory > 0 {
			s.historySize = cfg.AlertHistory
		}
		if cfg.EvaluationInterval > 0 {
			s.evalInterval = cfg.EvaluationInterval
		}
	}
}

// Observe sets the endpoint and queue sources after construction. It must be
// called before Run or any dashboard request.
func (s *Service) Observe(endpoints EndpointSource, queues QueueSource) {
	s.endpoints = endpoints
	s.queues = queues
}

// NewService fails only if the CEL environment cannot be built. The logger
// comes first so sink options can use it.
func NewService(log logger.Logger, opts ...Option) (*Service, error) {
	evaluator, err := cel.NewMetricsEvaluator()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger()
	}

	s := &Service{
		log:             newEventLog(defaultMaxEvents, defaultRetention),
		evaluator:       evaluator,
		rules:           make(map[string]*models.AlertRule),
		active:          make(map[string]*models.Alert),
		historySize:     defaultAlertHistory,
		logger:          log,
		dashboardWindow: defaultDashboardWindow,
		evalInterval:    30 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) tenantOf(ctx context.Context, current string) string {
	return tenant.Resolve(ctx, s.tenants, current)
}

// LogEvent appends an event to the log. It never fails and never blocks on
// the sink.
func (s *Service) LogEvent(ctx context.Context, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorwCtx(ctx, "Recovered panic while logging event", "error", apperrors.RecoverPanic(r))
		}
	}()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := s.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.TenantID = s.tenantOf(ctx, event.TenantID)
	if event.Attributes != nil {
		attrs := make(map[string]string, len(event.Attributes))
		for k, v := range event.Attributes {
			attrs[k] = v
		}
		event.Attributes = attrs
	}

	s.log.append(event, now)
	metrics.IncEventLogged(string(event.Type))
	if s.dispatcher != nil {
		s.dispatcher.offer(event)
	}
}

// EventFilter narrows an event query. Zero fields match everything.
type EventFilter struct {
	From       time.Time
	To         time.Time
	Type       models.EventType
	EndpointID string
	MessageID  string
	Limit      int
}

// Events returns logged events matching f, newest first.
func (s *Service) Events(_ context.Context, f EventFilter) ([]models.Event, error) {
	to := f.To
	if to.IsZero() {
		to = s.now().Add(time.Nanosecond)
	}
	if to.Before(f.From) {
		return nil, apperrors.NewInvalidRange(f.From, f.To)
	}

	events := s.log.window(f.From, to, func(e *models.Event) bool {
		return (f.Type == "" || e.Type == f.Type) &&
			(f.EndpointID == "" || e.EndpointID == f.EndpointID) &&
			(f.MessageID == "" || e.MessageID == f.MessageID)
	})
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[:f.Limit]
	}
	return events, nil
}

// GetMetrics aggregates events with from <= timestamp < to. Equal bounds
// yield an empty window.
func (s *Service) GetMetrics(ctx context.Context, from, to time.Time) (*models.Metrics, error) {
	if to.Before(from) {
		return nil, apperrors.NewInvalidRange(from, to)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	if from.Equal(to) {
		return models.EmptyMetrics(from, to), nil
	}
	return aggregate(s.log.window(from, to, nil), from, to), nil
}

// GetHealthDashboard assembles endpoint health, recent metrics, active
// alerts and queue status. A section that cannot be produced is left out
// and named in Warnings.
func (s *Service) GetHealthDashboard(ctx context.Context) *models.HealthDashboard {
	now := s.now()
	d := &models.HealthDashboard{
		GeneratedAt:  now,
		Healthy:      true,
		ActiveAlerts: s.GetActiveAlerts(ctx),
	}

	if s.endpoints == nil {
		d.Warnings = append(d.Warnings, "endpoints: no endpoint source configured")
	} else if err := apperrors.SafeCall(func() error {
		d.Endpoints = s.endpoints.Snapshot(ctx)
		return ctx.Err()
	}); err != nil {
		d.Endpoints = nil
		d.Warnings = append(d.Warnings, "endpoints: "+err.Error())
	}

	if err := apperrors.SafeCall(func() error {
		m, err := s.GetMetrics(ctx, now.Add(-s.dashboardWindow), now.Add(time.Nanosecond))
		d.Metrics = m
		return err
	}); err != nil {
		d.Metrics = nil
		d.Warnings = append(d.Warnings, "metrics: "+err.Error())
	}

	if s.queues != nil {
		if err := apperrors.SafeCall(func() error {
			d.Queues = s.queues.QueueStatus(ctx)
			return ctx.Err()
		}); err != nil {
			d.Queues = nil
			d.Warnings = append(d.Warnings, "queues: "+err.Error())
		}
	}

	for _, ep := range d.Endpoints {
		if ep.Enabled && ep.Status.IsFailing() {
			d.Healthy = false
		}
	}
	for _, a := range d.ActiveAlerts {
		if a.Severity == models.SeverityCritical {
			d.Healthy = false
		}
	}
	return d
}

// Run forwards events to the sink and evaluates alert rules until ctx is
// done.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.dispatcher != nil {
		g.Go(func() error { return s.dispatcher.run(gctx) })
	}
	g.Go(func() error { return s.RunEvaluator(gctx, s.evalInterval) })
	return g.Wait()
}

// EventCount reports how many events the in-memory log holds.
func (s *Service) EventCount() int {
	return s.log.len()
}
