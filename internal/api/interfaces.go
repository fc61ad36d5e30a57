package api

import (
	"context"
	"time"

	"conduit/internal/monitoring"
	"conduit/pkg/models"
)

type Registry interface {
	Register(ctx context.Context, endpoint models.Endpoint) (*models.Endpoint, error)
	Unregister(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Endpoint, error)
	List(ctx context.Context) []models.Endpoint
	SetEnabled(ctx context.Context, id string, enabled bool) (*models.Endpoint, error)
	CheckEndpointHealth(ctx context.Context, id string) (models.HealthStatus, error)
}

type Router interface {
	Route(ctx context.Context, req *models.Request) (*models.Response, error)
	CheckHealth(ctx context.Context) models.GatewayHealth
}

type Queue interface {
	Enqueue(ctx context.Context, msg models.Message, priority models.Priority) (string, error)
	Message(ctx context.Context, id string) (*models.Message, error)
	RetryFailed(ctx context.Context, id string) error
	Transform(ctx context.Context, msg *models.Message, targetFormat string) (*models.Message, error)
	QueueStatus(ctx context.Context) []models.QueueStatus
	DeadLetters(ctx context.Context, queue string) []models.Message
}

type Monitor interface {
	GetMetrics(ctx context.Context, from, to time.Time) (*models.Metrics, error)
	Events(ctx context.Context, f monitoring.EventFilter) ([]models.Event, error)
	CreateAlertRule(ctx context.Context, rule models.AlertRule) (*models.AlertRule, error)
	DeleteAlertRule(ctx context.Context, id string) error
	AlertRules(ctx context.Context) []models.AlertRule
	GetActiveAlerts(ctx context.Context) []models.Alert
	AlertHistory(ctx context.Context) []models.Alert
	GetHealthDashboard(ctx context.Context) *models.HealthDashboard
}
