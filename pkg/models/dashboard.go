package models

import "time"

type EndpointHealth struct {
	EndpointID    string       `json:"endpoint_id"`
	Name          string       `json:"name"`
	Protocol      string       `json:"protocol"`
	Enabled       bool         `json:"enabled"`
	Status        HealthStatus `json:"status"`
	LastCheckedAt *time.Time   `json:"last_checked_at,omitempty"`
	Error         string       `json:"error,omitempty"`
}

type GatewayHealth struct {
	Healthy          bool             `json:"healthy"`
	Total            int              `json:"total"`
	Failing          int              `json:"failing"`
	FailureFraction  float64          `json:"failure_fraction"`
	FailureThreshold float64          `json:"failure_threshold"`
	Endpoints        []EndpointHealth `json:"endpoints"`
	CheckedAt        time.Time        `json:"checked_at"`
}

// HealthDashboard is recomputed on every request. Sections that could not be
// produced are nil and named in Warnings.
type HealthDashboard struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Healthy      bool             `json:"healthy"`
	Endpoints    []EndpointHealth `json:"endpoints,omitempty"`
	Metrics      *Metrics         `json:"metrics,omitempty"`
	ActiveAlerts []Alert          `json:"active_alerts"`
	Queues       []QueueStatus    `json:"queues,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}
