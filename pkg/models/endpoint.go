package models

import (
	"fmt"
	"strings"
	"time"
)

type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// IsFailing reports whether the status counts against gateway health.
func (h HealthStatus) IsFailing() bool {
	return h == HealthUnhealthy
}

// Endpoint is a registered external system reachable through exactly one
// protocol adapter. Config is opaque to the gateway and owned by the adapter.
type Endpoint struct {
	ID            string                 `json:"id"`
	TenantID      string                 `json:"tenant_id,omitempty"`
	Name          string                 `json:"name"`
	Protocol      string                 `json:"protocol"`
	Config        map[string]interface{} `json:"config,omitempty"`
	Enabled       bool                   `json:"enabled"`
	Health        HealthStatus           `json:"health"`
	LastCheckedAt *time.Time             `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with e.
func (e Endpoint) Clone() Endpoint {
	out := e
	if e.Config != nil {
		out.Config = make(map[string]interface{}, len(e.Config))
		for k, v := range e.Config {
			out.Config[k] = v
		}
	}
	if e.LastCheckedAt != nil {
		t := *e.LastCheckedAt
		out.LastCheckedAt = &t
	}
	return out
}

func (e Endpoint) ConfigString(key string) string {
	switch v := e.Config[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ConfigStrings accepts either a list or a comma-separated string.
func (e Endpoint) ConfigStrings(key string) []string {
	switch v := e.Config[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

func (e Endpoint) ConfigDuration(key string, fallback time.Duration) time.Duration {
	switch v := e.Config[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case time.Duration:
		return v
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	case int:
		return time.Duration(v) * time.Millisecond
	}
	return fallback
}

func (e Endpoint) ConfigInt(key string, fallback int) int {
	switch v := e.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
