package models

import (
	"fmt"
	"time"
)

type AlertMetric string

const (
	MetricErrorRate       AlertMetric = "error_rate"
	MetricFailureCount    AlertMetric = "failure_count"
	MetricEventCount      AlertMetric = "event_count"
	MetricAvgLatencyMs    AlertMetric = "avg_latency_ms"
	MetricP95LatencyMs    AlertMetric = "p95_latency_ms"
	MetricDeadLetterCount AlertMetric = "dead_letter_count"
)

func (m AlertMetric) Valid() bool {
	switch m {
	case MetricErrorRate, MetricFailureCount, MetricEventCount,
		MetricAvgLatencyMs, MetricP95LatencyMs, MetricDeadLetterCount:
		return true
	}
	return false
}

type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// Compare evaluates value <op> threshold.
func (o Operator) Compare(value, threshold float64) (bool, error) {
	switch o {
	case OpGreater:
		return value > threshold, nil
	case OpGreaterEqual:
		return value >= threshold, nil
	case OpLess:
		return value < threshold, nil
	case OpLessEqual:
		return value <= threshold, nil
	case OpEqual:
		return value == threshold, nil
	}
	return false, fmt.Errorf("unknown operator %q", o)
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertRule is a threshold condition over metrics computed for the trailing
// Window. When Expression is set it replaces Metric/Operator/Threshold and
// is evaluated as a CEL boolean over the metric variables.
type AlertRule struct {
	ID         string        `json:"id"`
	TenantID   string        `json:"tenant_id,omitempty"`
	Name       string        `json:"name"`
	Metric     AlertMetric   `json:"metric,omitempty"`
	Operator   Operator      `json:"operator,omitempty"`
	Threshold  float64       `json:"threshold"`
	Window     time.Duration `json:"window"`
	EndpointID string        `json:"endpoint_id,omitempty"`
	Expression string        `json:"expression,omitempty"`
	Severity   Severity      `json:"severity"`
	Enabled    bool          `json:"enabled"`
	CreatedAt  time.Time     `json:"created_at"`
}

type AlertState string

const (
	AlertActive   AlertState = "active"
	AlertResolved AlertState = "resolved"
)

// Alert is the materialized breach of a rule.
type Alert struct {
	ID         string     `json:"id"`
	RuleID     string     `json:"rule_id"`
	RuleName   string     `json:"rule_name"`
	TenantID   string     `json:"tenant_id,omitempty"`
	Severity   Severity   `json:"severity"`
	State      AlertState `json:"state"`
	Value      float64    `json:"value"`
	Threshold  float64    `json:"threshold"`
	Message    string     `json:"message"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
