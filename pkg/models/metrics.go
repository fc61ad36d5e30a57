package models

import "time"

// Metrics aggregates the event log over [From, To).
type Metrics struct {
	From         time.Time                  `json:"from"`
	To           time.Time                  `json:"to"`
	Total        int                        `json:"total"`
	Succeeded    int                        `json:"succeeded"`
	Failed       int                        `json:"failed"`
	DeadLettered int                        `json:"dead_lettered"`
	ErrorRate    float64                    `json:"error_rate"`
	AvgLatency   time.Duration              `json:"avg_latency"`
	P95Latency   time.Duration              `json:"p95_latency"`
	MaxLatency   time.Duration              `json:"max_latency"`
	ByEndpoint   map[string]EndpointMetrics `json:"by_endpoint"`
	ByType       map[EventType]int          `json:"by_type"`
}

type EndpointMetrics struct {
	Total      int           `json:"total"`
	Failed     int           `json:"failed"`
	ErrorRate  float64       `json:"error_rate"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// EmptyMetrics returns the zero aggregation for a window.
func EmptyMetrics(from, to time.Time) *Metrics {
	return &Metrics{
		From:       from,
		To:         to,
		ByEndpoint: map[string]EndpointMetrics{},
		ByType:     map[EventType]int{},
	}
}

// Value returns the metric used by threshold rules.
func (m *Metrics) Value(metric AlertMetric) float64 {
	switch metric {
	case MetricErrorRate:
		return m.ErrorRate
	case MetricFailureCount:
		return float64(m.Failed)
	case MetricEventCount:
		return float64(m.Total)
	case MetricAvgLatencyMs:
		return float64(m.AvgLatency) / float64(time.Millisecond)
	case MetricP95LatencyMs:
		return float64(m.P95Latency) / float64(time.Millisecond)
	case MetricDeadLetterCount:
		return float64(m.DeadLettered)
	}
	return 0
}
