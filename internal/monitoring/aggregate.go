package monitoring

import (
	"math"
	"sort"
	"time"

	"conduit/pkg/models"
)

// aggregate computes metrics for events already restricted to [from, to).
// Only delivery events count toward totals, error rates and latencies.
func aggregate(events []models.Event, from, to time.Time) *models.Metrics {
	m := models.EmptyMetrics(from, to)

	type endpointAcc struct {
		total, failed int
		latency       time.Duration
	}
	perEndpoint := make(map[string]*endpointAcc)
	var latencies []time.Duration
	var sum time.Duration

	for _, e := range events {
		m.ByType[e.Type]++
		if e.Type == models.EventMessageDeadLettered {
			m.DeadLettered++
		}
		if !e.Type.IsDelivery() {
			continue
		}

		m.Total++
		if e.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
		latencies = append(latencies, e.Duration)
		sum += e.Duration
		if e.Duration > m.MaxLatency {
			m.MaxLatency = e.Duration
		}

		if e.EndpointID == "" {
			continue
		}
		acc, ok := perEndpoint[e.EndpointID]
		if !ok {
			acc = &endpointAcc{}
			perEndpoint[e.EndpointID] = acc
		}
		acc.total++
		acc.latency += e.Duration
		if !e.Success {
			acc.failed++
		}
	}

	if m.Total > 0 {
		m.ErrorRate = float64(m.Failed) / float64(m.Total)
		m.AvgLatency = sum / time.Duration(m.Total)
		m.P95Latency = percentile(latencies, 0.95)
	}
	for id, acc := range perEndpoint {
		m.ByEndpoint[id] = models.EndpointMetrics{
			Total:      acc.total,
			Failed:     acc.failed,
			ErrorRate:  float64(acc.failed) / float64(acc.total),
			AvgLatency: acc.latency / time.Duration(acc.total),
		}
	}
	return m
}

// percentile uses the nearest-rank method. values is reordered.
func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	rank := int(math.Ceil(p * float64(len(values))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(values) {
		rank = len(values)
	}
	return values[rank-1]
}
