package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conduit"

var (
	AdapterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_requests_total",
			Help:      "Total number of adapter send calls (count)",
		},
		[]string{"protocol", "status"},
	)

	AdapterRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_request_duration_ms",
			Help:      "Duration of adapter send calls in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"protocol"},
	)

	RouteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_requests_total",
			Help:      "Total number of routed requests by outcome (count)",
		},
		[]string{"status"},
	)

	QueueMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_messages_total",
			Help:      "Total number of queue state transitions (count)",
		},
		[]string{"queue", "transition"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Messages currently held per queue and state (count)",
		},
		[]string{"queue", "state"},
	)

	QueueWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_duration_ms",
			Help:      "Time between enqueue and dequeue in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000, 60000, 300000},
		},
		[]string{"queue"},
	)

	QueueProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_processing_duration_ms",
			Help:      "Processing duration of a dequeued message in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"queue", "status"},
	)

	TransformationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transformations_total",
			Help:      "Total number of payload transformations (count)",
		},
		[]string{"source", "target", "status"},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_checks_total",
			Help:      "Total number of message id deduplication checks (count)",
		},
		[]string{"result"},
	)

	EventsLoggedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_logged_total",
			Help:      "Total number of integration events logged (count)",
		},
		[]string{"type"},
	)

	EventSinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_sink_errors_total",
			Help:      "Total number of failed event sink writes (count)",
		},
		[]string{"sink"},
	)

	EventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events not forwarded to sinks because the buffer was full (count)",
		},
	)

	ActiveAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alerts",
			Help:      "Number of currently active alerts (count)",
		},
	)

	AlertTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "Total number of alert state transitions (count)",
		},
		[]string{"rule_id", "state"},
	)

	EndpointHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_health",
			Help:      "Last probed endpoint health (0=unknown, 1=healthy, 2=degraded, 3=unhealthy)",
		},
		[]string{"endpoint", "protocol"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts (count)",
		},
		[]string{"component", "target"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dlq_messages_total",
			Help:      "Total number of messages published to the dead-letter topic (count)",
		},
		[]string{"source", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_failures_total",
			Help:      "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_requests_total",
			Help:      "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_read_total",
			Help:      "Total number of messages read from Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_written_total",
			Help:      "Total number of messages written to Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_write_duration_ms",
			Help:      "Duration of writing messages to Kafka in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_queries_total",
			Help:      "Total number of database queries (count)",
		},
		[]string{"database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_query_duration_ms",
			Help:      "Duration of database queries in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"database", "operation"},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg (the default registerer when nil).
// Subsequent calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			AdapterRequestsTotal,
			AdapterRequestDuration,
			RouteRequestsTotal,
			QueueMessagesTotal,
			QueueDepth,
			QueueWaitDuration,
			QueueProcessingDuration,
			TransformationsTotal,
			DedupChecksTotal,
			EventsLoggedTotal,
			EventSinkErrorsTotal,
			EventsDroppedTotal,
			ActiveAlerts,
			AlertTransitionsTotal,
			EndpointHealth,
			RetryAttemptsTotal,
			DLQMessagesTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			KafkaMessagesReadTotal,
			KafkaMessagesWrittenTotal,
			KafkaWriteDuration,
			DatabaseQueriesTotal,
			DatabaseQueryDuration,
		)
	})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func ObserveAdapterRequest(protocol string, success bool, duration time.Duration) {
	AdapterRequestsTotal.WithLabelValues(protocol, status(success)).Inc()
	AdapterRequestDuration.WithLabelValues(protocol).Observe(ms(duration))
}

func IncRouteRequest(outcome string) {
	RouteRequestsTotal.WithLabelValues(outcome).Inc()
}

func IncQueueTransition(queue, transition string) {
	QueueMessagesTotal.WithLabelValues(queue, transition).Inc()
}

func SetQueueDepth(queue, state string, n int) {
	QueueDepth.WithLabelValues(queue, state).Set(float64(n))
}

func ObserveQueueWait(queue string, d time.Duration) {
	QueueWaitDuration.WithLabelValues(queue).Observe(ms(d))
}

func ObserveQueueProcessing(queue string, success bool, d time.Duration) {
	QueueProcessingDuration.WithLabelValues(queue, status(success)).Observe(ms(d))
}

func IncTransformation(source, target string, success bool) {
	TransformationsTotal.WithLabelValues(source, target, status(success)).Inc()
}

func IncDedupCheck(result string) {
	DedupChecksTotal.WithLabelValues(result).Inc()
}

func IncEventLogged(eventType string) {
	EventsLoggedTotal.WithLabelValues(eventType).Inc()
}

func IncEventSinkError(sink string) {
	EventSinkErrorsTotal.WithLabelValues(sink).Inc()
}

func SetEndpointHealth(endpoint, protocol string, code int) {
	EndpointHealth.WithLabelValues(endpoint, protocol).Set(float64(code))
}

func DeleteEndpointHealth(endpoint, protocol string) {
	EndpointHealth.DeleteLabelValues(endpoint, protocol)
}

func IncAlertTransition(ruleID, state string) {
	AlertTransitionsTotal.WithLabelValues(ruleID, state).Inc()
}

func IncKafkaMessagesRead(topic string) {
	KafkaMessagesReadTotal.WithLabelValues(topic).Inc()
}

func IncKafkaMessagesWritten(topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(topic).Inc()
}

func ObserveKafkaWriteDuration(topic string, d time.Duration) {
	KafkaWriteDuration.WithLabelValues(topic).Observe(ms(d))
}

func ObserveDatabaseQuery(database, operation string, err error, d time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(database, operation, status(err == nil)).Inc()
	DatabaseQueryDuration.WithLabelValues(database, operation).Observe(ms(d))
}
