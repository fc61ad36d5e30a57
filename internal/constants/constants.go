package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaDialTimeout  = 5 * time.Second
)

const (
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second
	ShutdownTimeout           = 10 * time.Second
)

const (
	CacheKeyPrefixDedup = "conduit:dedup:"
)

const (
	DefaultMongoDBName      = "conduit"
	EventsCollection        = "integration_events"
	EndpointsTable          = "integration_endpoints"
	EventsTable             = "integration_events"
	DefaultQueueName        = "default"
	DefaultPayloadFormat    = "json"
	DefaultEventsBufferSize = 1024
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow  = "allow"
	FallbackReject = "reject"
)

// Built-in adapter protocol tags.
const (
	ProtocolHTTP    = "http"
	ProtocolKafka   = "kafka"
	ProtocolRedis   = "redis"
	ProtocolMongoDB = "mongodb"
)

const (
	SinkPostgres = "postgres"
	SinkMongoDB  = "mongodb"
	SinkKafka    = "kafka"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderMessageID     = "X-Message-ID"
	HeaderTenantID      = "X-Tenant-ID"
)
