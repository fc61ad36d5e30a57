package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Gateway        GatewayConfig        `mapstructure:"gateway"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Transform      TransformConfig      `mapstructure:"transform"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Tenant         TenantConfig         `mapstructure:"tenant"`
	API            APIConfig            `mapstructure:"api"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `mapstructure:"postgres"`
	Redis         RedisConfig    `mapstructure:"redis"`
	MongoDB       MongoDBConfig  `mapstructure:"mongodb"`
	RunMigrations bool           `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers      []string    `mapstructure:"brokers"`
	GroupID      string      `mapstructure:"group_id"`
	InboundTopic string      `mapstructure:"inbound_topic"`
	DLQTopic     string      `mapstructure:"dlq_topic"`
	EventsTopic  string      `mapstructure:"events_topic"`
	Retry        RetryConfig `mapstructure:"retry"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GatewayConfig struct {
	// Fraction of endpoints allowed to be unhealthy before the gateway
	// reports itself unhealthy.
	HealthFailureThreshold float64       `mapstructure:"health_failure_threshold"`
	AdapterTimeout         time.Duration `mapstructure:"adapter_timeout"`
	HealthCheckTimeout     time.Duration `mapstructure:"health_check_timeout"`
	HealthCheckInterval    time.Duration `mapstructure:"health_check_interval"`
	HealthCheckConcurrency int           `mapstructure:"health_check_concurrency"`
	RoutingRules           []RouteRule   `mapstructure:"routing_rules"`
	Endpoints              []Endpoint    `mapstructure:"endpoints"`
}

// RouteRule maps a CEL condition over the request to an endpoint.
type RouteRule struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
	EndpointID string `mapstructure:"endpoint_id"`
}

// Endpoint is a statically configured endpoint registered at startup.
type Endpoint struct {
	ID       string                 `mapstructure:"id"`
	Name     string                 `mapstructure:"name"`
	Protocol string                 `mapstructure:"protocol"`
	Enabled  bool                   `mapstructure:"enabled"`
	Config   map[string]interface{} `mapstructure:"config"`
}

type QueueConfig struct {
	Names           []string      `mapstructure:"names"`
	WorkersPerQueue int           `mapstructure:"workers_per_queue"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Backoff         BackoffConfig `mapstructure:"backoff"`
	Dedup           DedupConfig   `mapstructure:"dedup"`
}

type BackoffConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	Jitter          float64       `mapstructure:"jitter"`
}

type DedupConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	OnError    string `mapstructure:"on_error"` // "allow" or "reject"
	// Fields names the message attributes hashed into the dedup key:
	// id, tenant_id, queue, endpoint_id, operation, payload or
	// metadata.<key>. Defaults to tenant_id and id.
	Fields []string `mapstructure:"fields"`
}

// TransformConfig declares field-mapping transformers registered on top of
// the built-in json/yaml converters.
type TransformConfig struct {
	Mappings []MappingConfig `mapstructure:"mappings"`
}

type MappingConfig struct {
	Source string         `mapstructure:"source"`
	Target string         `mapstructure:"target"`
	Fields []FieldMapping `mapstructure:"fields"`
}

// FieldMapping copies the value at SourcePath (dot separated, "." for the
// whole document) into TargetField, optionally through a CEL Expression over
// `value`, `payload` and `metadata`.
type FieldMapping struct {
	SourcePath  string      `mapstructure:"source_path"`
	TargetField string      `mapstructure:"target_field"`
	Expression  string      `mapstructure:"expression"`
	Default     interface{} `mapstructure:"default"`
}

type MonitoringConfig struct {
	Sinks              []string      `mapstructure:"sinks"` // postgres, mongodb, kafka
	SinkBuffer         int           `mapstructure:"sink_buffer"`
	EvaluationInterval time.Duration `mapstructure:"evaluation_interval"`
	Retention          time.Duration `mapstructure:"retention"`
	MaxEvents          int           `mapstructure:"max_events"`
	DashboardWindow    time.Duration `mapstructure:"dashboard_window"`
	AlertHistory       int           `mapstructure:"alert_history"`
}

type TenantConfig struct {
	Header  string `mapstructure:"header"`
	Default string `mapstructure:"default"`
}

type APIConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
