package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads configFile (YAML) and environment overrides. An empty
// configFile loads defaults and environment only.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(v, &cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.mongodb.database", "conduit")

	v.SetDefault("broker.kafka.group_id", "conduit")
	v.SetDefault("broker.kafka.retry.max_attempts", 3)
	v.SetDefault("broker.kafka.retry.initial_interval", "100ms")
	v.SetDefault("broker.kafka.retry.max_interval", "5s")
	v.SetDefault("broker.kafka.retry.multiplier", 2.0)

	v.SetDefault("gateway.health_failure_threshold", 0.0)
	v.SetDefault("gateway.adapter_timeout", "10s")
	v.SetDefault("gateway.health_check_timeout", "5s")
	v.SetDefault("gateway.health_check_interval", "30s")
	v.SetDefault("gateway.health_check_concurrency", 8)

	v.SetDefault("queue.names", []string{"default"})
	v.SetDefault("queue.workers_per_queue", 2)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.backoff.initial_interval", "1s")
	v.SetDefault("queue.backoff.max_interval", "5m")
	v.SetDefault("queue.backoff.multiplier", 2.0)
	v.SetDefault("queue.backoff.jitter", 0.0)
	v.SetDefault("queue.dedup.ttl_seconds", 3600)
	v.SetDefault("queue.dedup.on_error", "allow")

	v.SetDefault("monitoring.sink_buffer", 1024)
	v.SetDefault("monitoring.evaluation_interval", "30s")
	v.SetDefault("monitoring.retention", "24h")
	v.SetDefault("monitoring.max_events", 100000)
	v.SetDefault("monitoring.dashboard_window", "15m")
	v.SetDefault("monitoring.alert_history", 500)

	v.SetDefault("tenant.header", "X-Tenant-ID")

	v.SetDefault("api.rate_limit.rps", 100.0)
	v.SetDefault("api.rate_limit.burst", 200)
	v.SetDefault("api.rate_limit.cleanup_interval", 60)
	v.SetDefault("api.rate_limit.max_age", 300)

	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", "60s")
	v.SetDefault("circuit_breaker.timeout", "30s")
	v.SetDefault("circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 5)

	v.SetDefault("tracing.service_name", "conduit")
	v.SetDefault("tracing.sampler.type", "always_on")
}

func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	_ = v.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	_ = v.BindEnv("broker.kafka.inbound_topic", "BROKER_KAFKA_INBOUND_TOPIC")
	_ = v.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")
	_ = v.BindEnv("broker.kafka.events_topic", "BROKER_KAFKA_EVENTS_TOPIC")

	_ = v.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	_ = v.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	_ = v.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	_ = v.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	_ = v.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("logging.level", "LOGGING_LEVEL")
	_ = v.BindEnv("logging.format", "LOGGING_FORMAT")

	_ = v.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	_ = v.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	_ = v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	_ = v.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if brokersEnv := v.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := splitList(brokersEnv)
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if names := v.GetString("QUEUE_NAMES"); names != "" {
		cfg.Queue.Names = splitList(names)
	}

	if sinks := v.GetString("MONITORING_SINKS"); sinks != "" {
		cfg.Monitoring.Sinks = splitList(sinks)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
