package config

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var (
	validSinks    = map[string]bool{"postgres": true, "mongodb": true, "kafka": true}
	validSSLModes = map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
)

// ValidateStatic checks every section and joins all problems found.
func ValidateStatic(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateDatabase(cfg.Database)...)
	errs = append(errs, validateKafka(cfg.Broker.Kafka)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)
	errs = append(errs, validateQueue(cfg.Queue)...)
	errs = append(errs, validateTransform(cfg.Transform)...)
	errs = append(errs, validateMonitoring(cfg)...)
	errs = append(errs, validateCircuitBreaker(cfg.CircuitBreaker)...)

	return errors.Join(errs...)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return invalid(field, "port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateServer(cfg ServerConfig) []error {
	var errs []error
	if err := validatePort("server.port", cfg.Port); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReadTimeoutSeconds <= 0 {
		errs = append(errs, invalid("server.read_timeout_seconds", "read timeout must be positive"))
	}
	if cfg.WriteTimeoutSeconds <= 0 {
		errs = append(errs, invalid("server.write_timeout_seconds", "write timeout must be positive"))
	}
	return errs
}

func validateDatabase(cfg DatabaseConfig) []error {
	var errs []error

	if cfg.Postgres.Enabled() {
		if err := validatePort("database.postgres.port", cfg.Postgres.Port); err != nil {
			errs = append(errs, err)
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, invalid("database.postgres.user", "PostgreSQL user is required"))
		}
		if cfg.Postgres.DBName == "" {
			errs = append(errs, invalid("database.postgres.dbname", "PostgreSQL database name is required"))
		}
		if cfg.Postgres.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.Postgres.SSLMode)] {
			errs = append(errs, invalid("database.postgres.sslmode", "invalid SSL mode: %s", cfg.Postgres.SSLMode))
		}
	}

	if cfg.Redis.Enabled() {
		if err := validatePort("database.redis.port", cfg.Redis.Port); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.MongoDB.Enabled() {
		if !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
			errs = append(errs, invalid("database.mongodb.uri", "MongoDB URI must start with mongodb:// or mongodb+srv://"))
		}
		if cfg.MongoDB.Database == "" {
			errs = append(errs, invalid("database.mongodb.database", "MongoDB database name is required"))
		}
	}

	if cfg.RunMigrations && !cfg.Postgres.Enabled() {
		errs = append(errs, invalid("database.run_migrations", "migrations require a PostgreSQL host"))
	}

	return errs
}

func validateKafka(cfg KafkaConfig) []error {
	if !cfg.Enabled() {
		return nil
	}

	var errs []error
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errs = append(errs, invalid(fmt.Sprintf("broker.kafka.brokers[%d]", i), "broker address cannot be empty"))
		}
	}
	if cfg.InboundTopic != "" && cfg.GroupID == "" {
		errs = append(errs, invalid("broker.kafka.group_id", "consumer group ID is required when inbound_topic is set"))
	}
	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, invalid("broker.kafka.retry.max_attempts", "max_attempts must be non-negative"))
	}
	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > cfg.Retry.MaxInterval {
		errs = append(errs, invalid("broker.kafka.retry.max_interval", "max_interval must be greater than or equal to initial_interval"))
	}
	if cfg.Retry.Multiplier <= 0 {
		errs = append(errs, invalid("broker.kafka.retry.multiplier", "multiplier must be positive"))
	}
	return errs
}

func validateGateway(cfg GatewayConfig) []error {
	var errs []error

	if cfg.HealthFailureThreshold < 0 || cfg.HealthFailureThreshold > 1 {
		errs = append(errs, invalid("gateway.health_failure_threshold", "must be within [0, 1], got %v", cfg.HealthFailureThreshold))
	}
	if cfg.AdapterTimeout <= 0 {
		errs = append(errs, invalid("gateway.adapter_timeout", "adapter timeout must be positive"))
	}
	if cfg.HealthCheckTimeout <= 0 {
		errs = append(errs, invalid("gateway.health_check_timeout", "health check timeout must be positive"))
	}

	for i, rule := range cfg.RoutingRules {
		if rule.Expression == "" || rule.EndpointID == "" {
			errs = append(errs, invalid(fmt.Sprintf("gateway.routing_rules[%d]", i), "expression and endpoint_id are required"))
		}
	}

	seen := make(map[string]bool, len(cfg.Endpoints))
	for i, ep := range cfg.Endpoints {
		field := fmt.Sprintf("gateway.endpoints[%d]", i)
		switch {
		case ep.ID == "":
			errs = append(errs, invalid(field+".id", "endpoint id is required"))
		case seen[ep.ID]:
			errs = append(errs, invalid(field+".id", "duplicate endpoint id %q", ep.ID))
		}
		if ep.Protocol == "" {
			errs = append(errs, invalid(field+".protocol", "protocol is required"))
		}
		seen[ep.ID] = true
	}

	return errs
}

func validateQueue(cfg QueueConfig) []error {
	var errs []error

	if len(cfg.Names) == 0 {
		errs = append(errs, invalid("queue.names", "at least one queue name is required"))
	}
	if cfg.WorkersPerQueue < 0 {
		errs = append(errs, invalid("queue.workers_per_queue", "must be non-negative"))
	}
	if cfg.MaxRetries < 1 {
		errs = append(errs, invalid("queue.max_retries", "must be at least 1"))
	}
	if cfg.Backoff.InitialInterval <= 0 {
		errs = append(errs, invalid("queue.backoff.initial_interval", "must be positive"))
	}
	if cfg.Backoff.MaxInterval < cfg.Backoff.InitialInterval {
		errs = append(errs, invalid("queue.backoff.max_interval", "must be greater than or equal to initial_interval"))
	}
	if cfg.Backoff.Multiplier < 1 {
		errs = append(errs, invalid("queue.backoff.multiplier", "must be at least 1"))
	}
	if cfg.Backoff.Jitter < 0 || cfg.Backoff.Jitter >= 1 {
		errs = append(errs, invalid("queue.backoff.jitter", "must be within [0, 1)"))
	}
	if cfg.Dedup.OnError != "" && cfg.Dedup.OnError != "allow" && cfg.Dedup.OnError != "reject" {
		errs = append(errs, invalid("queue.dedup.on_error", "invalid value %q (valid: allow, reject)", cfg.Dedup.OnError))
	}
	return errs
}

func validateTransform(cfg TransformConfig) []error {
	var errs []error
	for i, m := range cfg.Mappings {
		field := fmt.Sprintf("transform.mappings[%d]", i)
		if m.Source == "" || m.Target == "" {
			errs = append(errs, invalid(field, "source and target formats are required"))
		}
		if len(m.Fields) == 0 {
			errs = append(errs, invalid(field+".fields", "at least one field mapping is required"))
		}
		for j, f := range m.Fields {
			if f.TargetField == "" {
				errs = append(errs, invalid(fmt.Sprintf("%s.fields[%d].target_field", field, j), "target field is required"))
			}
		}
	}
	return errs
}

func validateMonitoring(cfg *Config) []error {
	var errs []error
	m := cfg.Monitoring

	for _, sink := range m.Sinks {
		if !validSinks[sink] {
			errs = append(errs, invalid("monitoring.sinks", "unknown sink %q (valid: postgres, mongodb, kafka)", sink))
			continue
		}
		switch {
		case sink == "postgres" && !cfg.Database.Postgres.Enabled():
			errs = append(errs, invalid("monitoring.sinks", "postgres sink requires database.postgres"))
		case sink == "mongodb" && !cfg.Database.MongoDB.Enabled():
			errs = append(errs, invalid("monitoring.sinks", "mongodb sink requires database.mongodb"))
		case sink == "kafka" && (!cfg.Broker.Kafka.Enabled() || cfg.Broker.Kafka.EventsTopic == ""):
			errs = append(errs, invalid("monitoring.sinks", "kafka sink requires broker.kafka.brokers and events_topic"))
		}
	}
	if m.EvaluationInterval <= 0 {
		errs = append(errs, invalid("monitoring.evaluation_interval", "must be positive"))
	}
	if m.MaxEvents < 1 {
		errs = append(errs, invalid("monitoring.max_events", "must be at least 1"))
	}
	if m.Retention <= 0 {
		errs = append(errs, invalid("monitoring.retention", "must be positive"))
	}
	return errs
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) []error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return []error{invalid("circuit_breaker.failure_ratio", "must be within (0, 1]")}
	}
	return nil
}
