package adapter

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"conduit/internal/config"
	"conduit/internal/logger"
)

// Clients are the shared connections the built-in adapters fall back to when
// an endpoint does not name its own target. Any of them may be nil.
type Clients struct {
	Redis   redis.UniversalClient
	Mongo   *mongo.Client
	MongoDB string
	HTTP    *http.Client
}

// NewDefaultSet builds the built-in http, kafka, redis and mongodb adapters,
// each wrapped with a circuit breaker and instrumentation.
func NewDefaultSet(cfg *config.Config, clients Clients, log logger.Logger) (*Set, error) {
	if log == nil {
		log = logger.NopLogger()
	}

	httpClient := clients.HTTP
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Gateway.AdapterTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	healthTimeout := cfg.Gateway.HealthCheckTimeout
	base := []Adapter{
		NewHTTPAdapter(httpClient, healthTimeout),
		NewKafkaAdapter(healthTimeout),
		NewRedisAdapter(clients.Redis, healthTimeout),
		NewMongoDBAdapter(clients.Mongo, clients.MongoDB, healthTimeout),
	}

	wrapped := make([]Adapter, 0, len(base))
	for _, a := range base {
		adapterLog := log.Named("adapter." + a.Protocol())
		wrapped = append(wrapped, Wrap(a, cfg, adapterLog))
	}
	return NewSet(wrapped...)
}

// Wrap applies the standard decorators to a.
func Wrap(a Adapter, cfg *config.Config, log logger.Logger) Adapter {
	return Instrument(WithCircuitBreaker(a, cfg.CircuitBreaker, log), cfg.Gateway.AdapterTimeout, log)
}
