package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"conduit/internal/adapter"
	"conduit/internal/api"
	"conduit/internal/config"
	"conduit/internal/constants"
	"conduit/internal/dedup"
	"conduit/internal/ingest"
	"conduit/internal/logger"
	"conduit/internal/monitoring"
	"conduit/internal/queue"
	"conduit/internal/registry"
	"conduit/internal/routing"
	"conduit/internal/tenant"
	"conduit/internal/transform"
	"conduit/pkg/bootstrap"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/health"
	"conduit/pkg/metrics"
	"conduit/pkg/middleware"
	"conduit/pkg/migrations"
	"conduit/pkg/models"
	"conduit/pkg/ratelimit"
	"conduit/pkg/retry"
	"conduit/pkg/tracing"
)

const serviceName = "integration-gateway"

type App struct {
	*bootstrap.Base

	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	tracerProvider *tracing.TracerProvider

	adapters     *adapter.Set
	registry     *registry.Registry
	gateway      *routing.Gateway
	orchestrator *queue.Orchestrator
	monitor      *monitoring.Service
	workers      *queue.WorkerPool
	ingest       *ingest.Handler
	limiter      *ratelimit.Limiter

	server *http.Server
	router *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := config.ValidateStatic(a.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.Register(prometheus.DefaultRegisterer)

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initGateway(ctx); err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.initServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = rdb

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
	if err != nil {
		a.Logger.WarnwCtx(initCtx, "MongoDB connection failed, continuing without MongoDB", "error", err)
	} else {
		a.mongoClient = mongoClient
	}

	if !a.Config.Database.RunMigrations {
		return nil
	}
	if a.db != nil {
		if err := migrations.UpPostgres(a.db); err != nil {
			return err
		}
		a.Logger.InfowCtx(ctx, "PostgreSQL migrations applied")
	}
	if a.mongoClient != nil {
		if err := migrations.EnsureMongoIndexes(initCtx, a.mongoDatabase()); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	return a.mongoClient.Database(mongoDBName(a.Config.Database.MongoDB.Database))
}

func mongoDBName(name string) string {
	if name == "" {
		return constants.DefaultMongoDBName
	}
	return name
}

func (a *App) initGateway(ctx context.Context) error {
	cfg := a.Config
	tenants := tenant.ContextProvider{Default: cfg.Tenant.Default}

	clients := adapter.Clients{MongoDB: cfg.Database.MongoDB.Database}
	if a.redisClient != nil {
		clients.Redis = a.redisClient
	}
	if a.mongoClient != nil {
		clients.Mongo = a.mongoClient
	}
	adapters, err := adapter.NewDefaultSet(cfg, clients, a.Logger)
	if err != nil {
		return err
	}
	a.adapters = adapters

	monitorOpts := []monitoring.Option{
		monitoring.WithConfig(cfg.Monitoring),
		monitoring.WithTenantProvider(tenants),
	}
	sink, err := a.eventSink()
	if err != nil {
		return err
	}
	if sink != nil {
		monitorOpts = append(monitorOpts, monitoring.WithSink(sink, cfg.Monitoring.SinkBuffer))
	}
	monitor, err := monitoring.NewService(a.Logger.Named("monitoring"), monitorOpts...)
	if err != nil {
		return err
	}
	a.monitor = monitor

	var store registry.Store = registry.NewMemoryStore()
	if a.db != nil {
		store = registry.NewPostgresStore(a.db)
	}
	a.registry = registry.New(adapters,
		registry.WithStore(store),
		registry.WithEventLogger(monitor),
		registry.WithTenantProvider(tenants),
		registry.WithLogger(a.Logger.Named("registry")),
		registry.WithHealthCheck(cfg.Gateway.HealthCheckTimeout, cfg.Gateway.HealthCheckConcurrency),
	)
	if err := a.registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load endpoints: %w", err)
	}
	if err := a.registerStaticEndpoints(ctx); err != nil {
		return err
	}

	rules, err := routing.NewRuleResolver(routing.RulesFromConfig(cfg.Gateway.RoutingRules), a.Logger.Named("routing"))
	if err != nil {
		return err
	}
	a.gateway = routing.New(a.registry, adapters,
		routing.WithResolver(routing.ChainResolver{routing.ExplicitResolver{}, rules}),
		routing.WithEventLogger(monitor),
		routing.WithTenantProvider(tenants),
		routing.WithLogger(a.Logger.Named("routing")),
		routing.WithFailureThreshold(cfg.Gateway.HealthFailureThreshold),
	)

	transformer, err := transform.NewRegistryFromConfig(cfg.Transform)
	if err != nil {
		return err
	}

	queueOpts := []queue.Option{
		queue.WithQueues(cfg.Queue.Names...),
		queue.WithTransformer(transformer),
		queue.WithResolver(a.gateway.ResolveEndpoint),
		queue.WithEventLogger(monitor),
		queue.WithTenantProvider(tenants),
		queue.WithLogger(a.Logger.Named("queue")),
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithSchedule(retry.Schedule{
			InitialInterval: cfg.Queue.Backoff.InitialInterval,
			MaxInterval:     cfg.Queue.Backoff.MaxInterval,
			Multiplier:      cfg.Queue.Backoff.Multiplier,
			Jitter:          cfg.Queue.Backoff.Jitter,
		}),
	}
	if cfg.Queue.Dedup.Enabled {
		deduplicator, err := a.deduplicator()
		if err != nil {
			return err
		}
		queueOpts = append(queueOpts, queue.WithDeduplicator(deduplicator))
	}
	if a.Producer != nil && cfg.Broker.Kafka.DLQTopic != "" {
		queueOpts = append(queueOpts, queue.WithDeadLetterPublisher(
			queue.NewBrokerDeadLetterPublisher(a.Producer, cfg.Broker.Kafka.DLQTopic),
		))
	}
	a.orchestrator = queue.New(a.registry, adapters, queueOpts...)
	a.workers = queue.NewWorkerPool(a.orchestrator, nil, cfg.Queue.WorkersPerQueue, a.Logger.Named("worker"))

	monitor.Observe(a.registry, a.orchestrator)

	if a.Consumer != nil {
		a.ingest = ingest.NewHandler(a.orchestrator, a.Logger.Named("ingest"))
	}
	return nil
}

// registerStaticEndpoints adds endpoints declared in configuration that the
// store does not hold yet.
func (a *App) registerStaticEndpoints(ctx context.Context) error {
	for _, ep := range a.Config.Gateway.Endpoints {
		_, err := a.registry.Register(ctx, models.Endpoint{
			ID:       ep.ID,
			Name:     ep.Name,
			Protocol: ep.Protocol,
			Config:   ep.Config,
			Enabled:  ep.Enabled,
		})
		if apperrors.IsDuplicate(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to register endpoint %s: %w", ep.ID, err)
		}
		a.Logger.InfowCtx(ctx, "Registered configured endpoint", "endpoint_id", ep.ID, "protocol", ep.Protocol)
	}
	return nil
}

func (a *App) eventSink() (monitoring.Sink, error) {
	var sinks monitoring.MultiSink
	for _, name := range a.Config.Monitoring.Sinks {
		switch name {
		case constants.SinkPostgres:
			if a.db == nil {
				return nil, fmt.Errorf("event sink %q requires database.postgres", name)
			}
			sinks = append(sinks, monitoring.NewPostgresSink(a.db))
		case constants.SinkMongoDB:
			if a.mongoClient == nil {
				a.Logger.Warn("MongoDB unavailable, mongodb event sink disabled")
				continue
			}
			sinks = append(sinks, monitoring.NewMongoSink(a.mongoDatabase()))
		case constants.SinkKafka:
			if a.Producer == nil || a.Config.Broker.Kafka.EventsTopic == "" {
				return nil, fmt.Errorf("event sink %q requires broker.kafka.events_topic", name)
			}
			sinks = append(sinks, monitoring.NewKafkaSink(a.Producer, a.Config.Broker.Kafka.EventsTopic))
		default:
			return nil, fmt.Errorf("unknown event sink %q", name)
		}
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (a *App) deduplicator() (*dedup.Service, error) {
	var store dedup.Store = dedup.NewMemoryStore()
	if a.redisClient != nil {
		store = dedup.NewBreakerStore(dedup.NewRedisStore(a.redisClient), a.Config.CircuitBreaker)
	} else {
		a.Logger.Warn("Redis not configured, deduplication keys are kept in memory")
	}
	return dedup.NewService(store, a.Config.Queue.Dedup, a.Logger.Named("dedup"))
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(tenant.Middleware(a.Config.Tenant.Header))
	router.Use(middleware.LoggerMiddleware(a.Logger))

	if rl := a.Config.API.RateLimit; rl.Enabled {
		a.limiter = ratelimit.New(ratelimit.Config{
			RPS:             rl.RPS,
			Burst:           rl.Burst,
			CleanupInterval: time.Duration(rl.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(rl.MaxAge) * time.Second,
			KeyHeader:       a.Config.Tenant.Header,
		})
		router.Use(a.limiter.Middleware())
		a.Logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rl.RPS, "burst", rl.Burst)
	}

	handler := api.NewHandler(a.registry, a.gateway, a.orchestrator, a.monitor, a.Logger.Named("api"))
	handler.RegisterRoutes(router)

	healthRegistry := a.healthRegistry()
	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) healthRegistry() *health.CheckerRegistry {
	checks := health.NewCheckerRegistry()
	if a.db != nil {
		checks.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redisClient != nil {
		checks.RegisterOptional(health.NewRedisChecker(a.redisClient))
	}
	if a.mongoClient != nil {
		checks.RegisterOptional(health.NewMongoDBChecker(a.mongoClient))
	}
	if a.Config.Broker.Kafka.Enabled() {
		checks.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}
	checks.RegisterOptional(health.NewCheckFunc("endpoints", func(ctx context.Context) error {
		h := a.gateway.CheckHealth(ctx)
		if !h.Healthy {
			return fmt.Errorf("%d of %d endpoints failing", h.Failing, h.Total)
		}
		return nil
	}))
	return checks
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error { return a.workers.Run(gctx) })
	g.Go(func() error { return a.monitor.Run(gctx) })
	g.Go(func() error { return a.registry.RunProber(gctx, a.Config.Gateway.HealthCheckInterval) })

	if a.ingest != nil {
		g.Go(func() error {
			err := a.ingest.Run(gctx, a.Consumer, a.Config.Broker.Kafka.InboundTopic)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	if err := a.Shutdown(ctx); err != nil {
		a.Logger.ErrorwCtx(ctx, "Shutdown failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.adapters != nil {
			if err := a.adapters.Close(); err != nil {
				errs = append(errs, fmt.Errorf("adapter close error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)
		return errs
	})
}
