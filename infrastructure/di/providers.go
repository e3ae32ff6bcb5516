package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/commands/bus"
	commandhandlers "github.com/CivicGraph/demo-server/application/commands/handlers"
	"github.com/CivicGraph/demo-server/application/ports"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	queryhandlers "github.com/CivicGraph/demo-server/application/queries/handlers"
	"github.com/CivicGraph/demo-server/application/services"
	"github.com/CivicGraph/demo-server/infrastructure/config"
	"github.com/CivicGraph/demo-server/infrastructure/messaging/eventbridge"
	"github.com/CivicGraph/demo-server/infrastructure/observability"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/arangodb"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/decorators"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/dynamodb"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/memory"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/redis"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
	"github.com/CivicGraph/demo-server/pkg/auth"
)

const serviceName = "lineage-demo-server"

// ProvideLogLevel parses the configured level into one that can be changed
// while the process runs.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	return observability.ParseLevel(cfg.LogLevel)
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, level)
}

// ProvideCollector creates the Prometheus collector. It always exists so the
// decorators and buses can record into it; the /metrics route is optional.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("lineage")
}

// ProvideTracing starts the OpenTelemetry pipeline. With tracing disabled the
// provider still hands out a no-op tracer.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, func(), error) {
	endpoint := ""
	if cfg.EnableTracing {
		endpoint = cfg.OTLPEndpoint
	}
	tp, err := observability.InitTracing(ctx, serviceName, cfg.Environment, endpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.EnableXRay {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideGraphStore selects the graph backend and wraps it with tracing,
// metrics and a circuit breaker, outermost last.
func ProvideGraphStore(
	ctx context.Context,
	cfg *config.Config,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) (ports.GraphStore, error) {
	var inner ports.GraphStore
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory graph store seeded with the solar system fixture")
		inner = memory.NewSolarSystemStore()
	case "arangodb":
		store, err := arangodb.NewGraphStore(ctx, arangodb.Config{
			Endpoints:    []string{cfg.Arango.Endpoint()},
			Database:     cfg.Arango.Database,
			ServiceMount: cfg.Arango.ServiceMount,
			BearerToken:  cfg.Arango.BearerToken,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner = store
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	instrumented := decorators.NewInstrumentedStore(inner, collector, tracing.Tracer())
	return decorators.NewBreakerStore(instrumented, decorators.DefaultBreakerConfig(), collector, logger), nil
}

// ProvideSessionRegistry selects where session states and init leases live.
func ProvideSessionRegistry(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.SessionRegistry, func(), error) {
	switch cfg.RegistryDriver {
	case "memory":
		return memory.NewSessionRegistry(), func() {}, nil
	case "redis":
		registry, err := redis.NewSessionRegistry(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := registry.Close(); err != nil {
				logger.Warn("Failed to close redis registry", zap.Error(err))
			}
		}
		return registry, cleanup, nil
	case "dynamodb":
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamodb.NewSessionRegistry(client, cfg.DynamoDBTable, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry driver %q", cfg.RegistryDriver)
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and
// only logs otherwise.
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideCanonicalSource maps the canonical graph settings. Seeding always
// copies the root and its direct neighbours.
func ProvideCanonicalSource(cfg *config.Config) services.CanonicalSource {
	source := services.DefaultCanonicalSource()
	source.Graph = cfg.Canonical.Graph
	source.Prefix = cfg.Canonical.Prefix
	source.RootCollection = cfg.Canonical.RootCollection
	source.AllowedCollections = cfg.Canonical.AllowedCollections
	return source
}

func ProvideCollectionManager(store ports.GraphStore, logger *zap.Logger) *services.CollectionManager {
	return services.NewCollectionManager(store, logger)
}

func ProvideSessionInitializer(
	cfg *config.Config,
	store ports.GraphStore,
	registry ports.SessionRegistry,
	collections *services.CollectionManager,
	source services.CanonicalSource,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SessionInitializer {
	return services.NewSessionInitializer(store, registry, collections, source, publisher, collector, logger,
		services.WithLeaseTTL(cfg.InitLease()),
	)
}

func ProvideProjectionService(
	store ports.GraphStore,
	collections *services.CollectionManager,
	initializer *services.SessionInitializer,
	source services.CanonicalSource,
	logger *zap.Logger,
) *services.ProjectionService {
	return services.NewProjectionService(store, collections, initializer, source, logger)
}

func ProvideMutationService(
	store ports.GraphStore,
	collections *services.CollectionManager,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.MutationService {
	return services.NewMutationService(store, collections, publisher, logger)
}

func ProvideRemovalService(
	cfg *config.Config,
	store ports.GraphStore,
	collections *services.CollectionManager,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.RemovalService {
	return services.NewRemovalService(store, collections, cfg.RemoveMaxDepth, publisher, collector, logger)
}

func ProvideHistoryService(store ports.GraphStore, logger *zap.Logger) *services.HistoryService {
	return services.NewHistoryService(store, logger)
}

// ProvideCommandBus creates the command bus with all handlers registered
func ProvideCommandBus(
	logger *zap.Logger,
	collector *observability.Collector,
	initializer *services.SessionInitializer,
	mutations *services.MutationService,
	removal *services.RemovalService,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(collector),
	)
	if err := commandhandlers.Register(commandBus, initializer, mutations, removal); err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with all handlers registered
func ProvideQueryBus(
	logger *zap.Logger,
	collector *observability.Collector,
	projection *services.ProjectionService,
	mutations *services.MutationService,
	history *services.HistoryService,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.LoggingMiddleware(logger),
		querybus.MetricsMiddleware(collector),
	)
	if err := queryhandlers.Register(queryBus, projection, mutations, history); err != nil {
		return nil, fmt.Errorf("register query handlers: %w", err)
	}
	return queryBus, nil
}

func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator returns nil when no secret is configured, which leaves
// the API unauthenticated.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
}
