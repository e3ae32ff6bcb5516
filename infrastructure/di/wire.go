//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/CivicGraph/demo-server/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideCollector,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideGraphStore,
	ProvideSessionRegistry,
	ProvideEventPublisher,
	ProvideCanonicalSource,
	ProvideCollectionManager,
	ProvideSessionInitializer,
	ProvideProjectionService,
	ProvideMutationService,
	ProvideRemovalService,
	ProvideHistoryService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
