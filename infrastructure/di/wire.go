//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"mindmesh/infrastructure/config"
)

// SuperSet is the main provider set.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideStore,
	ProvideDispatcher,
	ProvideHTTPClient,
	ProvideAPIClient,
	ProvideInterceptor,
	ProvideExecutor,
	ProvideRoutes,
	ProvideEpicsConfig,
	ProvideEpics,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
