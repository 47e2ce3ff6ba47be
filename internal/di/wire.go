//go:build wireinject
// +build wireinject

package di

import (
	"AstroAI/pkg/config"
	"AstroAI/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideBadger,
		ProvideCache,

		// Repositories
		ProvideChartPublisher,
		ProvideChartStore,
		ProvideChunkStore,

		// Domain services
		ProvideEngine,
		ProvideRetriever,
		ProvidePlacementFinder,
		ProvideInterpreter,

		// Use cases
		ProvideChartService,
		ProvideInterpretService,
		ProvideChartRequestsHandler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
