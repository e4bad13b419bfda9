//go:build wireinject
// +build wireinject

package di

import (
	"GridPulse/pkg/config"
	"GridPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Observability
        ProvideLogger,
        ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideReadingStore,
		ProvideReadingPublisher,
		ProvideMeterStream,

		// Domain services
		ProvideValidator,
		ProvideDeriver,
		ProvideAdvisor,
		ProvideAnomalyNotifier,
		ProvideNotifyConsumer,

        // Use cases
        ProvideReadingProcessor,
        ProvideMeterCollector,
        ProvideKafkaReadingsHandler,
        ProvideUsageAggregator,
        ProvideBillingCalculator,
        ProvideAdvisorUseCase,

        // HTTP
        ProvideResponseCache,
        ProvideHTTPHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
