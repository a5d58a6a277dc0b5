//go:build wireinject
// +build wireinject

package di

import (
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideTracker,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedis,
		ProvideCache,
		ProvidePostgres,
		ProvideHub,

		// Repositories
		ProvideMarketData,
		ProvideSnapshots,
		ProvideAlertSink,
		ProvideLexiconSource,

		// Domain services
		ProvideLexiconHolder,
		ProvideScorer,
		ProvideFearGreed,
		ProvideRiskConfig,

		// Use cases
		ProvideAlertEmitter,
		ProvideRiskAssessor,
		ProvideRiskCycle,
		ProvideSentimentCycle,
		ProvideRiskQuery,
		ProvideSentimentQuery,

		// Runtime
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
