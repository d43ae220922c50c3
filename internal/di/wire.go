//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TradePulse/pkg/config"
	"TradePulse/pkg/server"
)

// InitializeApp wires the full application graph.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideAlerter,
		ProvideDurableStore,
		ProvideFastStore,
		ProvideTradeStore,
		ProvideKrakenClient,
		ProvideStream,
		ProvideExternalData,
		ProvideAdvisor,
		ProvideSignalEngine,
		ProvideGate,
		ProvideTracker,
		ProvideFeedback,
		ProvideTradingLoop,
		ProvideStatusHandler,
		ProvideApp,
	)
	return nil, nil
}
