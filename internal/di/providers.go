package di

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/repository"
	"TradePulse/internal/handler/api"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/advisor"
	"TradePulse/internal/service/external"
	"TradePulse/internal/service/kraken"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/cache"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return logger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client with the trade schema
// ensured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache creates the Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	opts := []cache.RedisOption{
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, cache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	rc, err := cache.NewRedisCache(opts...)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService exposes the Redis cache as the generic cache service.
func ProvideCacheService(rc *cache.RedisCache) cache.Service {
	return rc
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured so alerting falls back to logging.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlerter creates the alert sink.
func ProvideAlerter(producer *pkgkafka.Producer, cfg *config.Config, log *logger.Logger) repository.Alerter {
	if producer == nil {
		return internalrepo.NewLogAlerter(log)
	}
	topic := cfg.Kafka.AlertTopic
	if topic == "" {
		topic = "tradepulse.alerts"
	}
	return internalrepo.NewKafkaAlerter(producer, topic, log)
}

// ProvideDurableStore creates the ClickHouse trade store.
func ProvideDurableStore(client *pkgch.Client, log *logger.Logger) *internalrepo.ClickHouseStore {
	return internalrepo.NewClickHouseStore(client, log)
}

// ProvideFastStore creates the Redis trade store.
func ProvideFastStore(rc *cache.RedisCache) *internalrepo.RedisStore {
	return internalrepo.NewRedisStore(rc)
}

// ProvideTradeStore pairs the fast and durable stores.
func ProvideTradeStore(
	fast *internalrepo.RedisStore,
	durable *internalrepo.ClickHouseStore,
	m repository.Metrics,
	log *logger.Logger,
) repository.TradeStore {
	return internalrepo.NewDualStore(fast, durable, m, log)
}

// ProvideKrakenClient creates the exchange client.
func ProvideKrakenClient(cfg *config.Config, log *logger.Logger, m repository.Metrics) *kraken.Client {
	return kraken.NewClient(kraken.Config{
		APIKey:     cfg.Kraken.APIKey,
		APISecret:  cfg.Kraken.APISecret,
		RESTURL:    cfg.Kraken.RESTURL,
		QuoteAsset: cfg.Kraken.QuoteAsset,
		CacheTTL:   cfg.Kraken.CacheTTL,
		Timeout:    cfg.Kraken.Timeout,
		DryRun:     cfg.Trading.DryRun,
	}, log, m)
}

// ProvideStream creates the ticker stream, or nil when disabled.
func ProvideStream(cfg *config.Config, client *kraken.Client, log *logger.Logger) *kraken.Stream {
	if !cfg.Kraken.UseStream {
		return nil
	}
	return kraken.NewStream(cfg.Kraken.WebSocketURL, cfg.Trading.Pairs, client.UpdatePrice, log)
}

// ProvideExternalData creates the external metrics client.
func ProvideExternalData(cfg *config.Config, log *logger.Logger) repository.ExternalData {
	return external.NewClient(external.Config{
		CoinGeckoURL:     cfg.External.CoinGeckoURL,
		CryptoCompareURL: cfg.External.CryptoCompareURL,
		AssetIDs:         cfg.External.AssetIDs,
		Timeout:          cfg.External.Timeout,
	}, log)
}

// ProvideAdvisor creates the strategy advisor.
func ProvideAdvisor(cfg *config.Config, throttle cache.Service, log *logger.Logger) repository.Advisor {
	return advisor.NewClient(advisor.Config{
		Enabled: cfg.Advisor.Enabled,
		APIKey:  cfg.Advisor.APIKey,
		BaseURL: cfg.Advisor.BaseURL,
		Model:   cfg.Advisor.Model,
		Timeout: cfg.Advisor.Timeout,
	}, throttle, log)
}

// ProvideSignalEngine creates the signal engine with fresh agents.
func ProvideSignalEngine(log *logger.Logger) *usecase.SignalEngine {
	return usecase.NewSignalEngine(log)
}

// ProvideGate creates the conviction gate.
func ProvideGate(cfg *config.Config) *usecase.ConvictionGate {
	return usecase.NewConvictionGate(len(cfg.Trading.Pairs))
}

// ProvideTracker creates the daily performance tracker.
func ProvideTracker(store repository.TradeStore, m repository.Metrics, log *logger.Logger) *usecase.DailyTracker {
	return usecase.NewDailyTracker(store, m, log, time.Now())
}

// ProvideFeedback creates the advisory feedback loop.
func ProvideFeedback(engine *usecase.SignalEngine, log *logger.Logger) *usecase.FeedbackLoop {
	return usecase.NewFeedbackLoop(engine, log)
}

// ProvideTradingLoop assembles the decision loop. The Kraken client serves
// market data, balances and order execution.
func ProvideTradingLoop(
	cfg *config.Config,
	client *kraken.Client,
	ext repository.ExternalData,
	store repository.TradeStore,
	adv repository.Advisor,
	alerter repository.Alerter,
	m repository.Metrics,
	engine *usecase.SignalEngine,
	gate *usecase.ConvictionGate,
	tracker *usecase.DailyTracker,
	feedback *usecase.FeedbackLoop,
	log *logger.Logger,
) *usecase.TradingLoop {
	return usecase.NewTradingLoop(
		usecase.LoopConfig{
			Pairs:           cfg.Trading.Pairs,
			Interval:        cfg.Trading.Interval,
			ErrorBackoff:    cfg.Trading.ErrorBackoff,
			MinQuoteBalance: cfg.Trading.MinQuoteBalance,
			OHLCDays:        cfg.Trading.OHLCDays,
			DryRun:          cfg.Trading.DryRun,
		},
		client, ext, client, client, store, adv, alerter, m,
		engine, gate, tracker, feedback, log,
	)
}

// ProvideStatusHandler creates the status API handler.
func ProvideStatusHandler(loop *usecase.TradingLoop, store repository.TradeStore, log *logger.Logger) xhttp.Handler {
	return api.NewStatusHandler(loop, store, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	loop *usecase.TradingLoop,
	handler xhttp.Handler,
	stream *kraken.Stream,
	store repository.TradeStore,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, log, loop, handler, stream, store, producer)
}
