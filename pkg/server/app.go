package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domainrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/kraken"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: the trading loop, the
// status HTTP server, the optional ticker stream, and infrastructure
// teardown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	loop       *usecase.TradingLoop
	handler    xhttp.Handler
	stream     *kraken.Stream
	store      domainrepo.TradeStore
	producer   *pkgkafka.Producer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. The stream and
// producer may be nil when not configured.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	loop *usecase.TradingLoop,
	handler xhttp.Handler,
	stream *kraken.Stream,
	store domainrepo.TradeStore,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:      cfg,
		logger:   log,
		loop:     loop,
		handler:  handler,
		stream:   stream,
		store:    store,
		producer: producer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// connectivity banner before anything trades
	if err := a.store.Health(ctx); err != nil {
		a.logger.Warn("store health check failed at startup", applogger.Error(err))
	} else {
		a.logger.Info("store connectivity verified")
	}
	mode := "live"
	if a.cfg.Trading.DryRun {
		mode = "dry-run"
	}
	a.logger.Info("starting",
		applogger.String("environment", a.cfg.Environment),
		applogger.String("mode", mode),
		applogger.Strings("pairs", a.cfg.Trading.Pairs),
	)

	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			a.logger.Warn("ticker stream unavailable, polling only", applogger.Error(err))
		}
	}

	go func() {
		if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("trading loop terminated", applogger.Error(err))
		}
	}()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.stream != nil {
		a.stream.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
