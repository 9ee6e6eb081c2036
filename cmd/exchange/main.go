package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	goredis "github.com/redis/go-redis/v9"

	"github.com/exchangesim/fixexchange/config"
	"github.com/exchangesim/fixexchange/pkg/acceptor"
	"github.com/exchangesim/fixexchange/pkg/eventbus"
	postgres_wrapper "github.com/exchangesim/fixexchange/pkg/infra/postgres"
	redis_wrapper "github.com/exchangesim/fixexchange/pkg/infra/redis"
	"github.com/exchangesim/fixexchange/pkg/logging"
	"github.com/exchangesim/fixexchange/pkg/matchingengine"
	"github.com/exchangesim/fixexchange/pkg/metrics"
	"github.com/exchangesim/fixexchange/pkg/persistence"
	"github.com/exchangesim/fixexchange/pkg/session"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.INFO)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := buildPersistence(ctx, cfg, logger)

	var redisClient *goredis.Client
	if cfg.Redis != nil {
		redisClient, err = redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			logger.Warn(ctx, "exchange: redis unavailable, event bus will not mirror externally")
			redisClient = nil
		}
	}

	bus := eventbus.New(redisClient, cfg.EventBus.RedisChannel, logger)
	engine := matchingengine.New()
	bus.SetSnapshotProvider(snapshotProvider(engine, store, logger))

	sessionCfg := session.Config{
		SenderCompID:       cfg.Session.SenderCompID,
		ReadIdleTimeout:    time.Duration(cfg.Session.ReadIdleTimeoutMs) * time.Millisecond,
		WriteTimeout:       time.Duration(cfg.Session.WriteTimeoutMs) * time.Millisecond,
		CancelOnDisconnect: cfg.Session.CancelOnDisconnect,
	}
	if cfg.Session.SenderCompID == "" {
		sessionCfg.SenderCompID = "EXCHANGE"
	}
	listenAddr := cfg.Session.ListenAddr
	if listenAddr == "" {
		listenAddr = ":9878"
	}

	acc := acceptor.New(listenAddr, sessionCfg, engine, bus, store, logger)

	if cfg.Metrics.ListenAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Error(ctx, "exchange: metrics server stopped")
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- acc.Run(ctx) }()

	zap.S().Infof("fixexchange listening on %s", listenAddr)

	select {
	case <-sigs:
		zap.S().Info("shutting down...")
	case err := <-runErrCh:
		if err != nil {
			zap.S().Errorf("acceptor exited with error: %v", err)
		}
	}

	cancel()
	zap.S().Info("exited cleanly.")
}

// snapshotRecentExecutions bounds how many past fills ride along on a
// subscriber's attach-time Snapshot event.
const snapshotRecentExecutions = 50

// snapshotProvider builds the closure the event bus calls once per
// Subscribe to assemble the Snapshot event: every symbol with a live book,
// grouped bid/ask depth, plus the store's most recent fills.
func snapshotProvider(engine *matchingengine.Engine, store persistence.Port, logger *logging.Logger) eventbus.SnapshotFunc {
	return func() eventbus.SnapshotPayload {
		symbols := engine.Symbols()
		payload := eventbus.SnapshotPayload{Symbols: make([]eventbus.SymbolSnapshot, 0, len(symbols))}
		for _, symbol := range symbols {
			bids, asks := engine.Snapshot(symbol)
			payload.Symbols = append(payload.Symbols, eventbus.SymbolSnapshot{Symbol: symbol, Bids: bids, Asks: asks})
		}

		recent, err := store.RecentExecutions(context.Background(), snapshotRecentExecutions)
		if err != nil {
			logger.Warn(context.Background(), "exchange: recent executions unavailable for snapshot")
		}
		payload.RecentExecutions = recent
		return payload
	}
}

// buildPersistence connects to Postgres with InitPostgresWithBackoff's
// own retry policy; that call panics if every retry is exhausted, which
// is the intended failure mode for a service that cannot run without its
// durable store once one is configured.
func buildPersistence(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) persistence.Port {
	if cfg.OmsDB == nil {
		logger.Warn(ctx, "exchange: no database configured, using in-memory persistence")
		return persistence.NewMemoryPort()
	}
	db := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB)
	return persistence.NewGormPort(db)
}
