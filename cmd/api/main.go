package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/cache"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/config"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/database"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/feed"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/webhook"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Defiwatch API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("installation_id", cfg.InstallationID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.PersistenceEnabled() {
		if err := database.MigrateUp(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		pool, err = database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, alert state will not be persisted")
	}

	var wg sync.WaitGroup
	workers, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	spawn := func(fn func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(workers)
		}()
	}

	// Notification channels
	hub := ws.NewHub(logger, cfg.WSNotifications)
	spawn(hub.Run)

	channels := []alert.HostNotifier{hub}
	if cfg.WebhookURL != "" {
		webhookCfg := webhook.DefaultConfig()
		webhookCfg.URL = cfg.WebhookURL
		webhookCfg.Secret = cfg.WebhookSecret
		webhookCfg.InstallationID = cfg.InstallationID

		notifier := webhook.NewNotifier(webhookCfg, logger)
		spawn(notifier.Run)
		channels = append(channels, notifier)
	}

	// Alert core
	notifier := alert.NewMultiNotifier(logger, channels...)
	store := alert.NewStore(notifier, logger)
	hub.Attach(store)
	engine := alert.NewEngine(store, alert.NewPriceHistory(cfg.PriceHistoryRetention), logger)

	var repo alert.StateRepository
	if pool != nil {
		repo = alert.NewRepository(pool, cfg.InstallationID)
	}

	manager := alert.NewManager(store, engine, notifier, repo, logger, alert.ManagerConfig{
		SweepInterval:   cfg.SweepInterval,
		Retention:       cfg.AlertRetention,
		PersistInterval: cfg.PersistInterval,
	})
	if err := manager.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize alerts: %w", err)
	}
	go manager.Start(context.Background())

	// Market feeds
	if cfg.FeedsEnabled {
		var feedCache cache.Store
		if pool != nil {
			pgCache := cache.NewPGCache(pool, "feed")
			spawn(cache.NewJanitor(pgCache, logger, 10*time.Minute).Run)
			feedCache = pgCache
		} else {
			memCache := cache.NewMemory()
			spawn(cache.NewJanitor(memCache, logger, 10*time.Minute).Run)
			feedCache = memCache
		}

		spawn(newPoller(cfg, manager, engine, feedCache, logger).Run)
	}

	// HTTP
	deps := &api.Dependencies{
		Manager:      manager,
		Hub:          hub,
		AllowOrigins: cfg.CORSAllowOrigins,
		SnapshotRateLimit: middleware.RateLimiterConfig{
			Max:    cfg.SnapshotRateLimit,
			Window: time.Minute,
		},
	}
	if pool != nil {
		deps.DB = pool
	}

	router := api.NewRouter(logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	cancelWorkers()
	wg.Wait()

	manager.Stop()
	select {
	case <-manager.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("alert manager did not stop in time")
	}

	logger.Info("server stopped")
	return nil
}

func newPoller(cfg *config.Config, manager *alert.Manager, engine *alert.Engine, store cache.Store, logger *slog.Logger) *feed.Poller {
	clientCfg := feed.DefaultClientConfig()
	clientCfg.CacheTTL = cfg.FeedCacheTTL
	client := feed.NewClient(clientCfg, store, logger)

	poller := feed.NewPoller(manager, engine.History(), logger)
	poller.AddPrices(feed.NewCoinGecko(client, cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.CoinGeckoIDs), cfg.PricePollInterval)
	poller.AddYields(feed.NewDefiLlama(client, cfg.DefiLlamaURL), cfg.YieldPollInterval)

	if cfg.EtherscanAPIKey != "" {
		poller.AddGas(feed.NewEtherscan(client, cfg.EtherscanURL, cfg.EtherscanAPIKey, cfg.GasChains), cfg.GasPollInterval)
	} else {
		logger.Warn("ETHERSCAN_API_KEY not set, gas prices will not be polled")
	}

	if cfg.PortfolioEnabled() {
		poller.AddPortfolio(feed.NewCovalent(client, cfg.CovalentURL, cfg.CovalentAPIKey, cfg.WalletAddress, cfg.PortfolioChains), cfg.PortfolioPollInterval)
	} else {
		logger.Warn("wallet tracking disabled, set WALLET_ADDRESS and COVALENT_API_KEY")
	}

	return poller
}
