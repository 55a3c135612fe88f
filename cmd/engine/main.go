// Command engine is the XAUUSD trading engine's process entrypoint: it
// loads configuration, wires every component the action router
// dispatches into, and serves the single POST /api/action surface until
// it receives an interrupt.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"xauusd-engine/config"
	"xauusd-engine/internal/api"
	"xauusd-engine/internal/auth"
	"xauusd-engine/internal/backtest"
	"xauusd-engine/internal/botrunner"
	"xauusd-engine/internal/events"
	"xauusd-engine/internal/execution"
	"xauusd-engine/internal/marketdata"
	"xauusd-engine/internal/notification"
	"xauusd-engine/internal/risk"
	"xauusd-engine/internal/store"
	"xauusd-engine/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlevel, err := zerolog.ParseLevel(cfg.LoggingConfig.Level)
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(zlevel).With().Timestamp().Str("service", "xauusd-engine").Logger()
	logger.Info().Msg("structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	secrets, err := vaultClient.Load(ctx, vault.Secrets{
		MarketDataAPIKey: cfg.MarketDataConfig.APIKey,
		BridgeAPIKey:     cfg.ProviderConfig.BridgeAPIKey,
		SendGridAPIKey:   cfg.NotificationConfig.SendGridAPIKey,
		StoreDatabaseURL: cfg.StoreConfig.DSN(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("vault secret load degraded to fallback values")
	}

	db, err := store.NewDB(ctx, secrets.StoreDatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run store migrations")
	}

	repo := store.NewRepository(db)

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
	}
	spotCache := marketdata.NewSpotCache(redisClient, logger)
	marketClient := marketdata.NewClient(secrets.MarketDataAPIKey, cfg.MarketDataConfig.BaseURL, spotCache, logger)

	bus := events.NewBus()

	emailSender := notification.NewSendGridSender(
		secrets.SendGridAPIKey,
		cfg.NotificationConfig.FromEmail,
		cfg.NotificationConfig.RecipientEmail,
	)
	notifier := notification.NewManager(repo, emailSender, bus, logger)

	providerCfg := cfg.ProviderConfig
	providerCfg.BridgeAPIKey = secrets.BridgeAPIKey
	provider := execution.Select(providerCfg, repo, marketClient.FetchSpot, logger)

	locks := risk.NewSessionLocks()
	runner := botrunner.NewRunner(repo, marketClient, provider, notifier, locks, logger)
	backtestEngine := backtest.NewEngine(repo, notifier, logger)

	verifier := auth.NewVerifier(cfg.AuthConfig.JWTSecret)

	server := api.NewServer(cfg, repo, marketClient, provider, runner, backtestEngine, notifier, bus, verifier, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("host", cfg.ServerConfig.Host).Str("port", cfg.ServerConfig.Port).Msg("starting action router")
		errCh <- server.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited with error")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	if err := <-errCh; err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}

	logger.Info().Msg("engine stopped")
}
