package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/checkout-engine/internal/cache"
	"github.com/fjod/checkout-engine/internal/clients"
	"github.com/fjod/checkout-engine/internal/config"
	checkouthttp "github.com/fjod/checkout-engine/internal/http"
	"github.com/fjod/checkout-engine/internal/inventory"
	"github.com/fjod/checkout-engine/internal/lock"
	"github.com/fjod/checkout-engine/internal/metrics"
	"github.com/fjod/checkout-engine/internal/pricing"
	"github.com/fjod/checkout-engine/internal/publisher"
	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/fjod/checkout-engine/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "checkout-engine").Logger()
	logger.Info().Msg("checkout engine starting")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	m := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	// Collaborators, with the catalog wrapped in the Redis price cache.
	catalog := clients.NewCatalogClient(cfg.CatalogURL, cfg.CollaboratorTimeout)
	cachedCatalog := cache.NewPriceCache(catalog, redisClient, cfg.PriceCacheTTL, logger)
	promotions := clients.NewPromotionsClient(cfg.PromotionsURL, cfg.CollaboratorTimeout)
	payments := clients.NewPaymentMethodsClient(cfg.PaymentMethodsURL, cfg.CollaboratorTimeout)
	zones := clients.NewDeliveryZonesClient(cfg.DeliveryZonesURL, cfg.CollaboratorTimeout)

	coordinator := lock.NewCoordinator(repo.DB(), cfg.LockPollInterval, logger)
	reserver := inventory.NewReservationService(repo, cfg.ReservationTTL, logger)
	pricer := pricing.NewEngine(cachedCatalog, promotions, zones, cfg.Currency, logger)

	orchestrator := service.NewOrchestrator(
		repo,
		repo,
		service.NewAdvisoryLocker(coordinator),
		reserver,
		pricer,
		payments,
		cfg.LockTimeout,
		m,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := inventory.NewSweeper(reserver, cfg.SweepInterval, m, logger)
	go sweeper.Run(ctx)

	poller := publisher.NewOutboxPoller(repo, cfg.OutboxPollInterval, cfg.OutboxRecoveryTick,
		cfg.KafkaTopic, logger, cfg.KafkaBrokers...)
	defer poller.Close()
	go poller.Run(ctx)

	handler := checkouthttp.NewCheckoutHandler(orchestrator, 30*time.Second)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: checkouthttp.NewRouter(handler, repo.DB()),
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("checkout engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down checkout engine")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()

	logger.Info().Msg("checkout engine stopped")
}
