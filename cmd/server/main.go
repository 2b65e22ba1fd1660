package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/obeng/payrun/internal/adapter/http"
	"github.com/obeng/payrun/internal/adapter/http/handler"
	postgresRepo "github.com/obeng/payrun/internal/adapter/repository/postgres"
	redisRepo "github.com/obeng/payrun/internal/adapter/repository/redis"
	"github.com/obeng/payrun/internal/infrastructure/config"
	"github.com/obeng/payrun/internal/infrastructure/logger"
	"github.com/obeng/payrun/internal/infrastructure/metrics"
	"github.com/obeng/payrun/internal/infrastructure/postgres"
	"github.com/obeng/payrun/internal/infrastructure/redis"
	"github.com/obeng/payrun/internal/tax"
	"github.com/obeng/payrun/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger
	zerolog.DefaultContextLogger = &appLogger

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	paymentRepo := postgresRepo.NewPaymentRepository(pool)
	batchRepo := postgresRepo.NewBatchRepository(pool)
	snapshotRepo := postgresRepo.NewSnapshotRepository(pool)
	taxReturnRepo := postgresRepo.NewTaxReturnRepository(pool)
	masterLogRepo := postgresRepo.NewMasterLogRepository(pool)
	rateRepo := postgresRepo.NewRateRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(m)

	// Tax calculator with cached rate table
	taxCfg, err := taxConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid tax configuration")
	}

	rateTable := redisRepo.NewRateCache(redisClient, rateRepo, cfg.RateCacheTTL)
	calculator := tax.New(taxCfg, rateTable)

	// Initialize use cases
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, ledgerRepo, idGen, retrier,
		usecase.OverdraftPolicy(cfg.OverdraftPolicy), appLogger, m)
	resolver := usecase.NewAccountResolver(accountRepo)
	undoUC := usecase.NewUndoUseCase(snapshotRepo, accountRepo, paymentRepo, ledgerUC, idGen, appLogger, m)
	finalizeUC := usecase.NewFinalizeUseCase(batchRepo, paymentRepo, taxReturnRepo, masterLogRepo,
		resolver, calculator, ledgerUC, undoUC, idGen, appLogger, m)
	consistencyUC := usecase.NewConsistencyUseCase(accountRepo, ledgerRepo)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountRepo, resolver, ledgerUC)
	finalizeHandler := handler.NewFinalizeHandler(finalizeUC, undoUC)
	ledgerHandler := handler.NewLedgerHandler(consistencyUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   accountHandler,
		FinalizeHandler:  finalizeHandler,
		LedgerHandler:    ledgerHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           appLogger,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func taxConfig(cfg *config.Config) (tax.Config, error) {
	levy, err := decimal.NewFromString(cfg.LevyRate)
	if err != nil {
		return tax.Config{}, fmt.Errorf("levy rate: %w", err)
	}

	vat, err := decimal.NewFromString(cfg.VATRate)
	if err != nil {
		return tax.Config{}, fmt.Errorf("vat rate: %w", err)
	}

	fee, err := decimal.NewFromString(cfg.MomoFeeRate)
	if err != nil {
		return tax.Config{}, fmt.Errorf("momo fee rate: %w", err)
	}

	return tax.Config{
		LevyRate:      levy,
		VATRate:       vat,
		MomoFeeRate:   fee,
		LocalCurrency: cfg.LocalCurrency,
	}, nil
}
