// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pagerduty-workers/internal/common/camunda"
	"pagerduty-workers/internal/common/config"
	"pagerduty-workers/internal/common/database"
	"pagerduty-workers/internal/common/logger"
	"pagerduty-workers/internal/common/observability"
	"pagerduty-workers/internal/common/server"
	pda "pagerduty-workers/internal/workers/incident/pagerduty-action"
	"pagerduty-workers/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func loadRegistry(path string) (*registry.ActionRegistry, error) {
	reg := registry.DefaultRegistry()
	if path != "" {
		var err error
		if reg, err = registry.LoadRegistry(path); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid action registry: %w", err)
	}
	return reg, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	camundaClient, err := camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client creation failed", zap.Error(err))
	}
	if err := camundaClient.Connect(ctx); err != nil {
		zapLog.Fatal("zeebe broker unreachable", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	checks := map[string]server.ReadinessCheck{}

	// --- Redis (idempotency store) ---
	var rdb *redis.Client
	if cfg.Idempotency.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		rdb = redisClient.Client
		checks["redis"] = redisClient.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- PostgreSQL (audit trail) ---
	var db *sql.DB
	if cfg.Audit.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := database.NewAuditStore(pg.DB, cfg.Audit.Table).EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema setup failed", zap.Error(err))
		}
		db = pg.DB
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Action registry ---
	reg, err := loadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("registry load failed", zap.Error(err))
	}
	zapLog.Info("Action registry loaded",
		zap.String("version", reg.Version),
		zap.Int("entities", len(reg.Entities)),
		zap.Bool("strict", cfg.Registry.Strict),
	)

	// --- Workers ---
	handler, err := pda.NewHandler(pda.HandlerOptions{
		AppConfig:     cfg,
		Camunda:       camundaClient,
		Registry:      reg,
		Redis:         rdb,
		DB:            db,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("pagerduty-action handler setup failed", zap.Error(err))
	}
	if err := handler.Register(); err != nil {
		zapLog.Fatal("pagerduty-action registration failed", zap.Error(err))
	}
	checks["camunda"] = handler.HealthCheck

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.NewRouter(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handler.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}
