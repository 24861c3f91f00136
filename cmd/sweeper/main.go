package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/config"
	"github.com/duskpool/dp-indexer/internal/logger"
	temporal "github.com/duskpool/dp-indexer/internal/providers/temporal"
	"github.com/duskpool/dp-indexer/internal/store"
	"github.com/duskpool/dp-indexer/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sweeper")

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()

	// The audit sweeper repairs drift by starting backfill workflows
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewZapLoggerAdapter(logger.Default()),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Temporal", zap.Error(err), zap.String("host_port", cfg.Temporal.HostPort))
	}
	defer temporalClient.Close()
	logger.InfoCtx(ctx, "Connected to Temporal", zap.String("namespace", cfg.Temporal.Namespace))

	auditSweeper := sweeper.NewStateAuditSweeper(&sweeper.StateAuditSweeperConfig{
		Interval:             cfg.Audit.Interval,
		ExpectationTTL:       cfg.Audit.ExpectationTTL,
		CheckpointStallAfter: cfg.Audit.CheckpointStallAfter,
		Chains:               cfg.Audit.Chains,
		WorkerPoolSize:       cfg.Audit.Worker.WorkerPoolSize,
		WorkerQueueSize:      cfg.Audit.Worker.WorkerQueueSize,
	}, dataStore, clock, temporalClient, cfg.Temporal.BackfillTaskQueue)

	logger.InfoCtx(ctx, "Initialized state audit sweeper",
		zap.Duration("interval", cfg.Audit.Interval),
		zap.Duration("expectation_ttl", cfg.Audit.ExpectationTTL),
		zap.Duration("checkpoint_stall_after", cfg.Audit.CheckpointStallAfter),
		zap.Int("worker_pool_size", cfg.Audit.Worker.WorkerPoolSize),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := auditSweeper.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := auditSweeper.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	logger.InfoCtx(shutdownCtx, "Sweeper stopped")
}
