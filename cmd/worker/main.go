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
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/config"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/providers/ethereum"
	temporal "github.com/duskpool/dp-indexer/internal/providers/temporal"
	"github.com/duskpool/dp-indexer/internal/ratelimit"
	"github.com/duskpool/dp-indexer/internal/store"
	"github.com/duskpool/dp-indexer/internal/workflows"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadBackfillWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "backfill-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Backfill Worker")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()

	// Initialize the RPC rate limit gate when Redis is configured
	var gate ratelimit.Proxy
	if cfg.RateLimiter.RedisAddr != "" {
		redisClient := adapter.NewRedisClient(cfg.RateLimiter.RedisAddr, cfg.RateLimiter.RedisPassword, cfg.RateLimiter.RedisDB)
		gate, err = ratelimit.NewProxy(cfg.RateLimiter, redisClient, clockAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create RPC rate limit gate", zap.Error(err), zap.String("redis_addr", cfg.RateLimiter.RedisAddr))
		}
		defer func() { _ = gate.Close() }()
	}

	// Dial the Ethereum RPC used by registration and spend lookups
	ethDialer := adapter.NewEthClientDialer()
	adapterEthClient, err := ethDialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	defer adapterEthClient.Close()

	ethereumClient, err := ethereum.NewClient(ethereum.Config{
		ChainID:           cfg.Ethereum.ChainID,
		ContractAddress:   cfg.Ethereum.ContractAddress,
		Confirmations:     cfg.Ethereum.Confirmations,
		RateLimitProvider: string(cfg.Ethereum.ChainID),
	}, adapterEthClient, gate)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create darkpool contract client", zap.Error(err), zap.String("contract", cfg.Ethereum.ContractAddress))
	}

	// Initialize backfill executor for stream walk activities
	temporalActivity := adapter.NewActivity()
	backfillExecutor := workflows.NewExecutor(dataStore, ethereumClient, temporalActivity, cfg.Ethereum.ChainID, cfg.Ethereum.StartBlock)

	// Connect to Temporal with logger integration
	temporalLogger := temporal.NewZapLoggerAdapter(logger.Default())
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporalLogger, // Use zap logger adapter for Temporal client
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Temporal", zap.Error(err), zap.String("host_port", cfg.Temporal.HostPort))
	}
	defer temporalClient.Close()

	logger.InfoCtx(ctx, "Connected to Temporal",
		zap.String("host_port", cfg.Temporal.HostPort),
		zap.String("namespace", cfg.Temporal.Namespace),
	)

	// Create Temporal worker with logger and Sentry interceptor
	sentryInterceptor := temporal.NewSentryActivityInterceptor()
	temporalWorker := worker.New(temporalClient,
		cfg.Temporal.BackfillTaskQueue,
		worker.Options{
			MaxConcurrentActivityExecutionSize: cfg.Temporal.MaxConcurrentActivityExecutionSize,
			WorkerActivitiesPerSecond:          cfg.Temporal.WorkerActivitiesPerSecond,
			MaxConcurrentActivityTaskPollers:   cfg.Temporal.MaxConcurrentActivityTaskPollers,
			Interceptors: []interceptor.WorkerInterceptor{
				sentryInterceptor,
			},
		})

	// Create backfill worker instance
	backfillWorker := workflows.NewWorker(backfillExecutor, workflows.WorkerConfig{})

	// Register backfill workflow
	temporalWorker.RegisterWorkflow(backfillWorker.BackfillAccountState)
	logger.InfoCtx(ctx, "Registered backfill workflow")

	// Register stream walk activities
	temporalWorker.RegisterActivity(backfillExecutor.ResolveRecoveryIndex)
	temporalWorker.RegisterActivity(backfillExecutor.LocateRegistration)
	temporalWorker.RegisterActivity(backfillExecutor.ReplayRegistration)
	temporalWorker.RegisterActivity(backfillExecutor.RepairMissedSpend)
	temporalWorker.RegisterActivity(backfillExecutor.PostExpectationWindow)
	logger.InfoCtx(ctx, "Registered stream walk activities")

	// Start the worker
	err = temporalWorker.Start()
	if err != nil {
		logger.FatalCtx(ctx, "Failed to start Temporal worker", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Backfill Worker started successfully",
		zap.String("backfill_task_queue", cfg.Temporal.BackfillTaskQueue),
	)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.InfoCtx(ctx, "Shutting down Backfill Worker...")

	// Stop the worker
	temporalWorker.Stop()

	logger.InfoCtx(ctx, "Backfill Worker stopped")
}
