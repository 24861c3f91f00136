package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/providers/temporal"
	"github.com/duskpool/dp-indexer/internal/store"
	"github.com/duskpool/dp-indexer/internal/workflows"
)

const (
	BACKFILL_RUN_TIMEOUT = 1 * time.Hour // Execution timeout for backfill workflows the auditor starts
)

// StateAuditSweeperConfig holds configuration for the state audit sweeper
type StateAuditSweeperConfig struct {
	Interval             time.Duration  // Time to sleep between audit cycles
	ExpectationTTL       time.Duration  // Expectations older than this never materialized
	CheckpointStallAfter time.Duration  // Checkpoints not advanced within this are stalled
	Chains               []domain.Chain // Chains whose checkpoints are watched
	WorkerPoolSize       int            // Concurrent backfill starters
	WorkerQueueSize      int            // Queued backfill starts per cycle
}

// stateAuditSweeper implements the Sweeper interface for database invariant
// auditing. Each cycle scans for lineages the reconciliation pipeline left in
// an inconsistent shape and starts a backfill workflow per affected account.
type stateAuditSweeper struct {
	config                *StateAuditSweeperConfig
	store                 store.Store
	pool                  pond.Pool
	clock                 adapter.Clock
	orchestrator          temporal.TemporalOrchestrator
	orchestratorTaskQueue string
	running               atomic.Bool
	stopChan              chan struct{}
	stoppedCh             chan struct{}
}

// NewStateAuditSweeper creates a new state audit sweeper
func NewStateAuditSweeper(
	config *StateAuditSweeperConfig,
	st store.Store,
	clock adapter.Clock,
	orchestrator temporal.TemporalOrchestrator,
	orchestratorTaskQueue string,
) Sweeper {
	return &stateAuditSweeper{
		config:                config,
		store:                 st,
		clock:                 clock,
		orchestrator:          orchestrator,
		orchestratorTaskQueue: orchestratorTaskQueue,
		stopChan:              make(chan struct{}),
		stoppedCh:             make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *stateAuditSweeper) Name() string {
	return "state-audit-sweeper"
}

// Start begins the sweeper's main loop
func (s *stateAuditSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting state audit sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("expectation_ttl", s.config.ExpectationTTL),
		zap.Duration("checkpoint_stall_after", s.config.CheckpointStallAfter),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	// Create worker pool
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.WorkerQueueSize),
		pond.WithContext(ctx),
	)

	// Continuous loop - stops when context is canceled or stop is requested
	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "State audit sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			s.cleanup()
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "State audit sweeper stop requested")
			s.cleanup()
			return nil
		default:
			if err := s.runAuditCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// cleanup stops the worker pool and waits for tasks to complete
func (s *stateAuditSweeper) cleanup() {
	if s.pool != nil {
		s.pool.StopAndWait()
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *stateAuditSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping state audit sweeper")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "State audit sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "State audit sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runAuditCycle runs a single audit cycle
func (s *stateAuditSweeper) runAuditCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	logger.InfoCtx(ctx, "Starting audit cycle")

	// Accounts with at least one finding; each gets one backfill per cycle
	suspects := make(map[uuid.UUID]struct{})

	violations, err := s.store.FindLineageViolations(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan for lineage violations: %w", err)
	}
	for _, v := range violations {
		// The partial unique index keeps duplicate actives out of the table, so
		// a hit here means the index itself is missing or was bypassed
		logger.ErrorCtx(ctx, fmt.Errorf("lineage holds %d active objects", v.ActiveCount),
			zap.String("account_id", v.AccountID.String()),
			zap.String("object_type", string(v.ObjectType)),
		)
		suspects[v.AccountID] = struct{}{}
	}

	gaps, err := s.store.FindVersionGaps(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan for version gaps: %w", err)
	}
	for _, g := range gaps {
		logger.WarnCtx(ctx, "Lineage is missing intermediate versions",
			zap.String("account_id", g.AccountID.String()),
			zap.String("object_type", string(g.ObjectType)),
			zap.Uint64("max_version", g.MaxVersion),
			zap.Int64("rows", g.Rows),
		)
		suspects[g.AccountID] = struct{}{}
	}

	cutoff := s.clock.Now().Add(-s.config.ExpectationTTL)
	stale, err := s.store.ListStaleExpectations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to scan for stale expectations: %w", err)
	}
	for _, exp := range stale {
		logger.WarnCtx(ctx, "Expectation never materialized",
			zap.String("account_id", exp.AccountID.String()),
			zap.String("recovery_id", exp.RecoveryID),
			zap.Time("announced_at", exp.CreatedAt),
		)
		suspects[exp.AccountID] = struct{}{}
	}

	s.checkCheckpoints(ctx)

	// Start a backfill workflow for every suspect account
	var started, failed atomic.Int32
	for accountID := range suspects {
		s.pool.Submit(func() {
			if err := s.startBackfillWithRetry(ctx, accountID); err != nil {
				failed.Add(1)
				logger.ErrorCtx(ctx, fmt.Errorf("CRITICAL: failed to start backfill after retries: %w", err),
					zap.String("account_id", accountID.String()),
				)
				return
			}
			started.Add(1)
		})
	}

	// Wait for all backfill starts to complete
	s.pool.StopAndWait()

	// Recreate pool for next cycle
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.WorkerQueueSize),
		pond.WithContext(ctx),
	)

	duration := s.clock.Since(startTime)
	logger.InfoCtx(ctx, "Audit cycle completed",
		zap.Duration("duration", duration),
		zap.Int("lineage_violations", len(violations)),
		zap.Int("version_gaps", len(gaps)),
		zap.Int("stale_expectations", len(stale)),
		zap.Int32("backfills_started", started.Load()),
		zap.Int32("backfills_failed", failed.Load()),
	)

	// Sleep until the next cycle
	// Use context-aware sleep so we can be interrupted
	if !s.sleep(ctx, s.config.Interval) {
		return ctx.Err() // Context canceled during sleep
	}

	return nil
}

// sleep sleeps for the given duration but can be interrupted by context cancellation
// Returns true if sleep completed normally, false if interrupted by context
func (s *stateAuditSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true // Sleep completed
	case <-ctx.Done():
		return false // Interrupted by context cancellation
	case <-s.stopChan:
		return false // Interrupted by stop signal
	}
}

// checkCheckpoints reports chains whose checkpoint stopped advancing or whose
// reconciliation halted on a data error. Stalls are operator problems, not
// account problems, so no backfill is started for them.
func (s *stateAuditSweeper) checkCheckpoints(ctx context.Context) {
	for _, chain := range s.config.Chains {
		reason, halted, err := s.store.GetChainHalted(ctx, chain)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("chain", string(chain)))
			continue
		}
		if halted {
			logger.ErrorCtx(ctx, fmt.Errorf("chain reconciliation is halted: %s", reason),
				zap.String("chain", string(chain)),
			)
			continue
		}

		info, err := s.store.GetCheckpointInfo(ctx, chain)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("chain", string(chain)))
			continue
		}
		if info == nil {
			// Never indexed, nothing to measure
			continue
		}

		if age := s.clock.Since(info.UpdatedAt); age > s.config.CheckpointStallAfter {
			logger.WarnCtx(ctx, "Checkpoint stopped advancing",
				zap.String("chain", string(chain)),
				zap.Uint64("block_number", info.BlockNumber),
				zap.Duration("age", age),
			)
		}
	}
}

// startBackfillWithRetry attempts to start a backfill workflow with exponential backoff retry
func (s *stateAuditSweeper) startBackfillWithRetry(ctx context.Context, accountID uuid.UUID) error {
	// Configure exponential backoff
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.MaxInterval = 1 * time.Minute
	b.MaxElapsedTime = 10 * time.Minute // Total retry time limit
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd

	// Wrap with context to respect cancellation
	backoffWithContext := backoff.WithContext(b, ctx)

	// Retry operation
	operation := func() error {
		return s.startBackfill(ctx, accountID)
	}

	// Execute with retry and detailed logging
	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Backfill start failed, retrying",
			zap.Error(err),
			zap.String("account_id", accountID.String()),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	err := backoff.RetryNotify(operation, backoffWithContext, notifyOnError)
	if err != nil {
		return fmt.Errorf("failed after %d attempts: %w", attemptCount, err)
	}

	if attemptCount > 0 {
		logger.InfoCtx(ctx, "Backfill start succeeded after retries",
			zap.String("account_id", accountID.String()),
			zap.Int("total_attempts", attemptCount+1),
		)
	}

	return nil
}

// startBackfill starts a single backfill workflow for an account with findings
func (s *stateAuditSweeper) startBackfill(ctx context.Context, accountID uuid.UUID) error {
	// ULID suffix keeps audit-started runs apart from operator-started ones
	auditID := ulid.MustNewDefault(s.clock.Now()).String()

	workflowOptions := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("backfill-%s-%s", accountID, auditID),
		TaskQueue:                s.orchestratorTaskQueue,
		WorkflowExecutionTimeout: BACKFILL_RUN_TIMEOUT,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}

	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	workflowRun, err := s.orchestrator.ExecuteWorkflow(ctx, workflowOptions, w.BackfillAccountState, accountID)
	if err != nil {
		return fmt.Errorf("failed to start backfill workflow: %w", err)
	}

	// Log workflow start (handle nil workflowRun from tests)
	if workflowRun != nil {
		logger.InfoCtx(ctx, "Backfill workflow started",
			zap.String("account_id", accountID.String()),
			zap.String("workflow_id", workflowRun.GetID()),
			zap.String("run_id", workflowRun.GetRunID()),
		)
	}

	return nil
}
