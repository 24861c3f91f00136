package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/google/uuid"
)

// Worker defines the interface for the backfill workflows
//
//go:generate mockgen -source=worker.go -destination=mocks/worker.go -package=mocks -mock_names=Worker=MockBackfillWorker
type Worker interface {
	// BackfillAccountState walks an account's recovery seed stream from index
	// zero, verifies every stored object, replays registrations the live
	// pipeline missed, and re-posts the expectation window past the first
	// unused index
	BackfillAccountState(ctx workflow.Context, accountID uuid.UUID) (*BackfillSummary, error)
}

type WorkerConfig struct {
	// ExpectationLookahead is how many expected objects are posted past the
	// first unused stream index (default 8)
	ExpectationLookahead uint64
	// MaxStreamScan caps how many stream indices a single backfill run may
	// walk before giving up (default 10000)
	MaxStreamScan uint64
}

// worker is the concrete implementation of Worker
type worker struct {
	config   WorkerConfig
	executor Executor
}

// NewWorker creates a new backfill worker instance
func NewWorker(executor Executor, config WorkerConfig) Worker {
	return &worker{
		executor: executor,
		config:   config,
	}
}
