package workflows

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
)

const (
	defaultExpectationLookahead = 8
	defaultMaxStreamScan        = 10000
)

// BackfillSummary reports what one backfill run found and fixed
type BackfillSummary struct {
	AccountID          uuid.UUID
	ObjectsVerified    uint64
	ObjectsRepaired    uint64
	FirstUnusedIndex   uint64
	ExpectationsPosted int
}

// BackfillAccountState walks the account's recovery seed stream from index
// zero. Stored objects are verified against their on-chain spend status,
// registrations the live pipeline missed are replayed through the store, and
// the walk ends at the first stream index that was never used on-chain. The
// expectation window past that index is topped back up before returning.
func (w *worker) BackfillAccountState(ctx workflow.Context, accountID uuid.UUID) (*BackfillSummary, error) {
	logger.InfoWf(ctx, "Starting account state backfill",
		zap.String("accountID", accountID.String()),
	)

	lookahead := w.config.ExpectationLookahead
	if lookahead == 0 {
		lookahead = defaultExpectationLookahead
	}
	maxScan := w.config.MaxStreamScan
	if maxScan == 0 {
		maxScan = defaultMaxStreamScan
	}

	// Configure activity options; RPC log filters behind the rate limit gate
	// can take a while on long ranges
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	summary := &BackfillSummary{AccountID: accountID}

	// Stream usage is a prefix: the wallet consumes indices in order, so the
	// walk ends at the first index with neither a stored object nor an
	// on-chain registration. Announced-but-unused indices past that point are
	// still checked so a lost write inside the expectation window is caught.
	haveUnused := false

	for index := uint64(0); ; index++ {
		if index >= maxScan {
			err := fmt.Errorf("recovery stream scan exceeded %d indices for account %s", maxScan, accountID)
			logger.ErrorWf(ctx, err, zap.String("accountID", accountID.String()))
			return nil, err
		}

		var state *RecoveryIndexState
		err := workflow.ExecuteActivity(ctx, w.executor.ResolveRecoveryIndex, accountID, index).Get(ctx, &state)
		if err != nil {
			logger.ErrorWf(ctx, fmt.Errorf("failed to resolve recovery stream index"),
				zap.Error(err),
				zap.String("accountID", accountID.String()),
				zap.Uint64("index", index),
			)
			return nil, err
		}

		if state.Coverage == CoverageStored {
			summary.ObjectsVerified++

			// An active object whose nullifier was spent on-chain means the
			// spend never reached the store
			if state.Active {
				var repaired bool
				err = workflow.ExecuteActivity(ctx, w.executor.RepairMissedSpend, state.Nullifier).Get(ctx, &repaired)
				if err != nil {
					logger.ErrorWf(ctx, fmt.Errorf("failed to verify object spend status"),
						zap.Error(err),
						zap.String("accountID", accountID.String()),
						zap.Uint64("index", index),
					)
					return nil, err
				}
				if repaired {
					summary.ObjectsRepaired++
				}
			}
			continue
		}

		var ev *domain.DarkpoolEvent
		err = workflow.ExecuteActivity(ctx, w.executor.LocateRegistration, state.RecoveryID).Get(ctx, &ev)
		if err != nil {
			logger.ErrorWf(ctx, fmt.Errorf("failed to locate registration"),
				zap.Error(err),
				zap.String("accountID", accountID.String()),
				zap.Uint64("index", index),
			)
			return nil, err
		}

		if ev != nil {
			if haveUnused {
				// Usage after an unused index breaks the prefix assumption;
				// repair it anyway but flag the anomaly
				logger.WarnWf(ctx, "Registration found past an unused stream index",
					zap.String("accountID", accountID.String()),
					zap.Uint64("index", index),
					zap.Uint64("firstUnusedIndex", summary.FirstUnusedIndex),
				)
			}

			var repaired bool
			err = workflow.ExecuteActivity(ctx, w.executor.ReplayRegistration, accountID, index, ev).Get(ctx, &repaired)
			if err != nil {
				logger.ErrorWf(ctx, fmt.Errorf("failed to replay registration"),
					zap.Error(err),
					zap.String("accountID", accountID.String()),
					zap.Uint64("index", index),
				)
				return nil, err
			}
			if repaired {
				summary.ObjectsRepaired++
			} else {
				summary.ObjectsVerified++
			}
			continue
		}

		// Never used on-chain
		if !haveUnused {
			haveUnused = true
			summary.FirstUnusedIndex = index
		}
		if state.Coverage == CoverageExpected {
			// Inside the announced lookahead; keep walking to its end
			continue
		}
		break
	}

	var posted int
	err := workflow.ExecuteActivity(ctx, w.executor.PostExpectationWindow, accountID, summary.FirstUnusedIndex, int(lookahead)).Get(ctx, &posted)
	if err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to post expectation window"),
			zap.Error(err),
			zap.String("accountID", accountID.String()),
			zap.Uint64("fromIndex", summary.FirstUnusedIndex),
		)
		return nil, err
	}
	summary.ExpectationsPosted = posted

	logger.InfoWf(ctx, "Account state backfill completed",
		zap.String("accountID", accountID.String()),
		zap.Uint64("objectsVerified", summary.ObjectsVerified),
		zap.Uint64("objectsRepaired", summary.ObjectsRepaired),
		zap.Uint64("firstUnusedIndex", summary.FirstUnusedIndex),
		zap.Int("expectationsPosted", summary.ExpectationsPosted),
	)

	return summary, nil
}
