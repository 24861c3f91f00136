package workflows

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/providers/ethereum"
	"github.com/duskpool/dp-indexer/internal/seeds"
	"github.com/duskpool/dp-indexer/internal/store"
)

// Executor defines the interface for executing backfill activities
//
//go:generate mockgen -source=executor.go -destination=mocks/executor.go -package=mocks -mock_names=Executor=MockBackfillExecutor
type Executor interface {
	// ResolveRecoveryIndex derives the recovery stream seed at index and
	// reports what the database holds for it: a materialized object, an
	// outstanding expectation, or nothing
	ResolveRecoveryIndex(ctx context.Context, accountID uuid.UUID, index uint64) (*RecoveryIndexState, error)

	// LocateRegistration searches the finalized block range for the
	// registration log carrying recoveryID. Returns (nil, nil) when the
	// recovery ID was never registered on-chain.
	LocateRegistration(ctx context.Context, recoveryID string) (*domain.DarkpoolEvent, error)

	// ReplayRegistration re-applies a registration event the live pipeline
	// missed. The expectation for the walked index is posted first so the
	// store resolves seed material through it even when the account's stream
	// counters have long moved past the index. Returns false when a
	// concurrent delivery already applied the event.
	ReplayRegistration(ctx context.Context, accountID uuid.UUID, index uint64, ev *domain.DarkpoolEvent) (bool, error)

	// RepairMissedSpend checks whether nullifier was spent on-chain and, for a
	// plain spend, re-applies the nullify the live pipeline missed. Spends
	// that are part of a supersession are left to the successor's
	// registration replay. Returns true when a missed spend was applied.
	RepairMissedSpend(ctx context.Context, nullifier string) (bool, error)

	// PostExpectationWindow bulk-registers expected objects for count stream
	// indices starting at fromIndex. Returns how many inputs were posted;
	// indices already announced are unchanged.
	PostExpectationWindow(ctx context.Context, accountID uuid.UUID, fromIndex uint64, count int) (int, error)
}

// SeedCoverage classifies what the database holds for one recovery stream index
type SeedCoverage string

const (
	// CoverageStored means a state object was materialized for the index
	CoverageStored SeedCoverage = "stored"
	// CoverageExpected means the index was announced but no object exists yet
	CoverageExpected SeedCoverage = "expected"
	// CoverageUnknown means the database holds nothing for the index
	CoverageUnknown SeedCoverage = "unknown"
)

// RecoveryIndexState reports the database coverage of one recovery stream
// index. Active and Nullifier are only populated for stored objects.
type RecoveryIndexState struct {
	Index              uint64
	RecoveryStreamSeed string
	RecoveryID         string
	Coverage           SeedCoverage
	Active             bool
	Nullifier          string
}

// executor is the concrete implementation of Executor
type executor struct {
	store            store.Store
	ethClient        ethereum.EthereumClient
	temporalActivity adapter.Activity
	chain            domain.Chain
	startBlock       uint64
}

// NewExecutor creates a new executor instance
func NewExecutor(st store.Store, ethClient ethereum.EthereumClient, temporalActivity adapter.Activity, chain domain.Chain, startBlock uint64) Executor {
	return &executor{
		store:            st,
		ethClient:        ethClient,
		temporalActivity: temporalActivity,
		chain:            chain,
		startBlock:       startBlock,
	}
}

// ResolveRecoveryIndex derives the recovery stream seed at index and reports
// what the database holds for it
func (e *executor) ResolveRecoveryIndex(ctx context.Context, accountID uuid.UUID, index uint64) (*RecoveryIndexState, error) {
	masterSeed, err := e.masterSeedScalar(ctx, accountID)
	if err != nil {
		return nil, err
	}

	recoverySeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamRecoverySeed, index)
	state := &RecoveryIndexState{
		Index:              index,
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeed),
		RecoveryID:         seeds.FormatScalar(seeds.RecoveryID(recoverySeed)),
		Coverage:           CoverageUnknown,
	}

	obj, err := e.store.GetObjectBySeed(ctx, state.RecoveryStreamSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to look up state object: %w", err)
	}
	if obj != nil {
		state.Coverage = CoverageStored
		state.Active = obj.Active
		state.Nullifier = obj.Nullifier
		return state, nil
	}

	exp, err := e.store.GetExpectation(ctx, state.RecoveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up expectation: %w", err)
	}
	if exp != nil {
		state.Coverage = CoverageExpected
	}

	return state, nil
}

// LocateRegistration searches the finalized block range for the registration
// log carrying recoveryID
func (e *executor) LocateRegistration(ctx context.Context, recoveryID string) (*domain.DarkpoolEvent, error) {
	// The checkpoint bounds the search; blocks past it are not finalized into
	// the store yet and the live pipeline will deliver them
	toBlock, err := e.store.GetCheckpoint(ctx, e.chain)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if toBlock < e.startBlock {
		return nil, nil
	}

	logs, err := e.ethClient.FilterLogsByRecoveryID(ctx, recoveryID, e.startBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to filter registration logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}
	if len(logs) > 1 {
		logger.WarnCtx(ctx, "Recovery ID registered more than once, replaying the earliest",
			zap.String("recoveryID", recoveryID),
			zap.Int("registrations", len(logs)))
	}

	ev, err := e.ethClient.ParseDarkpoolLog(logs[0])
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"failed to decode registration log",
			"UndecodableLog",
			err,
		)
	}
	if ev == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("log carrying recovery ID %s is not a tracked darkpool event", recoveryID),
			"UndecodableLog",
			nil,
		)
	}

	header, err := e.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(ev.BlockNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch header for block %d: %w", ev.BlockNumber, err)
	}
	ev.Timestamp = time.Unix(int64(header.Time), 0) //nolint:gosec,G115

	return ev, nil
}

// ReplayRegistration re-applies a registration event the live pipeline missed
func (e *executor) ReplayRegistration(ctx context.Context, accountID uuid.UUID, index uint64, ev *domain.DarkpoolEvent) (bool, error) {
	if ev == nil || !ev.Valid() {
		return false, temporal.NewNonRetryableApplicationError(
			"registration event is not replayable",
			"InvalidEvent",
			nil,
		)
	}

	attempt := e.temporalActivity.GetInfo(ctx).Attempt
	logger.InfoCtx(ctx, "Replaying registration",
		zap.String("recoveryID", ev.RecoveryID),
		zap.Uint64("index", index),
		zap.Int32("attempt", attempt))

	masterSeed, err := e.masterSeedScalar(ctx, accountID)
	if err != nil {
		return false, err
	}

	recoverySeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamRecoverySeed, index)
	if seeds.FormatScalar(seeds.RecoveryID(recoverySeed)) != ev.RecoveryID {
		return false, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("recovery ID %s is not derivable at stream index %d of account %s", ev.RecoveryID, index, accountID),
			"SeedMismatch",
			nil,
		)
	}
	shareSeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamShareSeed, index)

	// Post the expectation before applying: the apply composites resolve seed
	// material through it, and the counter fallback only derives the latest
	// announced index, never one the stream moved past
	err = e.store.ExpectObject(ctx, store.ExpectObjectInput{
		RecoveryID:         ev.RecoveryID,
		AccountID:          accountID,
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeed),
		ShareStreamSeed:    seeds.FormatScalar(shareSeed),
	})
	if err != nil {
		return false, fmt.Errorf("failed to post expectation for replay: %w", err)
	}

	switch ev.EventKind {
	case domain.EventKindCreate:
		_, err = e.store.ApplyCreate(ctx, ev)
	case domain.EventKindNullifyAndRecreate:
		_, err = e.store.ApplySupersede(ctx, ev)
	default:
		return false, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("event kind %s does not register an object", ev.EventKind),
			"InvalidEvent",
			nil,
		)
	}
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			// The live pipeline applied it between locate and replay
			logger.InfoCtx(ctx, "Registration already applied, skipping replay",
				zap.String("recoveryID", ev.RecoveryID),
				zap.Uint64("index", index))
			return false, nil
		}
		if domain.IsDataError(err) {
			return false, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("replay of recovery ID %s hit a consistency error", ev.RecoveryID),
				"DataError",
				err,
			)
		}
		return false, fmt.Errorf("failed to apply registration: %w", err)
	}

	logger.InfoCtx(ctx, "Replayed missed registration",
		zap.String("accountID", accountID.String()),
		zap.Uint64("index", index),
		zap.String("eventKind", string(ev.EventKind)),
		zap.Uint64("blockNumber", ev.BlockNumber))

	return true, nil
}

// RepairMissedSpend checks whether nullifier was spent on-chain and re-applies
// a missed plain spend
func (e *executor) RepairMissedSpend(ctx context.Context, nullifier string) (bool, error) {
	toBlock, err := e.store.GetCheckpoint(ctx, e.chain)
	if err != nil {
		return false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if toBlock < e.startBlock {
		return false, nil
	}

	logs, err := e.ethClient.FilterLogsByNullifier(ctx, nullifier, e.startBlock, toBlock)
	if err != nil {
		return false, fmt.Errorf("failed to filter spend logs: %w", err)
	}
	if len(logs) == 0 {
		return false, nil
	}

	ev, err := e.ethClient.ParseDarkpoolLog(logs[0])
	if err != nil {
		return false, temporal.NewNonRetryableApplicationError(
			"failed to decode spend log",
			"UndecodableLog",
			err,
		)
	}
	if ev == nil || ev.EventKind == domain.EventKindNullifyAndRecreate {
		// A supersession spend carries a successor registration; the walk
		// replays it at the successor's stream index where the seed material
		// belongs
		return false, nil
	}

	header, err := e.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(ev.BlockNumber))
	if err != nil {
		return false, fmt.Errorf("failed to fetch header for block %d: %w", ev.BlockNumber, err)
	}
	ev.Timestamp = time.Unix(int64(header.Time), 0) //nolint:gosec,G115

	_, err = e.store.ApplyNullify(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return false, nil
		}
		if domain.IsDataError(err) {
			return false, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("replay of spent nullifier %s hit a consistency error", nullifier),
				"DataError",
				err,
			)
		}
		return false, fmt.Errorf("failed to apply missed spend: %w", err)
	}

	logger.InfoCtx(ctx, "Replayed missed spend",
		zap.String("nullifier", nullifier),
		zap.Uint64("blockNumber", ev.BlockNumber))

	return true, nil
}

// PostExpectationWindow bulk-registers expected objects for count stream
// indices starting at fromIndex
func (e *executor) PostExpectationWindow(ctx context.Context, accountID uuid.UUID, fromIndex uint64, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	masterSeed, err := e.masterSeedScalar(ctx, accountID)
	if err != nil {
		return 0, err
	}

	inputs := make([]store.ExpectObjectInput, 0, count)
	for i := 0; i < count; i++ {
		index := fromIndex + uint64(i)
		recoverySeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamRecoverySeed, index)
		shareSeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamShareSeed, index)
		inputs = append(inputs, store.ExpectObjectInput{
			RecoveryID:         seeds.FormatScalar(seeds.RecoveryID(recoverySeed)),
			AccountID:          accountID,
			RecoveryStreamSeed: seeds.FormatScalar(recoverySeed),
			ShareStreamSeed:    seeds.FormatScalar(shareSeed),
		})
	}

	if err := e.store.ExpectObjects(ctx, inputs); err != nil {
		return 0, fmt.Errorf("failed to post expectation window: %w", err)
	}

	return len(inputs), nil
}

// masterSeedScalar loads an account's master view seed as a field scalar
func (e *executor) masterSeedScalar(ctx context.Context, accountID uuid.UUID) (*big.Int, error) {
	master, err := e.store.GetMasterViewSeed(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load master view seed: %w", err)
	}
	if master == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("account %s is not registered", accountID),
			"UnknownAccount",
			domain.ErrUnknownAccount,
		)
	}

	masterSeed, err := seeds.ParseScalar(master.Seed)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("master view seed of account %s is not a valid scalar", accountID),
			"CorruptSeed",
			err,
		)
	}

	return masterSeed, nil
}
