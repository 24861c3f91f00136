package workflows_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/mocks"
	"github.com/duskpool/dp-indexer/internal/seeds"
	"github.com/duskpool/dp-indexer/internal/store"
	"github.com/duskpool/dp-indexer/internal/store/schema"
	"github.com/duskpool/dp-indexer/internal/workflows"
)

const executorStartBlock = uint64(100)

var (
	executorAccountID = uuid.MustParse("3f1c9a4d-8b2e-4c5f-a6d7-0e1f2a3b4c5d")
	executorChain     = domain.ChainArbitrumOne

	// Master seed shared by all executor fixtures; derivations below must
	// match what the activities derive internally
	executorMasterSeed = seeds.HashToScalar([]byte("executor-test-master-seed"))
)

// testExecutorMocks contains all the mocks needed for testing the executor
type testExecutorMocks struct {
	ctrl             *gomock.Controller
	store            *mocks.MockStore
	ethClient        *mocks.MockEthereumClient
	temporalActivity *mocks.MockActivity
	executor         workflows.Executor
}

// setupTestExecutor creates all the mocks and executor for testing
func setupTestExecutor(t *testing.T) *testExecutorMocks {
	// Initialize logger for tests (required for activities that log)
	err := logger.Initialize(logger.Config{
		Debug: true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctrl := gomock.NewController(t)

	tm := &testExecutorMocks{
		ctrl:             ctrl,
		store:            mocks.NewMockStore(ctrl),
		ethClient:        mocks.NewMockEthereumClient(ctrl),
		temporalActivity: mocks.NewMockActivity(ctrl),
	}

	tm.executor = workflows.NewExecutor(tm.store, tm.ethClient, tm.temporalActivity, executorChain, executorStartBlock)

	return tm
}

// tearDownTestExecutor cleans up the test mocks
func tearDownTestExecutor(mocks *testExecutorMocks) {
	mocks.ctrl.Finish()
}

func executorMasterRow() *schema.MasterViewSeed {
	return &schema.MasterViewSeed{
		AccountID:               executorAccountID,
		OwnerAddress:            "0x1111111111111111111111111111111111111111",
		Seed:                    seeds.FormatScalar(executorMasterSeed),
		RecoverySeedCsprngIndex: 6,
		ShareSeedCsprngIndex:    6,
	}
}

func recoverySeedAt(index uint64) *big.Int {
	return seeds.DeriveStreamSeed(executorMasterSeed, seeds.StreamRecoverySeed, index)
}

func shareSeedAt(index uint64) *big.Int {
	return seeds.DeriveStreamSeed(executorMasterSeed, seeds.StreamShareSeed, index)
}

func derivedRecoveryID(index uint64) string {
	return seeds.FormatScalar(seeds.RecoveryID(recoverySeedAt(index)))
}

func assertNonRetryable(t *testing.T, err error, errType string) {
	assert.Error(t, err)
	var appErr *temporal.ApplicationError
	errOk := errors.As(err, &appErr)
	assert.True(t, errOk)
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, errType, appErr.Type())
}

// ====================================================================================
// ResolveRecoveryIndex Tests
// ====================================================================================

func TestResolveRecoveryIndex_Stored(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(2)
	seedStr := seeds.FormatScalar(recoverySeedAt(index))

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().GetObjectBySeed(ctx, seedStr).Return(&schema.StateObject{
		RecoveryStreamSeed: seedStr,
		AccountID:          executorAccountID,
		Active:             true,
		Nullifier:          "42001",
	}, nil)

	state, err := tm.executor.ResolveRecoveryIndex(ctx, executorAccountID, index)

	assert.NoError(t, err)
	assert.Equal(t, workflows.CoverageStored, state.Coverage)
	assert.Equal(t, index, state.Index)
	assert.Equal(t, seedStr, state.RecoveryStreamSeed)
	assert.Equal(t, derivedRecoveryID(index), state.RecoveryID)
	assert.True(t, state.Active)
	assert.Equal(t, "42001", state.Nullifier)
}

func TestResolveRecoveryIndex_Expected(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(5)
	seedStr := seeds.FormatScalar(recoverySeedAt(index))

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().GetObjectBySeed(ctx, seedStr).Return(nil, nil)
	tm.store.EXPECT().GetExpectation(ctx, derivedRecoveryID(index)).Return(&schema.ExpectedStateObject{
		RecoveryID: derivedRecoveryID(index),
		AccountID:  executorAccountID,
	}, nil)

	state, err := tm.executor.ResolveRecoveryIndex(ctx, executorAccountID, index)

	assert.NoError(t, err)
	assert.Equal(t, workflows.CoverageExpected, state.Coverage)
	assert.False(t, state.Active)
	assert.Empty(t, state.Nullifier)
}

func TestResolveRecoveryIndex_Unknown(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(9)
	seedStr := seeds.FormatScalar(recoverySeedAt(index))

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().GetObjectBySeed(ctx, seedStr).Return(nil, nil)
	tm.store.EXPECT().GetExpectation(ctx, derivedRecoveryID(index)).Return(nil, nil)

	state, err := tm.executor.ResolveRecoveryIndex(ctx, executorAccountID, index)

	assert.NoError(t, err)
	assert.Equal(t, workflows.CoverageUnknown, state.Coverage)
}

func TestResolveRecoveryIndex_UnknownAccount(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(nil, nil)

	state, err := tm.executor.ResolveRecoveryIndex(ctx, executorAccountID, 0)

	assert.Nil(t, state)
	assertNonRetryable(t, err, "UnknownAccount")
}

func TestResolveRecoveryIndex_StoreError(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(nil, errors.New("connection refused"))

	state, err := tm.executor.ResolveRecoveryIndex(ctx, executorAccountID, 0)

	assert.Nil(t, state)
	assert.Error(t, err)
	// Transient failures stay retryable
	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
}

// ====================================================================================
// LocateRegistration Tests
// ====================================================================================

func TestLocateRegistration_Found(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	recoveryID := derivedRecoveryID(3)
	log := types.Log{BlockNumber: 512, TxIndex: 1, Index: 4}
	event := &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindCreate,
		ObjectType:   domain.ObjectTypeBalance,
		RecoveryID:   recoveryID,
		Nullifier:    "42001",
		OwnerAddress: "0x1111111111111111111111111111111111111111",
		PublicShares: []string{"7001", "7002"},
		BlockNumber:  512,
	}

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByRecoveryID(ctx, recoveryID, executorStartBlock, uint64(900)).Return([]types.Log{log}, nil)
	tm.ethClient.EXPECT().ParseDarkpoolLog(log).Return(event, nil)
	tm.ethClient.EXPECT().HeaderByNumber(ctx, new(big.Int).SetUint64(512)).Return(&types.Header{
		Number: big.NewInt(512),
		Time:   1748004000,
	}, nil)

	got, err := tm.executor.LocateRegistration(ctx, recoveryID)

	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, recoveryID, got.RecoveryID)
	assert.Equal(t, time.Unix(1748004000, 0), got.Timestamp)
}

func TestLocateRegistration_NotRegistered(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	recoveryID := derivedRecoveryID(7)

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByRecoveryID(ctx, recoveryID, executorStartBlock, uint64(900)).Return(nil, nil)

	got, err := tm.executor.LocateRegistration(ctx, recoveryID)

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocateRegistration_NothingFinalized(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()

	// Checkpoint below the contract deployment block means no finalized range
	// exists to search; no RPC call is made
	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(0), nil)

	got, err := tm.executor.LocateRegistration(ctx, derivedRecoveryID(0))

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocateRegistration_UndecodableLog(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	recoveryID := derivedRecoveryID(1)
	log := types.Log{BlockNumber: 512}

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByRecoveryID(ctx, recoveryID, executorStartBlock, uint64(900)).Return([]types.Log{log}, nil)
	tm.ethClient.EXPECT().ParseDarkpoolLog(log).Return(nil, errors.New("malformed payload"))

	got, err := tm.executor.LocateRegistration(ctx, recoveryID)

	assert.Nil(t, got)
	assertNonRetryable(t, err, "UndecodableLog")
}

// ====================================================================================
// ReplayRegistration Tests
// ====================================================================================

func replayableCreateEvent(index uint64) *domain.DarkpoolEvent {
	return &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindCreate,
		ObjectType:   domain.ObjectTypeIntent,
		RecoveryID:   derivedRecoveryID(index),
		Nullifier:    "42007",
		OwnerAddress: "0x1111111111111111111111111111111111111111",
		PublicShares: []string{"7001", "7002"},
		TxHash:       "0xfeed",
		BlockNumber:  600,
		LogIndex:     2,
		Timestamp:    time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC),
	}
}

func TestReplayRegistration_Create(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(4)
	event := replayableCreateEvent(index)

	tm.temporalActivity.EXPECT().GetInfo(gomock.Any()).Return(activity.Info{Attempt: 1})
	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	// The expectation must reach the store before the composite runs so seed
	// resolution takes the expectation path
	tm.store.EXPECT().ExpectObject(ctx, store.ExpectObjectInput{
		RecoveryID:         event.RecoveryID,
		AccountID:          executorAccountID,
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeedAt(index)),
		ShareStreamSeed:    seeds.FormatScalar(shareSeedAt(index)),
	}).Return(nil)
	tm.store.EXPECT().ApplyCreate(ctx, event).Return(&schema.StateObject{
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeedAt(index)),
		AccountID:          executorAccountID,
	}, nil)

	repaired, err := tm.executor.ReplayRegistration(ctx, executorAccountID, index, event)

	assert.NoError(t, err)
	assert.True(t, repaired)
}

func TestReplayRegistration_Supersede(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(5)
	event := &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindNullifyAndRecreate,
		ObjectType:   domain.ObjectTypeBalance,
		RecoveryID:   derivedRecoveryID(index),
		Nullifier:    "42008",
		OldNullifier: "42007",
		NewVersion:   3,
		PublicShares: []string{"7003"},
		BlockNumber:  640,
		Timestamp:    time.Date(2025, 5, 21, 9, 30, 0, 0, time.UTC),
	}

	tm.temporalActivity.EXPECT().GetInfo(gomock.Any()).Return(activity.Info{Attempt: 1})
	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().ExpectObject(ctx, gomock.Any()).Return(nil)
	tm.store.EXPECT().ApplySupersede(ctx, event).Return(&schema.StateObject{
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeedAt(index)),
		Version:            3,
	}, nil)

	repaired, err := tm.executor.ReplayRegistration(ctx, executorAccountID, index, event)

	assert.NoError(t, err)
	assert.True(t, repaired)
}

func TestReplayRegistration_AlreadyApplied(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(4)
	event := replayableCreateEvent(index)

	tm.temporalActivity.EXPECT().GetInfo(gomock.Any()).Return(activity.Info{Attempt: 1})
	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().ExpectObject(ctx, gomock.Any()).Return(nil)
	// The live pipeline applied the event between locate and replay
	tm.store.EXPECT().ApplyCreate(ctx, event).Return(nil, domain.ErrAlreadyProcessed)

	repaired, err := tm.executor.ReplayRegistration(ctx, executorAccountID, index, event)

	assert.NoError(t, err)
	assert.False(t, repaired)
}

func TestReplayRegistration_SeedMismatch(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	// The event's recovery ID belongs to index 4 but the replay targets index 2
	event := replayableCreateEvent(4)

	tm.temporalActivity.EXPECT().GetInfo(gomock.Any()).Return(activity.Info{Attempt: 1})
	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)

	repaired, err := tm.executor.ReplayRegistration(ctx, executorAccountID, 2, event)

	assert.False(t, repaired)
	assertNonRetryable(t, err, "SeedMismatch")
}

func TestReplayRegistration_DataError(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	index := uint64(4)
	event := replayableCreateEvent(index)

	tm.temporalActivity.EXPECT().GetInfo(gomock.Any()).Return(activity.Info{Attempt: 1})
	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().ExpectObject(ctx, gomock.Any()).Return(nil)
	tm.store.EXPECT().ApplyCreate(ctx, event).Return(nil, domain.ErrDuplicateSeed)

	repaired, err := tm.executor.ReplayRegistration(ctx, executorAccountID, index, event)

	assert.False(t, repaired)
	assertNonRetryable(t, err, "DataError")
}

// ====================================================================================
// RepairMissedSpend Tests
// ====================================================================================

func TestRepairMissedSpend_SpendFound(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	nullifier := "42001"
	log := types.Log{BlockNumber: 730}
	event := &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindNullify,
		OldNullifier: nullifier,
		BlockNumber:  730,
	}

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByNullifier(ctx, nullifier, executorStartBlock, uint64(900)).Return([]types.Log{log}, nil)
	tm.ethClient.EXPECT().ParseDarkpoolLog(log).Return(event, nil)
	tm.ethClient.EXPECT().HeaderByNumber(ctx, new(big.Int).SetUint64(730)).Return(&types.Header{
		Number: big.NewInt(730),
		Time:   1748005000,
	}, nil)
	tm.store.EXPECT().ApplyNullify(ctx, event).Return(&schema.StateObject{Nullifier: nullifier}, nil)

	repaired, err := tm.executor.RepairMissedSpend(ctx, nullifier)

	assert.NoError(t, err)
	assert.True(t, repaired)
	assert.Equal(t, time.Unix(1748005000, 0), event.Timestamp)
}

func TestRepairMissedSpend_Unspent(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	nullifier := "42001"

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByNullifier(ctx, nullifier, executorStartBlock, uint64(900)).Return(nil, nil)

	repaired, err := tm.executor.RepairMissedSpend(ctx, nullifier)

	assert.NoError(t, err)
	assert.False(t, repaired)
}

func TestRepairMissedSpend_SupersessionSpend(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	nullifier := "42001"
	log := types.Log{BlockNumber: 740}
	event := &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindNullifyAndRecreate,
		OldNullifier: nullifier,
		RecoveryID:   derivedRecoveryID(6),
		Nullifier:    "42009",
		NewVersion:   2,
		BlockNumber:  740,
	}

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByNullifier(ctx, nullifier, executorStartBlock, uint64(900)).Return([]types.Log{log}, nil)
	tm.ethClient.EXPECT().ParseDarkpoolLog(log).Return(event, nil)

	// The successor's registration replay owns supersession repair; nothing is
	// applied from the spend side
	repaired, err := tm.executor.RepairMissedSpend(ctx, nullifier)

	assert.NoError(t, err)
	assert.False(t, repaired)
}

func TestRepairMissedSpend_AlreadyApplied(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	nullifier := "42001"
	log := types.Log{BlockNumber: 730}
	event := &domain.DarkpoolEvent{
		Chain:        executorChain,
		EventKind:    domain.EventKindNullify,
		OldNullifier: nullifier,
		BlockNumber:  730,
	}

	tm.store.EXPECT().GetCheckpoint(ctx, executorChain).Return(uint64(900), nil)
	tm.ethClient.EXPECT().FilterLogsByNullifier(ctx, nullifier, executorStartBlock, uint64(900)).Return([]types.Log{log}, nil)
	tm.ethClient.EXPECT().ParseDarkpoolLog(log).Return(event, nil)
	tm.ethClient.EXPECT().HeaderByNumber(ctx, new(big.Int).SetUint64(730)).Return(&types.Header{
		Number: big.NewInt(730),
		Time:   1748005000,
	}, nil)
	tm.store.EXPECT().ApplyNullify(ctx, event).Return(nil, domain.ErrAlreadyProcessed)

	repaired, err := tm.executor.RepairMissedSpend(ctx, nullifier)

	assert.NoError(t, err)
	assert.False(t, repaired)
}

// ====================================================================================
// PostExpectationWindow Tests
// ====================================================================================

func TestPostExpectationWindow_Success(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()
	fromIndex := uint64(7)
	count := 3

	expected := make([]store.ExpectObjectInput, 0, count)
	for i := 0; i < count; i++ {
		index := fromIndex + uint64(i)
		expected = append(expected, store.ExpectObjectInput{
			RecoveryID:         derivedRecoveryID(index),
			AccountID:          executorAccountID,
			RecoveryStreamSeed: seeds.FormatScalar(recoverySeedAt(index)),
			ShareStreamSeed:    seeds.FormatScalar(shareSeedAt(index)),
		})
	}

	tm.store.EXPECT().GetMasterViewSeed(ctx, executorAccountID).Return(executorMasterRow(), nil)
	tm.store.EXPECT().ExpectObjects(ctx, expected).Return(nil)

	posted, err := tm.executor.PostExpectationWindow(ctx, executorAccountID, fromIndex, count)

	assert.NoError(t, err)
	assert.Equal(t, count, posted)
}

func TestPostExpectationWindow_EmptyWindow(t *testing.T) {
	tm := setupTestExecutor(t)
	defer tearDownTestExecutor(tm)

	ctx := context.Background()

	posted, err := tm.executor.PostExpectationWindow(ctx, executorAccountID, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, 0, posted)
}
