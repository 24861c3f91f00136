package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/seeds"
)

// StoreTestSuite provides the interface for running store tests against different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

// =============================================================================
// Test Data Builders
// =============================================================================

// deriveTestChild computes the recovery ID and both child seeds an account
// would announce at the given stream index
func deriveTestChild(t *testing.T, masterSeed string, index uint64) (recoveryID, recoverySeed, shareSeed string) {
	master, err := seeds.ParseScalar(masterSeed)
	require.NoError(t, err)

	recovery := seeds.DeriveStreamSeed(master, seeds.StreamRecoverySeed, index)
	share := seeds.DeriveStreamSeed(master, seeds.StreamShareSeed, index)
	return seeds.FormatScalar(seeds.RecoveryID(recovery)), seeds.FormatScalar(recovery), seeds.FormatScalar(share)
}

// drawTestShares draws count private shares from the start of a share stream
func drawTestShares(t *testing.T, shareStreamSeed string, count int) []string {
	seed, err := seeds.ParseScalar(shareStreamSeed)
	require.NoError(t, err)

	stream := seeds.NewShareStream(seed, 0)
	return seeds.FormatScalars(stream.Draw(count))
}

// buildTestAccount creates a test registration input
func buildTestAccount(owner, seed string) RegisterAccountInput {
	return RegisterAccountInput{
		OwnerAddress: owner,
		Seed:         seed,
	}
}

// buildTestObjectInput creates a test state object input for direct inserts
func buildTestObjectInput(accountID uuid.UUID, objectType domain.ObjectType, recoverySeed, nullifier string) CreateObjectInput {
	payload, _ := json.Marshal(map[string]interface{}{
		"mint":   "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"amount": "250000000000000000000",
	})

	return CreateObjectInput{
		RecoveryStreamSeed: recoverySeed,
		AccountID:          accountID,
		Chain:              domain.ChainEthereumMainnet,
		ObjectType:         objectType,
		Version:            0,
		Nullifier:          nullifier,
		ShareStreamSeed:    "77777777777777777777777777777777",
		ShareStreamIndex:   2,
		OwnerAddress:       "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		PublicShares:       []string{"1001", "1002"},
		PrivateShares:      []string{"2001", "2002"},
		Payload:            datatypes.JSON(payload),
		CreatedBlock:       1000,
	}
}

// buildTestCreateEvent creates a create event for the given recovery ID
func buildTestCreateEvent(owner string, objectType domain.ObjectType, recoveryID, nullifier string, blockNumber uint64) *domain.DarkpoolEvent {
	payload, _ := json.Marshal(map[string]interface{}{
		"mint":   "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"amount": "250000000",
	})

	return &domain.DarkpoolEvent{
		Chain:        domain.ChainEthereumMainnet,
		EventKind:    domain.EventKindCreate,
		ObjectType:   objectType,
		RecoveryID:   recoveryID,
		Nullifier:    nullifier,
		OwnerAddress: owner,
		PublicShares: []string{"31001", "31002"},
		Payload:      payload,
		TxHash:       fmt.Sprintf("0xtx%s", nullifier),
		BlockNumber:  blockNumber,
		BlockHash:    "0xblockhash",
		LogIndex:     0,
		Timestamp:    time.Now().UTC(),
	}
}

// buildTestNullifyEvent creates a pure nullify event for the given nullifier
func buildTestNullifyEvent(oldNullifier string, blockNumber uint64) *domain.DarkpoolEvent {
	return &domain.DarkpoolEvent{
		Chain:        domain.ChainEthereumMainnet,
		EventKind:    domain.EventKindNullify,
		OldNullifier: oldNullifier,
		TxHash:       fmt.Sprintf("0xtx%s", oldNullifier),
		BlockNumber:  blockNumber,
		BlockHash:    "0xblockhash",
		LogIndex:     0,
		Timestamp:    time.Now().UTC(),
	}
}

// buildTestSupersedeEvent creates a nullify-and-recreate event spending
// oldNullifier in favor of a successor version
func buildTestSupersedeEvent(oldNullifier, recoveryID, nullifier string, newVersion, blockNumber uint64) *domain.DarkpoolEvent {
	payload, _ := json.Marshal(map[string]interface{}{
		"mint":   "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"amount": "175000000",
	})

	return &domain.DarkpoolEvent{
		Chain:        domain.ChainEthereumMainnet,
		EventKind:    domain.EventKindNullifyAndRecreate,
		OldNullifier: oldNullifier,
		RecoveryID:   recoveryID,
		Nullifier:    nullifier,
		NewVersion:   newVersion,
		PublicShares: []string{"41001", "41002"},
		Payload:      payload,
		TxHash:       fmt.Sprintf("0xtx%s", nullifier),
		BlockNumber:  blockNumber,
		BlockHash:    "0xblockhash",
		LogIndex:     1,
		Timestamp:    time.Now().UTC(),
	}
}

// =============================================================================
// Test: RegisterAccount
// =============================================================================

func testRegisterAccount(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("successful registration posts the first expected object", func(t *testing.T) {
		seed := "903270391823712998632910488492101335263945531453983736934853"
		master, err := store.RegisterAccount(ctx, buildTestAccount("0xAb5801a7D398351b8bE11C439e05C5b3259aeC9B", seed))
		require.NoError(t, err)
		require.NotNil(t, master)

		assert.NotEqual(t, uuid.Nil, master.AccountID)
		assert.Equal(t, "0xab5801a7d398351b8be11c439e05c5b3259aec9b", master.OwnerAddress)
		assert.Equal(t, seed, master.Seed)
		assert.Equal(t, uint64(1), master.RecoverySeedCsprngIndex)
		assert.Equal(t, uint64(1), master.ShareSeedCsprngIndex)

		// The first expectation covers the child seeds at index 0
		recoveryID, recoverySeed, shareSeed := deriveTestChild(t, seed, 0)
		exp, err := store.ResolveExpectation(ctx, recoveryID)
		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.Equal(t, master.AccountID, exp.AccountID)
		assert.Equal(t, recoverySeed, exp.RecoveryStreamSeed)
		assert.Equal(t, shareSeed, exp.ShareStreamSeed)
	})

	t.Run("caller may pin the account id", func(t *testing.T) {
		accountID := uuid.New()
		input := buildTestAccount("0x4bbeEB066eD09B7AEd07bF39EEe0460DFa261520", "1122334455667788990011223344556677889900")
		input.AccountID = accountID

		master, err := store.RegisterAccount(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, accountID, master.AccountID)
	})

	t.Run("re-registering an owner returns the existing account", func(t *testing.T) {
		seed := "555666777888999000111222333444555666777888999000"
		first, err := store.RegisterAccount(ctx, buildTestAccount("0x00000000219ab540356cBB839Cbe05303d7705Fa", seed))
		require.NoError(t, err)

		// Same owner in a different case is still the same owner
		second, err := store.RegisterAccount(ctx, buildTestAccount("0x00000000219AB540356CBB839CBE05303D7705FA", seed))
		require.ErrorIs(t, err, domain.ErrAccountExists)
		require.NotNil(t, second)
		assert.Equal(t, first.AccountID, second.AccountID)
	})

	t.Run("rejects a seed that is not a field element", func(t *testing.T) {
		_, err := store.RegisterAccount(ctx, buildTestAccount("0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326", "not-a-scalar"))
		require.Error(t, err)
	})
}

// =============================================================================
// Test: Seed Derivation
// =============================================================================

func testSeedDerivation(t *testing.T, store Store) {
	ctx := context.Background()
	seed := "271828182845904523536028747135266249775724709369995957496696"

	master, err := store.RegisterAccount(ctx, buildTestAccount("0x742d35Cc6634C0532925a3b844Bc454e4438f44e", seed))
	require.NoError(t, err)

	t.Run("next recovery seed advances only the recovery counter", func(t *testing.T) {
		// Registration already consumed index 0 for the first expectation
		derived, err := store.NextRecoverySeed(ctx, master.AccountID)
		require.NoError(t, err)
		require.NotNil(t, derived)

		_, expectedSeed, _ := deriveTestChild(t, seed, 1)
		assert.Equal(t, uint64(1), derived.Index)
		assert.Equal(t, expectedSeed, derived.Seed)

		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, uint64(2), fetched.RecoverySeedCsprngIndex)
		assert.Equal(t, uint64(1), fetched.ShareSeedCsprngIndex)
	})

	t.Run("next share seed advances only the share counter", func(t *testing.T) {
		derived, err := store.NextShareSeed(ctx, master.AccountID)
		require.NoError(t, err)

		_, _, expectedSeed := deriveTestChild(t, seed, 1)
		assert.Equal(t, uint64(1), derived.Index)
		assert.Equal(t, expectedSeed, derived.Seed)

		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), fetched.RecoverySeedCsprngIndex)
		assert.Equal(t, uint64(2), fetched.ShareSeedCsprngIndex)
	})

	t.Run("derivation for an unregistered account fails", func(t *testing.T) {
		_, err := store.NextRecoverySeed(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrUnknownAccount)

		_, err = store.NextShareSeed(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrUnknownAccount)
	})

	t.Run("lookup by owner address finds the registered seed", func(t *testing.T) {
		fetched, err := store.GetMasterViewSeedByOwner(ctx, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, master.AccountID, fetched.AccountID)

		absent, err := store.GetMasterViewSeedByOwner(ctx, "0x1111111111111111111111111111111111111111")
		require.NoError(t, err)
		assert.Nil(t, absent)
	})
}

// =============================================================================
// Test: CreateObject
// =============================================================================

func testCreateObject(t *testing.T, store Store) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("successful create stores an active version zero object", func(t *testing.T) {
		input := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "70000000000000000001", "80000000000000000001")
		obj, err := store.CreateObject(ctx, input)
		require.NoError(t, err)
		require.NotNil(t, obj)

		assert.Equal(t, input.RecoveryStreamSeed, obj.RecoveryStreamSeed)
		assert.Equal(t, accountID, obj.AccountID)
		assert.True(t, obj.Active)
		assert.Equal(t, uint64(0), obj.Version)
		assert.Equal(t, input.Nullifier, obj.Nullifier)
		assert.Equal(t, []string{"1001", "1002"}, []string(obj.PublicShares))
		assert.Equal(t, []string{"2001", "2002"}, []string(obj.PrivateShares))
		assert.JSONEq(t, string(input.Payload), string(obj.Payload))
	})

	t.Run("reusing a recovery stream seed is rejected", func(t *testing.T) {
		input := buildTestObjectInput(uuid.New(), domain.ObjectTypeBalance, "70000000000000000001", "80000000000000000002")
		_, err := store.CreateObject(ctx, input)
		require.ErrorIs(t, err, domain.ErrDuplicateSeed)
	})

	t.Run("a second live object in the same lineage is rejected", func(t *testing.T) {
		input := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "70000000000000000003", "80000000000000000003")
		_, err := store.CreateObject(ctx, input)
		require.ErrorIs(t, err, domain.ErrDuplicateSeed)
	})

	t.Run("a different object type opens a new lineage", func(t *testing.T) {
		input := buildTestObjectInput(accountID, domain.ObjectTypeIntent, "70000000000000000004", "80000000000000000004")
		obj, err := store.CreateObject(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, domain.ObjectTypeIntent, obj.ObjectType)
	})

	t.Run("point lookups by seed and nullifier", func(t *testing.T) {
		obj, err := store.GetObjectBySeed(ctx, "70000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.Equal(t, "80000000000000000001", obj.Nullifier)

		obj, err = store.GetObjectByNullifier(ctx, "80000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.Equal(t, "70000000000000000001", obj.RecoveryStreamSeed)

		absent, err := store.GetObjectBySeed(ctx, "99999999999999999999")
		require.NoError(t, err)
		assert.Nil(t, absent)

		absent, err = store.GetObjectByNullifier(ctx, "99999999999999999999")
		require.NoError(t, err)
		assert.Nil(t, absent)
	})
}

// =============================================================================
// Test: DeactivateObject
// =============================================================================

func testDeactivateObject(t *testing.T, store Store) {
	ctx := context.Background()
	accountID := uuid.New()

	input := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "71000000000000000001", "81000000000000000001")
	_, err := store.CreateObject(ctx, input)
	require.NoError(t, err)

	t.Run("deactivation flips the active flag", func(t *testing.T) {
		obj, err := store.DeactivateObject(ctx, "81000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.False(t, obj.Active)

		fetched, err := store.GetObjectBySeed(ctx, "71000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.False(t, fetched.Active)
	})

	t.Run("deactivating twice is a consistency error", func(t *testing.T) {
		_, err := store.DeactivateObject(ctx, "81000000000000000001")
		require.ErrorIs(t, err, domain.ErrAlreadyInactive)
		assert.True(t, domain.IsDataError(err))
	})

	t.Run("unknown nullifier is a consistency error", func(t *testing.T) {
		_, err := store.DeactivateObject(ctx, "99999999999999999998")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, domain.IsDataError(err))
	})
}

// =============================================================================
// Test: SupersedeObject
// =============================================================================

func testSupersedeObject(t *testing.T, store Store) {
	ctx := context.Background()
	accountID := uuid.New()

	v0 := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "72000000000000000001", "82000000000000000001")
	_, err := store.CreateObject(ctx, v0)
	require.NoError(t, err)

	t.Run("supersession deactivates the old version and activates the successor", func(t *testing.T) {
		v1 := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "72000000000000000002", "82000000000000000002")
		v1.Version = 1

		successor, err := store.SupersedeObject(ctx, "82000000000000000001", v1)
		require.NoError(t, err)
		require.NotNil(t, successor)
		assert.Equal(t, uint64(1), successor.Version)
		assert.True(t, successor.Active)

		old, err := store.GetObjectBySeed(ctx, "72000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, old)
		assert.False(t, old.Active)

		objectType := domain.ObjectTypeBalance
		active, err := store.GetActiveObjects(ctx, accountID, &objectType)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "72000000000000000002", active[0].RecoveryStreamSeed)
	})

	t.Run("a version jump is rejected and nothing changes", func(t *testing.T) {
		otherAccount := uuid.New()
		base := buildTestObjectInput(otherAccount, domain.ObjectTypeBalance, "72000000000000000003", "82000000000000000003")
		_, err := store.CreateObject(ctx, base)
		require.NoError(t, err)

		v5 := buildTestObjectInput(otherAccount, domain.ObjectTypeBalance, "72000000000000000004", "82000000000000000004")
		v5.Version = 5
		_, err = store.SupersedeObject(ctx, "82000000000000000003", v5)
		require.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.True(t, domain.IsDataError(err))

		// The rejected transaction must not have deactivated the old version
		old, err := store.GetObjectBySeed(ctx, "72000000000000000003")
		require.NoError(t, err)
		require.NotNil(t, old)
		assert.True(t, old.Active)
	})

	t.Run("superseding an unknown nullifier is a consistency error", func(t *testing.T) {
		v1 := buildTestObjectInput(uuid.New(), domain.ObjectTypeBalance, "72000000000000000005", "82000000000000000005")
		v1.Version = 1
		_, err := store.SupersedeObject(ctx, "99999999999999999997", v1)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// =============================================================================
// Test: GetActiveObjects
// =============================================================================

func testGetActiveObjects(t *testing.T, store Store) {
	ctx := context.Background()
	accountID := uuid.New()

	balance := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "73000000000000000001", "83000000000000000001")
	_, err := store.CreateObject(ctx, balance)
	require.NoError(t, err)

	intent := buildTestObjectInput(accountID, domain.ObjectTypeIntent, "73000000000000000002", "83000000000000000002")
	_, err = store.CreateObject(ctx, intent)
	require.NoError(t, err)

	// An unrelated account should never leak into the results
	other := buildTestObjectInput(uuid.New(), domain.ObjectTypeBalance, "73000000000000000003", "83000000000000000003")
	_, err = store.CreateObject(ctx, other)
	require.NoError(t, err)

	t.Run("returns all live objects in type order", func(t *testing.T) {
		active, err := store.GetActiveObjects(ctx, accountID, nil)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, domain.ObjectTypeBalance, active[0].ObjectType)
		assert.Equal(t, domain.ObjectTypeIntent, active[1].ObjectType)
	})

	t.Run("filters by object type", func(t *testing.T) {
		objectType := domain.ObjectTypeIntent
		active, err := store.GetActiveObjects(ctx, accountID, &objectType)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "73000000000000000002", active[0].RecoveryStreamSeed)
	})

	t.Run("deactivated objects drop out", func(t *testing.T) {
		_, err := store.DeactivateObject(ctx, "83000000000000000001")
		require.NoError(t, err)

		active, err := store.GetActiveObjects(ctx, accountID, nil)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, domain.ObjectTypeIntent, active[0].ObjectType)
	})

	t.Run("an account with no objects yields an empty result", func(t *testing.T) {
		active, err := store.GetActiveObjects(ctx, uuid.New(), nil)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

// =============================================================================
// Test: Processed Ledger
// =============================================================================

func testProcessedLedger(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainEthereumMainnet

	t.Run("a nullifier is recorded exactly once", func(t *testing.T) {
		inserted, err := store.RecordNullifierIfNew(ctx, chain, "50000000000000000001", 120)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.RecordNullifierIfNew(ctx, chain, "50000000000000000001", 125)
		require.NoError(t, err)
		assert.False(t, inserted)

		inserted, err = store.RecordNullifierIfNew(ctx, chain, "50000000000000000002", 120)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("a recovery id is recorded exactly once", func(t *testing.T) {
		inserted, err := store.RecordRecoveryIDIfNew(ctx, chain, "60000000000000000001", 120)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.RecordRecoveryIDIfNew(ctx, chain, "60000000000000000001", 125)
		require.NoError(t, err)
		assert.False(t, inserted)
	})
}

// =============================================================================
// Test: Expected Objects
// =============================================================================

func testExpectations(t *testing.T, store Store) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("resolve consumes the expectation", func(t *testing.T) {
		err := store.ExpectObject(ctx, ExpectObjectInput{
			RecoveryID:         "75000000000000000001",
			AccountID:          accountID,
			RecoveryStreamSeed: "75000000000000000002",
			ShareStreamSeed:    "75000000000000000003",
		})
		require.NoError(t, err)

		resolved, err := store.ResolveExpectation(ctx, "75000000000000000001")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, accountID, resolved.AccountID)
		assert.Equal(t, "75000000000000000002", resolved.RecoveryStreamSeed)
		assert.Equal(t, "75000000000000000003", resolved.ShareStreamSeed)

		resolved, err = store.ResolveExpectation(ctx, "75000000000000000001")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("resolving an absent recovery id is not an error", func(t *testing.T) {
		resolved, err := store.ResolveExpectation(ctx, "75999999999999999999")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("re-registering a recovery id keeps the original seeds", func(t *testing.T) {
		err := store.ExpectObject(ctx, ExpectObjectInput{
			RecoveryID:         "75000000000000000004",
			AccountID:          accountID,
			RecoveryStreamSeed: "75000000000000000005",
			ShareStreamSeed:    "75000000000000000006",
		})
		require.NoError(t, err)

		err = store.ExpectObject(ctx, ExpectObjectInput{
			RecoveryID:         "75000000000000000004",
			AccountID:          uuid.New(),
			RecoveryStreamSeed: "75000000000000000007",
			ShareStreamSeed:    "75000000000000000008",
		})
		require.NoError(t, err)

		resolved, err := store.ResolveExpectation(ctx, "75000000000000000004")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, accountID, resolved.AccountID)
		assert.Equal(t, "75000000000000000005", resolved.RecoveryStreamSeed)
	})

	t.Run("bulk registration posts every expectation", func(t *testing.T) {
		inputs := []ExpectObjectInput{
			{RecoveryID: "76000000000000000001", AccountID: accountID, RecoveryStreamSeed: "1", ShareStreamSeed: "2"},
			{RecoveryID: "76000000000000000002", AccountID: accountID, RecoveryStreamSeed: "3", ShareStreamSeed: "4"},
			{RecoveryID: "76000000000000000003", AccountID: accountID, RecoveryStreamSeed: "5", ShareStreamSeed: "6"},
		}
		require.NoError(t, store.ExpectObjects(ctx, inputs))
		require.NoError(t, store.ExpectObjects(ctx, nil))

		for _, input := range inputs {
			resolved, err := store.ResolveExpectation(ctx, input.RecoveryID)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, input.RecoveryStreamSeed, resolved.RecoveryStreamSeed)
		}
	})
}

// =============================================================================
// Test: ApplyCreate
// =============================================================================

func testApplyCreate(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("expectation fast path creates the version zero object", func(t *testing.T) {
		seed := "141421356237309504880168872420969807856967187537694809"
		owner := "0x503828976D22510aad0201ac7EC88293211D23Da"
		master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID, recoverySeed, shareSeed := deriveTestChild(t, seed, 0)
		ev := buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID, "91000000000000000001", 100)

		obj, err := store.ApplyCreate(ctx, ev)
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.Equal(t, master.AccountID, obj.AccountID)
		assert.True(t, obj.Active)
		assert.Equal(t, uint64(0), obj.Version)
		assert.Equal(t, recoverySeed, obj.RecoveryStreamSeed)
		assert.Equal(t, shareSeed, obj.ShareStreamSeed)
		assert.Equal(t, ev.Nullifier, obj.Nullifier)
		assert.Equal(t, uint64(100), obj.CreatedBlock)
		assert.Equal(t, []string{"31001", "31002"}, []string(obj.PublicShares))

		// Private shares come from the expectation's share stream
		assert.Equal(t, drawTestShares(t, shareSeed, 2), []string(obj.PrivateShares))
		assert.Equal(t, uint64(2), obj.ShareStreamIndex)

		// The applied create rotates the account's expectation forward
		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), fetched.RecoverySeedCsprngIndex)
		assert.Equal(t, uint64(2), fetched.ShareSeedCsprngIndex)

		nextRecoveryID, _, _ := deriveTestChild(t, seed, 1)
		next, err := store.ResolveExpectation(ctx, nextRecoveryID)
		require.NoError(t, err)
		assert.NotNil(t, next)
	})

	t.Run("redelivery reports already processed and changes nothing", func(t *testing.T) {
		seed := "577215664901532860606512090082402431042159335939923598805"
		owner := "0xBE0eB53F46cd790Cd13851d5EFf43D12404d33E8"
		_, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID, recoverySeed, _ := deriveTestChild(t, seed, 0)
		ev := buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID, "91000000000000000002", 110)

		first, err := store.ApplyCreate(ctx, ev)
		require.NoError(t, err)

		_, err = store.ApplyCreate(ctx, ev)
		require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		assert.False(t, domain.IsDataError(err))

		obj, err := store.GetObjectBySeed(ctx, recoverySeed)
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.True(t, obj.Active)
		assert.Equal(t, first.Nullifier, obj.Nullifier)
	})

	t.Run("slow path re-derives seeds when no expectation is on file", func(t *testing.T) {
		seed := "662607015000000000000000000000000662607015"
		owner := "0xF977814e90dA44bFA03b6295A0616a897441aceC"
		master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		// Drop the registration expectation to force the derivation path
		recoveryID, recoverySeed, shareSeed := deriveTestChild(t, seed, 0)
		dropped, err := store.ResolveExpectation(ctx, recoveryID)
		require.NoError(t, err)
		require.NotNil(t, dropped)

		ev := buildTestCreateEvent(owner, domain.ObjectTypeIntent, recoveryID, "91000000000000000003", 120)
		obj, err := store.ApplyCreate(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, recoverySeed, obj.RecoveryStreamSeed)
		assert.Equal(t, shareSeed, obj.ShareStreamSeed)

		// The slow path still rotates the expectation forward
		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), fetched.RecoverySeedCsprngIndex)

		nextRecoveryID, _, _ := deriveTestChild(t, seed, 1)
		next, err := store.ResolveExpectation(ctx, nextRecoveryID)
		require.NoError(t, err)
		assert.NotNil(t, next)
	})

	t.Run("a client posted expectation supplies its seeds verbatim", func(t *testing.T) {
		seed := "137035999084000000000000000000137035999084"
		owner := "0x28C6c06298d514Db089934071355E5743bf21d60"
		master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		err = store.ExpectObject(ctx, ExpectObjectInput{
			RecoveryID:         "42000000000000000042",
			AccountID:          master.AccountID,
			RecoveryStreamSeed: "11100011100011100011",
			ShareStreamSeed:    "22200022200022200022",
		})
		require.NoError(t, err)

		ev := buildTestCreateEvent(owner, domain.ObjectTypeBalance, "42000000000000000042", "91000000000000000004", 130)
		obj, err := store.ApplyCreate(ctx, ev)
		require.NoError(t, err)

		// The stored seeds are the announced ones, not re-derived material
		assert.Equal(t, "11100011100011100011", obj.RecoveryStreamSeed)
		assert.Equal(t, "22200022200022200022", obj.ShareStreamSeed)
		assert.Equal(t, drawTestShares(t, "22200022200022200022", 2), []string(obj.PrivateShares))
	})

	t.Run("an unregistered owner is a consistency error", func(t *testing.T) {
		ev := buildTestCreateEvent("0x1151314c646Ce4E0eFD76d1aF4760aE66a9Fe30F", domain.ObjectTypeBalance, "55000000000000000055", "91000000000000000005", 140)
		_, err := store.ApplyCreate(ctx, ev)
		require.ErrorIs(t, err, domain.ErrUnknownAccount)
		assert.True(t, domain.IsDataError(err))
	})

	t.Run("an underivable recovery id is a consistency error", func(t *testing.T) {
		seed := "299792458000000000000000000000000299792458"
		owner := "0x47ac0Fb4F2D84898e4D9E7b4DaB3C24507a6D503"
		master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		ev := buildTestCreateEvent(owner, domain.ObjectTypeBalance, "31337000000000000031337", "91000000000000000006", 150)
		_, err = store.ApplyCreate(ctx, ev)
		require.ErrorIs(t, err, domain.ErrUnknownAccount)

		// A failed apply leaves the stream counter untouched
		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), fetched.RecoverySeedCsprngIndex)
	})
}

// =============================================================================
// Test: ApplyNullify
// =============================================================================

func testApplyNullify(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("nullify deactivates the spent object", func(t *testing.T) {
		seed := "160217662080000000000000000000000160217662"
		owner := "0xDC76CD25977E0a5Ae17155770273aD58648900D3"
		_, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID, recoverySeed, _ := deriveTestChild(t, seed, 0)
		createEv := buildTestCreateEvent(owner, domain.ObjectTypeIntent, recoveryID, "92000000000000000001", 100)
		_, err = store.ApplyCreate(ctx, createEv)
		require.NoError(t, err)

		obj, err := store.ApplyNullify(ctx, buildTestNullifyEvent("92000000000000000001", 300))
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.False(t, obj.Active)
		assert.Equal(t, recoverySeed, obj.RecoveryStreamSeed)

		fetched, err := store.GetObjectBySeed(ctx, recoverySeed)
		require.NoError(t, err)
		assert.False(t, fetched.Active)
	})

	t.Run("redelivery reports already processed", func(t *testing.T) {
		_, err := store.ApplyNullify(ctx, buildTestNullifyEvent("92000000000000000001", 300))
		require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	})

	t.Run("an unknown nullifier is a consistency error", func(t *testing.T) {
		_, err := store.ApplyNullify(ctx, buildTestNullifyEvent("92999999999999999999", 310))
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, domain.IsDataError(err))
	})

	t.Run("a failed nullify does not burn the ledger entry", func(t *testing.T) {
		accountID := uuid.New()
		input := buildTestObjectInput(accountID, domain.ObjectTypeBalance, "74000000000000000001", "84000000000000000001")
		_, err := store.CreateObject(ctx, input)
		require.NoError(t, err)
		_, err = store.DeactivateObject(ctx, "84000000000000000001")
		require.NoError(t, err)

		_, err = store.ApplyNullify(ctx, buildTestNullifyEvent("84000000000000000001", 320))
		require.ErrorIs(t, err, domain.ErrAlreadyInactive)

		// The rolled back transaction must not have recorded the nullifier
		inserted, err := store.RecordNullifierIfNew(ctx, domain.ChainEthereumMainnet, "84000000000000000001", 320)
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}

// =============================================================================
// Test: ApplySupersede
// =============================================================================

func testApplySupersede(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("supersession replaces the spent version atomically", func(t *testing.T) {
		seed := "602214076000000000000000000000000602214076"
		owner := "0x5a52E96BAcdaBb82fd05763E25335261B270Efcb"
		master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID0, recoverySeed0, _ := deriveTestChild(t, seed, 0)
		createEv := buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID0, "93000000000000000001", 100)
		_, err = store.ApplyCreate(ctx, createEv)
		require.NoError(t, err)

		recoveryID1, recoverySeed1, shareSeed1 := deriveTestChild(t, seed, 1)
		supersedeEv := buildTestSupersedeEvent("93000000000000000001", recoveryID1, "93000000000000000002", 1, 205)

		successor, err := store.ApplySupersede(ctx, supersedeEv)
		require.NoError(t, err)
		require.NotNil(t, successor)
		assert.Equal(t, master.AccountID, successor.AccountID)
		assert.Equal(t, uint64(1), successor.Version)
		assert.True(t, successor.Active)
		assert.Equal(t, recoverySeed1, successor.RecoveryStreamSeed)
		assert.Equal(t, shareSeed1, successor.ShareStreamSeed)
		assert.Equal(t, domain.ObjectTypeBalance, successor.ObjectType)
		assert.Equal(t, uint64(205), successor.CreatedBlock)

		// The superseded version goes inactive in the same transaction
		old, err := store.GetObjectBySeed(ctx, recoverySeed0)
		require.NoError(t, err)
		assert.False(t, old.Active)

		objectType := domain.ObjectTypeBalance
		active, err := store.GetActiveObjects(ctx, master.AccountID, &objectType)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, uint64(1), active[0].Version)

		// Supersession consumes one expectation and rotates the next
		fetched, err := store.GetMasterViewSeed(ctx, master.AccountID)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), fetched.RecoverySeedCsprngIndex)
	})

	t.Run("redelivery reports already processed", func(t *testing.T) {
		seed := "252973459083745098021734509827345098712340987120"
		owner := "0x220866B1A2219f40e72f5c628B65D54268cA3A9D"
		_, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID0, _, _ := deriveTestChild(t, seed, 0)
		_, err = store.ApplyCreate(ctx, buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID0, "93000000000000000003", 100))
		require.NoError(t, err)

		recoveryID1, recoverySeed1, _ := deriveTestChild(t, seed, 1)
		ev := buildTestSupersedeEvent("93000000000000000003", recoveryID1, "93000000000000000004", 1, 205)
		_, err = store.ApplySupersede(ctx, ev)
		require.NoError(t, err)

		_, err = store.ApplySupersede(ctx, ev)
		require.ErrorIs(t, err, domain.ErrAlreadyProcessed)

		successor, err := store.GetObjectBySeed(ctx, recoverySeed1)
		require.NoError(t, err)
		require.NotNil(t, successor)
		assert.True(t, successor.Active)
	})

	t.Run("a version jump is rejected and the ledger entry survives for a fixed event", func(t *testing.T) {
		seed := "667430000000000000000000000000000000667430"
		owner := "0x2B6eD29A95753C3Ad948348e3e7b1A251080Ffb9"
		_, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
		require.NoError(t, err)

		recoveryID0, recoverySeed0, _ := deriveTestChild(t, seed, 0)
		_, err = store.ApplyCreate(ctx, buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID0, "93000000000000000005", 100))
		require.NoError(t, err)

		recoveryID1, _, _ := deriveTestChild(t, seed, 1)
		ev := buildTestSupersedeEvent("93000000000000000005", recoveryID1, "93000000000000000006", 5, 210)
		_, err = store.ApplySupersede(ctx, ev)
		require.ErrorIs(t, err, domain.ErrVersionConflict)

		// Nothing changed and the nullifier was not burned
		old, err := store.GetObjectBySeed(ctx, recoverySeed0)
		require.NoError(t, err)
		assert.True(t, old.Active)

		inserted, err := store.RecordNullifierIfNew(ctx, domain.ChainEthereumMainnet, "93000000000000000005", 210)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("an unknown old nullifier is a consistency error", func(t *testing.T) {
		ev := buildTestSupersedeEvent("93999999999999999999", "11110000000000001111", "93000000000000000007", 1, 220)
		_, err := store.ApplySupersede(ctx, ev)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// =============================================================================
// Test: Object Lifecycle
// =============================================================================

// testObjectLifecycle walks one lineage through create, supersede, and a
// redelivered create, checking the checkpoint only moves forward
func testObjectLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainEthereumMainnet

	seed := "314159265358979323846264338327950288419716939937510582097494"
	owner := "0x8894E0a0c962CB723c1976a4421c95949bE2D4E3"
	master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
	require.NoError(t, err)

	checkpoint, err := store.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), checkpoint)

	// Block 100: the lineage opens at version 0
	recoveryID0, _, _ := deriveTestChild(t, seed, 0)
	createEv := buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID0, "95000000000000000001", 100)
	v0, err := store.ApplyCreate(ctx, createEv)
	require.NoError(t, err)
	require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 100))

	checkpoint, err = store.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), checkpoint)

	// Block 205: version 0 is spent in favor of version 1
	recoveryID1, _, _ := deriveTestChild(t, seed, 1)
	supersedeEv := buildTestSupersedeEvent("95000000000000000001", recoveryID1, "95000000000000000002", 1, 205)
	v1, err := store.ApplySupersede(ctx, supersedeEv)
	require.NoError(t, err)
	require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 205))

	// A redelivered create from block 100 must change nothing
	_, err = store.ApplyCreate(ctx, createEv)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 100))

	checkpoint, err = store.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(205), checkpoint)

	objectType := domain.ObjectTypeBalance
	active, err := store.GetActiveObjects(ctx, master.AccountID, &objectType)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v1.RecoveryStreamSeed, active[0].RecoveryStreamSeed)

	old, err := store.GetObjectBySeed(ctx, v0.RecoveryStreamSeed)
	require.NoError(t, err)
	assert.False(t, old.Active)
}

// =============================================================================
// Test: Checkpoint
// =============================================================================

func testCheckpoint(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainBase

	t.Run("a chain that was never indexed reports zero", func(t *testing.T) {
		checkpoint, err := store.GetCheckpoint(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), checkpoint)

		info, err := store.GetCheckpointInfo(ctx, chain)
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("the checkpoint only moves forward", func(t *testing.T) {
		require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 100))

		checkpoint, err := store.GetCheckpoint(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), checkpoint)

		// Re-applied older blocks must not move it back
		require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 99))
		checkpoint, err = store.GetCheckpoint(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), checkpoint)

		require.NoError(t, store.AdvanceCheckpoint(ctx, chain, 101))
		checkpoint, err = store.GetCheckpoint(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(101), checkpoint)

		info, err := store.GetCheckpointInfo(ctx, chain)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, uint64(101), info.BlockNumber)
		assert.False(t, info.UpdatedAt.IsZero())
	})

	t.Run("chains advance independently", func(t *testing.T) {
		other := domain.ChainArbitrumOne
		require.NoError(t, store.AdvanceCheckpoint(ctx, other, 7))

		checkpoint, err := store.GetCheckpoint(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), checkpoint)

		checkpoint, err = store.GetCheckpoint(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(101), checkpoint)
	})
}

// =============================================================================
// Test: Halt Markers
// =============================================================================

func testHaltMarkers(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainEthereumSepolia

	t.Run("a running chain has no marker", func(t *testing.T) {
		reason, halted, err := store.GetChainHalted(ctx, chain)
		require.NoError(t, err)
		assert.False(t, halted)
		assert.Empty(t, reason)
	})

	t.Run("set, overwrite, and clear", func(t *testing.T) {
		require.NoError(t, store.SetChainHalted(ctx, chain, "apply create: duplicate seed"))

		reason, halted, err := store.GetChainHalted(ctx, chain)
		require.NoError(t, err)
		assert.True(t, halted)
		assert.Equal(t, "apply create: duplicate seed", reason)

		require.NoError(t, store.SetChainHalted(ctx, chain, "apply supersede: version conflict"))
		reason, halted, err = store.GetChainHalted(ctx, chain)
		require.NoError(t, err)
		assert.True(t, halted)
		assert.Equal(t, "apply supersede: version conflict", reason)

		require.NoError(t, store.ClearChainHalted(ctx, chain))
		_, halted, err = store.GetChainHalted(ctx, chain)
		require.NoError(t, err)
		assert.False(t, halted)

		// Clearing an absent marker is a no-op
		require.NoError(t, store.ClearChainHalted(ctx, chain))
	})
}

// =============================================================================
// Test: Audits
// =============================================================================

func testAudits(t *testing.T, store Store) {
	ctx := context.Background()

	seed := "173205080756887729352744634150587236694280525381038062805580"
	owner := "0x61EDCDf5bb737ADffE5043706e7C5bb1f1a56eEA"
	master, err := store.RegisterAccount(ctx, buildTestAccount(owner, seed))
	require.NoError(t, err)

	recoveryID0, _, _ := deriveTestChild(t, seed, 0)
	_, err = store.ApplyCreate(ctx, buildTestCreateEvent(owner, domain.ObjectTypeBalance, recoveryID0, "96000000000000000001", 100))
	require.NoError(t, err)

	recoveryID1, _, _ := deriveTestChild(t, seed, 1)
	_, err = store.ApplySupersede(ctx, buildTestSupersedeEvent("96000000000000000001", recoveryID1, "96000000000000000002", 1, 150))
	require.NoError(t, err)

	t.Run("a healthy lineage raises no findings", func(t *testing.T) {
		violations, err := store.FindLineageViolations(ctx)
		require.NoError(t, err)
		assert.Empty(t, violations)

		gaps, err := store.FindVersionGaps(ctx)
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})

	t.Run("outstanding expectations show up past the cutoff", func(t *testing.T) {
		stale, err := store.ListStaleExpectations(ctx, time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		require.NotEmpty(t, stale)
		assert.Equal(t, master.AccountID, stale[0].AccountID)

		fresh, err := store.ListStaleExpectations(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, fresh)
	})

	t.Run("registered accounts are listed", func(t *testing.T) {
		ids, err := store.ListAccountIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, master.AccountID)
	})
}

// =============================================================================
// Test Runner
// =============================================================================

// RunStoreTests runs all store tests using the provided database initializer
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"RegisterAccount", testRegisterAccount},
		{"SeedDerivation", testSeedDerivation},
		{"CreateObject", testCreateObject},
		{"DeactivateObject", testDeactivateObject},
		{"SupersedeObject", testSupersedeObject},
		{"GetActiveObjects", testGetActiveObjects},
		{"ProcessedLedger", testProcessedLedger},
		{"Expectations", testExpectations},
		{"ApplyCreate", testApplyCreate},
		{"ApplyNullify", testApplyNullify},
		{"ApplySupersede", testApplySupersede},
		{"ObjectLifecycle", testObjectLifecycle},
		{"Checkpoint", testCheckpoint},
		{"HaltMarkers", testHaltMarkers},
		{"Audits", testAudits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
