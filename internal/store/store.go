package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Ping verifies database connectivity
	Ping(ctx context.Context) error

	// --- Accounts & seed derivation ---

	// RegisterAccount stores a master view seed and posts the account's first
	// expected object. Returns the existing row and domain.ErrAccountExists
	// when the owner address is already registered.
	RegisterAccount(ctx context.Context, input RegisterAccountInput) (*schema.MasterViewSeed, error)
	// GetMasterViewSeed retrieves an account's master view seed, nil if absent
	GetMasterViewSeed(ctx context.Context, accountID uuid.UUID) (*schema.MasterViewSeed, error)
	// GetMasterViewSeedByOwner retrieves a master view seed by owner address, nil if absent
	GetMasterViewSeedByOwner(ctx context.Context, ownerAddress string) (*schema.MasterViewSeed, error)
	// NextRecoverySeed derives the next recovery stream child seed and advances
	// the persisted counter before the value is released
	NextRecoverySeed(ctx context.Context, accountID uuid.UUID) (*DerivedSeed, error)
	// NextShareSeed derives the next share stream child seed and advances the
	// persisted counter before the value is released
	NextShareSeed(ctx context.Context, accountID uuid.UUID) (*DerivedSeed, error)

	// --- State objects ---

	// CreateObject inserts a version-0 state object. Returns
	// domain.ErrDuplicateSeed when the recovery stream seed is already taken.
	CreateObject(ctx context.Context, input CreateObjectInput) (*schema.StateObject, error)
	// DeactivateObject marks the object carrying nullifier inactive. Returns
	// domain.ErrNotFound or domain.ErrAlreadyInactive.
	DeactivateObject(ctx context.Context, nullifier string) (*schema.StateObject, error)
	// SupersedeObject atomically deactivates the object carrying oldNullifier
	// and inserts its successor. The successor version must be exactly one
	// above the old version or domain.ErrVersionConflict is returned.
	SupersedeObject(ctx context.Context, oldNullifier string, input CreateObjectInput) (*schema.StateObject, error)
	// GetActiveObjects returns the account's live objects, optionally filtered
	// by object type, in a stable order
	GetActiveObjects(ctx context.Context, accountID uuid.UUID, objectType *domain.ObjectType) ([]schema.StateObject, error)
	// GetObjectBySeed retrieves one object version by recovery stream seed, nil if absent
	GetObjectBySeed(ctx context.Context, recoveryStreamSeed string) (*schema.StateObject, error)
	// GetObjectByNullifier retrieves one object version by nullifier, nil if absent
	GetObjectByNullifier(ctx context.Context, nullifier string) (*schema.StateObject, error)

	// --- Idempotency ledger ---

	// RecordNullifierIfNew inserts a nullifier into the processed ledger.
	// Returns true when this call inserted it, false when it was already there.
	RecordNullifierIfNew(ctx context.Context, chain domain.Chain, nullifier string, blockNumber uint64) (bool, error)
	// RecordRecoveryIDIfNew inserts a recovery ID into the processed ledger.
	// Returns true when this call inserted it, false when it was already there.
	RecordRecoveryIDIfNew(ctx context.Context, chain domain.Chain, recoveryID string, blockNumber uint64) (bool, error)

	// --- Expected objects ---

	// ExpectObject registers an expected state object. Re-registering the same
	// recovery ID is a no-op.
	ExpectObject(ctx context.Context, input ExpectObjectInput) error
	// ExpectObjects bulk-registers expected state objects, used by backfills
	// to post a lookahead window in one round trip
	ExpectObjects(ctx context.Context, inputs []ExpectObjectInput) error
	// GetExpectation returns the expectation for recoveryID without consuming
	// it, nil if none exists
	GetExpectation(ctx context.Context, recoveryID string) (*schema.ExpectedStateObject, error)
	// ResolveExpectation consumes and returns the expectation for recoveryID,
	// nil if none exists. Absence is a valid outcome, not an error.
	ResolveExpectation(ctx context.Context, recoveryID string) (*schema.ExpectedStateObject, error)

	// --- Event application (reconciliation composites) ---

	// ApplyCreate applies a create event in one transaction: idempotency check,
	// seed resolution, object insert, expectation rotation. Returns
	// domain.ErrAlreadyProcessed when the event was applied by an earlier
	// delivery.
	ApplyCreate(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error)
	// ApplyNullify applies a pure nullify event in one transaction
	ApplyNullify(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error)
	// ApplySupersede applies a nullify-and-recreate event in one transaction
	ApplySupersede(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error)

	// --- Checkpoints & halt markers ---

	// GetCheckpoint retrieves the highest fully applied block number for a
	// chain, 0 when the chain has never been indexed
	GetCheckpoint(ctx context.Context, chain domain.Chain) (uint64, error)
	// GetCheckpointInfo retrieves the checkpoint together with its last update time
	GetCheckpointInfo(ctx context.Context, chain domain.Chain) (*CheckpointInfo, error)
	// AdvanceCheckpoint moves the chain checkpoint forward. Calls with a block
	// number at or below the stored value are no-ops.
	AdvanceCheckpoint(ctx context.Context, chain domain.Chain, blockNumber uint64) error
	// SetChainHalted records that a chain's worker stopped on a data error
	SetChainHalted(ctx context.Context, chain domain.Chain, reason string) error
	// GetChainHalted returns the halt reason for a chain, empty when running
	GetChainHalted(ctx context.Context, chain domain.Chain) (string, bool, error)
	// ClearChainHalted removes a chain's halt marker after operator intervention
	ClearChainHalted(ctx context.Context, chain domain.Chain) error

	// --- Audits ---

	// ListAccountIDs returns every registered account
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
	// FindLineageViolations returns lineages with more than one active object
	FindLineageViolations(ctx context.Context) ([]LineageViolation, error)
	// FindVersionGaps returns lineages whose stored versions are not the
	// contiguous range 0..max
	FindVersionGaps(ctx context.Context) ([]VersionGap, error)
	// ListStaleExpectations returns expectations registered before the cutoff
	ListStaleExpectations(ctx context.Context, cutoff time.Time) ([]schema.ExpectedStateObject, error)
}

// RegisterAccountInput carries a new account's master view seed
type RegisterAccountInput struct {
	AccountID    uuid.UUID
	OwnerAddress string
	Seed         string
}

// CreateObjectInput carries one state object version to insert
type CreateObjectInput struct {
	RecoveryStreamSeed string
	AccountID          uuid.UUID
	Chain              domain.Chain
	ObjectType         domain.ObjectType
	Version            uint64
	Nullifier          string
	ShareStreamSeed    string
	ShareStreamIndex   uint64
	OwnerAddress       string
	PublicShares       []string
	PrivateShares      []string
	Payload            datatypes.JSON
	CreatedBlock       uint64
}

// ExpectObjectInput carries an expected state object announcement
type ExpectObjectInput struct {
	RecoveryID         string
	AccountID          uuid.UUID
	RecoveryStreamSeed string
	ShareStreamSeed    string
}

// DerivedSeed is a child seed released by a derivation stream together with
// the index it was derived at
type DerivedSeed struct {
	Seed  string
	Index uint64
}

// CheckpointInfo is a chain checkpoint with its last update time
type CheckpointInfo struct {
	BlockNumber uint64
	UpdatedAt   time.Time
}

// LineageViolation reports a lineage holding more than one active object
type LineageViolation struct {
	AccountID   uuid.UUID         `gorm:"column:account_id"`
	ObjectType  domain.ObjectType `gorm:"column:object_type"`
	ActiveCount int64             `gorm:"column:active_count"`
}

// VersionGap reports a lineage whose version rows are not contiguous
type VersionGap struct {
	AccountID  uuid.UUID         `gorm:"column:account_id"`
	ObjectType domain.ObjectType `gorm:"column:object_type"`
	MaxVersion uint64            `gorm:"column:max_version"`
	Rows       int64             `gorm:"column:rows"`
}
