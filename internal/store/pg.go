package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/duskpool/dp-indexer/internal/logger"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/seeds"
	"github.com/duskpool/dp-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	// Set defaults if not provided
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the optimal batch size for bulk inserts to avoid
// PostgreSQL's "extended protocol limited to 65535 parameters" error.
//
// PostgreSQL's extended protocol has a hard limit of 65535 parameters per query.
// When doing batch inserts with GORM, each record consumes multiple parameters
// (one per field being inserted), and ON CONFLICT clauses may add additional parameters.
//
// Parameters:
//   - totalRecords: total number of records to insert
//   - fieldsPerRecord: number of fields/parameters per record
//
// Returns the safe batch size that won't exceed the parameter limit.
//
// Example with headroom of 1000:
//   - ExpectedStateObject struct: 5 fields → (65,535 - 1,000) / 5 = 12,907 records/batch
//
// The function uses a total headroom to account for batch-level overhead:
//   - GORM-added timestamp fields (created_at) across all records
//   - ON CONFLICT clause parameters
//   - Query metadata and internal GORM bookkeeping
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000 // Total parameter headroom for batch-level overhead

	// Reserve headroom from total available parameters
	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

// Ping verifies database connectivity
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// RegisterAccount stores a master view seed and posts the account's first
// expected object in the same transaction
func (s *pgStore) RegisterAccount(ctx context.Context, input RegisterAccountInput) (*schema.MasterViewSeed, error) {
	if _, err := seeds.ParseScalar(input.Seed); err != nil {
		return nil, fmt.Errorf("invalid master view seed: %w", err)
	}
	owner := domain.NormalizeAddress(input.OwnerAddress)

	var master schema.MasterViewSeed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Reject duplicate registrations for the same owner
		var existing schema.MasterViewSeed
		err := tx.Where("owner_address = ?", owner).First(&existing).Error
		if err == nil {
			master = existing
			return domain.ErrAccountExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check owner registration: %w", err)
		}

		// 2. Store the master view seed with both stream counters at zero
		accountID := input.AccountID
		if accountID == uuid.Nil {
			accountID = uuid.New()
		}
		master = schema.MasterViewSeed{
			AccountID:    accountID,
			OwnerAddress: owner,
			Seed:         input.Seed,
		}
		if err := tx.Create(&master).Error; err != nil {
			return fmt.Errorf("failed to create master view seed: %w", err)
		}

		// 3. Announce the account's first object so the reconciler can attach
		// shares without re-deriving them
		return rotateExpectationTx(tx, &master)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return &master, err
		}
		return nil, err
	}

	return &master, nil
}

// GetMasterViewSeed retrieves an account's master view seed, nil if absent
func (s *pgStore) GetMasterViewSeed(ctx context.Context, accountID uuid.UUID) (*schema.MasterViewSeed, error) {
	var master schema.MasterViewSeed
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&master).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if hasDBResolver(s.db) {
				// Retry against the primary in case of replica lag
				err = s.db.WithContext(ctx).Clauses(dbresolver.Write).Where("account_id = ?", accountID).First(&master).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, nil
					}
					return nil, fmt.Errorf("failed to get master view seed: %w", err)
				}
				return &master, nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get master view seed: %w", err)
	}
	return &master, nil
}

// GetMasterViewSeedByOwner retrieves a master view seed by owner address, nil if absent
func (s *pgStore) GetMasterViewSeedByOwner(ctx context.Context, ownerAddress string) (*schema.MasterViewSeed, error) {
	owner := domain.NormalizeAddress(ownerAddress)

	var master schema.MasterViewSeed
	err := s.db.WithContext(ctx).Where("owner_address = ?", owner).First(&master).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if hasDBResolver(s.db) {
				// Retry against the primary in case of replica lag
				err = s.db.WithContext(ctx).Clauses(dbresolver.Write).Where("owner_address = ?", owner).First(&master).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, nil
					}
					return nil, fmt.Errorf("failed to get master view seed: %w", err)
				}
				return &master, nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get master view seed: %w", err)
	}
	return &master, nil
}

// NextRecoverySeed derives the next recovery stream child seed for an account
func (s *pgStore) NextRecoverySeed(ctx context.Context, accountID uuid.UUID) (*DerivedSeed, error) {
	return s.nextSeed(ctx, accountID, seeds.StreamRecoverySeed)
}

// NextShareSeed derives the next share stream child seed for an account
func (s *pgStore) NextShareSeed(ctx context.Context, accountID uuid.UUID) (*DerivedSeed, error) {
	return s.nextSeed(ctx, accountID, seeds.StreamShareSeed)
}

func (s *pgStore) nextSeed(ctx context.Context, accountID uuid.UUID, selector seeds.StreamSelector) (*DerivedSeed, error) {
	var derived *DerivedSeed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMasterTx(tx, accountID)
		if err != nil {
			return err
		}
		if master == nil {
			return fmt.Errorf("%w: account %s", domain.ErrUnknownAccount, accountID)
		}
		derived, err = nextSeedTx(tx, master, selector)
		return err
	})
	if err != nil {
		return nil, err
	}
	return derived, nil
}

// CreateObject inserts a version-0 state object
func (s *pgStore) CreateObject(ctx context.Context, input CreateObjectInput) (*schema.StateObject, error) {
	var created *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		obj, err := insertObjectTx(tx, input)
		if err != nil {
			return err
		}
		created = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeactivateObject marks the object carrying nullifier inactive
func (s *pgStore) DeactivateObject(ctx context.Context, nullifier string) (*schema.StateObject, error) {
	var deactivated *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		obj, err := deactivateObjectTx(tx, nullifier)
		if err != nil {
			return err
		}
		deactivated = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deactivated, nil
}

// SupersedeObject atomically deactivates the object carrying oldNullifier and
// inserts its successor version
func (s *pgStore) SupersedeObject(ctx context.Context, oldNullifier string, input CreateObjectInput) (*schema.StateObject, error) {
	var successor *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := deactivateObjectTx(tx, oldNullifier)
		if err != nil {
			return err
		}
		if input.Version != old.Version+1 {
			return fmt.Errorf("%w: successor of version %d must carry version %d, got %d",
				domain.ErrVersionConflict, old.Version, old.Version+1, input.Version)
		}

		// Successor stays in the old object's lineage unless the caller says otherwise
		if input.AccountID == uuid.Nil {
			input.AccountID = old.AccountID
		}
		if input.ObjectType == "" {
			input.ObjectType = old.ObjectType
		}
		if input.Chain == "" {
			input.Chain = old.Chain
		}
		if input.OwnerAddress == "" {
			input.OwnerAddress = old.OwnerAddress
		}

		obj, err := insertObjectTx(tx, input)
		if err != nil {
			return err
		}
		successor = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

// GetActiveObjects returns the account's live objects in a stable order
func (s *pgStore) GetActiveObjects(ctx context.Context, accountID uuid.UUID, objectType *domain.ObjectType) ([]schema.StateObject, error) {
	query := s.db.WithContext(ctx).Where("account_id = ? AND active", accountID)
	if objectType != nil {
		query = query.Where("object_type = ?", *objectType)
	}

	var objects []schema.StateObject
	err := query.Order("object_type ASC, version ASC, recovery_stream_seed ASC").Find(&objects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active state objects: %w", err)
	}

	return objects, nil
}

// GetObjectBySeed retrieves one object version by recovery stream seed, nil if absent
func (s *pgStore) GetObjectBySeed(ctx context.Context, recoveryStreamSeed string) (*schema.StateObject, error) {
	var obj schema.StateObject
	err := s.db.WithContext(ctx).Where("recovery_stream_seed = ?", recoveryStreamSeed).First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if hasDBResolver(s.db) {
				// Retry against the primary in case of replica lag
				err = s.db.WithContext(ctx).Clauses(dbresolver.Write).Where("recovery_stream_seed = ?", recoveryStreamSeed).First(&obj).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, nil
					}
					return nil, fmt.Errorf("failed to get state object: %w", err)
				}
				return &obj, nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get state object: %w", err)
	}
	return &obj, nil
}

// GetObjectByNullifier retrieves one object version by nullifier, nil if absent
func (s *pgStore) GetObjectByNullifier(ctx context.Context, nullifier string) (*schema.StateObject, error) {
	var obj schema.StateObject
	err := s.db.WithContext(ctx).Where("nullifier = ?", nullifier).First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if hasDBResolver(s.db) {
				// Retry against the primary in case of replica lag
				err = s.db.WithContext(ctx).Clauses(dbresolver.Write).Where("nullifier = ?", nullifier).First(&obj).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, nil
					}
					return nil, fmt.Errorf("failed to get state object: %w", err)
				}
				return &obj, nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get state object: %w", err)
	}
	return &obj, nil
}

// RecordNullifierIfNew inserts a nullifier into the processed ledger
func (s *pgStore) RecordNullifierIfNew(ctx context.Context, chain domain.Chain, nullifier string, blockNumber uint64) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = recordNullifierTx(tx, chain, nullifier, blockNumber)
		return err
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// RecordRecoveryIDIfNew inserts a recovery ID into the processed ledger
func (s *pgStore) RecordRecoveryIDIfNew(ctx context.Context, chain domain.Chain, recoveryID string, blockNumber uint64) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = recordRecoveryIDTx(tx, chain, recoveryID, blockNumber)
		return err
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ExpectObject registers an expected state object. Re-registering the same
// recovery ID is a no-op.
func (s *pgStore) ExpectObject(ctx context.Context, input ExpectObjectInput) error {
	exp := schema.ExpectedStateObject{
		RecoveryID:         input.RecoveryID,
		AccountID:          input.AccountID,
		RecoveryStreamSeed: input.RecoveryStreamSeed,
		ShareStreamSeed:    input.ShareStreamSeed,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recovery_id"}},
		DoNothing: true,
	}).Create(&exp).Error
	if err != nil {
		return fmt.Errorf("failed to register expected object: %w", err)
	}
	return nil
}

// ExpectObjects bulk-registers expected state objects, used by backfills to
// post a lookahead window in one round trip
func (s *pgStore) ExpectObjects(ctx context.Context, inputs []ExpectObjectInput) error {
	if len(inputs) == 0 {
		return nil
	}

	records := make([]schema.ExpectedStateObject, 0, len(inputs))
	for _, input := range inputs {
		records = append(records, schema.ExpectedStateObject{
			RecoveryID:         input.RecoveryID,
			AccountID:          input.AccountID,
			RecoveryStreamSeed: input.RecoveryStreamSeed,
			ShareStreamSeed:    input.ShareStreamSeed,
		})
	}

	batchSize := calculateSafeBatchSize(len(records), 5)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recovery_id"}},
		DoNothing: true,
	}).CreateInBatches(records, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to register expected objects: %w", err)
	}
	return nil
}

// GetExpectation returns the expectation for recoveryID without consuming it,
// nil if none exists
func (s *pgStore) GetExpectation(ctx context.Context, recoveryID string) (*schema.ExpectedStateObject, error) {
	var exp schema.ExpectedStateObject
	err := s.db.WithContext(ctx).Where("recovery_id = ?", recoveryID).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up expectation: %w", err)
	}
	return &exp, nil
}

// ResolveExpectation consumes and returns the expectation for recoveryID, nil
// if none exists
func (s *pgStore) ResolveExpectation(ctx context.Context, recoveryID string) (*schema.ExpectedStateObject, error) {
	var resolved *schema.ExpectedStateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exp schema.ExpectedStateObject
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("recovery_id = ?", recoveryID).First(&exp).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to look up expectation: %w", err)
		}
		if err := tx.Where("recovery_id = ?", recoveryID).Delete(&schema.ExpectedStateObject{}).Error; err != nil {
			return fmt.Errorf("failed to consume expectation: %w", err)
		}
		resolved = &exp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// ApplyCreate applies a create event in a single transaction: idempotency
// check, seed resolution, object insert, expectation rotation
func (s *pgStore) ApplyCreate(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error) {
	if ev.EventKind != domain.EventKindCreate {
		return nil, fmt.Errorf("apply create: unexpected event kind %q", ev.EventKind)
	}

	var created *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Record the recovery ID; a prior delivery already applied this event
		// when the insert is a no-op
		inserted, err := recordRecoveryIDTx(tx, ev.Chain, ev.RecoveryID, ev.BlockNumber)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyProcessed
		}

		// 2. Attach seed material, consuming the expectation when on file
		resolved, err := resolveObjectSeedsTx(ctx, tx, ev, nil)
		if err != nil {
			return err
		}
		privateShares, shareIndex, err := deriveObjectShares(resolved.ShareStreamSeed, len(ev.PublicShares))
		if err != nil {
			return err
		}

		// 3. Insert the version-0 object
		obj, err := insertObjectTx(tx, CreateObjectInput{
			RecoveryStreamSeed: resolved.RecoveryStreamSeed,
			AccountID:          resolved.AccountID,
			Chain:              ev.Chain,
			ObjectType:         ev.ObjectType,
			Version:            0,
			Nullifier:          ev.Nullifier,
			ShareStreamSeed:    resolved.ShareStreamSeed,
			ShareStreamIndex:   shareIndex,
			OwnerAddress:       domain.NormalizeAddress(ev.OwnerAddress),
			PublicShares:       ev.PublicShares,
			PrivateShares:      privateShares,
			Payload:            datatypes.JSON(ev.Payload),
			CreatedBlock:       ev.BlockNumber,
		})
		if err != nil {
			return err
		}
		created = obj
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ApplyNullify applies a pure nullify event in a single transaction
func (s *pgStore) ApplyNullify(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error) {
	if ev.EventKind != domain.EventKindNullify {
		return nil, fmt.Errorf("apply nullify: unexpected event kind %q", ev.EventKind)
	}

	var nullified *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Record the spent nullifier; a prior delivery already applied this
		// event when the insert is a no-op
		inserted, err := recordNullifierTx(tx, ev.Chain, ev.OldNullifier, ev.BlockNumber)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyProcessed
		}

		// 2. Deactivate the spent object
		obj, err := deactivateObjectTx(tx, ev.OldNullifier)
		if err != nil {
			return err
		}
		nullified = obj
		return nil
	})
	if err != nil {
		return nil, err
	}

	return nullified, nil
}

// ApplySupersede applies a nullify-and-recreate event in a single transaction
func (s *pgStore) ApplySupersede(ctx context.Context, ev *domain.DarkpoolEvent) (*schema.StateObject, error) {
	if ev.EventKind != domain.EventKindNullifyAndRecreate {
		return nil, fmt.Errorf("apply supersede: unexpected event kind %q", ev.EventKind)
	}

	var successor *schema.StateObject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Record the spent nullifier; a prior delivery already applied this
		// event when the insert is a no-op. The successor's recovery ID joins
		// the ledger in the same breath.
		inserted, err := recordNullifierTx(tx, ev.Chain, ev.OldNullifier, ev.BlockNumber)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyProcessed
		}
		if _, err := recordRecoveryIDTx(tx, ev.Chain, ev.RecoveryID, ev.BlockNumber); err != nil {
			return err
		}

		// 2. Deactivate the spent version and check the successor lines up
		old, err := deactivateObjectTx(tx, ev.OldNullifier)
		if err != nil {
			return err
		}
		if ev.NewVersion != old.Version+1 {
			return fmt.Errorf("%w: successor of version %d must carry version %d, got %d",
				domain.ErrVersionConflict, old.Version, old.Version+1, ev.NewVersion)
		}

		// 3. Attach seed material for the successor
		resolved, err := resolveObjectSeedsTx(ctx, tx, ev, &old.AccountID)
		if err != nil {
			return err
		}
		privateShares, shareIndex, err := deriveObjectShares(resolved.ShareStreamSeed, len(ev.PublicShares))
		if err != nil {
			return err
		}

		owner := domain.NormalizeAddress(ev.OwnerAddress)
		if owner == "" {
			owner = old.OwnerAddress
		}
		payload := datatypes.JSON(ev.Payload)
		if len(payload) == 0 {
			payload = old.Payload
		}

		// 4. Insert the successor version in the old object's lineage
		obj, err := insertObjectTx(tx, CreateObjectInput{
			RecoveryStreamSeed: resolved.RecoveryStreamSeed,
			AccountID:          old.AccountID,
			Chain:              ev.Chain,
			ObjectType:         old.ObjectType,
			Version:            ev.NewVersion,
			Nullifier:          ev.Nullifier,
			ShareStreamSeed:    resolved.ShareStreamSeed,
			ShareStreamIndex:   shareIndex,
			OwnerAddress:       owner,
			PublicShares:       ev.PublicShares,
			PrivateShares:      privateShares,
			Payload:            payload,
			CreatedBlock:       ev.BlockNumber,
		})
		if err != nil {
			return err
		}
		successor = obj
		return nil
	})
	if err != nil {
		return nil, err
	}

	return successor, nil
}

// GetCheckpoint retrieves the highest fully applied block number for a chain
func (s *pgStore) GetCheckpoint(ctx context.Context, chain domain.Chain) (uint64, error) {
	info, err := s.GetCheckpointInfo(ctx, chain)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}
	return info.BlockNumber, nil
}

// GetCheckpointInfo retrieves the checkpoint together with its last update time
func (s *pgStore) GetCheckpointInfo(ctx context.Context, chain domain.Chain) (*CheckpointInfo, error) {
	key := fmt.Sprintf("checkpoint:%s", chain)

	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}

	return &CheckpointInfo{BlockNumber: blockNumber, UpdatedAt: kv.UpdatedAt}, nil
}

// AdvanceCheckpoint moves the chain checkpoint forward. Calls with a block
// number at or below the stored value are no-ops.
func (s *pgStore) AdvanceCheckpoint(ctx context.Context, chain domain.Chain, blockNumber uint64) error {
	key := fmt.Sprintf("checkpoint:%s", chain)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var kv schema.KeyValueStore
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("key = ?", key).First(&kv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				kv = schema.KeyValueStore{
					Key:   key,
					Value: strconv.FormatUint(blockNumber, 10),
				}
				if err := tx.Create(&kv).Error; err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to read checkpoint: %w", err)
		}

		current, err := strconv.ParseUint(kv.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse checkpoint: %w", err)
		}
		if blockNumber <= current {
			return nil
		}

		kv.Value = strconv.FormatUint(blockNumber, 10)
		if err := tx.Save(&kv).Error; err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		return nil
	})
}

// SetChainHalted records that a chain's worker stopped on a data error
func (s *pgStore) SetChainHalted(ctx context.Context, chain domain.Chain, reason string) error {
	key := fmt.Sprintf("halted:%s", chain)

	kv := schema.KeyValueStore{
		Key:   key,
		Value: reason,
	}
	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set halt marker: %w", err)
	}

	return nil
}

// GetChainHalted returns the halt reason for a chain, false when running
func (s *pgStore) GetChainHalted(ctx context.Context, chain domain.Chain) (string, bool, error) {
	key := fmt.Sprintf("halted:%s", chain)

	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get halt marker: %w", err)
	}

	return kv.Value, true, nil
}

// ClearChainHalted removes a chain's halt marker after operator intervention
func (s *pgStore) ClearChainHalted(ctx context.Context, chain domain.Chain) error {
	key := fmt.Sprintf("halted:%s", chain)

	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&schema.KeyValueStore{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear halt marker: %w", err)
	}

	return nil
}

// ListAccountIDs returns every registered account
func (s *pgStore) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&schema.MasterViewSeed{}).
		Order("created_at ASC").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return ids, nil
}

// FindLineageViolations returns lineages holding more than one active object
func (s *pgStore) FindLineageViolations(ctx context.Context) ([]LineageViolation, error) {
	var rows []LineageViolation
	err := s.db.WithContext(ctx).Model(&schema.StateObject{}).
		Select("account_id, object_type, COUNT(*) AS active_count").
		Where("active").
		Group("account_id, object_type").
		Having("COUNT(*) > 1").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan lineage violations: %w", err)
	}
	return rows, nil
}

// FindVersionGaps returns lineages whose stored versions are not the
// contiguous range 0..max
func (s *pgStore) FindVersionGaps(ctx context.Context) ([]VersionGap, error) {
	var rows []VersionGap
	err := s.db.WithContext(ctx).Model(&schema.StateObject{}).
		Select("account_id, object_type, MAX(version) AS max_version, COUNT(*) AS version_rows").
		Group("account_id, object_type").
		Having("MAX(version) + 1 <> COUNT(*)").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan version gaps: %w", err)
	}
	return rows, nil
}

// ListStaleExpectations returns expectations registered before the cutoff
func (s *pgStore) ListStaleExpectations(ctx context.Context, cutoff time.Time) ([]schema.ExpectedStateObject, error) {
	var rows []schema.ExpectedStateObject
	err := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale expectations: %w", err)
	}
	return rows, nil
}

// resolvedSeeds carries the seed material attached to a state object during
// event application
type resolvedSeeds struct {
	AccountID          uuid.UUID
	RecoveryStreamSeed string
	ShareStreamSeed    string
	FromExpectation    bool
}

// resolveObjectSeedsTx attaches seed material to the object referenced by an
// event. The expectation registered for the event's recovery ID is consumed
// when present; otherwise the seeds are re-derived from the owner's master
// view seed. Both paths post the account's next expectation before returning.
func resolveObjectSeedsTx(ctx context.Context, tx *gorm.DB, ev *domain.DarkpoolEvent, accountHint *uuid.UUID) (*resolvedSeeds, error) {
	var exp schema.ExpectedStateObject
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("recovery_id = ?", ev.RecoveryID).First(&exp).Error
	switch {
	case err == nil:
		if err := tx.Where("recovery_id = ?", exp.RecoveryID).Delete(&schema.ExpectedStateObject{}).Error; err != nil {
			return nil, fmt.Errorf("failed to consume expectation: %w", err)
		}
		master, err := lockMasterTx(tx, exp.AccountID)
		if err != nil {
			return nil, err
		}
		if master == nil {
			return nil, fmt.Errorf("%w: expectation %s references unregistered account %s",
				domain.ErrUnknownAccount, exp.RecoveryID, exp.AccountID)
		}
		if err := rotateExpectationTx(tx, master); err != nil {
			return nil, err
		}
		return &resolvedSeeds{
			AccountID:          exp.AccountID,
			RecoveryStreamSeed: exp.RecoveryStreamSeed,
			ShareStreamSeed:    exp.ShareStreamSeed,
			FromExpectation:    true,
		}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No expectation on file, re-derive below
	default:
		return nil, fmt.Errorf("failed to look up expectation: %w", err)
	}

	logger.WarnCtx(ctx, "No expectation on file, re-deriving object seeds",
		zap.String("recovery_id", ev.RecoveryID),
		zap.String("owner_address", ev.OwnerAddress))

	var master *schema.MasterViewSeed
	if accountHint != nil {
		master, err = lockMasterTx(tx, *accountHint)
	} else {
		master, err = lockMasterByOwnerTx(tx, domain.NormalizeAddress(ev.OwnerAddress))
	}
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, fmt.Errorf("%w: no master view seed for owner %s", domain.ErrUnknownAccount, ev.OwnerAddress)
	}
	masterSeed, err := seeds.ParseScalar(master.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master view seed: %w", err)
	}

	// Without an expectation on file the event can only refer to the most
	// recently announced child seed.
	index := master.RecoverySeedCsprngIndex
	advance := false
	if index == 0 {
		advance = true
	} else {
		index--
	}
	recoverySeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamRecoverySeed, index)
	if seeds.FormatScalar(seeds.RecoveryID(recoverySeed)) != ev.RecoveryID {
		return nil, fmt.Errorf("%w: recovery id %s is not derivable for account %s",
			domain.ErrUnknownAccount, ev.RecoveryID, master.AccountID)
	}
	shareSeed := seeds.DeriveStreamSeed(masterSeed, seeds.StreamShareSeed, index)

	if advance {
		if err := advanceSeedCountersTx(tx, master, index+1, index+1); err != nil {
			return nil, err
		}
	}
	if err := rotateExpectationTx(tx, master); err != nil {
		return nil, err
	}

	return &resolvedSeeds{
		AccountID:          master.AccountID,
		RecoveryStreamSeed: seeds.FormatScalar(recoverySeed),
		ShareStreamSeed:    seeds.FormatScalar(shareSeed),
	}, nil
}

// rotateExpectationTx derives the account's next child seeds and posts the
// expectation for them. The caller must hold the master row lock.
func rotateExpectationTx(tx *gorm.DB, master *schema.MasterViewSeed) error {
	recovery, err := nextSeedTx(tx, master, seeds.StreamRecoverySeed)
	if err != nil {
		return err
	}
	share, err := nextSeedTx(tx, master, seeds.StreamShareSeed)
	if err != nil {
		return err
	}
	recoverySeed, err := seeds.ParseScalar(recovery.Seed)
	if err != nil {
		return fmt.Errorf("failed to parse derived seed: %w", err)
	}

	exp := schema.ExpectedStateObject{
		RecoveryID:         seeds.FormatScalar(seeds.RecoveryID(recoverySeed)),
		AccountID:          master.AccountID,
		RecoveryStreamSeed: recovery.Seed,
		ShareStreamSeed:    share.Seed,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recovery_id"}},
		DoNothing: true,
	}).Create(&exp).Error
	if err != nil {
		return fmt.Errorf("failed to register expected object: %w", err)
	}
	return nil
}

// nextSeedTx derives the child seed at the stream's current index and advances
// the persisted counter in the same transaction, so the derived value never
// escapes without it. The caller must hold the master row lock.
func nextSeedTx(tx *gorm.DB, master *schema.MasterViewSeed, selector seeds.StreamSelector) (*DerivedSeed, error) {
	masterSeed, err := seeds.ParseScalar(master.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master view seed: %w", err)
	}

	var index uint64
	var column string
	switch selector {
	case seeds.StreamRecoverySeed:
		index = master.RecoverySeedCsprngIndex
		column = "recovery_seed_csprng_index"
	case seeds.StreamShareSeed:
		index = master.ShareSeedCsprngIndex
		column = "share_seed_csprng_index"
	default:
		return nil, fmt.Errorf("unknown seed stream %q", selector)
	}

	child := seeds.DeriveStreamSeed(masterSeed, selector, index)
	err = tx.Model(&schema.MasterViewSeed{}).
		Where("account_id = ?", master.AccountID).
		Update(column, index+1).Error
	if err != nil {
		return nil, fmt.Errorf("failed to advance %s counter: %w", selector, err)
	}

	switch selector {
	case seeds.StreamRecoverySeed:
		master.RecoverySeedCsprngIndex = index + 1
	case seeds.StreamShareSeed:
		master.ShareSeedCsprngIndex = index + 1
	}

	return &DerivedSeed{Seed: seeds.FormatScalar(child), Index: index}, nil
}

// advanceSeedCountersTx persists both stream counters. The caller must hold
// the master row lock.
func advanceSeedCountersTx(tx *gorm.DB, master *schema.MasterViewSeed, recoveryIndex, shareIndex uint64) error {
	err := tx.Model(&schema.MasterViewSeed{}).
		Where("account_id = ?", master.AccountID).
		Updates(map[string]interface{}{
			"recovery_seed_csprng_index": recoveryIndex,
			"share_seed_csprng_index":    shareIndex,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to advance seed counters: %w", err)
	}

	master.RecoverySeedCsprngIndex = recoveryIndex
	master.ShareSeedCsprngIndex = shareIndex
	return nil
}

// lockMasterTx loads a master view seed row under FOR UPDATE, nil if absent
func lockMasterTx(tx *gorm.DB, accountID uuid.UUID) (*schema.MasterViewSeed, error) {
	var master schema.MasterViewSeed
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("account_id = ?", accountID).First(&master).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock master view seed: %w", err)
	}
	return &master, nil
}

// lockMasterByOwnerTx loads a master view seed row by owner address under FOR
// UPDATE, nil if absent
func lockMasterByOwnerTx(tx *gorm.DB, ownerAddress string) (*schema.MasterViewSeed, error) {
	var master schema.MasterViewSeed
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("owner_address = ?", ownerAddress).First(&master).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock master view seed: %w", err)
	}
	return &master, nil
}

// insertObjectTx inserts one state object version. The insert is guarded by
// the recovery stream seed primary key and by the one-active-object-per-lineage
// rule.
func insertObjectTx(tx *gorm.DB, input CreateObjectInput) (*schema.StateObject, error) {
	var live int64
	err := tx.Model(&schema.StateObject{}).
		Where("account_id = ? AND object_type = ? AND active", input.AccountID, input.ObjectType).
		Count(&live).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active objects: %w", err)
	}
	if live > 0 {
		return nil, fmt.Errorf("%w: account %s already holds an active %s",
			domain.ErrDuplicateSeed, input.AccountID, input.ObjectType)
	}

	obj := schema.StateObject{
		RecoveryStreamSeed: input.RecoveryStreamSeed,
		AccountID:          input.AccountID,
		Chain:              input.Chain,
		ObjectType:         input.ObjectType,
		Active:             true,
		Version:            input.Version,
		Nullifier:          input.Nullifier,
		ShareStreamSeed:    input.ShareStreamSeed,
		ShareStreamIndex:   input.ShareStreamIndex,
		OwnerAddress:       input.OwnerAddress,
		PublicShares:       schema.Shares(input.PublicShares),
		PrivateShares:      schema.Shares(input.PrivateShares),
		Payload:            input.Payload,
		CreatedBlock:       input.CreatedBlock,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recovery_stream_seed"}},
		DoNothing: true,
	}).Create(&obj)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create state object: %w", result.Error)
	}
	// A no-op insert means the recovery stream seed is already taken
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: state object %s", domain.ErrDuplicateSeed, input.RecoveryStreamSeed)
	}

	return &obj, nil
}

// deactivateObjectTx marks the object carrying nullifier inactive under a row
// lock
func deactivateObjectTx(tx *gorm.DB, nullifier string) (*schema.StateObject, error) {
	var obj schema.StateObject
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("nullifier = ?", nullifier).First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no state object carries nullifier %s", domain.ErrNotFound, nullifier)
		}
		return nil, fmt.Errorf("failed to look up state object: %w", err)
	}
	if !obj.Active {
		return nil, fmt.Errorf("%w: state object %s", domain.ErrAlreadyInactive, obj.RecoveryStreamSeed)
	}

	if err := tx.Model(&obj).Update("active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate state object: %w", err)
	}
	obj.Active = false

	return &obj, nil
}

// recordNullifierTx inserts a nullifier into the processed ledger, reporting
// whether this call inserted it
func recordNullifierTx(tx *gorm.DB, chain domain.Chain, nullifier string, blockNumber uint64) (bool, error) {
	row := schema.ProcessedNullifier{
		Nullifier:   nullifier,
		Chain:       chain,
		BlockNumber: blockNumber,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nullifier"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record nullifier: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// recordRecoveryIDTx inserts a recovery ID into the processed ledger, reporting
// whether this call inserted it
func recordRecoveryIDTx(tx *gorm.DB, chain domain.Chain, recoveryID string, blockNumber uint64) (bool, error) {
	row := schema.ProcessedRecoveryID{
		RecoveryID:  recoveryID,
		Chain:       chain,
		BlockNumber: blockNumber,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recovery_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record recovery id: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// deriveObjectShares draws one private share per public share from the start
// of the object's share stream
func deriveObjectShares(shareStreamSeed string, count int) ([]string, uint64, error) {
	seed, err := seeds.ParseScalar(shareStreamSeed)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse share stream seed: %w", err)
	}
	stream := seeds.NewShareStream(seed, 0)
	privateShares := seeds.FormatScalars(stream.Draw(count))
	return privateShares, stream.Index(), nil
}
