package schema

import (
	"time"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// ProcessedRecoveryID represents the processed_recovery_ids table - the
// insert-once idempotency ledger of object creations, keyed by the recovery
// ID the create event carried. Same contract as ProcessedNullifier.
type ProcessedRecoveryID struct {
	// RecoveryID is the recovery identifier of the created object
	RecoveryID string `gorm:"column:recovery_id;primaryKey;type:numeric(78,0)"`
	// Chain identifies the blockchain network the creation was observed on
	Chain domain.Chain `gorm:"column:chain;not null;type:text"`
	// BlockNumber is the block containing the creation
	BlockNumber uint64 `gorm:"column:block_number;not null"`
	// CreatedAt is the timestamp when the creation was first applied
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ProcessedRecoveryID model
func (ProcessedRecoveryID) TableName() string {
	return "processed_recovery_ids"
}
