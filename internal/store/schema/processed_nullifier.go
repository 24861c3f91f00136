package schema

import (
	"time"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// ProcessedNullifier represents the processed_nullifiers table - the
// insert-once idempotency ledger of nullifier spends. A nullifier row exists
// from the first delivery of its event onward and is never updated or
// deleted, so redeliveries detect themselves atomically with the state
// mutation they would repeat.
type ProcessedNullifier struct {
	// Nullifier is the spent nullifier (scalar, exact decimal)
	Nullifier string `gorm:"column:nullifier;primaryKey;type:numeric(78,0)"`
	// Chain identifies the blockchain network the spend was observed on
	Chain domain.Chain `gorm:"column:chain;not null;type:text"`
	// BlockNumber is the block containing the spend
	BlockNumber uint64 `gorm:"column:block_number;not null"`
	// CreatedAt is the timestamp when the spend was first applied
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ProcessedNullifier model
func (ProcessedNullifier) TableName() string {
	return "processed_nullifiers"
}
