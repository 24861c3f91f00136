package schema

import (
	"time"

	"github.com/google/uuid"
)

// ExpectedStateObject represents the expected_state_objects table - a
// pre-registered announcement that an object with the given recovery ID is
// about to appear on-chain. When the matching create event arrives the row is
// consumed and its seeds are attached to the stored object instead of being
// re-derived. Unconsumed rows are harmless.
type ExpectedStateObject struct {
	// RecoveryID is the recovery identifier the on-chain event will carry
	RecoveryID string `gorm:"column:recovery_id;primaryKey;type:numeric(78,0)"`
	// AccountID references the account expecting the object
	AccountID uuid.UUID `gorm:"column:account_id;not null;type:uuid;index"`
	// RecoveryStreamSeed is the seed the expected object will be stored under
	RecoveryStreamSeed string `gorm:"column:recovery_stream_seed;not null;type:numeric(78,0)"`
	// ShareStreamSeed seeds the expected object's private share stream
	ShareStreamSeed string `gorm:"column:share_stream_seed;not null;type:numeric(78,0)"`
	// CreatedAt is the timestamp when the expectation was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ExpectedStateObject model
func (ExpectedStateObject) TableName() string {
	return "expected_state_objects"
}
