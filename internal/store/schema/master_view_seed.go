package schema

import (
	"time"

	"github.com/google/uuid"
)

// MasterViewSeed represents the master_view_seeds table - the root viewing
// secret of one darkpool account plus the persisted derivation counters of its
// two child-seed streams. The counters are the next unused index of each
// stream; they only ever move forward.
type MasterViewSeed struct {
	// AccountID is the account identifier assigned at registration
	AccountID uuid.UUID `gorm:"column:account_id;primaryKey;type:uuid"`
	// OwnerAddress is the wallet address controlling the account
	OwnerAddress string `gorm:"column:owner_address;not null;uniqueIndex;type:text"`
	// Seed is the master viewing seed (scalar, stored as exact decimal)
	Seed string `gorm:"column:seed;not null;type:numeric(78,0)"`
	// RecoverySeedCsprngIndex is the next unused index of the recovery seed stream
	RecoverySeedCsprngIndex uint64 `gorm:"column:recovery_seed_csprng_index;not null;default:0"`
	// ShareSeedCsprngIndex is the next unused index of the share seed stream
	ShareSeedCsprngIndex uint64 `gorm:"column:share_seed_csprng_index;not null;default:0"`
	// CreatedAt is the timestamp when the account was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the derivation counters last advanced
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the MasterViewSeed model
func (MasterViewSeed) TableName() string {
	return "master_view_seeds"
}
