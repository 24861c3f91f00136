package schema

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// Shares is a slice of scalar secret shares, each an exact decimal string,
// stored as JSONB in PostgreSQL
type Shares []string

// Scan implements the sql.Scanner interface for reading from database
func (s *Shares) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for writing to database
func (s Shares) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// StateObject represents the state_objects table - one immutable version of an
// encrypted darkpool state object. An object lineage (account + object type)
// accumulates one row per version; supersession deactivates the old row and
// inserts the successor, so at most one row per lineage is active. The
// recovery stream seed never changes once a row is written.
type StateObject struct {
	// RecoveryStreamSeed uniquely identifies this object version (scalar, exact decimal)
	RecoveryStreamSeed string `gorm:"column:recovery_stream_seed;primaryKey;type:numeric(78,0)"`
	// AccountID references the owning account
	AccountID uuid.UUID `gorm:"column:account_id;not null;type:uuid;index:idx_state_objects_account_type,priority:1;uniqueIndex:idx_state_objects_active_lineage,priority:1,where:active"`
	// Chain identifies the blockchain network the object was observed on (e.g., "eip155:42161")
	Chain domain.Chain `gorm:"column:chain;not null;type:text"`
	// ObjectType identifies the kind of state object (balance, intent)
	ObjectType domain.ObjectType `gorm:"column:object_type;not null;type:text;index:idx_state_objects_account_type,priority:2;uniqueIndex:idx_state_objects_active_lineage,priority:2,where:active"`
	// Active indicates whether this version is the live tip of its lineage
	Active bool `gorm:"column:active;not null;default:true"`
	// Version is the supersession count, starting at 0 for a freshly created object
	Version uint64 `gorm:"column:version;not null;default:0"`
	// Nullifier is the value whose on-chain spend deactivates this version
	Nullifier string `gorm:"column:nullifier;not null;uniqueIndex;type:numeric(78,0)"`
	// ShareStreamSeed seeds the CSPRNG that produced this version's private shares
	ShareStreamSeed string `gorm:"column:share_stream_seed;not null;type:numeric(78,0)"`
	// ShareStreamIndex is the next unused draw index of the share stream
	ShareStreamIndex uint64 `gorm:"column:share_stream_index;not null;default:0"`
	// OwnerAddress is the wallet address controlling the object
	OwnerAddress string `gorm:"column:owner_address;not null;type:text"`
	// PublicShares are the public secret shares observed on-chain
	PublicShares Shares `gorm:"column:public_shares;type:jsonb"`
	// PrivateShares are the private secret shares recovered from the share stream
	PrivateShares Shares `gorm:"column:private_shares;type:jsonb"`
	// Payload is the typed cleartext metadata (Balance or Intent payload)
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// CreatedBlock is the block number of the transition that introduced this version
	CreatedBlock uint64 `gorm:"column:created_block;not null;default:0"`
	// CreatedAt is the timestamp when this version was indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row last changed (deactivation)
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the StateObject model
func (StateObject) TableName() string {
	return "state_objects"
}
