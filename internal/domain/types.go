package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainArbitrumOne     Chain = "eip155:42161"
	ChainBase            Chain = "eip155:8453"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainArbitrumOne ||
		chain == ChainBase ||
		chain == ChainEthereumSepolia
}

// ChainID returns the numeric EVM chain ID encoded in the CAIP-2 identifier
func (c Chain) ChainID() (uint64, bool) {
	parts := strings.Split(string(c), ":")
	if len(parts) != 2 || parts[0] != "eip155" {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ObjectType represents the kind of encrypted state object a darkpool account holds
type ObjectType string

const (
	ObjectTypeBalance ObjectType = "balance"
	ObjectTypeIntent  ObjectType = "intent"
)

// IsValidObjectType checks if an object type is valid
func IsValidObjectType(t ObjectType) bool {
	return t == ObjectTypeBalance || t == ObjectTypeIntent
}

// EventKind represents the state transition class of a darkpool event
type EventKind string

const (
	// EventKindCreate introduces a brand-new state object (deposit into an
	// empty balance, new intent placement)
	EventKindCreate EventKind = "create"

	// EventKindNullify consumes an object with no successor (intent cancellation)
	EventKindNullify EventKind = "nullify"

	// EventKindNullifyAndRecreate consumes an object and introduces its
	// successor version in the same transition (deposit, withdrawal, match
	// settlement, fee payment)
	EventKindNullifyAndRecreate EventKind = "nullify_and_recreate"
)

// DarkpoolEvent represents a normalized darkpool state transition event.
// This is the standard format published to NATS. All 256-bit quantities travel
// as decimal strings so they round-trip exactly.
type DarkpoolEvent struct {
	Chain        Chain      `json:"chain"`                   // e.g., "eip155:42161"
	EventKind    EventKind  `json:"event_kind"`              // create, nullify, nullify_and_recreate
	ObjectType   ObjectType `json:"object_type,omitempty"`   // balance or intent (empty for pure nullify)
	RecoveryID   string     `json:"recovery_id,omitempty"`   // recovery identifier of the (new) object
	Nullifier    string     `json:"nullifier,omitempty"`     // nullifier of the (new) object
	OldNullifier string     `json:"old_nullifier,omitempty"` // nullifier being spent (nullify / nullify_and_recreate)
	NewVersion   uint64     `json:"new_version,omitempty"`   // version of the successor object
	OwnerAddress string     `json:"owner_address,omitempty"` // owner wallet address
	PublicShares []string   `json:"public_shares,omitempty"` // public secret shares, decimal strings
	Payload      []byte     `json:"payload,omitempty"`       // typed Balance/Intent payload, JSON-encoded
	TxHash       string     `json:"tx_hash"`                 // transaction hash
	BlockNumber  uint64     `json:"block_number"`            // block number
	BlockHash    string     `json:"block_hash,omitempty"`    // block hash
	LogIndex     uint       `json:"log_index"`               // log index in the block (for ordering)
	Timestamp    time.Time  `json:"timestamp"`               // block timestamp
}

// Valid checks the per-kind field requirements
func (e *DarkpoolEvent) Valid() bool {
	if !IsValidChain(e.Chain) {
		return false
	}

	switch e.EventKind {
	case EventKindCreate:
		// A create carries the full object identity and must start at version zero
		if !validScalar(e.RecoveryID) || !validScalar(e.Nullifier) {
			return false
		}
		if e.OldNullifier != "" || e.NewVersion != 0 {
			return false
		}
		if !IsValidObjectType(e.ObjectType) {
			return false
		}
		if !common.IsHexAddress(e.OwnerAddress) || e.OwnerAddress == ETHEREUM_ZERO_ADDRESS {
			return false
		}
		if !validScalars(e.PublicShares) {
			return false
		}
	case EventKindNullify:
		// A pure nullify names only the nullifier being spent
		if !validScalar(e.OldNullifier) {
			return false
		}
		if e.RecoveryID != "" || e.Nullifier != "" || len(e.PublicShares) > 0 {
			return false
		}
	case EventKindNullifyAndRecreate:
		// A supersession spends the old nullifier and fully describes the successor
		if !validScalar(e.OldNullifier) || !validScalar(e.RecoveryID) || !validScalar(e.Nullifier) {
			return false
		}
		if e.NewVersion == 0 {
			return false
		}
		if !IsValidObjectType(e.ObjectType) {
			return false
		}
		if !validScalars(e.PublicShares) {
			return false
		}
	default:
		return false
	}

	return true
}

// BlockEvents groups the darkpool events of one finalized block. The indexer
// applies the events in order and advances the chain checkpoint to BlockNumber
// once all of them have been committed.
type BlockEvents struct {
	Chain       Chain           `json:"chain"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Events      []DarkpoolEvent `json:"events"`
}

// Valid checks the envelope and every contained event
func (b *BlockEvents) Valid() bool {
	if !IsValidChain(b.Chain) {
		return false
	}
	for i := range b.Events {
		ev := &b.Events[i]
		if ev.Chain != b.Chain || ev.BlockNumber != b.BlockNumber {
			return false
		}
		if !ev.Valid() {
			return false
		}
	}
	return true
}

// BalancePayload is the cleartext metadata of a balance state object
type BalancePayload struct {
	Mint                string `json:"mint"`
	OwnerAddress        string `json:"owner_address"`
	RelayerFeeRecipient string `json:"relayer_fee_recipient"`
	OneTimeAuthority    string `json:"one_time_authority,omitempty"`
	ProtocolFee         string `json:"protocol_fee"`
	RelayerFee          string `json:"relayer_fee"`
	Amount              string `json:"amount"`
	AllowPublicFills    bool   `json:"allow_public_fills"`
}

// IntentPayload is the cleartext metadata of an intent (order) state object
type IntentPayload struct {
	InputMint                   string `json:"input_mint"`
	OutputMint                  string `json:"output_mint"`
	MinPrice                    string `json:"min_price"`
	InputAmount                 string `json:"input_amount"`
	MatchingPool                string `json:"matching_pool"`
	AllowExternalMatches        bool   `json:"allow_external_matches"`
	MinFillSize                 string `json:"min_fill_size"`
	PrecomputeCancellationProof bool   `json:"precompute_cancellation_proof"`
}

// NormalizeAddress normalizes an EVM address to its EIP-55 checksum form
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") {
		return common.HexToAddress(address).String()
	}
	return address
}

var scalarPattern = regexp.MustCompile(`^[0-9]+$`)

// IsValidScalar checks that s is a non-empty base-10 integer string
func IsValidScalar(s string) bool {
	return scalarPattern.MatchString(s)
}

func validScalar(s string) bool {
	return IsValidScalar(s)
}

func validScalars(ss []string) bool {
	if len(ss) == 0 {
		return false
	}
	for _, s := range ss {
		if !validScalar(s) {
			return false
		}
	}
	return true
}
