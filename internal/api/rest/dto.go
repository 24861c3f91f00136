package rest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/store/schema"
)

// HealthResponse represents the health status of the API and the chains it tracks
type HealthResponse struct {
	Status string        `json:"status"`
	Chains []ChainHealth `json:"chains,omitempty"`
}

// ChainHealth reports one chain's checkpoint position and halt state
type ChainHealth struct {
	Chain               string     `json:"chain"`
	Checkpoint          uint64     `json:"checkpoint"`
	CheckpointUpdatedAt *time.Time `json:"checkpoint_updated_at,omitempty"`
	Halted              bool       `json:"halted"`
	HaltReason          string     `json:"halt_reason,omitempty"`
}

// StateObjectResponse represents one recovered state object version. Private
// shares are included; the API serves the account holder's own recovery
// surface, not a public explorer.
type StateObjectResponse struct {
	RecoveryStreamSeed string          `json:"recovery_stream_seed"`
	AccountID          uuid.UUID       `json:"account_id"`
	Chain              string          `json:"chain"`
	ObjectType         string          `json:"object_type"`
	Active             bool            `json:"active"`
	Version            uint64          `json:"version"`
	Nullifier          string          `json:"nullifier"`
	ShareStreamIndex   uint64          `json:"share_stream_index"`
	OwnerAddress       string          `json:"owner_address"`
	PublicShares       []string        `json:"public_shares"`
	PrivateShares      []string        `json:"private_shares"`
	Payload            json.RawMessage `json:"payload,omitempty"`
	CreatedBlock       uint64          `json:"created_block"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// newStateObjectResponse converts a stored state object into its API form
func newStateObjectResponse(obj *schema.StateObject) StateObjectResponse {
	return StateObjectResponse{
		RecoveryStreamSeed: obj.RecoveryStreamSeed,
		AccountID:          obj.AccountID,
		Chain:              string(obj.Chain),
		ObjectType:         string(obj.ObjectType),
		Active:             obj.Active,
		Version:            obj.Version,
		Nullifier:          obj.Nullifier,
		ShareStreamIndex:   obj.ShareStreamIndex,
		OwnerAddress:       obj.OwnerAddress,
		PublicShares:       obj.PublicShares,
		PrivateShares:      obj.PrivateShares,
		Payload:            json.RawMessage(obj.Payload),
		CreatedBlock:       obj.CreatedBlock,
		CreatedAt:          obj.CreatedAt,
		UpdatedAt:          obj.UpdatedAt,
	}
}

// AccountObjectsResponse represents an account's live state objects
type AccountObjectsResponse struct {
	AccountID uuid.UUID             `json:"account_id"`
	Objects   []StateObjectResponse `json:"objects"`
	Total     int                   `json:"total"`
}

// RegisterAccountRequest represents the request body for registering an account
type RegisterAccountRequest struct {
	AccountID    string `json:"account_id,omitempty"`
	OwnerAddress string `json:"owner_address"`
	ViewSeed     string `json:"view_seed"`
}

// Validate validates the request body
func (r *RegisterAccountRequest) Validate() error {
	// Validate: owner address must be a valid EVM address
	if r.OwnerAddress == "" {
		return fmt.Errorf("owner_address is required")
	}
	if !common.IsHexAddress(r.OwnerAddress) {
		return fmt.Errorf("invalid owner address: %s", r.OwnerAddress)
	}

	// Validate: the master view seed must be a decimal scalar
	if r.ViewSeed == "" {
		return fmt.Errorf("view_seed is required")
	}
	if !domain.IsValidScalar(r.ViewSeed) {
		return fmt.Errorf("view_seed must be a base-10 scalar string")
	}

	// Validate: the account ID, when supplied, must be a UUID
	if r.AccountID != "" {
		if _, err := uuid.Parse(r.AccountID); err != nil {
			return fmt.Errorf("invalid account ID: %s", r.AccountID)
		}
	}

	return nil
}

// RegisterAccountResponse represents a freshly registered account
type RegisterAccountResponse struct {
	AccountID    uuid.UUID `json:"account_id"`
	OwnerAddress string    `json:"owner_address"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExpectationRequest represents the request body for announcing an expected
// state object ahead of its on-chain registration. The recovery ID is derived
// server-side from the recovery stream seed; a client-supplied value is only
// cross-checked.
type ExpectationRequest struct {
	AccountID          string `json:"account_id"`
	RecoveryID         string `json:"recovery_id,omitempty"`
	RecoveryStreamSeed string `json:"recovery_stream_seed"`
	ShareStreamSeed    string `json:"share_stream_seed"`
}

// Validate validates the request body
func (r *ExpectationRequest) Validate() error {
	// Validate: account ID must be a UUID
	if r.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if _, err := uuid.Parse(r.AccountID); err != nil {
		return fmt.Errorf("invalid account ID: %s", r.AccountID)
	}

	// Validate: both stream seeds must be decimal scalars
	if r.RecoveryStreamSeed == "" {
		return fmt.Errorf("recovery_stream_seed is required")
	}
	if !domain.IsValidScalar(r.RecoveryStreamSeed) {
		return fmt.Errorf("recovery_stream_seed must be a base-10 scalar string")
	}
	if r.ShareStreamSeed == "" {
		return fmt.Errorf("share_stream_seed is required")
	}
	if !domain.IsValidScalar(r.ShareStreamSeed) {
		return fmt.Errorf("share_stream_seed must be a base-10 scalar string")
	}

	// Validate: the optional recovery ID, when supplied, must be a scalar too
	if r.RecoveryID != "" && !domain.IsValidScalar(r.RecoveryID) {
		return fmt.Errorf("recovery_id must be a base-10 scalar string")
	}

	return nil
}

// ExpectationResponse represents a registered expectation
type ExpectationResponse struct {
	RecoveryID string    `json:"recovery_id"`
	AccountID  uuid.UUID `json:"account_id"`
}

// BackfillResponse represents the response for triggering a backfill
type BackfillResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// WorkflowStatusResponse represents the status of a Temporal workflow execution
type WorkflowStatusResponse struct {
	WorkflowID    string     `json:"workflow_id"`
	RunID         string     `json:"run_id"`
	Status        string     `json:"status"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	CloseTime     *time.Time `json:"close_time,omitempty"`
	ExecutionTime *uint64    `json:"execution_time_ms,omitempty"` // Execution time in milliseconds
}

// CheckpointResponse represents a chain's indexing checkpoint
type CheckpointResponse struct {
	Chain       string     `json:"chain"`
	BlockNumber uint64     `json:"block_number"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Halted      bool       `json:"halted"`
	HaltReason  string     `json:"halt_reason,omitempty"`
}
