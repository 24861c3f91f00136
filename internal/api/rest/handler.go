package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/providers/temporal"
	"github.com/duskpool/dp-indexer/internal/seeds"
	"github.com/duskpool/dp-indexer/internal/store"
	"github.com/duskpool/dp-indexer/internal/workflows"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HealthCheck returns the health status of the API and per-chain indexing state
	// GET /health
	HealthCheck(c *gin.Context)

	// GetAccountObjects retrieves an account's active state objects
	// GET /api/v1/accounts/:account_id/objects?type=<balance|intent>
	GetAccountObjects(c *gin.Context)

	// GetObject retrieves a single state object version by its recovery stream seed
	// GET /api/v1/objects/:recovery_stream_seed
	GetObject(c *gin.Context)

	// GetChainCheckpoint retrieves a chain's indexing checkpoint and halt state
	// GET /api/v1/chains/:chain/checkpoint
	GetChainCheckpoint(c *gin.Context)

	// RegisterAccount registers a master view seed for an account (requires authentication)
	// POST /api/v1/accounts
	RegisterAccount(c *gin.Context)

	// CreateExpectation announces an expected state object ahead of its
	// on-chain registration (requires authentication)
	// POST /api/v1/expectations
	CreateExpectation(c *gin.Context)

	// TriggerBackfill starts a backfill workflow for an account (requires authentication)
	// POST /api/v1/accounts/:account_id/backfill
	TriggerBackfill(c *gin.Context)

	// GetWorkflowStatus retrieves the status of a Temporal workflow execution
	// GET /api/v1/workflows/:workflow_id/runs/:run_id
	GetWorkflowStatus(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store           store.Store
	orchestrator    temporal.TemporalOrchestrator
	workerTaskQueue string
	chains          []domain.Chain
}

// NewHandler creates a new REST API handler
func NewHandler(st store.Store, orchestrator temporal.TemporalOrchestrator, workerTaskQueue string, chains []domain.Chain) Handler {
	return &handler{
		store:           st,
		orchestrator:    orchestrator,
		workerTaskQueue: workerTaskQueue,
		chains:          chains,
	}
}

// HealthCheck returns the health status of the API and per-chain indexing state
func (h *handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}

	resp := HealthResponse{Status: "ok"}
	for _, chain := range h.chains {
		info, err := h.store.GetCheckpointInfo(ctx, chain)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}
		reason, halted, err := h.store.GetChainHalted(ctx, chain)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}

		health := ChainHealth{
			Chain:      string(chain),
			Halted:     halted,
			HaltReason: reason,
		}
		if info != nil {
			health.Checkpoint = info.BlockNumber
			updatedAt := info.UpdatedAt
			health.CheckpointUpdatedAt = &updatedAt
		}
		if halted {
			resp.Status = "degraded"
		}
		resp.Chains = append(resp.Chains, health)
	}

	c.JSON(http.StatusOK, resp)
}

// GetAccountObjects retrieves an account's active state objects
func (h *handler) GetAccountObjects(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		respondBadRequest(c, "Invalid account ID")
		return
	}

	// Parse the optional object type filter
	var objectType *domain.ObjectType
	if raw := c.Query("type"); raw != "" {
		t := domain.ObjectType(raw)
		if !domain.IsValidObjectType(t) {
			respondBadRequest(c, fmt.Sprintf("Invalid object type: %s", raw))
			return
		}
		objectType = &t
	}

	ctx := c.Request.Context()
	master, err := h.store.GetMasterViewSeed(ctx, accountID)
	if err != nil {
		respondInternalError(c, err, "Failed to look up account")
		return
	}
	if master == nil {
		respondNotFound(c, "Account not found")
		return
	}

	objects, err := h.store.GetActiveObjects(ctx, accountID, objectType)
	if err != nil {
		respondInternalError(c, err, "Failed to list account objects")
		return
	}

	resp := AccountObjectsResponse{
		AccountID: accountID,
		Objects:   make([]StateObjectResponse, 0, len(objects)),
		Total:     len(objects),
	}
	for i := range objects {
		resp.Objects = append(resp.Objects, newStateObjectResponse(&objects[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// GetObject retrieves a single state object version by its recovery stream seed
func (h *handler) GetObject(c *gin.Context) {
	seed := c.Param("recovery_stream_seed")
	if !domain.IsValidScalar(seed) {
		respondBadRequest(c, "Invalid recovery stream seed")
		return
	}

	obj, err := h.store.GetObjectBySeed(c.Request.Context(), seed)
	if err != nil {
		respondInternalError(c, err, "Failed to get object")
		return
	}
	if obj == nil {
		respondNotFound(c, "Object not found")
		return
	}

	c.JSON(http.StatusOK, newStateObjectResponse(obj))
}

// GetChainCheckpoint retrieves a chain's indexing checkpoint and halt state
func (h *handler) GetChainCheckpoint(c *gin.Context) {
	chain := domain.Chain(c.Param("chain"))
	if !domain.IsValidChain(chain) {
		respondBadRequest(c, fmt.Sprintf("Unknown chain: %s", chain))
		return
	}

	ctx := c.Request.Context()
	info, err := h.store.GetCheckpointInfo(ctx, chain)
	if err != nil {
		respondInternalError(c, err, "Failed to get checkpoint")
		return
	}
	reason, halted, err := h.store.GetChainHalted(ctx, chain)
	if err != nil {
		respondInternalError(c, err, "Failed to get halt state")
		return
	}

	resp := CheckpointResponse{
		Chain:      string(chain),
		Halted:     halted,
		HaltReason: reason,
	}
	if info != nil {
		resp.BlockNumber = info.BlockNumber
		updatedAt := info.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterAccount registers a master view seed for an account (requires authentication)
func (h *handler) RegisterAccount(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	// The seed must also sit below the scalar field order, which the shape
	// check in Validate cannot see
	if _, err := seeds.ParseScalar(req.ViewSeed); err != nil {
		respondValidationError(c, fmt.Sprintf("invalid view seed: %v", err))
		return
	}

	accountID := uuid.Nil
	if req.AccountID != "" {
		parsed, err := uuid.Parse(req.AccountID)
		if err != nil {
			respondValidationError(c, fmt.Sprintf("invalid account ID: %s", req.AccountID))
			return
		}
		accountID = parsed
	}

	master, err := h.store.RegisterAccount(c.Request.Context(), store.RegisterAccountInput{
		AccountID:    accountID,
		OwnerAddress: req.OwnerAddress,
		Seed:         req.ViewSeed,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			respondConflict(c, "Owner address is already registered")
			return
		}
		respondInternalError(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, RegisterAccountResponse{
		AccountID:    master.AccountID,
		OwnerAddress: master.OwnerAddress,
		CreatedAt:    master.CreatedAt,
	})
}

// CreateExpectation announces an expected state object ahead of its on-chain
// registration (requires authentication)
func (h *handler) CreateExpectation(c *gin.Context) {
	var req ExpectationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		respondValidationError(c, fmt.Sprintf("invalid account ID: %s", req.AccountID))
		return
	}

	ctx := c.Request.Context()
	master, err := h.store.GetMasterViewSeed(ctx, accountID)
	if err != nil {
		respondInternalError(c, err, "Failed to look up account")
		return
	}
	if master == nil {
		respondNotFound(c, "Account not found")
		return
	}

	// The recovery ID is a pure function of the recovery stream seed, so it is
	// derived here rather than trusted from the client
	recoverySeed, err := seeds.ParseScalar(req.RecoveryStreamSeed)
	if err != nil {
		respondValidationError(c, fmt.Sprintf("invalid recovery stream seed: %v", err))
		return
	}
	if _, err := seeds.ParseScalar(req.ShareStreamSeed); err != nil {
		respondValidationError(c, fmt.Sprintf("invalid share stream seed: %v", err))
		return
	}
	recoveryID := seeds.FormatScalar(seeds.RecoveryID(recoverySeed))
	if req.RecoveryID != "" && req.RecoveryID != recoveryID {
		respondBadRequest(c, "recovery_id does not match the supplied recovery stream seed")
		return
	}

	if err := h.store.ExpectObject(ctx, store.ExpectObjectInput{
		RecoveryID:         recoveryID,
		AccountID:          accountID,
		RecoveryStreamSeed: req.RecoveryStreamSeed,
		ShareStreamSeed:    req.ShareStreamSeed,
	}); err != nil {
		respondInternalError(c, err, "Failed to register expectation")
		return
	}

	c.JSON(http.StatusCreated, ExpectationResponse{
		RecoveryID: recoveryID,
		AccountID:  accountID,
	})
}

// TriggerBackfill starts a backfill workflow for an account (requires authentication)
func (h *handler) TriggerBackfill(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		respondBadRequest(c, "Invalid account ID")
		return
	}

	ctx := c.Request.Context()
	master, err := h.store.GetMasterViewSeed(ctx, accountID)
	if err != nil {
		respondInternalError(c, err, "Failed to look up account")
		return
	}
	if master == nil {
		respondNotFound(c, "Account not found")
		return
	}

	// Workflows are referenced by method value, so a worker shell with no
	// executor is enough to name the workflow being started
	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	workflowID := fmt.Sprintf("backfill-%s-%s", accountID, ulid.MustNewDefault(time.Now()))

	run, err := h.orchestrator.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                h.workerTaskQueue,
		WorkflowExecutionTimeout: time.Hour,
	}, w.BackfillAccountState, accountID)
	if err != nil {
		respondInternalError(c, err, "Failed to start backfill workflow")
		return
	}

	c.JSON(http.StatusAccepted, BackfillResponse{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	})
}

// GetWorkflowStatus retrieves the status of a Temporal workflow execution
func (h *handler) GetWorkflowStatus(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	if workflowID == "" {
		respondBadRequest(c, "workflow_id is required")
		return
	}

	runID := c.Param("run_id")
	if runID == "" {
		respondBadRequest(c, "run_id is required")
		return
	}

	resp, err := h.orchestrator.DescribeWorkflowExecution(c.Request.Context(), workflowID, runID)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			respondNotFound(c, "Workflow execution not found")
			return
		}
		respondInternalError(c, err, "Failed to get workflow status")
		return
	}

	info := resp.GetWorkflowExecutionInfo()
	status := WorkflowStatusResponse{
		WorkflowID: workflowID,
		RunID:      runID,
		Status:     workflowStatusLabel(info.GetStatus()),
	}
	if info.GetStartTime() != nil {
		start := info.GetStartTime().AsTime()
		status.StartTime = &start
		if info.GetCloseTime() != nil {
			ct := info.GetCloseTime().AsTime()
			status.CloseTime = &ct
			elapsed := uint64(ct.Sub(start).Milliseconds())
			status.ExecutionTime = &elapsed
		}
	}

	c.JSON(http.StatusOK, status)
}

// workflowStatusLabel renders a Temporal execution status as an API string
func workflowStatusLabel(status enums.WorkflowExecutionStatus) string {
	switch status {
	case enums.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return "running"
	case enums.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "completed"
	case enums.WORKFLOW_EXECUTION_STATUS_FAILED:
		return "failed"
	case enums.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return "canceled"
	case enums.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "terminated"
	case enums.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return "continued_as_new"
	case enums.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return "timed_out"
	default:
		return "unknown"
	}
}
