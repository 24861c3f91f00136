package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/ratelimit"
)

// Config holds the per-chain settings for talking to the darkpool contract
type Config struct {
	ChainID         domain.Chain
	ContractAddress string

	// Confirmations is how many blocks behind the chain head a block must be
	// before its events are considered final and delivered
	Confirmations uint64

	// FlushInterval is how often the subscriber checks whether buffered
	// blocks have finalized (default 15s)
	FlushInterval time.Duration

	// RateLimitProvider names the RPC gate limiter charged for this client's
	// calls; empty when the client runs ungated
	RateLimitProvider string
}

// Darkpool event signatures
var (
	// RecoveryIdRegistered(uint256 indexed recoveryId, address indexed owner, uint8 objectType, uint256 nullifier, uint256[] publicShares, bytes payload)
	recoveryIDRegisteredSignature = crypto.Keccak256Hash([]byte("RecoveryIdRegistered(uint256,address,uint8,uint256,uint256[],bytes)"))

	// NullifierSpent(uint256 indexed nullifier)
	nullifierSpentSignature = crypto.Keccak256Hash([]byte("NullifierSpent(uint256)"))

	// ObjectSuperseded(uint256 indexed oldNullifier, uint256 indexed newRecoveryId, uint8 objectType, uint256 newNullifier, uint64 newVersion, uint256[] publicShares, bytes payload)
	objectSupersededSignature = crypto.Keccak256Hash([]byte("ObjectSuperseded(uint256,uint256,uint8,uint256,uint64,uint256[],bytes)"))
)

// darkpoolEventsABI covers the non-indexed data layout of the three darkpool events
const darkpoolEventsABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"recoveryId","type":"uint256"},
		{"indexed":true,"name":"owner","type":"address"},
		{"indexed":false,"name":"objectType","type":"uint8"},
		{"indexed":false,"name":"nullifier","type":"uint256"},
		{"indexed":false,"name":"publicShares","type":"uint256[]"},
		{"indexed":false,"name":"payload","type":"bytes"}],
	 "name":"RecoveryIdRegistered","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"nullifier","type":"uint256"}],
	 "name":"NullifierSpent","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"oldNullifier","type":"uint256"},
		{"indexed":true,"name":"newRecoveryId","type":"uint256"},
		{"indexed":false,"name":"objectType","type":"uint8"},
		{"indexed":false,"name":"newNullifier","type":"uint256"},
		{"indexed":false,"name":"newVersion","type":"uint64"},
		{"indexed":false,"name":"publicShares","type":"uint256[]"},
		{"indexed":false,"name":"payload","type":"bytes"}],
	 "name":"ObjectSuperseded","type":"event"}
]`

// EthereumClient wraps the EVM RPC surface the indexer needs: darkpool log
// retrieval, log decoding, and head tracking
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=EthereumClient=MockEthereumClient
type EthereumClient interface {
	// ParseDarkpoolLog decodes a darkpool contract log into a domain event.
	// Pure decode, no RPC; the event timestamp is left for the caller to
	// stamp. Returns (nil, nil) for logs the indexer does not track.
	ParseDarkpoolLog(vLog types.Log) (*domain.DarkpoolEvent, error)

	// SubscribeDarkpoolLogs subscribes to live darkpool contract logs
	SubscribeDarkpoolLogs(ctx context.Context, fromBlock uint64, ch chan<- types.Log) (ethereum.Subscription, error)

	// FilterDarkpoolLogs retrieves historical darkpool logs for a block range,
	// paginating around provider result limits
	FilterDarkpoolLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error)

	// FilterLogsByRecoveryID retrieves the registration log(s) carrying a
	// specific recovery ID, used by backfills to repair gaps. Both
	// registration shapes are covered: RecoveryIdRegistered for first
	// versions and ObjectSuperseded for successors.
	FilterLogsByRecoveryID(ctx context.Context, recoveryID string, fromBlock, toBlock uint64) ([]types.Log, error)

	// FilterLogsByNullifier retrieves the log(s) that spend a specific
	// nullifier, either NullifierSpent or ObjectSuperseded
	FilterLogsByNullifier(ctx context.Context, nullifier string, fromBlock, toBlock uint64) ([]types.Log, error)

	// HeaderByNumber returns a header by number (nil for latest)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// GetLatestBlockNumber returns the current chain head block number
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	config   Config
	contract common.Address
	client   adapter.EthClient
	gate     ratelimit.Proxy
	events   abi.ABI
}

// NewClient creates a darkpool contract client on top of a dialed EVM connection.
// gate may be nil; RPC calls then run without rate limiting.
func NewClient(cfg Config, client adapter.EthClient, gate ratelimit.Proxy) (EthereumClient, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid darkpool contract address: %s", cfg.ContractAddress)
	}

	events, err := abi.JSON(strings.NewReader(darkpoolEventsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse darkpool events ABI: %w", err)
	}

	return &ethereumClient{
		config:   cfg,
		contract: common.HexToAddress(cfg.ContractAddress),
		client:   client,
		gate:     gate,
		events:   events,
	}, nil
}

// darkpoolFilterQuery builds the filter matching the three darkpool event
// signatures on the configured contract
func (c *ethereumClient) darkpoolFilterQuery(fromBlock, toBlock *big.Int) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{
				recoveryIDRegisteredSignature,
				nullifierSpentSignature,
				objectSupersededSignature,
			},
		},
	}
}

// SubscribeDarkpoolLogs subscribes to live darkpool contract logs
func (c *ethereumClient) SubscribeDarkpoolLogs(ctx context.Context, fromBlock uint64, ch chan<- types.Log) (ethereum.Subscription, error) {
	var from *big.Int
	if fromBlock > 0 {
		from = new(big.Int).SetUint64(fromBlock)
	}
	return c.client.SubscribeFilterLogs(ctx, c.darkpoolFilterQuery(from, nil), ch)
}

// FilterDarkpoolLogs retrieves historical darkpool logs for a block range
func (c *ethereumClient) FilterDarkpoolLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := c.darkpoolFilterQuery(
		new(big.Int).SetUint64(fromBlock),
		new(big.Int).SetUint64(toBlock),
	)
	return c.filterLogsWithPagination(ctx, query)
}

// FilterLogsByRecoveryID retrieves the registration log(s) carrying a specific
// recovery ID. First versions carry the ID as topic 1 of RecoveryIdRegistered;
// successors carry it as topic 2 of ObjectSuperseded. Topic positions differ,
// so the two shapes need separate provider queries.
func (c *ethereumClient) FilterLogsByRecoveryID(ctx context.Context, recoveryID string, fromBlock, toBlock uint64) ([]types.Log, error) {
	id, ok := new(big.Int).SetString(recoveryID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid recovery ID: %s", recoveryID)
	}
	idTopic := common.BigToHash(id)

	registered, err := c.filterLogsWithPagination(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{recoveryIDRegisteredSignature},
			{idTopic},
		},
	})
	if err != nil {
		return nil, err
	}

	superseded, err := c.filterLogsWithPagination(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{objectSupersededSignature},
			{},
			{idTopic},
		},
	})
	if err != nil {
		return nil, err
	}

	return mergeLogsByPosition(registered, superseded), nil
}

// FilterLogsByNullifier retrieves the log(s) that spend a specific nullifier.
// NullifierSpent and ObjectSuperseded both index the spent nullifier as topic
// 1, so one query covers both.
func (c *ethereumClient) FilterLogsByNullifier(ctx context.Context, nullifier string, fromBlock, toBlock uint64) ([]types.Log, error) {
	n, ok := new(big.Int).SetString(nullifier, 10)
	if !ok {
		return nil, fmt.Errorf("invalid nullifier: %s", nullifier)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{nullifierSpentSignature, objectSupersededSignature},
			{common.BigToHash(n)},
		},
	}
	return c.filterLogsWithPagination(ctx, query)
}

// mergeLogsByPosition combines two log sets into chain order, block number
// first then log index
func mergeLogsByPosition(a, b []types.Log) []types.Log {
	merged := make([]types.Log, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].BlockNumber != merged[j].BlockNumber {
			return merged[i].BlockNumber < merged[j].BlockNumber
		}
		return merged[i].Index < merged[j].Index
	})
	return merged
}

// filterLogsWithPagination is an internal method that handles pagination for
// FilterLogs to work around provider log-count limitations
func (c *ethereumClient) filterLogsWithPagination(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	// Create a context with timeout (1 minute)
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	// 1. Detect initial start/end blocks (genesis and latest)
	var fromBlock, toBlock *big.Int
	if query.FromBlock != nil {
		fromBlock = query.FromBlock
	} else {
		fromBlock = big.NewInt(0) // Genesis
	}

	if query.ToBlock != nil {
		toBlock = query.ToBlock
	} else {
		// Get latest block
		latestBlock, err := c.HeaderByNumber(timeoutCtx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest block: %w", err)
		}
		toBlock = latestBlock.Number
	}

	// 2. Step through the range, halving the step when the provider pushes back
	var allLogs []types.Log
	currentFrom := new(big.Int).Set(fromBlock)
	stepSize := uint64(1000000) // 1M blocks

	for currentFrom.Cmp(toBlock) <= 0 {
		// Calculate current range
		currentTo := new(big.Int).Add(currentFrom, big.NewInt(int64(stepSize))) //nolint:gosec,G115 // stepSize starts at 1M and only shrinks
		if currentTo.Cmp(toBlock) > 0 {
			currentTo.Set(toBlock)
		}

		// Create query for current range
		rangeQuery := query
		rangeQuery.FromBlock = new(big.Int).Set(currentFrom)
		rangeQuery.ToBlock = currentTo

		// Try to get logs for current range with retry logic
		logs, err := c.getLogsWithRetry(timeoutCtx, rangeQuery, stepSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", currentFrom.Uint64(), currentTo.Uint64(), err)
		}

		allLogs = append(allLogs, logs...)

		// Move to next range - use the actual end of the processed range
		currentFrom.SetUint64(currentTo.Uint64() + 1)
	}

	return allLogs, nil
}

// getLogsWithRetry attempts to get logs with retry logic and step size reduction.
// It processes the entire range from query.FromBlock to query.ToBlock in chunks.
func (c *ethereumClient) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := stepSize

	var allLogs []types.Log
	currentFrom := new(big.Int).Set(query.FromBlock)

	// Process the entire range in chunks
	for currentFrom.Cmp(query.ToBlock) <= 0 {
		// Calculate current range based on current step size
		currentTo := new(big.Int).Add(currentFrom, new(big.Int).SetUint64(currentStepSize-1))
		if currentTo.Cmp(query.ToBlock) > 0 {
			currentTo.Set(query.ToBlock)
		}

		// Create query for current chunk
		queryCopy := query
		queryCopy.FromBlock = new(big.Int).Set(currentFrom)
		queryCopy.ToBlock = new(big.Int).Set(currentTo)

		logs, err := ratelimit.Request(ctx, c.gate, c.config.RateLimitProvider, func(ctx context.Context) ([]types.Log, error) {
			return c.client.FilterLogs(ctx, queryCopy)
		})
		if err == nil {
			// Success - accumulate logs and move to next chunk
			allLogs = append(allLogs, logs...)

			// Move to next chunk using the full step size
			currentFrom.SetUint64(currentTo.Uint64() + 1)
			continue
		}

		// Other errors than result-limit pushback are fatal for the query
		if !isTooManyResultsError(err) {
			return nil, err
		}
		if currentStepSize <= 1 {
			return nil, fmt.Errorf("provider rejected single-block log query: %w", err)
		}

		// Divide the step by 2 and try again
		currentStepSize = currentStepSize / 2

		logger.Warn("Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", currentFrom.Uint64()),
			zap.Uint64("toBlock", currentTo.Uint64()))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	// Check for common "too many results" error messages
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// HeaderByNumber returns a header by number
func (c *ethereumClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return ratelimit.Request(ctx, c.gate, c.config.RateLimitProvider, func(ctx context.Context) (*types.Header, error) {
		return c.client.HeaderByNumber(ctx, number)
	})
}

// GetLatestBlockNumber returns the current chain head block number
func (c *ethereumClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// ParseDarkpoolLog decodes a darkpool contract log into a domain event
func (c *ethereumClient) ParseDarkpoolLog(vLog types.Log) (*domain.DarkpoolEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, fmt.Errorf("log has no topics")
	}

	event := &domain.DarkpoolEvent{
		Chain:       c.config.ChainID,
		TxHash:      vLog.TxHash.Hex(),
		BlockNumber: vLog.BlockNumber,
		BlockHash:   vLog.BlockHash.Hex(),
		LogIndex:    vLog.Index,
	}

	switch vLog.Topics[0] {
	case recoveryIDRegisteredSignature:
		// RecoveryIdRegistered(uint256 indexed recoveryId, address indexed owner, ...)
		if len(vLog.Topics) != 3 {
			return nil, fmt.Errorf("invalid RecoveryIdRegistered event: expected 3 topics, got %d", len(vLog.Topics))
		}

		values, err := c.events.Unpack("RecoveryIdRegistered", vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack RecoveryIdRegistered data: %w", err)
		}
		objectType, nullifier, publicShares, payload, err := unpackObjectFields(values)
		if err != nil {
			return nil, fmt.Errorf("invalid RecoveryIdRegistered event: %w", err)
		}

		event.EventKind = domain.EventKindCreate
		event.RecoveryID = new(big.Int).SetBytes(vLog.Topics[1].Bytes()).String()
		event.OwnerAddress = common.BytesToAddress(vLog.Topics[2].Bytes()).Hex()
		event.ObjectType = objectType
		event.Nullifier = nullifier
		event.PublicShares = publicShares
		event.Payload = payload

	case nullifierSpentSignature:
		// NullifierSpent(uint256 indexed nullifier)
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid NullifierSpent event: expected 2 topics, got %d", len(vLog.Topics))
		}

		event.EventKind = domain.EventKindNullify
		event.OldNullifier = new(big.Int).SetBytes(vLog.Topics[1].Bytes()).String()

	case objectSupersededSignature:
		// ObjectSuperseded(uint256 indexed oldNullifier, uint256 indexed newRecoveryId, ...)
		if len(vLog.Topics) != 3 {
			return nil, fmt.Errorf("invalid ObjectSuperseded event: expected 3 topics, got %d", len(vLog.Topics))
		}

		values, err := c.events.Unpack("ObjectSuperseded", vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack ObjectSuperseded data: %w", err)
		}
		if len(values) != 5 {
			return nil, fmt.Errorf("invalid ObjectSuperseded event: expected 5 data values, got %d", len(values))
		}
		newVersion, ok := values[2].(uint64)
		if !ok {
			return nil, fmt.Errorf("invalid ObjectSuperseded event: newVersion is %T", values[2])
		}
		objectType, newNullifier, publicShares, payload, err := unpackObjectFields(
			[]interface{}{values[0], values[1], values[3], values[4]})
		if err != nil {
			return nil, fmt.Errorf("invalid ObjectSuperseded event: %w", err)
		}

		event.EventKind = domain.EventKindNullifyAndRecreate
		event.OldNullifier = new(big.Int).SetBytes(vLog.Topics[1].Bytes()).String()
		event.RecoveryID = new(big.Int).SetBytes(vLog.Topics[2].Bytes()).String()
		event.ObjectType = objectType
		event.Nullifier = newNullifier
		event.NewVersion = newVersion
		event.PublicShares = publicShares
		event.Payload = payload

	default:
		// Not a darkpool event; the topic filter should have excluded it
		logger.Debug("Skipping unrecognized log",
			zap.String("contract", vLog.Address.Hex()),
			zap.String("topic", vLog.Topics[0].Hex()))
		return nil, nil
	}

	return event, nil
}

// unpackObjectFields pulls (objectType, nullifier, publicShares, payload) out
// of unpacked ABI values
func unpackObjectFields(values []interface{}) (domain.ObjectType, string, []string, []byte, error) {
	if len(values) != 4 {
		return "", "", nil, nil, fmt.Errorf("expected 4 data values, got %d", len(values))
	}

	rawType, ok := values[0].(uint8)
	if !ok {
		return "", "", nil, nil, fmt.Errorf("objectType is %T", values[0])
	}
	objectType, err := objectTypeFromCode(rawType)
	if err != nil {
		return "", "", nil, nil, err
	}

	nullifier, ok := values[1].(*big.Int)
	if !ok {
		return "", "", nil, nil, fmt.Errorf("nullifier is %T", values[1])
	}

	rawShares, ok := values[2].([]*big.Int)
	if !ok {
		return "", "", nil, nil, fmt.Errorf("publicShares is %T", values[2])
	}
	publicShares := make([]string, len(rawShares))
	for i, share := range rawShares {
		publicShares[i] = share.String()
	}

	payload, ok := values[3].([]byte)
	if !ok {
		return "", "", nil, nil, fmt.Errorf("payload is %T", values[3])
	}

	return objectType, nullifier.String(), publicShares, payload, nil
}

// objectTypeFromCode maps the contract's object type code to the domain type
func objectTypeFromCode(code uint8) (domain.ObjectType, error) {
	switch code {
	case 0:
		return domain.ObjectTypeBalance, nil
	case 1:
		return domain.ObjectTypeIntent, nil
	default:
		return "", fmt.Errorf("unknown object type code: %d", code)
	}
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}
