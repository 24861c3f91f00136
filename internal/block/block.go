package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/logger"
)

// BlockProvider serves the chain head and block timestamps from a short-lived
// cache. The emitter asks for the head on every poll tick to decide which
// blocks have enough confirmations, so head reads must not hit the RPC
// provider each time.
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockProvider=MockBlockProvider
type BlockProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBlockTimestamp returns the timestamp for a given block number, potentially from cache
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// BlockFetcher is the interface for fetching block information from the chain
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockFetcher=MockBlockFetcher
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block number from the chain
	FetchLatestBlock(ctx context.Context) (uint64, error)

	// FetchBlockTimestamp fetches the timestamp for a given block number
	FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Config holds configuration for the BlockProvider
type Config struct {
	// TTL is how long a fetched head stays fresh
	TTL time.Duration

	// StaleWindow is how long an expired entry may still be served when the
	// fetch behind it fails. Past this window the error is surfaced instead.
	StaleWindow time.Duration

	// BlockTimestampTTL is how long block timestamps stay fresh. Timestamps
	// of confirmed blocks never change, so zero means cache forever.
	BlockTimestampTTL time.Duration
}

type headCache struct {
	number   uint64
	cachedAt time.Time
}

type timestampCache struct {
	stamp    time.Time
	cachedAt time.Time
}

type blockProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu         sync.RWMutex
	head       *headCache
	timestamps map[uint64]*timestampCache
}

// NewBlockProvider creates a caching BlockProvider on top of the fetcher
func NewBlockProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockProvider {
	return &blockProvider{
		fetcher:    fetcher,
		config:     config,
		clock:      clock,
		timestamps: make(map[uint64]*timestampCache),
	}
}

func (p *blockProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && now.Sub(cached.cachedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Serving block head from cache", zap.Uint64("block_number", cached.number))
		return cached.number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		// A failed fetch falls back to the expired entry while it is still
		// inside the stale window
		if cached != nil && now.Sub(cached.cachedAt) < p.config.StaleWindow {
			logger.DebugCtx(ctx, "Head fetch failed, serving stale head", zap.Uint64("block_number", cached.number))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &headCache{number: number, cachedAt: now}
	p.mu.Unlock()

	return number, nil
}

func (p *blockProvider) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	p.mu.RLock()
	cached := p.timestamps[blockNumber]
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && (p.config.BlockTimestampTTL == 0 || now.Sub(cached.cachedAt) < p.config.BlockTimestampTTL) {
		logger.DebugCtx(ctx, "Serving block timestamp from cache",
			zap.Uint64("block_number", blockNumber),
			zap.Time("timestamp", cached.stamp))
		return cached.stamp, nil
	}

	stamp, err := p.fetcher.FetchBlockTimestamp(ctx, blockNumber)
	if err != nil {
		if cached != nil && now.Sub(cached.cachedAt) < p.config.StaleWindow {
			logger.DebugCtx(ctx, "Timestamp fetch failed, serving stale timestamp",
				zap.Uint64("block_number", blockNumber),
				zap.Time("timestamp", cached.stamp))
			return cached.stamp, nil
		}
		return time.Time{}, fmt.Errorf("failed to fetch block timestamp for block %d and no valid cache available: %w", blockNumber, err)
	}

	p.mu.Lock()
	p.timestamps[blockNumber] = &timestampCache{stamp: stamp, cachedAt: now}
	p.mu.Unlock()

	return stamp, nil
}
