package ethereum

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/block"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/messaging"
)

const (
	// defaultFlushInterval is how often buffered blocks are checked against
	// the finalized height when the config does not set an interval
	defaultFlushInterval = 15 * time.Second

	// logBufferSize is the capacity of the live log channel
	logBufferSize = 256
)

// ethSubscriber delivers darkpool contract events grouped per finalized block.
// Live logs buffer in memory until their block is Confirmations blocks behind
// the chain head, which keeps reorged-out logs from ever reaching a handler.
type ethSubscriber struct {
	config Config
	client EthereumClient
	blocks block.BlockProvider
	clock  adapter.Clock
}

// NewSubscriber creates a darkpool event subscriber for one EVM chain
func NewSubscriber(cfg Config, client EthereumClient, blocks block.BlockProvider, clock adapter.Clock) (messaging.Subscriber, error) {
	if !domain.IsValidChain(cfg.ChainID) {
		return nil, fmt.Errorf("invalid chain ID: %s", cfg.ChainID)
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	return &ethSubscriber{
		config: cfg,
		client: client,
		blocks: blocks,
		clock:  clock,
	}, nil
}

// SubscribeBlockEvents subscribes to darkpool events starting at fromBlock
// (0 for latest) and delivers them grouped per block, in block order
func (s *ethSubscriber) SubscribeBlockEvents(ctx context.Context, fromBlock uint64, handler messaging.BlockHandler) error {
	head, err := s.client.GetLatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain head: %w", err)
	}
	finalized := s.finalizedHeight(head)

	// Replay the already-finalized part of the requested range before going live
	if fromBlock == 0 {
		fromBlock = finalized + 1
	} else if fromBlock <= finalized {
		if err := s.replayRange(ctx, fromBlock, finalized, handler); err != nil {
			return err
		}
	}

	logs := make(chan types.Log, logBufferSize)
	sub, err := s.client.SubscribeDarkpoolLogs(ctx, finalized+1, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to darkpool logs: %w", err)
	}
	defer func() {
		logger.InfoCtx(ctx, "Unsubscribing from darkpool logs")
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from darkpool logs")
	}()

	// floor is the first block the live phase owns; everything below it was
	// already replayed
	floor := finalized + 1
	if fromBlock > floor {
		floor = fromBlock
	}

	pending := newPendingBlocks()

	// The subscription only carries logs minted after it started, so fetch
	// the window between the replayed range and the current head once and
	// seed the buffer. Overlap with the subscription is harmless; the buffer
	// deduplicates on (block number, log index).
	overlapHead, err := s.client.GetLatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain head: %w", err)
	}
	if floor <= overlapHead {
		seed, err := s.client.FilterDarkpoolLogs(ctx, floor, overlapHead)
		if err != nil {
			return fmt.Errorf("failed to fetch darkpool logs %d-%d: %w", floor, overlapHead, err)
		}
		for _, vLog := range seed {
			if vLog.Removed {
				continue
			}
			pending.add(vLog)
		}
	}

	ticker := s.clock.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)

		case vLog := <-logs:
			if vLog.BlockNumber < floor {
				continue
			}
			if vLog.Removed {
				// The provider reorged this log out before finalization
				logger.WarnCtx(ctx, "Dropping reorged-out darkpool log",
					zap.Uint64("block_number", vLog.BlockNumber),
					zap.Uint("log_index", vLog.Index),
					zap.String("tx_hash", vLog.TxHash.Hex()))
				pending.remove(vLog)
				continue
			}
			pending.add(vLog)

		case <-ticker.C:
			head, err := s.blocks.GetLatestBlock(ctx)
			if err != nil {
				logger.WarnCtx(ctx, "Failed to refresh chain head, keeping events buffered", zap.Error(err))
				continue
			}
			if err := s.flushFinalized(ctx, pending, s.finalizedHeight(head), handler); err != nil {
				return err
			}
		}
	}
}

// replayRange fetches the historical darkpool logs of an already-finalized
// block range and delivers them grouped per block
func (s *ethSubscriber) replayRange(ctx context.Context, fromBlock, toBlock uint64, handler messaging.BlockHandler) error {
	logger.InfoCtx(ctx, "Replaying finalized darkpool events",
		zap.String("chain", string(s.config.ChainID)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock))

	historical, err := s.client.FilterDarkpoolLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("failed to fetch darkpool logs %d-%d: %w", fromBlock, toBlock, err)
	}

	replay := newPendingBlocks()
	for _, vLog := range historical {
		if vLog.Removed {
			continue
		}
		replay.add(vLog)
	}

	return s.flushFinalized(ctx, replay, toBlock, handler)
}

// flushFinalized builds and delivers the envelope of every buffered block at
// or below the finalized height, in ascending block order. Parse and handler
// failures are fatal; skipping a block would silently drop state transitions.
func (s *ethSubscriber) flushFinalized(ctx context.Context, pending *pendingBlocks, finalized uint64, handler messaging.BlockHandler) error {
	for _, blockNumber := range pending.finalizedBlocks(finalized) {
		envelope, err := s.buildEnvelope(ctx, blockNumber, pending.take(blockNumber))
		if err != nil {
			return err
		}
		if envelope == nil {
			continue
		}
		if err := handler(envelope); err != nil {
			return fmt.Errorf("failed to handle block %d: %w", blockNumber, err)
		}
	}
	return nil
}

// buildEnvelope decodes one block's buffered logs in log-index order and
// stamps them with the block timestamp. Returns (nil, nil) when nothing in
// the block decodes to a tracked event.
func (s *ethSubscriber) buildEnvelope(ctx context.Context, blockNumber uint64, blockLogs map[uint]types.Log) (*domain.BlockEvents, error) {
	indices := make([]uint, 0, len(blockLogs))
	for index := range blockLogs {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	events := make([]domain.DarkpoolEvent, 0, len(blockLogs))
	var blockHash string
	for _, index := range indices {
		vLog := blockLogs[index]
		event, err := s.client.ParseDarkpoolLog(vLog)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log %d of block %d: %w", index, blockNumber, err)
		}
		if event == nil {
			continue
		}
		blockHash = vLog.BlockHash.Hex()
		events = append(events, *event)
	}
	if len(events) == 0 {
		return nil, nil
	}

	timestamp, err := s.blocks.GetBlockTimestamp(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get timestamp of block %d: %w", blockNumber, err)
	}
	for i := range events {
		events[i].Timestamp = timestamp
	}

	return &domain.BlockEvents{
		Chain:       s.config.ChainID,
		BlockNumber: blockNumber,
		BlockHash:   blockHash,
		Timestamp:   timestamp,
		Events:      events,
	}, nil
}

// finalizedHeight returns the highest block considered final at the given head
func (s *ethSubscriber) finalizedHeight(head uint64) uint64 {
	if head < s.config.Confirmations {
		return 0
	}
	return head - s.config.Confirmations
}

// GetLatestBlock returns the latest block number
func (s *ethSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	return s.blocks.GetLatestBlock(ctx)
}

// Close closes the connection
func (s *ethSubscriber) Close() {
	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum WebSocket connection closed")
}

// pendingBlocks buffers live logs per block until the block finalizes,
// deduplicating on log index
type pendingBlocks struct {
	blocks map[uint64]map[uint]types.Log
}

func newPendingBlocks() *pendingBlocks {
	return &pendingBlocks{blocks: make(map[uint64]map[uint]types.Log)}
}

func (p *pendingBlocks) add(vLog types.Log) {
	blockLogs, ok := p.blocks[vLog.BlockNumber]
	if !ok {
		blockLogs = make(map[uint]types.Log)
		p.blocks[vLog.BlockNumber] = blockLogs
	}
	blockLogs[vLog.Index] = vLog
}

func (p *pendingBlocks) remove(vLog types.Log) {
	blockLogs, ok := p.blocks[vLog.BlockNumber]
	if !ok {
		return
	}
	delete(blockLogs, vLog.Index)
	if len(blockLogs) == 0 {
		delete(p.blocks, vLog.BlockNumber)
	}
}

// finalizedBlocks returns the buffered block numbers at or below the
// finalized height, ascending
func (p *pendingBlocks) finalizedBlocks(finalized uint64) []uint64 {
	numbers := make([]uint64, 0, len(p.blocks))
	for blockNumber := range p.blocks {
		if blockNumber <= finalized {
			numbers = append(numbers, blockNumber)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}

// take removes and returns the buffered logs of one block
func (p *pendingBlocks) take(blockNumber uint64) map[uint]types.Log {
	blockLogs := p.blocks[blockNumber]
	delete(p.blocks, blockNumber)
	return blockLogs
}
