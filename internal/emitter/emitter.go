package emitter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/messaging"
	"github.com/duskpool/dp-indexer/internal/store"
)

// Config holds the configuration for the event emitter
type Config struct {
	ChainID         domain.Chain
	StartBlock      uint64
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
}

// Emitter defines the interface for the event emitter
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Run starts the event emitter
	Run(ctx context.Context) error
	// Close closes the emitter and cleans up resources
	Close()
}

// emitter subscribes to darkpool contract events on one chain and publishes
// finalized block envelopes to NATS
type emitter struct {
	subscriber messaging.Subscriber
	publisher  messaging.Publisher
	cursors    store.CursorStore
	config     Config
	clock      adapter.Clock
}

// NewEmitter creates a new event emitter
func NewEmitter(
	sub messaging.Subscriber,
	pub messaging.Publisher,
	cursors store.CursorStore,
	cfg Config,
	clock adapter.Clock,
) Emitter {
	return &emitter{
		subscriber: sub,
		publisher:  pub,
		cursors:    cursors,
		config:     cfg,
		clock:      clock,
	}
}

// Run starts the event emitter
func (e *emitter) Run(ctx context.Context) error {
	// Determine starting block
	startBlock := e.config.StartBlock
	if startBlock == 0 {
		// Get last published block from store
		lastBlock, err := e.cursors.GetBlockCursor(ctx, e.config.ChainID)
		if err != nil {
			return fmt.Errorf("failed to get block cursor: %w", err)
		}

		if lastBlock > 0 {
			startBlock = lastBlock + 1
			logger.Info("Resuming from last published block", zap.String("chain", string(e.config.ChainID)), zap.Uint64("block", startBlock))
		} else {
			// Start from latest block
			latestBlock, err := e.subscriber.GetLatestBlock(ctx)
			if err != nil {
				return fmt.Errorf("failed to get latest block number: %w", err)
			}
			startBlock = latestBlock
			logger.Info("Starting from latest block", zap.String("chain", string(e.config.ChainID)), zap.Uint64("block", startBlock))
		}
	} else {
		logger.Info("Starting from configured block", zap.String("chain", string(e.config.ChainID)), zap.Uint64("block", startBlock))
	}

	// Channel for subscription failures
	errCh := make(chan error, 1)

	// Start subscribing to block envelopes
	go func() {
		logger.Info("Starting darkpool event subscription", zap.String("chain", string(e.config.ChainID)))

		lastSavedBlock := uint64(0)
		lastSaveTime := e.clock.Now()

		handler := func(envelope *domain.BlockEvents) error {
			// Publish to NATS. The broker deduplicates on the content-derived
			// message ID, so a crash between publish and cursor save only
			// causes harmless republishes on restart.
			if err := e.publisher.PublishBlockEvents(ctx, envelope); err != nil {
				return fmt.Errorf("failed to publish block %d: %w", envelope.BlockNumber, err)
			}

			// Save cursor periodically (every N blocks or N seconds)
			shouldSave := envelope.BlockNumber-lastSavedBlock >= e.config.CursorSaveFreq ||
				e.clock.Since(lastSaveTime) >= e.config.CursorSaveDelay

			if shouldSave {
				if err := e.cursors.SetBlockCursor(ctx, e.config.ChainID, envelope.BlockNumber); err != nil {
					logger.WarnCtx(ctx, "Failed to save block cursor",
						zap.Uint64("block", envelope.BlockNumber), zap.Error(err))
				} else {
					lastSavedBlock = envelope.BlockNumber
					lastSaveTime = e.clock.Now()
				}
			}

			return nil
		}

		err := e.subscriber.SubscribeBlockEvents(ctx, startBlock, handler)
		if err != nil {
			errCh <- err
		}
	}()

	// Wait for error or context cancellation
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the emitter and cleans up resources
func (e *emitter) Close() {
	e.subscriber.Close()
}
