package messaging

import (
	"context"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// BlockHandler is called with the grouped darkpool events of one finalized block
type BlockHandler func(envelope *domain.BlockEvents) error

// Subscriber defines the interface for subscribing to darkpool contract events
// on one chain
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeBlockEvents subscribes to darkpool events starting at fromBlock
	// (0 for latest) and delivers them grouped per block, in block order. The
	// handler must return nil before the next block is delivered.
	SubscribeBlockEvents(ctx context.Context, fromBlock uint64, handler BlockHandler) error

	// GetLatestBlock returns the latest block number on the chain
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
