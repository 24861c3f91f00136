package messaging

import (
	"context"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// Publisher defines the interface for publishing block envelopes to the message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishBlockEvents publishes one block's darkpool events to the broker.
	// Publishing the same block twice is harmless; the broker deduplicates on
	// the message ID derived from the envelope content.
	PublishBlockEvents(ctx context.Context, envelope *domain.BlockEvents) error
	// Close closes the connection
	Close()
	// CloseChan returns a channel that is closed when the publisher is closed
	CloseChan() <-chan struct{}
}
