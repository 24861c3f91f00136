package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
	jcs        adapter.JCS
	closeChan  chan struct{}
}

// NewPublisher creates a new NATS JetStream publisher for block envelopes
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON, jcsAdapter adapter.JCS) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
		jcs:        jcsAdapter,
		closeChan:  make(chan struct{}),
	}, nil
}

// PublishBlockEvents publishes one block's darkpool events to NATS JetStream.
// The message ID is the keccak hash of the JCS-canonicalized envelope, so a
// re-emitted block collapses into the original message on the broker side.
func (p *publisher) PublishBlockEvents(ctx context.Context, envelope *domain.BlockEvents) error {
	logger.Debug("Publishing block envelope",
		zap.String("chain", string(envelope.Chain)),
		zap.Uint64("blockNumber", envelope.BlockNumber),
		zap.Int("events", len(envelope.Events)),
	)

	data, err := p.json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal block envelope: %w", err)
	}

	msgID, err := p.messageID(data)
	if err != nil {
		return fmt.Errorf("failed to compute message ID: %w", err)
	}

	subject := messaging.SubjectForChain(envelope.Chain)

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("failed to publish block envelope: %w", err)
	}

	return nil
}

// messageID derives a content-addressed message ID for broker-side dedup.
// JCS canonicalization makes the ID independent of JSON key order.
func (p *publisher) messageID(data []byte) (string, error) {
	canonical, err := p.jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize envelope: %w", err)
	}

	return crypto.Keccak256Hash(canonical).Hex(), nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
	close(p.closeChan)
}

// CloseChan returns a channel that is closed when the publisher is closed
func (p *publisher) CloseChan() <-chan struct{} {
	return p.closeChan
}
