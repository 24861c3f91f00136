package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/messaging"
	"github.com/duskpool/dp-indexer/internal/store"
)

// Config holds the configuration for the reconciler
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	Chains         []domain.Chain
}

// Reconciler drains ordered block envelopes from JetStream and folds them
// into the state database
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=Reconciler=MockReconciler
type Reconciler interface {
	// Run consumes block envelopes for every configured chain until the
	// context is canceled or a chain fails with a non-halt error
	Run(ctx context.Context) error
	// Close closes the reconciler and cleans up resources
	Close()
}

type reconciler struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	store  store.Store
	json   adapter.JSON
	config Config
}

// NewReconciler creates a new reconciler connected to NATS
func NewReconciler(
	cfg Config,
	natsJS adapter.NatsJetStream,
	st store.Store,
	jsonAdapter adapter.JSON,
) (Reconciler, error) {
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("no chains configured")
	}
	for _, chain := range cfg.Chains {
		if !domain.IsValidChain(chain) {
			return nil, fmt.Errorf("unsupported chain: %s", chain)
		}
	}

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

	r := &reconciler{
		nc:     nc,
		js:     js,
		store:  st,
		json:   jsonAdapter,
		config: cfg,
	}

	return r, nil
}

// Run starts one consumer per configured chain and blocks until the context
// is canceled or a chain fails with an infrastructure error. A chain that
// halts on a data error stops consuming but does not take the other chains
// down with it.
func (r *reconciler) Run(ctx context.Context) error {
	logger.Info("Starting reconciler",
		zap.String("stream", r.config.StreamName),
		zap.String("consumer", r.config.ConsumerName),
		zap.Int("chains", len(r.config.Chains)))

	errCh := make(chan error, len(r.config.Chains))
	for _, chain := range r.config.Chains {
		go func(chain domain.Chain) {
			err := r.consumeChain(ctx, chain)
			switch {
			case err == nil || errors.Is(err, context.Canceled):
			case errors.Is(err, domain.ErrChainHalted):
				logger.Error(err, zap.String("message", "Chain halted, manual intervention required"),
					zap.String("chain", string(chain)))
			default:
				errCh <- fmt.Errorf("chain %s: %w", chain, err)
			}
		}(chain)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down reconciler")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// consumeChain consumes the per-chain subject through a durable consumer and
// applies every block envelope in order
func (r *reconciler) consumeChain(ctx context.Context, chain domain.Chain) error {
	// A halted chain refuses to resume until the operator clears the marker
	reason, halted, err := r.store.GetChainHalted(ctx, chain)
	if err != nil {
		return fmt.Errorf("failed to check halt marker: %w", err)
	}
	if halted {
		return fmt.Errorf("%w: %s: %s", domain.ErrChainHalted, chain, reason)
	}

	durable := fmt.Sprintf("%s-%s", r.config.ConsumerName, strings.ReplaceAll(string(chain), ":", "-"))

	// MaxAckPending 1 keeps delivery strictly sequential; block envelopes
	// must reach the store in chain order
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       r.config.AckWaitTimeout,
		MaxDeliver:    r.config.MaxDeliver,
		FilterSubject: messaging.SubjectForChain(chain),
		MaxAckPending: 1,
	}

	consumer, err := r.js.CreateOrUpdateConsumer(ctx, r.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved",
		zap.String("chain", string(chain)),
		zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 1)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming block envelopes", zap.String("chain", string(chain)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgChan:
			// Handled inline; a goroutine per message would reorder blocks
			if err := r.handleMessage(ctx, chain, msg); err != nil {
				return err
			}
		}
	}
}

// handleMessage applies a single block envelope. A nil return means the
// message reached a terminal state (acked or terminated); an error return
// leaves the message unacked so JetStream redelivers it.
func (r *reconciler) handleMessage(ctx context.Context, chain domain.Chain, msg adapter.Message) error {
	var envelope domain.BlockEvents
	if err := r.json.Unmarshal(msg.Data(), &envelope); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to unmarshal block envelope"),
			zap.String("chain", string(chain)))
		// Terminate: an unparseable payload never becomes parseable on redelivery
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to terminate message"))
		}
		return nil
	}

	if !envelope.Valid() {
		return r.halt(ctx, chain, fmt.Errorf("invalid block envelope for block %d", envelope.BlockNumber))
	}
	if envelope.Chain != chain {
		return r.halt(ctx, chain, fmt.Errorf("envelope chain %s does not match consumer chain %s", envelope.Chain, chain))
	}

	var checkpoint uint64
	if err := r.retryTransient(ctx, chain, "get checkpoint", func() error {
		var err error
		checkpoint, err = r.store.GetCheckpoint(ctx, chain)
		return err
	}); err != nil {
		if isContextErr(err) {
			return err
		}
		return r.halt(ctx, chain, fmt.Errorf("failed to load checkpoint: %w", err))
	}

	// Blocks at or below the checkpoint were fully applied before a crash or
	// are duplicate deliveries
	if envelope.BlockNumber <= checkpoint {
		logger.WarnCtx(ctx, "Skipping already reconciled block",
			zap.String("chain", string(chain)),
			zap.Uint64("blockNumber", envelope.BlockNumber),
			zap.Uint64("checkpoint", checkpoint))
		if err := msg.Ack(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ACK message"))
		}
		return nil
	}

	metadata, _ := msg.Metadata()
	deliveries := uint64(0)
	if metadata != nil {
		deliveries = metadata.NumDelivered
	}
	logger.InfoCtx(ctx, "Received block envelope",
		zap.String("chain", string(chain)),
		zap.Uint64("blockNumber", envelope.BlockNumber),
		zap.Int("events", len(envelope.Events)),
		zap.Uint64("deliveryCount", deliveries))

	if err := r.applyEnvelope(ctx, &envelope); err != nil {
		if isContextErr(err) {
			// Leave the message unacked so it is redelivered after restart
			return err
		}
		return r.halt(ctx, chain, err)
	}

	if err := r.retryTransient(ctx, chain, "advance checkpoint", func() error {
		return r.store.AdvanceCheckpoint(ctx, chain, envelope.BlockNumber)
	}); err != nil {
		if isContextErr(err) {
			return err
		}
		return r.halt(ctx, chain, fmt.Errorf("failed to advance checkpoint: %w", err))
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ACK message"))
	}
	return nil
}

// applyEnvelope applies every event of a block in log order
func (r *reconciler) applyEnvelope(ctx context.Context, envelope *domain.BlockEvents) error {
	for i := range envelope.Events {
		event := &envelope.Events[i]
		if err := r.applyEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to apply %s event at log %d of block %d: %w",
				event.EventKind, event.LogIndex, event.BlockNumber, err)
		}
	}
	return nil
}

// applyEvent routes one event to its store transaction. Events already
// recorded in the nullifier or recovery ID ledgers are skipped so crash
// replays converge instead of halting.
func (r *reconciler) applyEvent(ctx context.Context, event *domain.DarkpoolEvent) error {
	err := r.retryTransient(ctx, event.Chain, string(event.EventKind), func() error {
		var err error
		switch event.EventKind {
		case domain.EventKindCreate:
			_, err = r.store.ApplyCreate(ctx, event)
		case domain.EventKindNullify:
			_, err = r.store.ApplyNullify(ctx, event)
		case domain.EventKindNullifyAndRecreate:
			_, err = r.store.ApplySupersede(ctx, event)
		default:
			err = backoff.Permanent(fmt.Errorf("unknown event kind: %s", event.EventKind))
		}
		return err
	})
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		logger.WarnCtx(ctx, "Event already applied, skipping",
			zap.String("chain", string(event.Chain)),
			zap.String("eventKind", string(event.EventKind)),
			zap.String("txHash", event.TxHash),
			zap.Uint("logIndex", event.LogIndex))
		return nil
	}
	return err
}

// retryTransient retries a store operation with unbounded exponential backoff.
// Data errors and idempotency hits are permanent; retrying them cannot change
// the outcome.
func (r *reconciler) retryTransient(ctx context.Context, chain domain.Chain, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	return backoff.RetryNotify(
		func() error {
			err := fn()
			if err != nil && (domain.IsDataError(err) || errors.Is(err, domain.ErrAlreadyProcessed)) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			logger.WarnCtx(ctx, "Retrying store operation",
				zap.String("chain", string(chain)),
				zap.String("operation", op),
				zap.Duration("backoff", next),
				zap.Error(err))
		},
	)
}

// halt persists the halt marker and returns the error that stops the chain
// consumer. The triggering message stays unacked; after the operator clears
// the marker JetStream redelivers it.
func (r *reconciler) halt(ctx context.Context, chain domain.Chain, cause error) error {
	logger.ErrorCtx(ctx, cause, zap.String("message", "Halting chain on unrecoverable reconciliation error"),
		zap.String("chain", string(chain)))

	if err := r.retryTransient(ctx, chain, "set halt marker", func() error {
		return r.store.SetChainHalted(ctx, chain, cause.Error())
	}); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to persist halt marker"),
			zap.String("chain", string(chain)))
	}

	return fmt.Errorf("%w: %s: %s", domain.ErrChainHalted, chain, cause)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Close closes the reconciler and cleans up resources
func (r *reconciler) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
