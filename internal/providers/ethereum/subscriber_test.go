package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/mocks"
)

type fakeSubscription struct {
	errCh chan error
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1)}
}

func (s *fakeSubscription) Unsubscribe() {}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }

// parseByIdentity decodes any log into a minimal valid nullify event derived
// from the log position, so tests can assert grouping and ordering without
// real ABI payloads
func parseByIdentity(chain domain.Chain) func(vLog types.Log) (*domain.DarkpoolEvent, error) {
	return func(vLog types.Log) (*domain.DarkpoolEvent, error) {
		return &domain.DarkpoolEvent{
			Chain:        chain,
			EventKind:    domain.EventKindNullify,
			OldNullifier: fmt.Sprintf("%d", vLog.BlockNumber*1000+uint64(vLog.Index)),
			TxHash:       vLog.TxHash.Hex(),
			BlockNumber:  vLog.BlockNumber,
			BlockHash:    vLog.BlockHash.Hex(),
			LogIndex:     vLog.Index,
		}, nil
	}
}

func waitEnvelope(t *testing.T, ch <-chan *domain.BlockEvents) *domain.BlockEvents {
	t.Helper()

	select {
	case envelope := <-ch:
		return envelope
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for block envelope")
		return nil
	}
}

func TestNewSubscriber_InvalidChain(t *testing.T) {
	_, err := NewSubscriber(Config{ChainID: "bogus"}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid chain ID")
}

func TestSubscribeBlockEvents_ReplayThenLive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	chain := domain.ChainArbitrumOne
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Head 100 with 10 confirmations finalizes up to block 90
	client.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(100), nil).Times(2)

	// The replay of 5-90 returns blocks 7 (two logs, out of order) and 9
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(5), uint64(90)).Return([]types.Log{
		{BlockNumber: 7, Index: 4, TxHash: common.HexToHash("0x01"), BlockHash: common.HexToHash("0xa1")},
		{BlockNumber: 9, Index: 0, TxHash: common.HexToHash("0x02"), BlockHash: common.HexToHash("0xa2")},
		{BlockNumber: 7, Index: 1, TxHash: common.HexToHash("0x03"), BlockHash: common.HexToHash("0xa1")},
	}, nil)
	client.EXPECT().ParseDarkpoolLog(gomock.Any()).DoAndReturn(parseByIdentity(chain)).AnyTimes()
	blocks.EXPECT().GetBlockTimestamp(gomock.Any(), gomock.Any()).Return(ts, nil).AnyTimes()

	// Live subscription starts at 91; the overlap window carries block 95
	fakeSub := newFakeSubscription()
	captured := make(chan chan<- types.Log, 1)
	client.EXPECT().SubscribeDarkpoolLogs(gomock.Any(), uint64(91), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uint64, ch chan<- types.Log) (ethereum.Subscription, error) {
			captured <- ch
			return fakeSub, nil
		})
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(91), uint64(100)).Return([]types.Log{
		{BlockNumber: 95, Index: 2, TxHash: common.HexToHash("0x04"), BlockHash: common.HexToHash("0xa3")},
	}, nil)

	clock.EXPECT().NewTicker(5 * time.Millisecond).Return(time.NewTicker(5 * time.Millisecond))
	blocks.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(120), nil).AnyTimes()

	subscriber, err := NewSubscriber(Config{
		ChainID:       chain,
		Confirmations: 10,
		FlushInterval: 5 * time.Millisecond,
	}, client, blocks, clock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envelopes := make(chan *domain.BlockEvents, 16)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.SubscribeBlockEvents(ctx, 5, func(envelope *domain.BlockEvents) error {
			envelopes <- envelope
			return nil
		})
	}()

	// Replayed blocks arrive in block order with events sorted by log index
	env7 := waitEnvelope(t, envelopes)
	assert.Equal(t, chain, env7.Chain)
	assert.Equal(t, uint64(7), env7.BlockNumber)
	assert.Equal(t, common.HexToHash("0xa1").Hex(), env7.BlockHash)
	assert.Equal(t, ts, env7.Timestamp)
	require.Len(t, env7.Events, 2)
	assert.Equal(t, uint(1), env7.Events[0].LogIndex)
	assert.Equal(t, uint(4), env7.Events[1].LogIndex)
	assert.Equal(t, ts, env7.Events[0].Timestamp)

	env9 := waitEnvelope(t, envelopes)
	assert.Equal(t, uint64(9), env9.BlockNumber)
	require.Len(t, env9.Events, 1)

	// The overlap block flushes on the first tick that sees head 120
	env95 := waitEnvelope(t, envelopes)
	assert.Equal(t, uint64(95), env95.BlockNumber)
	require.Len(t, env95.Events, 1)
	assert.Equal(t, uint(2), env95.Events[0].LogIndex)

	// A live log finalizes on a later tick
	liveCh := <-captured
	liveCh <- types.Log{BlockNumber: 105, Index: 3, TxHash: common.HexToHash("0x05"), BlockHash: common.HexToHash("0xa4")}

	env105 := waitEnvelope(t, envelopes)
	assert.Equal(t, uint64(105), env105.BlockNumber)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestSubscribeBlockEvents_DropsReorgedLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	chain := domain.ChainArbitrumOne
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Head 100 with 10 confirmations; starting from latest skips the replay
	client.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(100), nil).Times(2)

	fakeSub := newFakeSubscription()
	captured := make(chan chan<- types.Log, 1)
	client.EXPECT().SubscribeDarkpoolLogs(gomock.Any(), uint64(91), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uint64, ch chan<- types.Log) (ethereum.Subscription, error) {
			captured <- ch
			return fakeSub, nil
		})
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(91), uint64(100)).Return(nil, nil)
	client.EXPECT().ParseDarkpoolLog(gomock.Any()).DoAndReturn(parseByIdentity(chain)).AnyTimes()

	clock.EXPECT().NewTicker(5 * time.Millisecond).Return(time.NewTicker(5 * time.Millisecond))

	// The head sits at 104 until the test raises it, so blocks 95/96 stay
	// buffered while the reorg plays out
	var head atomic.Uint64
	head.Store(104)
	blocks.EXPECT().GetLatestBlock(gomock.Any()).DoAndReturn(func(context.Context) (uint64, error) {
		return head.Load(), nil
	}).AnyTimes()

	// Only blocks 94 and 96 may be stamped; a timestamp lookup for the
	// reorged-out block 95 would fail the test
	blocks.EXPECT().GetBlockTimestamp(gomock.Any(), uint64(94)).Return(ts, nil)
	blocks.EXPECT().GetBlockTimestamp(gomock.Any(), uint64(96)).Return(ts, nil)

	subscriber, err := NewSubscriber(Config{
		ChainID:       chain,
		Confirmations: 10,
		FlushInterval: 5 * time.Millisecond,
	}, client, blocks, clock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envelopes := make(chan *domain.BlockEvents, 16)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.SubscribeBlockEvents(ctx, 0, func(envelope *domain.BlockEvents) error {
			envelopes <- envelope
			return nil
		})
	}()

	liveCh := <-captured

	// Block 95 arrives, is reorged out, then block 94 arrives. The channel
	// is consumed in order, so once the block 94 envelope is out, the block
	// 95 log is guaranteed gone from the buffer.
	liveCh <- types.Log{BlockNumber: 95, Index: 0, TxHash: common.HexToHash("0x01"), BlockHash: common.HexToHash("0xa1")}
	liveCh <- types.Log{BlockNumber: 95, Index: 0, Removed: true, TxHash: common.HexToHash("0x01"), BlockHash: common.HexToHash("0xa1")}
	liveCh <- types.Log{BlockNumber: 94, Index: 1, TxHash: common.HexToHash("0x02"), BlockHash: common.HexToHash("0xa2")}

	env94 := waitEnvelope(t, envelopes)
	assert.Equal(t, uint64(94), env94.BlockNumber)

	// Raising the head past 95 flushes nothing for it; 96 still comes through
	head.Store(120)
	liveCh <- types.Log{BlockNumber: 96, Index: 0, TxHash: common.HexToHash("0x03"), BlockHash: common.HexToHash("0xa3")}

	env96 := waitEnvelope(t, envelopes)
	assert.Equal(t, uint64(96), env96.BlockNumber)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, envelopes)
}

func TestSubscribeBlockEvents_HandlerErrorStopsSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	chain := domain.ChainArbitrumOne

	client.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(100), nil)
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(1), uint64(90)).Return([]types.Log{
		{BlockNumber: 5, Index: 0, TxHash: common.HexToHash("0x01"), BlockHash: common.HexToHash("0xa1")},
	}, nil)
	client.EXPECT().ParseDarkpoolLog(gomock.Any()).DoAndReturn(parseByIdentity(chain))
	blocks.EXPECT().GetBlockTimestamp(gomock.Any(), uint64(5)).Return(time.Now(), nil)

	subscriber, err := NewSubscriber(Config{ChainID: chain, Confirmations: 10}, client, blocks, clock)
	require.NoError(t, err)

	handlerErr := errors.New("publish failed")
	err = subscriber.SubscribeBlockEvents(context.Background(), 1, func(*domain.BlockEvents) error {
		return handlerErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, handlerErr)
	assert.Contains(t, err.Error(), "failed to handle block 5")
}

func TestSubscribeBlockEvents_ParseErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	client.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(100), nil)
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(1), uint64(90)).Return([]types.Log{
		{BlockNumber: 5, Index: 0},
	}, nil)
	client.EXPECT().ParseDarkpoolLog(gomock.Any()).Return(nil, errors.New("unknown object type code: 9"))

	subscriber, err := NewSubscriber(Config{
		ChainID:       domain.ChainArbitrumOne,
		Confirmations: 10,
	}, client, blocks, clock)
	require.NoError(t, err)

	err = subscriber.SubscribeBlockEvents(context.Background(), 1, func(*domain.BlockEvents) error {
		t.Fatal("handler must not run for an undecodable block")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse log")
}

func TestSubscribeBlockEvents_SubscriptionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	client.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(100), nil).Times(2)

	fakeSub := newFakeSubscription()
	client.EXPECT().SubscribeDarkpoolLogs(gomock.Any(), uint64(91), gomock.Any()).Return(fakeSub, nil)
	client.EXPECT().FilterDarkpoolLogs(gomock.Any(), uint64(91), uint64(100)).Return(nil, nil)
	clock.EXPECT().NewTicker(gomock.Any()).Return(time.NewTicker(time.Hour))

	subscriber, err := NewSubscriber(Config{
		ChainID:       domain.ChainArbitrumOne,
		Confirmations: 10,
	}, client, blocks, clock)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- subscriber.SubscribeBlockEvents(context.Background(), 0, func(*domain.BlockEvents) error {
			return nil
		})
	}()

	fakeSub.errCh <- errors.New("websocket closed")

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subscription error")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscription error")
	}
}

func TestSubscriber_GetLatestBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	blocks := mocks.NewMockBlockProvider(ctrl)
	clock := mocks.NewMockClock(ctrl)

	blocks.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(777), nil)

	subscriber, err := NewSubscriber(Config{
		ChainID:       domain.ChainArbitrumOne,
		Confirmations: 10,
	}, client, blocks, clock)
	require.NoError(t, err)

	head, err := subscriber.GetLatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(777), head)
}
