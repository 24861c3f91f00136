package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskpool/dp-indexer/internal/mocks"
)

func TestEthereumBlockFetcher_FetchLatestBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ethClient := mocks.NewMockEthClient(ctrl)
	fetcher := NewEthereumBlockFetcher(ethClient, nil, "")

	ethClient.EXPECT().HeaderByNumber(gomock.Any(), nil).
		Return(&types.Header{Number: big.NewInt(231004466)}, nil)

	head, err := fetcher.FetchLatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(231004466), head)
}

func TestEthereumBlockFetcher_FetchLatestBlock_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ethClient := mocks.NewMockEthClient(ctrl)
	fetcher := NewEthereumBlockFetcher(ethClient, nil, "")

	ethClient.EXPECT().HeaderByNumber(gomock.Any(), nil).
		Return(nil, errors.New("connection refused"))

	_, err := fetcher.FetchLatestBlock(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block")
}

func TestEthereumBlockFetcher_FetchBlockTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ethClient := mocks.NewMockEthClient(ctrl)
	fetcher := NewEthereumBlockFetcher(ethClient, nil, "")

	blk := types.NewBlockWithHeader(&types.Header{
		Number: big.NewInt(123),
		Time:   1717243200,
	})
	ethClient.EXPECT().BlockByNumber(gomock.Any(), big.NewInt(123)).Return(blk, nil)

	ts, err := fetcher.FetchBlockTimestamp(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1717243200, 0), ts)
}

func TestEthereumBlockFetcher_FetchBlockTimestamp_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ethClient := mocks.NewMockEthClient(ctrl)
	fetcher := NewEthereumBlockFetcher(ethClient, nil, "")

	ethClient.EXPECT().BlockByNumber(gomock.Any(), big.NewInt(456)).
		Return(nil, errors.New("missing trie node"))

	_, err := fetcher.FetchBlockTimestamp(context.Background(), 456)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block 456")
}
