package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/block"
	"github.com/duskpool/dp-indexer/internal/ratelimit"
)

// ethereumBlockFetcher implements block.BlockFetcher for Ethereum
type ethereumBlockFetcher struct {
	client   adapter.EthClient
	gate     ratelimit.Proxy
	provider string
}

// NewEthereumBlockFetcher creates a block fetcher on a dialed EVM connection.
// gate may be nil; RPC calls then run without rate limiting.
func NewEthereumBlockFetcher(client adapter.EthClient, gate ratelimit.Proxy, provider string) block.BlockFetcher {
	return &ethereumBlockFetcher{client: client, gate: gate, provider: provider}
}

// FetchLatestBlock fetches the latest block number from Ethereum
func (f *ethereumBlockFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	header, err := ratelimit.Request(ctx, f.gate, f.provider, func(ctx context.Context) (*types.Header, error) {
		return f.client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// FetchBlockTimestamp fetches the timestamp for a given block number from Ethereum
func (f *ethereumBlockFetcher) FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	blk, err := ratelimit.Request(ctx, f.gate, f.provider, func(ctx context.Context) (*types.Block, error) {
		return f.client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get block %d: %w", blockNumber, err)
	}
	return time.Unix(int64(blk.Time()), 0), nil //nolint:gosec,G115
}
