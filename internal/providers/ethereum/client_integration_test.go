package ethereum

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/domain"
)

// TestDarkpoolClient_Integration runs against a real RPC endpoint and a
// deployed darkpool contract. It verifies that the log filter, pagination and
// decoder agree with what the chain actually serves.
func TestDarkpoolClient_Integration(t *testing.T) {
	rpcURL := os.Getenv("ETHEREUM_RPC_URL")
	contractAddress := os.Getenv("DARKPOOL_CONTRACT_ADDRESS")
	if rpcURL == "" || contractAddress == "" {
		t.Skip("Skipping integration test: ETHEREUM_RPC_URL or DARKPOOL_CONTRACT_ADDRESS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dialer := adapter.NewEthClientDialer()
	ethClient, err := dialer.Dial(ctx, rpcURL)
	require.NoError(t, err)
	t.Cleanup(func() { ethClient.Close() })

	client, err := NewClient(Config{
		ChainID:         domain.ChainArbitrumOne,
		ContractAddress: contractAddress,
	}, ethClient, nil)
	require.NoError(t, err)

	head, err := client.GetLatestBlockNumber(ctx)
	require.NoError(t, err)
	require.Greater(t, head, uint64(0))

	var fromBlock uint64
	if head > 50_000 {
		fromBlock = head - 50_000
	}

	logs, err := client.FilterDarkpoolLogs(ctx, fromBlock, head)
	require.NoError(t, err)
	t.Logf("darkpool logs in [%d, %d]: %d", fromBlock, head, len(logs))

	for _, vLog := range logs {
		event, err := client.ParseDarkpoolLog(vLog)
		require.NoError(t, err)
		require.NotNil(t, event)
		require.True(t, event.Valid(), "event %s/%d should be valid", event.TxHash, event.LogIndex)
	}
}
