package ethereum

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func newTestClient(t *testing.T) *ethereumClient {
	t.Helper()

	client, err := NewClient(Config{
		ChainID:         domain.ChainArbitrumOne,
		ContractAddress: "0x9aE85Db5F7B9f4E4b79Fb05d4a1b9aE3750bc6E1",
	}, nil, nil)
	require.NoError(t, err)

	return client.(*ethereumClient)
}

// packEventData ABI-encodes the non-indexed inputs of a darkpool event
func packEventData(t *testing.T, c *ethereumClient, name string, args ...interface{}) []byte {
	t.Helper()

	data, err := c.events.Events[name].Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return data
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()

	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "not a decimal scalar: %s", s)
	return v
}

func TestNewClient_InvalidContractAddress(t *testing.T) {
	_, err := NewClient(Config{
		ChainID:         domain.ChainArbitrumOne,
		ContractAddress: "not-an-address",
	}, nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid darkpool contract address")
}

func TestParseDarkpoolLog_RecoveryIdRegistered(t *testing.T) {
	c := newTestClient(t)

	recoveryID := mustBig(t, "88399499021398167462196729601479362454534592356134224316465410108503966366772")
	nullifier := mustBig(t, "12790414113883725291829258169133722639282934261098211883845790899745287755")
	owner := common.HexToAddress("0x457ee5f723C7606c12a7264b52e285906F91eEA6")
	shares := []*big.Int{
		mustBig(t, "31850483840783261273840184466597676586936749390874512846510923154397802575"),
		big.NewInt(67890),
	}
	payload := []byte(`{"mint":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","amount":"250000000"}`)

	vLog := types.Log{
		Address: c.contract,
		Topics: []common.Hash{
			recoveryIDRegisteredSignature,
			common.BigToHash(recoveryID),
			common.BytesToHash(owner.Bytes()),
		},
		Data:        packEventData(t, c, "RecoveryIdRegistered", uint8(0), nullifier, shares, payload),
		BlockNumber: 231004466,
		TxHash:      common.HexToHash("0x11aa"),
		BlockHash:   common.HexToHash("0x22bb"),
		Index:       7,
	}

	event, err := c.ParseDarkpoolLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.ChainArbitrumOne, event.Chain)
	assert.Equal(t, domain.EventKindCreate, event.EventKind)
	assert.Equal(t, domain.ObjectTypeBalance, event.ObjectType)
	assert.Equal(t, recoveryID.String(), event.RecoveryID)
	assert.Equal(t, nullifier.String(), event.Nullifier)
	assert.Equal(t, owner.Hex(), event.OwnerAddress)
	assert.Equal(t, []string{shares[0].String(), "67890"}, event.PublicShares)
	assert.Equal(t, payload, event.Payload)
	assert.Empty(t, event.OldNullifier)
	assert.Zero(t, event.NewVersion)
	assert.Equal(t, uint64(231004466), event.BlockNumber)
	assert.Equal(t, common.HexToHash("0x22bb").Hex(), event.BlockHash)
	assert.Equal(t, common.HexToHash("0x11aa").Hex(), event.TxHash)
	assert.Equal(t, uint(7), event.LogIndex)
	assert.True(t, event.Valid())
}

func TestParseDarkpoolLog_RecoveryIdRegistered_Intent(t *testing.T) {
	c := newTestClient(t)

	recoveryID := big.NewInt(42)
	nullifier := big.NewInt(43)
	owner := common.HexToAddress("0x99fc8AD516FBCC9bA3123D56e63A35d05AA9EFB8")

	vLog := types.Log{
		Topics: []common.Hash{
			recoveryIDRegisteredSignature,
			common.BigToHash(recoveryID),
			common.BytesToHash(owner.Bytes()),
		},
		Data: packEventData(t, c, "RecoveryIdRegistered",
			uint8(1), nullifier, []*big.Int{big.NewInt(1)}, []byte(`{}`)),
	}

	event, err := c.ParseDarkpoolLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.ObjectTypeIntent, event.ObjectType)
}

func TestParseDarkpoolLog_NullifierSpent(t *testing.T) {
	c := newTestClient(t)

	nullifier := mustBig(t, "91850483840783261273840184466597676586936749390874512846510923154397802575")

	vLog := types.Log{
		Address: c.contract,
		Topics: []common.Hash{
			nullifierSpentSignature,
			common.BigToHash(nullifier),
		},
		BlockNumber: 231004467,
		TxHash:      common.HexToHash("0x33cc"),
		Index:       0,
	}

	event, err := c.ParseDarkpoolLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.EventKindNullify, event.EventKind)
	assert.Equal(t, nullifier.String(), event.OldNullifier)
	assert.Empty(t, event.RecoveryID)
	assert.Empty(t, event.Nullifier)
	assert.Empty(t, event.PublicShares)
	assert.Empty(t, event.OwnerAddress)
	assert.True(t, event.Valid())
}

func TestParseDarkpoolLog_ObjectSuperseded(t *testing.T) {
	c := newTestClient(t)

	oldNullifier := mustBig(t, "12790414113883725291829258169133722639282934261098211883845790899745287755")
	newRecoveryID := mustBig(t, "88399499021398167462196729601479362454534592356134224316465410108503966366773")
	newNullifier := mustBig(t, "51850483840783261273840184466597676586936749390874512846510923154397802575")
	shares := []*big.Int{big.NewInt(111), big.NewInt(222), big.NewInt(333)}
	payload := []byte(`{"input_mint":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}`)

	vLog := types.Log{
		Address: c.contract,
		Topics: []common.Hash{
			objectSupersededSignature,
			common.BigToHash(oldNullifier),
			common.BigToHash(newRecoveryID),
		},
		Data:        packEventData(t, c, "ObjectSuperseded", uint8(1), newNullifier, uint64(3), shares, payload),
		BlockNumber: 231004470,
		TxHash:      common.HexToHash("0x44dd"),
		Index:       12,
	}

	event, err := c.ParseDarkpoolLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.EventKindNullifyAndRecreate, event.EventKind)
	assert.Equal(t, domain.ObjectTypeIntent, event.ObjectType)
	assert.Equal(t, oldNullifier.String(), event.OldNullifier)
	assert.Equal(t, newRecoveryID.String(), event.RecoveryID)
	assert.Equal(t, newNullifier.String(), event.Nullifier)
	assert.Equal(t, uint64(3), event.NewVersion)
	assert.Equal(t, []string{"111", "222", "333"}, event.PublicShares)
	assert.Equal(t, payload, event.Payload)
	assert.True(t, event.Valid())
}

func TestParseDarkpoolLog_UntrackedTopic(t *testing.T) {
	c := newTestClient(t)

	vLog := types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
		},
	}

	event, err := c.ParseDarkpoolLog(vLog)
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestParseDarkpoolLog_Invalid(t *testing.T) {
	c := newTestClient(t)

	registeredData := packEventData(t, c, "RecoveryIdRegistered",
		uint8(0), big.NewInt(1), []*big.Int{big.NewInt(2)}, []byte(`{}`))
	owner := common.HexToAddress("0x457ee5f723C7606c12a7264b52e285906F91eEA6")

	testCases := []struct {
		name    string
		vLog    types.Log
		wantErr string
	}{
		{
			name:    "no topics",
			vLog:    types.Log{},
			wantErr: "log has no topics",
		},
		{
			name: "registered missing owner topic",
			vLog: types.Log{
				Topics: []common.Hash{recoveryIDRegisteredSignature, common.BigToHash(big.NewInt(1))},
				Data:   registeredData,
			},
			wantErr: "expected 3 topics",
		},
		{
			name: "registered truncated data",
			vLog: types.Log{
				Topics: []common.Hash{
					recoveryIDRegisteredSignature,
					common.BigToHash(big.NewInt(1)),
					common.BytesToHash(owner.Bytes()),
				},
				Data: registeredData[:8],
			},
			wantErr: "failed to unpack RecoveryIdRegistered data",
		},
		{
			name: "registered unknown object type code",
			vLog: types.Log{
				Topics: []common.Hash{
					recoveryIDRegisteredSignature,
					common.BigToHash(big.NewInt(1)),
					common.BytesToHash(owner.Bytes()),
				},
				Data: packEventData(t, c, "RecoveryIdRegistered",
					uint8(9), big.NewInt(1), []*big.Int{big.NewInt(2)}, []byte(`{}`)),
			},
			wantErr: "unknown object type code: 9",
		},
		{
			name: "spent with extra topic",
			vLog: types.Log{
				Topics: []common.Hash{
					nullifierSpentSignature,
					common.BigToHash(big.NewInt(1)),
					common.BigToHash(big.NewInt(2)),
				},
			},
			wantErr: "expected 2 topics",
		},
		{
			name: "superseded missing recovery topic",
			vLog: types.Log{
				Topics: []common.Hash{objectSupersededSignature, common.BigToHash(big.NewInt(1))},
			},
			wantErr: "expected 3 topics",
		},
		{
			name: "superseded truncated data",
			vLog: types.Log{
				Topics: []common.Hash{
					objectSupersededSignature,
					common.BigToHash(big.NewInt(1)),
					common.BigToHash(big.NewInt(2)),
				},
				Data: []byte{0x01, 0x02},
			},
			wantErr: "failed to unpack ObjectSuperseded data",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := c.ParseDarkpoolLog(tc.vLog)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Nil(t, event)
		})
	}
}

func TestFilterLogsByRecoveryID_InvalidID(t *testing.T) {
	c := newTestClient(t)

	_, err := c.FilterLogsByRecoveryID(context.Background(), "0xnotdecimal", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recovery ID")
}

func TestFilterLogsByRecoveryID_CoversBothRegistrationShapes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rpc := mocks.NewMockEthClient(ctrl)
	client, err := NewClient(Config{
		ChainID:         domain.ChainArbitrumOne,
		ContractAddress: "0x9aE85Db5F7B9f4E4b79Fb05d4a1b9aE3750bc6E1",
	}, rpc, nil)
	require.NoError(t, err)

	recoveryID := mustBig(t, "88399499021398167462196729601479362454534592356134224316465410108503966366773")
	idTopic := common.BigToHash(recoveryID)

	// The superseded log lands earlier on chain than the registered one so
	// the merge order is observable
	supersededLog := types.Log{
		BlockNumber: 231004470,
		Index:       12,
		Topics:      []common.Hash{objectSupersededSignature, common.BigToHash(big.NewInt(9)), idTopic},
	}
	registeredLog := types.Log{
		BlockNumber: 231004500,
		Index:       3,
		Topics:      []common.Hash{recoveryIDRegisteredSignature, idTopic, common.HexToHash("0x01")},
	}

	gomock.InOrder(
		rpc.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, query goethereum.FilterQuery) ([]types.Log, error) {
				require.Len(t, query.Topics, 2)
				assert.Equal(t, []common.Hash{recoveryIDRegisteredSignature}, query.Topics[0])
				assert.Equal(t, []common.Hash{idTopic}, query.Topics[1])
				assert.Equal(t, uint64(231004000), query.FromBlock.Uint64())
				assert.Equal(t, uint64(231004999), query.ToBlock.Uint64())
				return []types.Log{registeredLog}, nil
			}),
		rpc.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, query goethereum.FilterQuery) ([]types.Log, error) {
				require.Len(t, query.Topics, 3)
				assert.Equal(t, []common.Hash{objectSupersededSignature}, query.Topics[0])
				assert.Empty(t, query.Topics[1])
				assert.Equal(t, []common.Hash{idTopic}, query.Topics[2])
				return []types.Log{supersededLog}, nil
			}),
	)

	logs, err := client.FilterLogsByRecoveryID(context.Background(), recoveryID.String(), 231004000, 231004999)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, supersededLog, logs[0])
	assert.Equal(t, registeredLog, logs[1])
}

func TestFilterLogsByNullifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rpc := mocks.NewMockEthClient(ctrl)
	client, err := NewClient(Config{
		ChainID:         domain.ChainArbitrumOne,
		ContractAddress: "0x9aE85Db5F7B9f4E4b79Fb05d4a1b9aE3750bc6E1",
	}, rpc, nil)
	require.NoError(t, err)

	nullifier := mustBig(t, "12790414113883725291829258169133722639282934261098211883845790899745287755")
	spendLog := types.Log{
		BlockNumber: 231004600,
		Index:       1,
		Topics:      []common.Hash{nullifierSpentSignature, common.BigToHash(nullifier)},
	}

	rpc.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, query goethereum.FilterQuery) ([]types.Log, error) {
			require.Len(t, query.Topics, 2)
			assert.Equal(t, []common.Hash{nullifierSpentSignature, objectSupersededSignature}, query.Topics[0])
			assert.Equal(t, []common.Hash{common.BigToHash(nullifier)}, query.Topics[1])
			return []types.Log{spendLog}, nil
		})

	logs, err := client.FilterLogsByNullifier(context.Background(), nullifier.String(), 231004000, 231004999)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, spendLog, logs[0])
}

func TestFilterLogsByNullifier_InvalidNullifier(t *testing.T) {
	c := newTestClient(t)

	_, err := c.FilterLogsByNullifier(context.Background(), "not-a-scalar", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid nullifier")
}

func TestIsTooManyResultsError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"infura result cap", errors.New("query returned more than 10000 results"), true},
		{"query timeout", errors.New("query timeout exceeded"), true},
		{"generic too many", errors.New("too many results"), true},
		{"range cap", errors.New("eth_getLogs block range exceeded maximum"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTooManyResultsError(tc.err))
		})
	}
}
