package confirm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/notifier"
	"github.com/chainwatch/deposit-watcher/internal/registry"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

func init() {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
}

func newTestTracker(headNumber uint64, requiredConfirmations uint64) (*Tracker, *store.MemoryStore, *notifier.FakeNotifier) {
	requestClient := adapter.NewFakeEthClient()
	requestClient.HeaderByNumberFunc = func(ctx context.Context, number *big.Int) (*types.Header, error) {
		return &types.Header{Number: new(big.Int).SetUint64(headNumber)}, nil
	}

	dialer := adapter.NewFakeEthClientDialer()
	dialer.Clients["http://eth"] = requestClient

	reg := registry.New(context.Background(), []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", RequiredConfirmations: requiredConfirmations},
	}, dialer)

	s := store.NewMemoryStore()
	n := notifier.NewFakeNotifier()
	clock := adapter.NewFakeClock(time.Unix(1_700_000_000, 0))

	return New(Config{PoolSize: 5}, reg, s, n, clock), s, n
}

func TestTickConfirmsDepositAtThreshold(t *testing.T) {
	tr, s, n := newTestTracker(101, 1)

	dep := &domain.Deposit{
		TxHash:      "0xTX1",
		Chain:       "ETH",
		Asset:       domain.AssetNative,
		Status:      domain.StatusUnconfirmed,
		BlockNumber: 100,
	}
	require.NoError(t, s.Save(context.Background(), dep))

	tr.tick(context.Background(), "ETH")

	got, err := s.FindByTxHash(context.Background(), "0xTX1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	assert.Equal(t, uint64(1), got.Confirmations)
	assert.Equal(t, 1, n.ConfirmedCount())
}

func TestTickMovesToConfirmingBelowThreshold(t *testing.T) {
	tr, s, n := newTestTracker(505, 12)

	dep := &domain.Deposit{
		TxHash:      "0xTX2",
		Chain:       "ETH",
		Asset:       domain.AssetERC20,
		Status:      domain.StatusUnconfirmed,
		BlockNumber: 500,
	}
	require.NoError(t, s.Save(context.Background(), dep))

	tr.tick(context.Background(), "ETH")

	got, err := s.FindByTxHash(context.Background(), "0xTX2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirming, got.Status)
	assert.Equal(t, uint64(5), got.Confirmations)
	assert.Equal(t, 0, n.ConfirmedCount())
}

func TestTickSkipsWhenHeadLagsBlockNumber(t *testing.T) {
	tr, s, _ := newTestTracker(90, 12)

	dep := &domain.Deposit{
		TxHash:      "0xTX3",
		Chain:       "ETH",
		Asset:       domain.AssetNative,
		Status:      domain.StatusUnconfirmed,
		BlockNumber: 100,
	}
	require.NoError(t, s.Save(context.Background(), dep))

	tr.tick(context.Background(), "ETH")

	got, err := s.FindByTxHash(context.Background(), "0xTX3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnconfirmed, got.Status)
}

func TestTickIgnoresOtherChains(t *testing.T) {
	tr, s, _ := newTestTracker(200, 1)

	dep := &domain.Deposit{
		TxHash:      "0xTX4",
		Chain:       "BSC",
		Asset:       domain.AssetNative,
		Status:      domain.StatusUnconfirmed,
		BlockNumber: 100,
	}
	require.NoError(t, s.Save(context.Background(), dep))

	tr.tick(context.Background(), "ETH")

	got, err := s.FindByTxHash(context.Background(), "0xTX4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnconfirmed, got.Status, "a tick for ETH must not touch a BSC deposit")
}

func TestTickAbortsOnHeadRPCFailure(t *testing.T) {
	requestClient := adapter.NewFakeEthClient()
	requestClient.HeaderByNumberFunc = func(ctx context.Context, number *big.Int) (*types.Header, error) {
		return nil, errors.New("rpc timeout")
	}
	dialer := adapter.NewFakeEthClientDialer()
	dialer.Clients["http://eth"] = requestClient
	reg := registry.New(context.Background(), []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", RequiredConfirmations: 1},
	}, dialer)

	s := store.NewMemoryStore()
	n := notifier.NewFakeNotifier()
	clock := adapter.NewFakeClock(time.Unix(1_700_000_000, 0))
	tr := New(Config{PoolSize: 5}, reg, s, n, clock)

	dep := &domain.Deposit{TxHash: "0xTX5", Chain: "ETH", BlockNumber: 100, Status: domain.StatusUnconfirmed}
	require.NoError(t, s.Save(context.Background(), dep))

	tr.tick(context.Background(), "ETH")

	got, err := s.FindByTxHash(context.Background(), "0xTX5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnconfirmed, got.Status, "a head RPC failure must abort the tick without advancing anything")
}
