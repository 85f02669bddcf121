package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/notifier"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

func init() {
	// Record logs on its dedup path; tests need a logger.
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
}

func newTestPipeline() (*Pipeline, *store.MemoryStore, *notifier.FakeNotifier) {
	s := store.NewMemoryStore()
	n := notifier.NewFakeNotifier()
	p := New(s, n)
	p.clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return p, s, n
}

func TestRecordCreatesUnconfirmedDeposit(t *testing.T) {
	p, s, n := newTestPipeline()
	ctx := context.Background()

	err := p.Record(ctx, Input{
		TxHash:           "0xTX1",
		MonitoredAddress: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Chain:            "ETH",
		Asset:            domain.AssetNative,
		Amount:           decimal.NewFromInt(1),
		Decimals:         18,
		BlockNumber:      100,
	})
	require.NoError(t, err)

	require.Equal(t, 1, s.Len())
	require.Equal(t, 1, n.NewDepositCount())

	dep, err := s.FindByTxHash(ctx, "0xTX1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnconfirmed, dep.Status)
	assert.Equal(t, uint64(0), dep.Confirmations)
}

func TestRecordDedupsByTxHash(t *testing.T) {
	p, s, n := newTestPipeline()
	ctx := context.Background()

	input := Input{
		TxHash:      "0xTX2",
		Chain:       "ETH",
		Asset:       domain.AssetNative,
		Amount:      decimal.NewFromInt(1),
		Decimals:    18,
		BlockNumber: 100,
	}

	require.NoError(t, p.Record(ctx, input))
	require.NoError(t, p.Record(ctx, input))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, n.NewDepositCount())
}

func TestRecordRejectsZeroAmount(t *testing.T) {
	p, s, n := newTestPipeline()
	ctx := context.Background()

	err := p.Record(ctx, Input{
		TxHash:      "0xTX3",
		Chain:       "ETH",
		Asset:       domain.AssetNative,
		Amount:      decimal.Zero,
		BlockNumber: 100,
	})

	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, n.NewDepositCount())
}

func TestRecordNormalizesAddresses(t *testing.T) {
	p, s, _ := newTestPipeline()
	ctx := context.Background()

	upper := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	require.NoError(t, p.Record(ctx, Input{
		TxHash:           "0xTX4",
		MonitoredAddress: upper,
		Chain:            "ETH",
		Asset:            domain.AssetNative,
		Amount:           decimal.NewFromInt(1),
		BlockNumber:      100,
	}))

	dep, err := s.FindByTxHash(ctx, "0xTX4")
	require.NoError(t, err)
	assert.Equal(t, domain.NormalizeAddress(upper), dep.MonitoredAddress)
}
