package store

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch/deposit-watcher/internal/domain"
)

func TestMemoryStoreSaveIsIdempotentByTxHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	dep := &domain.Deposit{TxHash: "0xTX1", Chain: "ETH", Asset: domain.AssetNative, Amount: decimal.NewFromInt(1), Status: domain.StatusUnconfirmed}
	require.NoError(t, s.Save(ctx, dep))
	firstID := dep.ID

	dup := &domain.Deposit{TxHash: "0xTX1", Chain: "ETH", Asset: domain.AssetNative, Amount: decimal.NewFromInt(1), Status: domain.StatusUnconfirmed}
	require.NoError(t, s.Save(ctx, dup))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, firstID, dup.ID)
}

func TestMemoryStoreConcurrentSaveResolvesToOneRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dep := &domain.Deposit{TxHash: "0xTX2", Chain: "ETH", Asset: domain.AssetNative, Amount: decimal.NewFromInt(1), Status: domain.StatusUnconfirmed}
			_ = s.Save(ctx, dep)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreFindByStatusInFiltersAcrossChains(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Deposit{TxHash: "0xA", Chain: "ETH", Status: domain.StatusUnconfirmed}))
	require.NoError(t, s.Save(ctx, &domain.Deposit{TxHash: "0xB", Chain: "BSC", Status: domain.StatusConfirming}))
	require.NoError(t, s.Save(ctx, &domain.Deposit{TxHash: "0xC", Chain: "ETH", Status: domain.StatusConfirmed}))

	pending, err := s.FindByStatusIn(ctx, []domain.Status{domain.StatusUnconfirmed, domain.StatusConfirming})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMemoryStoreFindByTxHashNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.FindByTxHash(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDepositNotFound)
}
