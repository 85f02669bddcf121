package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

func newTestRouter(t *testing.T) (*store.MemoryStore, http.Handler) {
	s := store.NewMemoryStore()
	h := NewHandler(s)
	return s, NewRouter(h)
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDepositNotFound(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deposits/0xMISSING", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDepositFound(t *testing.T) {
	s, router := newTestRouter(t)
	require.NoError(t, s.Save(context.Background(), &domain.Deposit{
		TxHash: "0xTX1",
		Chain:  "ETH",
		Asset:  domain.AssetNative,
		Amount: decimal.NewFromInt(1),
		Status: domain.StatusUnconfirmed,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deposits/0xTX1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0xTX1")
}

func TestListDepositsFiltersByChain(t *testing.T) {
	s, router := newTestRouter(t)
	require.NoError(t, s.Save(context.Background(), &domain.Deposit{
		TxHash: "0xTX1", Chain: "ETH", Asset: domain.AssetNative, Amount: decimal.NewFromInt(1), Status: domain.StatusUnconfirmed,
	}))
	require.NoError(t, s.Save(context.Background(), &domain.Deposit{
		TxHash: "0xTX2", Chain: "BSC", Asset: domain.AssetNative, Amount: decimal.NewFromInt(1), Status: domain.StatusUnconfirmed,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deposits?chain=eth", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0xTX1")
	assert.NotContains(t, rec.Body.String(), "0xTX2")
}
