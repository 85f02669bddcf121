package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
)

func init() {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
}

func TestRegistryDialsRequestAndStreamClients(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", WSURL: "ws://eth", RequiredConfirmations: 12},
	}

	r := New(context.Background(), configs, dialer)

	require.Equal(t, []string{"eth"}, r.SupportedChains())

	_, ok := r.RequestClient("ETH")
	assert.True(t, ok)

	_, ok = r.StreamClient("eth")
	assert.True(t, ok)

	assert.Equal(t, uint64(12), r.RequiredConfirmations("ETH"))
}

func TestRegistryStreamDialFailureIsNonFatal(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	dialer.ErrFunc = func(rawurl string) error {
		if rawurl == "ws://eth" {
			return errors.New("connection refused")
		}
		return nil
	}
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", WSURL: "ws://eth", RequiredConfirmations: 12},
	}

	r := New(context.Background(), configs, dialer)

	_, ok := r.RequestClient("ETH")
	assert.True(t, ok, "request/response client must still be registered")

	_, ok = r.StreamClient("ETH")
	assert.False(t, ok, "streaming client must be absent after a dial failure")
}

func TestRegistryRequestDialFailureSkipsChain(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	dialer.ErrFunc = func(rawurl string) error {
		return errors.New("unreachable")
	}
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", RequiredConfirmations: 12},
	}

	r := New(context.Background(), configs, dialer)

	assert.Empty(t, r.SupportedChains())
}

func TestRegistryRequiredConfirmationsDefaultsTo12(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth"},
	}

	r := New(context.Background(), configs, dialer)

	assert.Equal(t, uint64(12), r.RequiredConfirmations("ETH"))
}

func TestRegistryChainLookupIsCaseInsensitive(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth"},
	}

	r := New(context.Background(), configs, dialer)

	_, ok := r.RequestClient("eth")
	assert.True(t, ok)
	_, ok = r.RequestClient("Eth")
	assert.True(t, ok)
}

func TestRegistryCloseIsBestEffort(t *testing.T) {
	dialer := adapter.NewFakeEthClientDialer()
	configs := []domain.ChainConfig{
		{Name: "ETH", HTTPURL: "http://eth", WSURL: "ws://eth"},
	}

	r := New(context.Background(), configs, dialer)
	assert.NotPanics(t, r.Close)
}
