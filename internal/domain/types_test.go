package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddressIsCaseInsensitive(t *testing.T) {
	upper := "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
	lower := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	assert.Equal(t, NormalizeAddress(upper), NormalizeAddress(lower))
}

func TestAddressEqualsCaseInsensitive(t *testing.T) {
	a := "0xAAA0000000000000000000000000000000000A"
	b := "0xaaa0000000000000000000000000000000000a"

	assert.True(t, AddressEquals(a, b))
	assert.False(t, AddressEquals(a, ""))
}

func TestChainEqualsCaseInsensitive(t *testing.T) {
	assert.True(t, ChainEquals(Chain("eth"), Chain("ETH")))
	assert.False(t, ChainEquals(Chain("eth"), Chain("bsc")))
}

func TestStatusRankOrdering(t *testing.T) {
	assert.Less(t, StatusUnconfirmed.Rank(), StatusConfirming.Rank())
	assert.Less(t, StatusConfirming.Rank(), StatusConfirmed.Rank())
}

func TestMonitorIsNative(t *testing.T) {
	native := Monitor{WalletAddress: "0xAAA"}
	token := Monitor{WalletAddress: "0xAAA", TokenAddress: "0xBBB", TokenDecimals: 6}

	assert.True(t, native.IsNative())
	assert.False(t, token.IsNative())
}
