package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Chain identifies a configured EVM-compatible network by its registry name,
// e.g. "ETH", "BSC". Unlike the teacher's CAIP-2 chain tags, this is an
// operator-assigned label matched case-insensitively everywhere it is compared.
type Chain string

// Asset distinguishes a deposit's transfer path.
type Asset string

const (
	AssetNative Asset = "NATIVE"
	AssetERC20  Asset = "ERC20"
)

// Status is the confirmation lifecycle state of a Deposit.
type Status string

const (
	StatusUnconfirmed Status = "UNCONFIRMED"
	StatusConfirming  Status = "CONFIRMING"
	StatusConfirmed   Status = "CONFIRMED"
)

// rank orders statuses for the monotonic-progress invariant; higher never
// follows lower in the reporting direction.
var rank = map[Status]int{
	StatusUnconfirmed: 0,
	StatusConfirming:  1,
	StatusConfirmed:   2,
}

// Rank returns the ordinal position of s in UNCONFIRMED < CONFIRMING < CONFIRMED.
func (s Status) Rank() int {
	return rank[s]
}

// Deposit is the single core entity tracked by the engine.
type Deposit struct {
	ID               int64
	TxHash           string
	MonitoredAddress string
	UserAddress      string
	Chain            Chain
	TokenAddress     string
	Asset            Asset
	Amount           decimal.Decimal
	Decimals         int
	BlockNumber      uint64
	Status           Status
	Confirmations    uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Monitor describes one wallet to watch on a chain: a native-coin monitor
// when TokenAddress is empty, an ERC-20 monitor otherwise.
type Monitor struct {
	WalletAddress string
	TokenAddress  string
	TokenDecimals int
}

// IsNative reports whether this monitor watches the chain's native coin.
func (m Monitor) IsNative() bool {
	return m.TokenAddress == ""
}

// ChainConfig is the process-lifetime, immutable-after-init configuration for
// one chain entry in the registry.
type ChainConfig struct {
	Name                  string
	HTTPURL               string
	WSURL                 string
	RequiredConfirmations uint64
	Monitors              []Monitor
}

// NormalizeAddress returns the canonical checksum-independent, lower-case
// representation of an EVM hex address, so address comparisons anywhere in
// the engine are case-insensitive per spec.
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// AddressEquals compares two hex addresses case-insensitively.
func AddressEquals(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// ChainEquals compares two chain names case-insensitively, matching the
// Confirmation Tracker's chain filter (spec.md §4.6 step 3).
func ChainEquals(a, b Chain) bool {
	return strings.EqualFold(string(a), string(b))
}
