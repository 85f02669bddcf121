package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit represents the deposits table — the single core entity of the
// confirmation engine, matching spec.md §6's storage schema.
type Deposit struct {
	// ID is the internal database primary key.
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TxHash is the natural key; uniqueness here is the sole dedup point.
	TxHash string `gorm:"column:tx_hash;not null;uniqueIndex;type:text"`
	// MonitoredAddress is the receiving address that matched a monitor.
	MonitoredAddress string `gorm:"column:monitored_address;type:text"`
	// UserAddress is reserved for future per-user deposit address mapping.
	UserAddress string `gorm:"column:user_address;type:text"`
	// Chain identifies the configured chain entry this deposit belongs to.
	Chain string `gorm:"column:chain;not null;type:text;index:idx_deposits_chain_status,priority:1"`
	// TokenAddress is absent for native-coin deposits.
	TokenAddress string `gorm:"column:token_address;type:text"`
	// Asset is derived from TokenAddress: NATIVE or ERC20.
	Asset string `gorm:"column:asset;not null;type:text"`
	// Amount is scaled by Decimals; precision 38, scale 18.
	Amount decimal.Decimal `gorm:"column:amount;not null;type:numeric(38,18)"`
	// Decimals is the scaling factor used to produce Amount.
	Decimals int `gorm:"column:decimals;not null;default:18"`
	// BlockNumber is the height of the block containing the transaction.
	BlockNumber uint64 `gorm:"column:tx_block;not null"`
	// Status is the confirmation state machine's current state.
	Status string `gorm:"column:status;not null;type:text;index:idx_deposits_chain_status,priority:2"`
	// Confirmations is the last observed head-minus-block-number delta.
	Confirmations uint64    `gorm:"column:confirmations;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (Deposit) TableName() string {
	return "deposits"
}
