package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/store/schema"
)

// postgresUniqueViolation is the Postgres driver error code for a unique
// constraint violation. Save does not inspect it: its ON CONFLICT DO NOTHING
// insert keeps a concurrent tx_hash insert race from raising that error.
const postgresUniqueViolation = "23505"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL-backed DepositStore.
func NewPGStore(db *gorm.DB) DepositStore {
	return &pgStore{db: db}
}

// Migrate creates or updates the deposits table. The teacher's pattern of an
// explicit db/init_pg_db.sql file is more than our single-table schema
// needs, so AutoMigrate stands in for it (see DESIGN.md).
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&schema.Deposit{})
}

// FindByTxHash returns the deposit with the given transaction hash, or
// domain.ErrDepositNotFound if none exists.
func (s *pgStore) FindByTxHash(ctx context.Context, txHash string) (*domain.Deposit, error) {
	var row schema.Deposit
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to find deposit by tx hash: %w", err)
	}

	dep := fromSchema(&row)
	return &dep, nil
}

// Save inserts a new deposit or updates an existing one. A concurrent insert
// of the same tx_hash is resolved by ON CONFLICT DO NOTHING, mirroring the
// teacher's CreateTokenMint dedup idiom (internal/store/pg.go).
func (s *pgStore) Save(ctx context.Context, dep *domain.Deposit) error {
	row := toSchema(dep)

	if dep.ID != 0 {
		row.ID = dep.ID
		if err := s.db.WithContext(ctx).Model(&schema.Deposit{}).
			Where("id = ?", dep.ID).
			Updates(map[string]interface{}{
				"status":        row.Status,
				"confirmations": row.Confirmations,
			}).Error; err != nil {
			return fmt.Errorf("failed to update deposit: %w", err)
		}
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save deposit: %w", err)
	}

	if row.ID == 0 {
		// The row already existed (ON CONFLICT DO NOTHING produced no insert);
		// this is a successful dedup, not an error.
		return nil
	}

	dep.ID = row.ID
	dep.CreatedAt = row.CreatedAt
	dep.UpdatedAt = row.UpdatedAt
	return nil
}

// FindByStatusIn returns every deposit across all chains whose status is one
// of the given statuses.
func (s *pgStore) FindByStatusIn(ctx context.Context, statuses []domain.Status) ([]*domain.Deposit, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	var rows []schema.Deposit
	if err := s.db.WithContext(ctx).Where("status IN ?", names).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find deposits by status: %w", err)
	}

	out := make([]*domain.Deposit, 0, len(rows))
	for i := range rows {
		dep := fromSchema(&rows[i])
		out = append(out, &dep)
	}
	return out, nil
}

func toSchema(dep *domain.Deposit) schema.Deposit {
	return schema.Deposit{
		ID:               dep.ID,
		TxHash:           dep.TxHash,
		MonitoredAddress: dep.MonitoredAddress,
		UserAddress:      dep.UserAddress,
		Chain:            string(dep.Chain),
		TokenAddress:     dep.TokenAddress,
		Asset:            string(dep.Asset),
		Amount:           dep.Amount,
		Decimals:         dep.Decimals,
		BlockNumber:      dep.BlockNumber,
		Status:           string(dep.Status),
		Confirmations:    dep.Confirmations,
	}
}

func fromSchema(row *schema.Deposit) domain.Deposit {
	return domain.Deposit{
		ID:               row.ID,
		TxHash:           row.TxHash,
		MonitoredAddress: row.MonitoredAddress,
		UserAddress:      row.UserAddress,
		Chain:            domain.Chain(row.Chain),
		TokenAddress:     row.TokenAddress,
		Asset:            domain.Asset(row.Asset),
		Amount:           row.Amount,
		Decimals:         row.Decimals,
		BlockNumber:      row.BlockNumber,
		Status:           domain.Status(row.Status),
		Confirmations:    row.Confirmations,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
