package store

import (
	"context"

	"github.com/chainwatch/deposit-watcher/internal/domain"
)

// DepositStore is the Deposit Store contract (C2): insert-if-new by
// transaction hash, query by status set, and status/confirmation updates —
// exactly spec.md §4.2.
type DepositStore interface {
	// FindByTxHash returns the deposit with the given transaction hash, or
	// domain.ErrDepositNotFound if none exists.
	FindByTxHash(ctx context.Context, txHash string) (*domain.Deposit, error)

	// Save inserts a new deposit (dep.ID == 0) or updates an existing one.
	// Implementations must make concurrent inserts of the same tx_hash
	// resolve to at most one winner.
	Save(ctx context.Context, dep *domain.Deposit) error

	// FindByStatusIn returns every deposit, across all chains, whose status
	// is one of the given statuses. Callers filter by chain.
	FindByStatusIn(ctx context.Context, statuses []domain.Status) ([]*domain.Deposit, error)
}
