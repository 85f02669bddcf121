package notifier

import (
	"context"

	"github.com/chainwatch/deposit-watcher/internal/domain"
)

// Notifier is the collaborator interface spec.md §6 requires: two
// operations, both expected to be non-blocking or fast, whose failures must
// not propagate into the engine.
type Notifier interface {
	OnNewDeposit(ctx context.Context, dep *domain.Deposit)
	OnDepositConfirmed(ctx context.Context, dep *domain.Deposit)
}
