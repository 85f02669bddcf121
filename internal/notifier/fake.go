package notifier

import (
	"context"
	"sync"

	"github.com/chainwatch/deposit-watcher/internal/domain"
)

// FakeNotifier is a hand-written Notifier used in tests in place of a
// generated mock (see DESIGN.md).
type FakeNotifier struct {
	mu                sync.Mutex
	NewDeposits       []*domain.Deposit
	ConfirmedDeposits []*domain.Deposit
}

// NewFakeNotifier creates an empty FakeNotifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (f *FakeNotifier) OnNewDeposit(ctx context.Context, dep *domain.Deposit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NewDeposits = append(f.NewDeposits, dep)
}

func (f *FakeNotifier) OnDepositConfirmed(ctx context.Context, dep *domain.Deposit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConfirmedDeposits = append(f.ConfirmedDeposits, dep)
}

// NewDepositCount reports how many OnNewDeposit calls were observed.
func (f *FakeNotifier) NewDepositCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.NewDeposits)
}

// ConfirmedCount reports how many OnDepositConfirmed calls were observed.
func (f *FakeNotifier) ConfirmedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ConfirmedDeposits)
}
