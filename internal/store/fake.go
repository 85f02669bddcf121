package store

import (
	"context"
	"sync"

	"github.com/chainwatch/deposit-watcher/internal/domain"
)

// MemoryStore is a hand-written in-memory DepositStore used by tests in
// place of a generated mock — see DESIGN.md for why mockgen isn't used here.
// It reproduces the store's concurrency contract: at most one Save wins for
// a given tx_hash.
type MemoryStore struct {
	mu      sync.Mutex
	byHash  map[string]*domain.Deposit
	nextID  int64
	SaveErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]*domain.Deposit)}
}

func (s *MemoryStore) FindByTxHash(ctx context.Context, txHash string) (*domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.byHash[txHash]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	copied := *dep
	return &copied, nil
}

func (s *MemoryStore) Save(ctx context.Context, dep *domain.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}

	if existing, ok := s.byHash[dep.TxHash]; ok {
		existing.Status = dep.Status
		existing.Confirmations = dep.Confirmations
		*dep = *existing
		return nil
	}

	s.nextID++
	dep.ID = s.nextID
	stored := *dep
	s.byHash[dep.TxHash] = &stored
	return nil
}

func (s *MemoryStore) FindByStatusIn(ctx context.Context, statuses []domain.Status) ([]*domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[domain.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []*domain.Deposit
	for _, dep := range s.byHash {
		if wanted[dep.Status] {
			copied := *dep
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Len reports how many deposits are stored, for test assertions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
