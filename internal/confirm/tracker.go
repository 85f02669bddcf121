// Package confirm implements the Confirmation Tracker (C5): the
// independent, timer-driven state machine that advances every pending
// deposit from UNCONFIRMED through CONFIRMING to CONFIRMED.
package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/notifier"
	"github.com/chainwatch/deposit-watcher/internal/registry"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

// tickInterval is the fixed cadence every chain is scheduled at, per
// spec.md §4.6 ("a fixed 5-second cadence").
const tickInterval = 5 * time.Second

// minWorkers is the shared worker pool's minimum size, per spec.md §5
// ("a pool of at least 5 parallel workers shared across chains").
const minWorkers = 5

// Tracker is the Confirmation Tracker (C5): one logical task per chain,
// submitting tick work onto a shared pool of worker goroutines so a slow
// chain cannot starve another chain's tick. Grounded on
// mediaHealthSweeper's pond.Pool-backed periodic sweep in
// internal/sweeper/media_health.go.
type Tracker struct {
	registry *registry.ChainRegistry
	store    store.DepositStore
	notifier notifier.Notifier
	clock    adapter.Clock
	pool     pond.Pool
}

// Config controls the Tracker's worker pool sizing.
type Config struct {
	// PoolSize is the number of shared workers; coerced up to minWorkers.
	PoolSize int
}

// New constructs a Tracker. The pool is created eagerly so Start can submit
// work immediately for every chain.
func New(cfg Config, reg *registry.ChainRegistry, s store.DepositStore, n notifier.Notifier, clock adapter.Clock) *Tracker {
	poolSize := cfg.PoolSize
	if poolSize < minWorkers {
		poolSize = minWorkers
	}

	return &Tracker{
		registry: reg,
		store:    s,
		notifier: n,
		clock:    clock,
		pool:     pond.NewPool(poolSize),
	}
}

// Start launches one ticking goroutine per supported chain; each tick
// submits that chain's sweep onto the shared pool instead of running
// inline. Start returns immediately; the tickers run until ctx is
// canceled.
func (t *Tracker) Start(ctx context.Context) {
	for _, chain := range t.registry.SupportedChains() {
		chain := chain
		go t.runChain(ctx, chain)
	}
}

func (t *Tracker) runChain(ctx context.Context, chain string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(tickInterval):
			t.pool.Submit(func() {
				t.tick(ctx, chain)
			})
		}
	}
}

// Stop waits for any in-flight ticks to finish, per spec.md §5
// ("the confirmation scheduler is stopped; in-flight ticks may complete").
func (t *Tracker) Stop() {
	t.pool.StopAndWait()
}

// tick implements spec.md §4.6's per-tick algorithm exactly.
func (t *Tracker) tick(ctx context.Context, chain string) {
	pending, err := t.store.FindByStatusIn(ctx, []domain.Status{domain.StatusUnconfirmed, domain.StatusConfirming})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("confirm: failed to load pending deposits: %w", err), zap.String("chain", chain))
		return
	}

	requestClient, ok := t.registry.RequestClient(chain)
	if !ok {
		return
	}

	header, err := requestClient.HeaderByNumber(ctx, nil)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("confirm: failed to fetch head for %s: %w", chain, err))
		return
	}
	head := header.Number.Uint64()

	required := t.registry.RequiredConfirmations(chain)

	for _, dep := range pending {
		if !domain.ChainEquals(dep.Chain, domain.Chain(chain)) {
			continue
		}
		t.advance(ctx, dep, head, required)
	}
}

// advance implements the state machine transition for a single deposit.
func (t *Tracker) advance(ctx context.Context, dep *domain.Deposit, head, required uint64) {
	if head < dep.BlockNumber {
		// Transient lag between the tracked head and the ingestor's
		// reported block; skip until a later tick catches up.
		return
	}
	confirmCount := head - dep.BlockNumber

	dep.Confirmations = confirmCount
	confirmed := confirmCount >= required
	if confirmed {
		dep.Status = domain.StatusConfirmed
	} else {
		dep.Status = domain.StatusConfirming
	}

	if err := t.store.Save(ctx, dep); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("confirm: failed to save deposit %s: %w", dep.TxHash, err))
		return
	}

	if confirmed {
		t.notifier.OnDepositConfirmed(ctx, dep)
	}
}
