package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/notifier"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

// Pipeline is the Deposit Pipeline (C6): the shared dedup → persist → notify
// logic invoked by both the Block Ingestor (C3) and the Event Ingestor (C4),
// exactly spec.md §4.5. Grounded on emitter.Run's handler closure in
// internal/emitter/emitter.go.
type Pipeline struct {
	store    store.DepositStore
	notifier notifier.Notifier
	clock    clockFn
}

// clockFn abstracts "now" so tests can assert exact CreatedAt/UpdatedAt
// without depending on wall-clock time; defaults to time.Now.
type clockFn func() time.Time

// New constructs a Pipeline over the given store and notifier.
func New(s store.DepositStore, n notifier.Notifier) *Pipeline {
	return &Pipeline{store: s, notifier: n, clock: time.Now}
}

// Record implements spec.md §4.5's single operation: dedup by tx_hash,
// construct an UNCONFIRMED deposit, persist it, and emit on_new_deposit on
// first observation. Zero-value transfers must never reach this call — the
// ingestors enforce amount > 0 before invoking it (spec.md invariant 4).
func (p *Pipeline) Record(ctx context.Context, input Input) error {
	if !input.Amount.IsPositive() {
		return fmt.Errorf("pipeline: refusing to record non-positive amount for tx %s", input.TxHash)
	}

	existing, err := p.store.FindByTxHash(ctx, input.TxHash)
	if err == nil && existing != nil {
		logger.DebugCtx(ctx, "deposit already recorded, skipping", zap.String("tx_hash", input.TxHash))
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrDepositNotFound) {
		return fmt.Errorf("pipeline: failed to check existing deposit: %w", err)
	}

	now := p.clock()
	dep := &domain.Deposit{
		TxHash:           input.TxHash,
		MonitoredAddress: domain.NormalizeAddress(input.MonitoredAddress),
		Chain:            input.Chain,
		TokenAddress:     domain.NormalizeAddress(input.TokenAddress),
		Asset:            input.Asset,
		Amount:           input.Amount,
		Decimals:         input.Decimals,
		BlockNumber:      input.BlockNumber,
		Status:           domain.StatusUnconfirmed,
		Confirmations:    0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := p.store.Save(ctx, dep); err != nil {
		// A uniqueness violation on tx_hash is a successful dedup, not an
		// error (spec.md §4.5 step 3); the store implementations already
		// translate that case into a nil error, so any error reaching here
		// is a genuine storage failure.
		return fmt.Errorf("pipeline: failed to save deposit: %w", err)
	}

	if dep.ID == 0 {
		// Save resolved a concurrent insert race; the other observer's
		// insert won. Treat as dedup, do not notify twice.
		return nil
	}

	p.notifier.OnNewDeposit(ctx, dep)
	return nil
}

// Input is the set of fields the Block/Event Ingestors hand to the pipeline.
type Input struct {
	TxHash           string
	MonitoredAddress string
	Chain            domain.Chain
	TokenAddress     string
	Asset            domain.Asset
	Amount           decimal.Decimal
	Decimals         int
	BlockNumber      uint64
}
