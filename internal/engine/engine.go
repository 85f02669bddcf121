// Package engine wires C1-C6 together and owns the process lifecycle:
// construction, start, and graceful shutdown. Grounded on
// cmd/ethereum-event-emitter/main.go's wiring sequence.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/confirm"
	"github.com/chainwatch/deposit-watcher/internal/config"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/ingest"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/notifier"
	"github.com/chainwatch/deposit-watcher/internal/pipeline"
	"github.com/chainwatch/deposit-watcher/internal/registry"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

// Engine owns every component the deposit-watcher process runs.
type Engine struct {
	db       *gorm.DB
	registry *registry.ChainRegistry
	store    store.DepositStore
	notifier notifier.Notifier
	pipeline *pipeline.Pipeline
	ingest   *ingest.Manager
	tracker  *confirm.Tracker
}

// New connects to Postgres, migrates the schema, dials every configured
// chain, and wires C1-C6. It returns domain.ErrBootstrapFailed if no chain
// produced a usable request/response client — the one fatal condition
// spec.md §7 names.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("engine: failed to connect to database: %w", err)
	}

	if err := store.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("engine: failed to migrate schema: %w", err)
	}

	clock := adapter.NewClock()
	dialer := adapter.NewEthClientDialer()

	reg := registry.New(ctx, cfg.ChainConfigs(), dialer)
	if len(reg.SupportedChains()) == 0 {
		return nil, domain.ErrBootstrapFailed
	}

	dataStore := store.NewPGStore(db)

	n, err := notifier.NewJetStreamNotifier(notifier.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		return nil, fmt.Errorf("engine: failed to create notifier: %w", err)
	}

	pl := pipeline.New(dataStore, n)
	ingestManager := ingest.NewManager(reg, pl, clock)
	tracker := confirm.New(confirm.Config{PoolSize: cfg.Worker.PoolSize}, reg, dataStore, n, clock)

	return &Engine{
		db:       db,
		registry: reg,
		store:    dataStore,
		notifier: n,
		pipeline: pl,
		ingest:   ingestManager,
		tracker:  tracker,
	}, nil
}

// Store returns the underlying DepositStore, so out-of-scope collaborators
// (the HTTP listing endpoint) can read from it without depending on engine
// internals.
func (e *Engine) Store() store.DepositStore {
	return e.store
}

// Run starts ingestion and confirmation tracking. It blocks until ctx is
// canceled, then tears every component down gracefully.
func (e *Engine) Run(ctx context.Context) {
	logger.InfoCtx(ctx, "starting deposit watcher engine", zap.Strings("chains", e.registry.SupportedChains()))

	e.ingest.Start(ctx)
	e.tracker.Start(ctx)

	<-ctx.Done()

	logger.InfoCtx(ctx, "shutting down deposit watcher engine")
	e.Close()
}

// Close disposes every owned resource, best-effort, in the order spec.md §5
// names: subscriptions first, then the confirmation scheduler, then clients.
func (e *Engine) Close() {
	e.ingest.Close()
	e.tracker.Stop()
	e.registry.Close()

	if closer, ok := e.notifier.(interface{ Close() }); ok {
		closer.Close()
	}

	logger.Info("deposit watcher engine stopped")
}

// FlushTimeout is how long the caller should wait for logger.Flush on exit.
const FlushTimeout = 2 * time.Second
