// Package ingest implements the Block Ingestor (C3) and Event Ingestor (C4)
// components: the dual push/pull paths that feed matched deposits into the
// Deposit Pipeline (C6).
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/pipeline"
	"github.com/chainwatch/deposit-watcher/internal/registry"
)

// Manager starts and stops ingestion for every chain in the registry,
// choosing the streaming path (BlockIngestor + EventIngestor) when a chain
// has a streaming client, and the HTTP fallback (token logs only) otherwise.
type Manager struct {
	registry *registry.ChainRegistry
	block    *BlockIngestor
	events   *EventIngestor
	fallback *Fallback
	handles  *handleRegistry
}

// NewManager wires a Manager over the given registry and pipeline.
func NewManager(reg *registry.ChainRegistry, pl *pipeline.Pipeline, clock adapter.Clock) *Manager {
	handles := newHandleRegistry()
	events := NewEventIngestor(reg, pl, handles)
	block := NewBlockIngestor(reg, pl, events, handles)
	fallback := NewFallback(reg, pl, clock)

	return &Manager{
		registry: reg,
		block:    block,
		events:   events,
		fallback: fallback,
		handles:  handles,
	}
}

// Start launches ingestion for every chain the registry reports supported.
// Each chain runs in its own goroutine and is independently resilient to
// subscription errors; a stopped subscription for one chain never affects
// another (spec.md §5, "No cross-chain ordering is guaranteed").
func (m *Manager) Start(ctx context.Context) {
	for _, chain := range m.registry.SupportedChains() {
		chain := chain
		if _, ok := m.registry.StreamClient(chain); ok {
			go m.runStreaming(ctx, chain)
		} else {
			logger.InfoCtx(ctx, "no streaming client for chain, using HTTP fallback for token logs only",
				zap.String("chain", chain))
			go m.runFallback(ctx, chain)
		}
	}
}

func (m *Manager) runStreaming(ctx context.Context, chain string) {
	if err := m.block.Run(ctx, chain); err != nil && ctx.Err() == nil {
		logger.ErrorCtx(ctx, fmt.Errorf("block ingestor stopped for %s: %w", chain, err))
	}
}

func (m *Manager) runFallback(ctx context.Context, chain string) {
	if err := m.fallback.Run(ctx, chain); err != nil && ctx.Err() == nil {
		logger.ErrorCtx(ctx, fmt.Errorf("fallback ingestor stopped for %s: %w", chain, err))
	}
}

// Close disposes every retained subscription handle (spec.md §4.4,
// "Subscription lifecycle... on shutdown, every handle is disposed").
func (m *Manager) Close() {
	m.handles.closeAll()
}
