package ingest

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/pipeline"
	"github.com/chainwatch/deposit-watcher/internal/registry"
)

// nativeDecimals is the scaling factor applied to every native-coin
// transfer, per spec.md §9's first resolved open question: the scaled form
// always divides by 10^18, regardless of chain.
const nativeDecimals = 18

// BlockIngestor is the Block Ingestor (C3): subscribes to new block headers
// on a chain's streaming client, scans each block's transactions against the
// chain's native monitors, and ensures an Event Ingestor (C4) is running for
// every token monitor. Grounded on ethSubscriber.SubscribeEvents in
// internal/providers/ethereum/subscriber.go.
type BlockIngestor struct {
	registry *registry.ChainRegistry
	pipeline *pipeline.Pipeline
	events   *EventIngestor
	handles  *handleRegistry
}

// NewBlockIngestor constructs a BlockIngestor sharing the given subscription
// handle registry with its Event Ingestor.
func NewBlockIngestor(reg *registry.ChainRegistry, pl *pipeline.Pipeline, events *EventIngestor, handles *handleRegistry) *BlockIngestor {
	return &BlockIngestor{registry: reg, pipeline: pl, events: events, handles: handles}
}

// Run subscribes to new block headers for chain and blocks until the
// subscription ends or ctx is canceled. It returns domain.ErrStreamingUnavailable
// immediately if the chain has no streaming client, so the caller can fall
// back to HTTP polling (spec.md §4.3, "relies on confirmation polling for
// liveness" is the Confirmation Tracker's job; the HTTP log fallback is
// the Event Ingestor's).
func (b *BlockIngestor) Run(ctx context.Context, chain string) error {
	streamClient, ok := b.registry.StreamClient(chain)
	if !ok {
		return domain.ErrStreamingUnavailable
	}

	headers := make(chan *types.Header)
	sub, err := streamClient.SubscribeNewHead(ctx, headers)
	if err != nil {
		return fmt.Errorf("block ingestor: failed to subscribe new heads for %s: %w", chain, err)
	}
	b.handles.put(headKey(chain), sub)
	defer sub.Unsubscribe()

	b.ensureEventIngestors(ctx, chain)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("block ingestor: subscription error for %s: %w", chain, err))
			}
			return err
		case header := <-headers:
			b.handleHeader(ctx, chain, header)
		}
	}
}

// handleHeader implements spec.md §4.3 steps 1-2 for a single block; step 3
// is ensureEventIngestors, which Run calls once before reading headers.
func (b *BlockIngestor) handleHeader(ctx context.Context, chain string, header *types.Header) {
	requestClient, ok := b.registry.RequestClient(chain)
	if !ok {
		return
	}

	block, err := requestClient.BlockByNumber(ctx, header.Number)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("block ingestor: failed to fetch block %s for %s: %w", header.Number, chain, err))
		return
	}

	monitors := b.registry.Monitors(chain)

	for _, tx := range block.Transactions() {
		to := tx.To()
		if to == nil {
			continue
		}
		value := tx.Value()
		if value == nil || value.Sign() <= 0 {
			continue
		}

		for _, m := range monitors {
			if !m.IsNative() {
				continue
			}
			if !domain.AddressEquals(to.Hex(), m.WalletAddress) {
				continue
			}

			amount := decimal.NewFromBigInt(value, -nativeDecimals)
			err := b.pipeline.Record(ctx, pipeline.Input{
				TxHash:           tx.Hash().Hex(),
				MonitoredAddress: m.WalletAddress,
				Chain:            domain.Chain(chain),
				Asset:            domain.AssetNative,
				Amount:           amount,
				Decimals:         nativeDecimals,
				BlockNumber:      block.NumberU64(),
			})
			if err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("block ingestor: failed to record native deposit %s: %w", tx.Hash().Hex(), err),
					zap.String("chain", chain))
			}
		}
	}
}

// ensureEventIngestors starts, idempotently, an Event Ingestor for every
// token monitor configured on chain (spec.md §4.3 step 3).
func (b *BlockIngestor) ensureEventIngestors(ctx context.Context, chain string) {
	for _, m := range b.registry.Monitors(chain) {
		if m.IsNative() {
			continue
		}
		key := monitorKey(chain, m.TokenAddress)
		if !b.handles.startOnce(key) {
			continue
		}
		go func(tokenAddress string) {
			if err := b.events.Run(ctx, chain, tokenAddress); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("event ingestor: stopped for %s/%s: %w", chain, tokenAddress, err))
			}
		}(m.TokenAddress)
	}
}

func headKey(chain string) string {
	return "heads:" + chain
}
