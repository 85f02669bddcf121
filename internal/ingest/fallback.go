package ingest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/pipeline"
	"github.com/chainwatch/deposit-watcher/internal/registry"
)

// fallbackTickInterval is the periodic tick spec.md §4.4 requires for the
// HTTP fallback path when no streaming client is available for a chain.
const fallbackTickInterval = 5 * time.Second

// maxFallbackAttempts bounds the linear-backoff retry on rate-limit
// responses: at most this many retries (waits of 1s..5s) follow the first
// query.
const maxFallbackAttempts = 5

// Fallback is the HTTP polling path for the Event Ingestor, used only when
// a chain has no streaming client: on a periodic tick it issues a bounded
// log query for the current head, retrying on rate-limit responses with
// linear backoff. Grounded on RealHTTPClient.doRequestWithRetry in
// internal/adapter/http.go, adapted from exponential to linear backoff.
type Fallback struct {
	registry *registry.ChainRegistry
	pipeline *pipeline.Pipeline
	clock    adapter.Clock
}

// NewFallback constructs a Fallback poller.
func NewFallback(reg *registry.ChainRegistry, pl *pipeline.Pipeline, clock adapter.Clock) *Fallback {
	return &Fallback{registry: reg, pipeline: pl, clock: clock}
}

// Run ticks on fallbackTickInterval until ctx is canceled, polling logs for
// every token monitor on chain at the current head on each tick.
func (f *Fallback) Run(ctx context.Context, chain string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.clock.After(fallbackTickInterval):
			f.tick(ctx, chain)
		}
	}
}

// tick implements spec.md §4.4's HTTP fallback paragraph for a single pass
// over every token monitor on chain.
func (f *Fallback) tick(ctx context.Context, chain string) {
	requestClient, ok := f.registry.RequestClient(chain)
	if !ok {
		return
	}

	header, err := requestClient.HeaderByNumber(ctx, nil)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("fallback: failed to fetch head for %s: %w", chain, err))
		return
	}
	height := header.Number

	ingestor := NewEventIngestor(f.registry, f.pipeline, newHandleRegistry())

	for _, m := range f.registry.Monitors(chain) {
		if m.IsNative() {
			continue
		}

		query := ethereum.FilterQuery{
			FromBlock: height,
			ToBlock:   height,
			Addresses: []common.Address{common.HexToAddress(m.TokenAddress)},
			Topics:    [][]common.Hash{{transferEventSignature}},
		}

		logs, err := f.queryWithRetry(ctx, chain, query, height)
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("fallback: log query failed for %s/%s at block %s: %w", chain, m.TokenAddress, height, err),
				zap.String("chain", chain))
			continue
		}

		for _, vLog := range logs {
			ingestor.handleLog(ctx, chain, m.TokenAddress, vLog)
		}
	}
}

// queryWithRetry issues FilterLogs, retrying with linear backoff (1s, 2s,
// 3s, 4s, 5s) on a rate-limit response, up to maxFallbackAttempts retries
// after the first query. Any other
// error aborts immediately without retry, per spec.md §7.
func (f *Fallback) queryWithRetry(ctx context.Context, chain string, query ethereum.FilterQuery, height *big.Int) ([]types.Log, error) {
	requestClient, ok := f.registry.RequestClient(chain)
	if !ok {
		return nil, fmt.Errorf("fallback: chain %s not registered", chain)
	}

	var logs []types.Log
	attempt := 0

	operation := func() error {
		var err error
		logs, err = requestClient.FilterLogs(ctx, query)
		if err == nil {
			return nil
		}
		if isRateLimited(err) {
			attempt++
			logger.WarnCtx(ctx, "fallback log query rate-limited, retrying",
				zap.String("chain", chain), zap.Stringer("block", height), zap.Int("attempt", attempt))
			return err
		}
		return backoff.Permanent(err)
	}

	b := adapter.NewLinearBackOff(time.Second, maxFallbackAttempts)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return logs, nil
}

// isRateLimited reports whether err represents an HTTP 429 / rate-limit
// response from the upstream RPC endpoint.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit")
}
