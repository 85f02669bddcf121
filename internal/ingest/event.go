package ingest

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
	"github.com/chainwatch/deposit-watcher/internal/pipeline"
	"github.com/chainwatch/deposit-watcher/internal/registry"
)

// transferEventSignature is keccak256("Transfer(address,address,uint256)"),
// grounded on the identical computation in
// internal/providers/ethereum/subscriber.go.
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EventIngestor is the Event Ingestor (C4): each Run call watches every
// ERC-20 Transfer log for a single (chain, token_address) pair, exactly
// spec.md §4.4; one instance serves all pairs.
type EventIngestor struct {
	registry *registry.ChainRegistry
	pipeline *pipeline.Pipeline
	handles  *handleRegistry
}

// NewEventIngestor constructs an EventIngestor sharing the given
// subscription handle registry with the Block Ingestor.
func NewEventIngestor(reg *registry.ChainRegistry, pl *pipeline.Pipeline, handles *handleRegistry) *EventIngestor {
	return &EventIngestor{registry: reg, pipeline: pl, handles: handles}
}

// Run subscribes to Transfer logs emitted by tokenAddress on chain and
// blocks until the subscription ends or ctx is canceled. Returns
// domain.ErrStreamingUnavailable if the chain has no streaming client, in
// which case the HTTP fallback (fallback.go) must be used instead.
func (e *EventIngestor) Run(ctx context.Context, chain, tokenAddress string) error {
	streamClient, ok := e.registry.StreamClient(chain)
	if !ok {
		return domain.ErrStreamingUnavailable
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(tokenAddress)},
		Topics:    [][]common.Hash{{transferEventSignature}},
	}

	logs := make(chan types.Log)
	sub, err := streamClient.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("event ingestor: failed to subscribe filter logs for %s/%s: %w", chain, tokenAddress, err)
	}
	e.handles.put(monitorKey(chain, tokenAddress), sub)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("event ingestor: subscription error for %s/%s: %w", chain, tokenAddress, err))
			}
			return err
		case vLog := <-logs:
			e.handleLog(ctx, chain, tokenAddress, vLog)
		}
	}
}

// handleLog implements spec.md §4.4 steps 1-4 for a single Transfer log.
func (e *EventIngestor) handleLog(ctx context.Context, chain, tokenAddress string, vLog types.Log) {
	to, value, err := decodeTransfer(vLog)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("event ingestor: failed to decode transfer log %s: %w", vLog.TxHash.Hex(), err),
			zap.String("chain", chain), zap.String("token_address", tokenAddress))
		return
	}

	if value.Sign() <= 0 {
		return
	}

	for _, m := range e.registry.Monitors(chain) {
		if m.IsNative() || !domain.AddressEquals(m.TokenAddress, tokenAddress) {
			continue
		}
		if !domain.AddressEquals(to, m.WalletAddress) {
			continue
		}

		amount := decimal.NewFromBigInt(value, int32(-m.TokenDecimals))
		err := e.pipeline.Record(ctx, pipeline.Input{
			TxHash:           vLog.TxHash.Hex(),
			MonitoredAddress: m.WalletAddress,
			Chain:            domain.Chain(chain),
			TokenAddress:     tokenAddress,
			Asset:            domain.AssetERC20,
			Amount:           amount,
			Decimals:         m.TokenDecimals,
			BlockNumber:      vLog.BlockNumber,
		})
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("event ingestor: failed to record erc20 deposit %s: %w", vLog.TxHash.Hex(), err),
				zap.String("chain", chain))
		}
	}
}

// decodeTransfer decodes a Transfer(address,address,uint256) log's indexed
// "to" address (topics[2]) and its uint256 "value" data payload, per
// spec.md §4.4 steps 1 and 3.
func decodeTransfer(vLog types.Log) (to string, value *big.Int, err error) {
	if len(vLog.Topics) < 3 {
		return "", nil, fmt.Errorf("expected 3 topics, got %d", len(vLog.Topics))
	}
	if len(vLog.Data) < 32 {
		return "", nil, fmt.Errorf("expected at least 32 bytes of data, got %d", len(vLog.Data))
	}

	to = common.BytesToAddress(vLog.Topics[2].Bytes()).Hex()
	value = new(big.Int).SetBytes(vLog.Data[:32])
	return to, value, nil
}
