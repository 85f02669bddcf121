package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
)

// chainHandle is the per-chain handle bundle held by the registry: spec.md
// §4.1's request/response client (required), streaming client (optional),
// confirmation depth, and monitor list.
type chainHandle struct {
	requestClient         adapter.EthClient
	streamClient          adapter.EthClient
	requiredConfirmations uint64
	monitors              []domain.Monitor
}

// ChainRegistry is the Chain Client Registry (C1): constructs and owns, per
// chain, the clients and configuration every other component reads from.
type ChainRegistry struct {
	mu     sync.RWMutex
	chains map[string]*chainHandle
}

// New constructs a ChainRegistry by dialing every configured chain's
// required request/response client and, when a streaming URL is configured,
// its optional streaming client. A streaming dial failure is logged and
// does not prevent the chain from being registered with the request/
// response client only — exactly spec.md §4.1.
func New(ctx context.Context, configs []domain.ChainConfig, dialer adapter.EthClientDialer) *ChainRegistry {
	r := &ChainRegistry{chains: make(map[string]*chainHandle)}

	for _, cfg := range configs {
		requestClient, err := dialer.Dial(ctx, cfg.HTTPURL)
		if err != nil {
			logger.Error(err, zap.String("message", "failed to dial request/response client"), zap.String("chain", cfg.Name))
			continue
		}

		var streamClient adapter.EthClient
		if cfg.WSURL != "" {
			streamClient, err = dialer.Dial(ctx, cfg.WSURL)
			if err != nil {
				logger.Error(err, zap.String("message", "failed to dial streaming client, continuing request/response-only"), zap.String("chain", cfg.Name))
				streamClient = nil
			}
		}

		confirmations := cfg.RequiredConfirmations
		if confirmations == 0 {
			confirmations = 12
		}

		r.chains[normalizeChain(cfg.Name)] = &chainHandle{
			requestClient:         requestClient,
			streamClient:          streamClient,
			requiredConfirmations: confirmations,
			monitors:              cfg.Monitors,
		}
	}

	return r
}

// SupportedChains returns every chain name with a valid request/response
// client, sorted for deterministic iteration.
func (r *ChainRegistry) SupportedChains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequestClient returns the required request/response client for a chain.
func (r *ChainRegistry) RequestClient(chain string) (adapter.EthClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.chains[normalizeChain(chain)]
	if !ok {
		return nil, false
	}
	return h.requestClient, true
}

// StreamClient returns the optional streaming client for a chain, if one was
// successfully dialed.
func (r *ChainRegistry) StreamClient(chain string) (adapter.EthClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.chains[normalizeChain(chain)]
	if !ok || h.streamClient == nil {
		return nil, false
	}
	return h.streamClient, true
}

// RequiredConfirmations returns the configured confirmation depth for a
// chain, defaulting to 12.
func (r *ChainRegistry) RequiredConfirmations(chain string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.chains[normalizeChain(chain)]
	if !ok {
		return 12
	}
	return h.requiredConfirmations
}

// Monitors returns the monitor list for a chain, empty if unconfigured.
func (r *ChainRegistry) Monitors(chain string) []domain.Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.chains[normalizeChain(chain)]
	if !ok {
		return nil
	}
	return h.monitors
}

// Close disposes streaming clients first, then request/response clients,
// swallowing errors — logged, not propagated — exactly spec.md §4.1's
// best-effort teardown, grounded on ethSubscriber.Close() in
// internal/providers/ethereum/subscriber.go.
func (r *ChainRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, h := range r.chains {
		if h.streamClient != nil {
			h.streamClient.Close()
			logger.Info("closed streaming client", zap.String("chain", name))
		}
	}
	for name, h := range r.chains {
		if h.requestClient != nil {
			h.requestClient.Close()
			logger.Info("closed request/response client", zap.String("chain", name))
		}
	}
}

func normalizeChain(chain string) string {
	return strings.ToLower(chain)
}
