package ingest

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
)

// handleRegistry is the concurrent map of live subscription handles
// (spec.md §5, "subscription-handle lists use a concurrent map keyed by
// chain"). It also doubles as the idempotent start-tracker the Block
// Ingestor uses to ensure exactly one Event Ingestor runs per (chain,
// token_address) pair.
type handleRegistry struct {
	subs sync.Map // key: string -> ethereum.Subscription
}

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{}
}

// startOnce registers key as started and reports whether this call is the
// first to do so. Safe for concurrent use across goroutines racing to start
// the same (chain, token_address) pair.
func (r *handleRegistry) startOnce(key string) bool {
	_, alreadyStarted := r.subs.LoadOrStore(key, (ethereum.Subscription)(nil))
	return !alreadyStarted
}

// put records the live subscription handle for key, replacing the
// placeholder startOnce stored.
func (r *handleRegistry) put(key string, sub ethereum.Subscription) {
	r.subs.Store(key, sub)
}

// closeAll disposes every retained subscription handle, swallowing nil
// entries (a key whose subscribe call failed after startOnce claimed it).
func (r *handleRegistry) closeAll() {
	r.subs.Range(func(key, value interface{}) bool {
		if sub, ok := value.(ethereum.Subscription); ok && sub != nil {
			sub.Unsubscribe()
		}
		return true
	})
}

func monitorKey(chain, tokenAddress string) string {
	return fmt.Sprintf("%s:%s", chain, tokenAddress)
}
