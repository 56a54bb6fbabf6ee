// Package pairs implements the Pair Registry: the enumerated set of
// supported {base, quote} pairs with static configuration (spec.md §3,
// "Pair"). It is loaded once at init and upserted only if a pair's
// composite id is absent; it is never deleted at runtime.
package pairs

import (
	"fmt"
	"sync"
)

// Pair is the static, rarely-changing shape of a trading pair. The
// frequently-refreshed fields (rate, limits, hash, fees) live in
// internal/rate and internal/fee, which key off the same Base/Quote pair.
type Pair struct {
	Base  string
	Quote string

	TimeoutBlockDelta uint32
}

// ID returns the pair's composite identity "base/quote".
func (p Pair) ID() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// Registry is the process-wide Pair Registry (spec.md §5, "Shared mutable
// state"). The zero value is ready to use.
type Registry struct {
	mu    sync.RWMutex
	pairs map[string]Pair
}

func New() *Registry {
	return &Registry{pairs: make(map[string]Pair)}
}

// Upsert inserts p if its id is not already registered. An existing
// registration for the same id is left untouched, matching init's
// "insert only if absent" contract (spec.md §4.1).
func (r *Registry) Upsert(p Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pairs == nil {
		r.pairs = make(map[string]Pair)
	}
	if _, exists := r.pairs[p.ID()]; exists {
		return
	}
	r.pairs[p.ID()] = p
}

// Get returns the pair registered under id, if any.
func (r *Registry) Get(id string) (Pair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pairs[id]
	return p, ok
}

// List returns every registered pair, in no particular order.
func (r *Registry) List() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	return out
}
