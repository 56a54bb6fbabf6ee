// Package rate implements the Rate Provider: maintains a per-pair snapshot
// of {rate, limits, hash, percentageFee} and admits zero-conf at or below
// a configured threshold (spec.md §2, §4.1, §4.3).
package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/pkg/logging"
)

// Limits bounds the accepted amount for a pair, in base-currency units.
type Limits struct {
	Minimal uint64
	Maximal uint64
}

// Snapshot is the atomically-replaced record readers consult (spec.md §5,
// "Readers take consistent snapshots (rate + hash + limits read
// together)").
type Snapshot struct {
	Rate          float64
	Limits        Limits
	Hash          string
	PercentageFee float64
	BaseFee       uint64
}

// hashInput is the canonical payload whose SHA-256 becomes Snapshot.Hash
// (the "Pair hash" of the GLOSSARY) — an optimistic-concurrency token
// between quote and commit.
type hashInput struct {
	Rate          float64 `json:"rate"`
	Limits        Limits  `json:"limits"`
	PercentageFee float64 `json:"percentageFee"`
	BaseFee       uint64  `json:"baseFee"`
}

// ComputeHash hex-encodes the SHA-256 of the canonical JSON encoding of
// {rate, limits, percentageFee, baseFee}.
func ComputeHash(s Snapshot) string {
	data, _ := json.Marshal(hashInput{Rate: s.Rate, Limits: s.Limits, PercentageFee: s.PercentageFee, BaseFee: s.BaseFee})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ZeroConfThreshold is the maximum amount (in the lockup chain's base
// units) a Provider will accept as zero-conf, per currency symbol.
type ZeroConfThreshold struct {
	Symbol string
	Amount uint64
}

// Provider is the process-wide Rate Provider.
type Provider struct {
	mu          sync.RWMutex
	snapshots   map[string]Snapshot // pairID -> snapshot
	zeroConf    map[string]uint64   // symbol -> threshold
	interval    time.Duration
	stop        chan struct{}
	refreshFunc func(pairID string, current Snapshot) Snapshot
	log         *logging.Logger
}

// New constructs a Provider. refreshFunc recomputes a pair's rate/limits
// (e.g. from an external price source); it may be nil if the snapshot set
// is static for the lifetime of the process.
func New(interval time.Duration, refreshFunc func(pairID string, current Snapshot) Snapshot) *Provider {
	return &Provider{
		snapshots:   make(map[string]Snapshot),
		zeroConf:    make(map[string]uint64),
		interval:    interval,
		refreshFunc: refreshFunc,
		log:         logging.GetDefault().Component("rate"),
	}
}

// SetSnapshot installs the initial (or a forced) snapshot for pairID, with
// Hash computed from the other fields.
func (p *Provider) SetSnapshot(pairID string, s Snapshot) Snapshot {
	s.Hash = ComputeHash(s)
	p.mu.Lock()
	p.snapshots[pairID] = s
	p.mu.Unlock()
	return s
}

// Get returns pairID's current snapshot.
func (p *Provider) Get(pairID string) (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.snapshots[pairID]
	return s, ok
}

// SetZeroConfThreshold configures the maximum amount accepted as zero-conf
// for symbol.
func (p *Provider) SetZeroConfThreshold(symbol string, amount uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zeroConf[symbol] = amount
}

// AcceptZeroConf reports whether amount (in symbol's base units) is at or
// below symbol's configured zero-conf threshold.
func (p *Provider) AcceptZeroConf(currency *currency.Currency, amount uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	threshold, ok := p.zeroConf[currency.Symbol]
	if !ok {
		return false
	}
	return amount <= threshold
}

// Start runs the periodic refresh loop in the background until ctx is
// canceled or Stop is called. It is a no-op if refreshFunc is nil.
func (p *Provider) Start(ctx context.Context) {
	if p.refreshFunc == nil || p.interval <= 0 {
		return
	}
	p.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.refreshAll()
			}
		}
	}()
}

// Stop halts the refresh loop started by Start.
func (p *Provider) Stop() {
	if p.stop != nil {
		close(p.stop)
	}
}

func (p *Provider) refreshAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.snapshots))
	for id := range p.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	p.mu.Unlock()

	for _, id := range ids {
		p.mu.RLock()
		current := p.snapshots[id]
		p.mu.RUnlock()

		next := p.refreshFunc(id, current)
		next.Hash = ComputeHash(next)

		p.mu.Lock()
		p.snapshots[id] = next
		p.mu.Unlock()
	}
	p.log.Debug("refreshed rate snapshots", "pairs", len(ids))
}
