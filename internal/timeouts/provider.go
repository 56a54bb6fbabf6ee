// Package timeouts implements the Timeout-Delta Provider: the per-pair
// on-chain timeout expressed in blocks, and conversion of a block count
// from one chain's block time to another's (spec.md §2, §4.5, §4.9).
package timeouts

import (
	"math"
	"sync"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// Side mirrors the orderSide used throughout the orchestrator.
type Side int

const (
	Buy Side = iota
	Sell
)

// key identifies one (pair, side, direction) timeout configuration.
type key struct {
	PairID    string
	Side      Side
	IsReverse bool
}

// Provider is the process-wide Timeout-Delta Provider.
type Provider struct {
	mu     sync.RWMutex
	deltas map[key]uint32 // block count
}

func New() *Provider {
	return &Provider{deltas: make(map[key]uint32)}
}

// SetTimeout configures the on-chain timeout, in blocks, for a (pair, side,
// direction) tuple.
func (p *Provider) SetTimeout(pairID string, side Side, isReverse bool, blocks uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas[key{pairID, side, isReverse}] = blocks
}

// GetTimeout returns the configured block delta for (pairID, side,
// isReverse), or 0 if unset.
func (p *Provider) GetTimeout(pairID string, side Side, isReverse bool) uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deltas[key{pairID, side, isReverse}]
}

// ConvertBlocks rescales a block count from sending's block time to
// receiving's block time (spec.md §4.5 step 6): the same wall-clock
// duration expressed in the other chain's blocks.
func ConvertBlocks(sending, receiving *currency.Currency, blocks uint32) uint32 {
	sendingMinutes := blockTimeMinutes(sending)
	receivingMinutes := blockTimeMinutes(receiving)
	if receivingMinutes == 0 {
		return blocks
	}
	converted := float64(blocks) * sendingMinutes / receivingMinutes
	return uint32(math.Ceil(converted))
}

func blockTimeMinutes(c *currency.Currency) float64 {
	if c == nil || c.Params == nil || c.Params.BlockTimeMinutes == 0 {
		return 1
	}
	return c.Params.BlockTimeMinutes
}

// LightningDeltaBuffer computes the extra block delta added on top of the
// converted on-chain timeout when deriving the Lightning-side timeout
// (spec.md §4.5 step 6): +3 blocks if sending and receiving are the same
// chain, else +ceil(10%).
func LightningDeltaBuffer(sending, receiving *currency.Currency, convertedBlocks uint32) uint32 {
	if sending != nil && receiving != nil && sending.Symbol == receiving.Symbol {
		return 3
	}
	return uint32(math.Ceil(float64(convertedBlocks) * 0.1))
}

// CalculateTimeoutDate projects the wall-clock time at which blocksMissing
// more blocks will have been mined on c (spec.md §4.9): now plus
// blocksMissing times the chain's block time.
func CalculateTimeoutDate(c *currency.Currency, blocksMissing uint32, now time.Time) time.Time {
	minutes := blockTimeMinutes(c)
	return now.Add(time.Duration(float64(blocksMissing)*minutes*60) * time.Second)
}
