package service

import (
	"math"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/fee"
	"github.com/klingon-exchange/klingon-v2/internal/pairs"
	"github.com/klingon-exchange/klingon-v2/internal/rate"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
	"github.com/klingon-exchange/klingon-v2/internal/timeouts"
)

// OrderSide mirrors the Buy/Sell distinction the orchestrator's algorithms
// branch on (spec.md §4.2, §4.5).
type OrderSide = timeouts.Side

const (
	Buy  = timeouts.Buy
	Sell = timeouts.Sell
)

// rateForSide resolves a pair's quoted rate into the rate actually applied
// to an amount expressed in the chain currency's units (spec.md §4.6, §8
// scenario 5): a BUY inverts the pair's {base}/{quote} rate since the
// chain amount is denominated in the side opposite of how the pair itself
// quotes, a SELL uses it as-is.
func rateForSide(pairRate float64, side OrderSide) float64 {
	if side == Buy {
		return 1 / pairRate
	}
	return pairRate
}

// getChainCurrency resolves which currency a forward swap's on-chain
// lockup happens in (spec.md §4.2 step 2): SELL locks up the base
// currency (the user is selling base for quote, delivered over
// Lightning), BUY locks up the quote currency.
func (o *Orchestrator) getChainCurrency(p pairs.Pair, side OrderSide) (*currency.Currency, error) {
	symbol := p.Base
	if side == Buy {
		symbol = p.Quote
	}
	return o.currency(symbol)
}

// getSendingReceivingCurrency resolves which currency the service sends
// on-chain (claimable by the user) and which it receives over Lightning,
// for a reverse swap (spec.md §4.5 step 2): mirror image of
// getChainCurrency since the service is the one locking up on-chain here.
// A BUY sends base; a SELL sends quote.
func (o *Orchestrator) getSendingReceivingCurrency(p pairs.Pair, side OrderSide) (sending, receiving *currency.Currency, err error) {
	sendSymbol, recvSymbol := p.Quote, p.Base
	if side == Buy {
		sendSymbol, recvSymbol = p.Base, p.Quote
	}
	sending, err = o.currency(sendSymbol)
	if err != nil {
		return nil, nil, err
	}
	receiving, err = o.currency(recvSymbol)
	if err != nil {
		return nil, nil, err
	}
	return sending, receiving, nil
}

// calculateInvoiceAmount computes the on-chain amount a user must lock up
// to be paid a Lightning invoice of invoiceAmount, given the pair's rate
// and fees (spec.md §4.6). Despite its name, the result is an on-chain
// amount, not an invoice amount:
//
//	onchainAmount = ceil(invoiceAmount * rate / (1 - percentageFee)) + baseFee
func calculateInvoiceAmount(invoiceAmount uint64, pairRate float64, percentageFee float64, baseFee uint64) uint64 {
	gross := math.Ceil(float64(invoiceAmount) * pairRate / (1 - percentageFee))
	return uint64(gross) + baseFee
}

// expectedOnchainAmount computes the onchain amount a forward swap expects
// for a given invoice amount and pair configuration, applying
// rateForSide's direction convention (spec.md §4.3 step 6).
func expectedOnchainAmount(invoiceAmountSat uint64, s rate.Snapshot, side OrderSide) uint64 {
	r := rateForSide(s.Rate, side)
	return calculateInvoiceAmount(invoiceAmountSat, r, s.PercentageFee, s.BaseFee)
}

// verifyAmount checks an onchain (or invoice) amount against a pair's
// configured {minimal, maximal} limits (spec.md §4.8).
func verifyAmount(amount uint64, limits rate.Limits) error {
	if amount < limits.Minimal {
		return swaperrors.BeneathMinimalAmountErr(amount, limits.Minimal)
	}
	if amount > limits.Maximal {
		return swaperrors.ExceedMaximalAmountErr(amount, limits.Maximal)
	}
	return nil
}

// lookupRate fetches pairID's snapshot or PAIR_NOT_FOUND.
func (o *Orchestrator) lookupRate(pairID string) (rate.Snapshot, error) {
	s, ok := o.rates.Get(pairID)
	if !ok {
		return rate.Snapshot{}, swaperrors.PairNotFoundErr(pairID)
	}
	return s, nil
}

// calculateTimeoutDate projects the wall-clock ETA of a swap's on-chain
// timeout (spec.md §4.9), delegating the chain-specific block-time
// arithmetic to the Timeout-Delta Provider.
func calculateTimeoutDate(c *currency.Currency, currentBlockHeight, timeoutBlockHeight uint32) time.Time {
	var blocksMissing uint32
	if timeoutBlockHeight > currentBlockHeight {
		blocksMissing = timeoutBlockHeight - currentBlockHeight
	}
	return timeouts.CalculateTimeoutDate(c, blocksMissing, time.Now())
}

// orderSideString renders an OrderSide the way it is persisted and passed
// to the Swap Manager (spec.md §3 Swap.orderSide).
func orderSideString(side OrderSide) string {
	if side == Buy {
		return "BUY"
	}
	return "SELL"
}

// parseOrderSide parses the persisted/request string form back into an
// OrderSide, or OrderSideNotFoundErr for anything else.
func parseOrderSide(s string) (OrderSide, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, swaperrors.OrderSideNotFoundErr(s)
	}
}

// purposeBaseFee resolves the flat base fee charged in chain's units for
// purpose, keyed by chain (not pair), per the Fee Provider's contract
// (spec.md §4.5 step 8).
func (o *Orchestrator) purposeBaseFee(chainSymbol string, purpose fee.Purpose) uint64 {
	return o.fees.GetBaseFee(chainSymbol, purpose)
}
