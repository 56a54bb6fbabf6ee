package service

import (
	"context"
	"fmt"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/events"
	"github.com/klingon-exchange/klingon-v2/internal/fee"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/swapmgr"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
	"github.com/klingon-exchange/klingon-v2/pkg/helpers"
)

// CreateSwapParams is createSwap's request (spec.md §4.2).
type CreateSwapParams struct {
	PairID          string
	OrderSide       string
	PreimageHash    []byte
	RefundPublicKey []byte // required for a BitcoinLike chain currency
	ClaimAddress    string // required for an account-chain currency
	ReferralID      string
	RoutingNode     string // used for referral resolution if ReferralID is empty
}

// CreateSwapResult is createSwap's response (spec.md §4.2).
type CreateSwapResult struct {
	ID                 string
	Address            string
	RedeemScript       string
	ClaimAddress       string
	TimeoutBlockHeight uint32
	ExpectedAmount     uint64 // 0 unless the caller also specified an invoice up front
}

// CreateSwap runs the forward-swap creation algorithm (spec.md §4.2,
// 10 steps): resolve the pair and chain currency, reject a swap whose
// preimage hash is already in use, derive the on-chain timeout, resolve
// the referral, build the HTLC (or EVM contract instance) through the
// Swap Manager, persist it, and publish SwapCreated.
func (o *Orchestrator) CreateSwap(ctx context.Context, p CreateSwapParams) (*CreateSwapResult, error) {
	pair, ok := o.pairs.Get(p.PairID)
	if !ok {
		return nil, swaperrors.PairNotFoundErr(p.PairID)
	}
	side, err := parseOrderSide(p.OrderSide)
	if err != nil {
		return nil, err
	}

	chainCurrency, err := o.getChainCurrency(pair, side)
	if err != nil {
		return nil, err
	}

	if len(p.PreimageHash) != 32 {
		return nil, swaperrors.UndefinedParameterErr("preimageHash")
	}
	if existing, err := o.store.GetSwapByPreimageHash(fmt.Sprintf("%x", p.PreimageHash)); err == nil && existing != nil {
		return nil, swaperrors.SwapWithPreimageExistsErr()
	} else if err != nil && err != storage.ErrNotFound {
		return nil, err
	}

	if chainCurrency.Chain == nil && chainCurrency.Account == nil {
		return nil, swaperrors.NotSupportedBySymbolErr(chainCurrency.Symbol)
	}

	timeoutBlocks := o.timeouts.GetTimeout(p.PairID, side, false)
	currentHeight, err := o.blockHeight(ctx, chainCurrency)
	if err != nil {
		return nil, err
	}
	timeoutBlockHeight := currentHeight + timeoutBlocks

	referralID, err := o.referrals.Resolve(p.ReferralID, p.RoutingNode)
	if err != nil {
		return nil, err
	}

	result, err := o.manager.CreateSwap(ctx, swapmgr.CreateSwapParams{
		PairID:             p.PairID,
		OrderSide:          orderSideString(side),
		PreimageHash:       p.PreimageHash,
		RefundPublicKey:    p.RefundPublicKey,
		ClaimAddress:       p.ClaimAddress,
		ReferralID:         referralID,
		TimeoutBlockHeight: timeoutBlockHeight,
		ChainCurrency:      chainCurrency,
	})
	if err != nil {
		return nil, err
	}

	o.hub.Publish(result.ID, events.SwapCreated, map[string]interface{}{
		"address":            result.Address,
		"timeoutBlockHeight": result.TimeoutBlockHeight,
	})

	return &CreateSwapResult{
		ID:                 result.ID,
		Address:            result.Address,
		RedeemScript:       result.RedeemScript,
		ClaimAddress:       result.ClaimAddress,
		TimeoutBlockHeight: result.TimeoutBlockHeight,
	}, nil
}

// blockHeight returns chainCurrency's current block height: from the
// ChainClient's BlockchainInfo when there is one, else from the
// AccountProvider's block number, else 0.
func (o *Orchestrator) blockHeight(ctx context.Context, c *currency.Currency) (uint32, error) {
	if c.Chain != nil {
		info, err := c.Chain.GetBlockchainInfo(ctx)
		if err != nil {
			return 0, fmt.Errorf("getBlockchainInfo(%s): %w", c.Symbol, err)
		}
		return info.Blocks, nil
	}
	if c.Account != nil {
		n, err := c.Account.GetBlockNumber(ctx)
		if err != nil {
			return 0, fmt.Errorf("getBlockNumber(%s): %w", c.Symbol, err)
		}
		return uint32(n), nil
	}
	return 0, nil
}

// SetSwapInvoiceParams is setSwapInvoice's request (spec.md §4.3).
type SetSwapInvoiceParams struct {
	SwapID  string
	Invoice string
}

// SetSwapInvoiceResult is setSwapInvoice's response: the bip21 payment
// URI the user's wallet can use to fund the lockup address directly
// (spec.md §4.3 step 9).
type SetSwapInvoiceResult struct {
	BIP21          string
	ExpectedAmount uint64
	AcceptZeroConf bool
}

// SetSwapInvoice runs the setSwapInvoice algorithm (spec.md §4.3, 9
// steps): look up the swap, reject if it already has one, decode the
// invoice, check that its payment hash is the swap's preimage hash,
// compute the expected on-chain amount and verify it against the pair's
// limits, decide whether zero-conf is accepted, bind it through the Swap
// Manager, and publish InvoiceSet.
func (o *Orchestrator) SetSwapInvoice(ctx context.Context, p SetSwapInvoiceParams) (*SetSwapInvoiceResult, error) {
	swap, err := o.store.GetSwap(p.SwapID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, swaperrors.SwapNotFoundErr(p.SwapID)
		}
		return nil, err
	}
	if swap.Invoice != "" {
		return nil, swaperrors.SwapHasInvoiceAlreadyErr()
	}

	pair, ok := o.pairs.Get(swap.PairID)
	if !ok {
		return nil, swaperrors.PairNotFoundErr(swap.PairID)
	}
	side, err := parseOrderSide(swap.OrderSide)
	if err != nil {
		return nil, err
	}
	chainCurrency, err := o.getChainCurrency(pair, side)
	if err != nil {
		return nil, err
	}
	if chainCurrency.Lightning == nil {
		return nil, swaperrors.NoLndClientErr(chainCurrency.Symbol)
	}

	decoded, err := chainCurrency.Lightning.DecodeInvoice(ctx, p.Invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to decode invoice: %w", err)
	}
	if decoded.PaymentHash != swap.PreimageHash {
		return nil, swaperrors.InvalidInvoiceAmountErr(0)
	}

	snapshot, err := o.lookupRate(swap.PairID)
	if err != nil {
		return nil, err
	}
	invoiceAmountSat := decoded.AmountMsat / 1000
	expectedAmount := expectedOnchainAmount(invoiceAmountSat, snapshot, side)
	if err := verifyAmount(expectedAmount, snapshot.Limits); err != nil {
		return nil, err
	}
	if expectedAmount > snapshot.Limits.Maximal {
		return nil, swaperrors.InvalidInvoiceAmountErr(snapshot.Limits.Maximal)
	}

	baseFee := o.purposeBaseFee(chainCurrency.Symbol, fee.NormalClaim)
	acceptZeroConf := o.rates.AcceptZeroConf(chainCurrency, expectedAmount)

	if err := o.manager.SetSwapInvoice(p.SwapID, p.Invoice, expectedAmount, snapshot.PercentageFee, baseFee, acceptZeroConf); err != nil {
		if err == storage.ErrInvoiceExists {
			return nil, swaperrors.SwapWithInvoiceExistsErr()
		}
		if err == storage.ErrInvalidSwapState {
			return nil, swaperrors.SwapHasInvoiceAlreadyErr()
		}
		return nil, err
	}

	o.hub.Publish(p.SwapID, events.InvoiceSet, map[string]interface{}{"expectedAmount": expectedAmount})

	bip21 := fmt.Sprintf("%s:%s?amount=%s&label=Send%%20to%%20%s%%20lightning",
		bip21Scheme(chainCurrency.Symbol), swap.LockupAddress, amountDecimalString(expectedAmount, chainCurrency), chainCurrency.Symbol)

	return &SetSwapInvoiceResult{BIP21: bip21, ExpectedAmount: expectedAmount, AcceptZeroConf: acceptZeroConf}, nil
}

// CreateSwapWithInvoiceParams composes CreateSwapParams with an invoice
// to bind immediately (spec.md §4.4).
type CreateSwapWithInvoiceParams struct {
	CreateSwapParams
	Invoice                 string
	ChannelInboundLiquidity int
	ChannelPrivate          bool
	WantsChannelCreation    bool
}

// CreateSwapWithInvoiceResult composes the two steps' responses.
type CreateSwapWithInvoiceResult struct {
	CreateSwapResult
	SetSwapInvoiceResult
}

// CreateSwapWithInvoice composes createSwap and setSwapInvoice as a single
// atomic-looking operation: if binding the invoice fails after the swap
// (and optional Channel Creation) has been persisted, both are deleted
// before the error is returned, so a caller never observes a half-created
// swap it can't retry cleanly (spec.md §4.4).
func (o *Orchestrator) CreateSwapWithInvoice(ctx context.Context, p CreateSwapWithInvoiceParams) (result *CreateSwapWithInvoiceResult, err error) {
	created, err := o.CreateSwap(ctx, p.CreateSwapParams)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if p.WantsChannelCreation {
				_ = o.store.DeleteChannelCreation(created.ID)
			}
			_ = o.store.DeleteSwap(created.ID)
		}
	}()

	if p.WantsChannelCreation {
		if p.ChannelInboundLiquidity < 0 || p.ChannelInboundLiquidity > 100 {
			err = swaperrors.UnsupportedParameterErr("inboundLiquidity")
			return nil, err
		}
		if cerr := o.store.CreateChannelCreation(&storage.ChannelCreation{
			SwapID:                  created.ID,
			InboundLiquidityPercent: p.ChannelInboundLiquidity,
			Private:                 p.ChannelPrivate,
		}); cerr != nil {
			err = cerr
			return nil, err
		}
	}

	invoiceResult, ierr := o.SetSwapInvoice(ctx, SetSwapInvoiceParams{SwapID: created.ID, Invoice: p.Invoice})
	if ierr != nil {
		err = ierr
		return nil, err
	}
	created.ExpectedAmount = invoiceResult.ExpectedAmount

	return &CreateSwapWithInvoiceResult{CreateSwapResult: *created, SetSwapInvoiceResult: *invoiceResult}, nil
}

// SwapTimeoutETA projects the wall-clock ETA of a forward swap's on-chain
// timeout given the chain's current block height (spec.md §4.9).
func (o *Orchestrator) SwapTimeoutETA(ctx context.Context, swapID string) (time.Time, error) {
	swap, err := o.store.GetSwap(swapID)
	if err != nil {
		if err == storage.ErrNotFound {
			return time.Time{}, swaperrors.SwapNotFoundErr(swapID)
		}
		return time.Time{}, err
	}
	pair, ok := o.pairs.Get(swap.PairID)
	if !ok {
		return time.Time{}, swaperrors.PairNotFoundErr(swap.PairID)
	}
	side, err := parseOrderSide(swap.OrderSide)
	if err != nil {
		return time.Time{}, err
	}
	chainCurrency, err := o.getChainCurrency(pair, side)
	if err != nil {
		return time.Time{}, err
	}
	currentHeight, err := o.blockHeight(ctx, chainCurrency)
	if err != nil {
		return time.Time{}, err
	}
	return calculateTimeoutDate(chainCurrency, currentHeight, swap.TimeoutBlockHeight), nil
}

func bip21Scheme(symbol string) string {
	return symbol
}

func amountDecimalString(amount uint64, c *currency.Currency) string {
	if c.Params == nil {
		return fmt.Sprintf("%d", amount)
	}
	return helpers.FormatAmount(amount, c.Params.Decimals)
}
