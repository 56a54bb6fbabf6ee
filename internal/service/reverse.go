package service

import (
	"context"
	"fmt"

	"github.com/klingon-exchange/klingon-v2/internal/events"
	"github.com/klingon-exchange/klingon-v2/internal/fee"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/swapmgr"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
	"github.com/klingon-exchange/klingon-v2/internal/timeouts"
)

// CreateReverseSwapParams is createReverseSwap's request (spec.md §4.5).
type CreateReverseSwapParams struct {
	PairID          string
	OrderSide       string
	PreimageHash    []byte // the user picks the preimage for a reverse swap
	InvoiceAmount   uint64 // amount in receiving currency's base units the service should be paid over Lightning
	ClaimPublicKey  []byte // required if the sending currency is BitcoinLike
	ClaimAddress    string // required if the sending currency is Ether/ERC20
	ReferralID      string
	RoutingNode     string
	WantsPrepay     bool // request a separate miner-fee prepayment invoice (spec.md §4.5 steps 9-13)
}

// CreateReverseSwapResult is createReverseSwap's response (spec.md §4.5).
type CreateReverseSwapResult struct {
	ID                 string
	Invoice            string
	MinerFeeInvoice     string
	LockupAddress      string
	RedeemScript       string
	OnchainAmount      uint64
	TimeoutBlockHeight uint32
}

const reverseInvoiceExpirySeconds = 3600

// CreateReverseSwap runs the reverse-swap creation algorithm (spec.md §4.5,
// 17 steps): reject if reverse swaps are disabled, resolve the pair and
// the sending/receiving currencies, verify the invoice amount against the
// pair's limits, compute the on-chain amount and fees, optionally issue a
// prepay hold invoice for the lockup fee (the main hold invoice keeps the
// full InvoiceAmount; the prepay is not deducted from it), derive the
// Lightning-side timeout via the Timeout-Delta Provider's cross-chain conversion, create
// the hold invoice, build the claim structure through the Swap Manager,
// persist it, and publish SwapCreated.
func (o *Orchestrator) CreateReverseSwap(ctx context.Context, p CreateReverseSwapParams) (*CreateReverseSwapResult, error) {
	if !o.reverseSwapsEnabled.Load() {
		return nil, swaperrors.ReverseSwapsDisabledErr()
	}

	pair, ok := o.pairs.Get(p.PairID)
	if !ok {
		return nil, swaperrors.PairNotFoundErr(p.PairID)
	}
	side, err := parseOrderSide(p.OrderSide)
	if err != nil {
		return nil, err
	}

	sending, receiving, err := o.getSendingReceivingCurrency(pair, side)
	if err != nil {
		return nil, err
	}
	if receiving.Lightning == nil {
		return nil, swaperrors.NoLndClientErr(receiving.Symbol)
	}
	if sending.Chain == nil && sending.Account == nil {
		return nil, swaperrors.NotSupportedBySymbolErr(sending.Symbol)
	}

	if len(p.PreimageHash) != 32 {
		return nil, swaperrors.UndefinedParameterErr("preimageHash")
	}
	if p.InvoiceAmount == 0 {
		return nil, swaperrors.NoAmountSpecifiedErr()
	}

	snapshot, err := o.lookupRate(p.PairID)
	if err != nil {
		return nil, err
	}
	if err := verifyAmount(p.InvoiceAmount, snapshot.Limits); err != nil {
		return nil, err
	}

	onchainAmount := expectedOnchainAmount(p.InvoiceAmount, snapshot, side)
	lockupFee := o.purposeBaseFee(sending.Symbol, fee.ReverseLockup)
	claimFee := o.purposeBaseFee(sending.Symbol, fee.ReverseClaim)
	if onchainAmount <= lockupFee+claimFee {
		return nil, swaperrors.OnchainAmountTooLowErr()
	}
	onchainAmount -= lockupFee + claimFee

	var prepayAmount uint64
	var minerFeeInvoice string
	if p.WantsPrepay {
		prepayAmount = lockupFee
		holdInvoice, err := receiving.Lightning.CreateHoldInvoice(ctx, prepayAmount*1000, p.PreimageHash, reverseInvoiceExpirySeconds)
		if err != nil {
			return nil, fmt.Errorf("failed to create prepay invoice: %w", err)
		}
		minerFeeInvoice = holdInvoice.Invoice
	}

	convertedBlocks := timeouts.ConvertBlocks(sending, receiving, o.timeouts.GetTimeout(p.PairID, side, true))
	buffer := timeouts.LightningDeltaBuffer(sending, receiving, convertedBlocks)
	currentHeight, err := o.blockHeight(ctx, sending)
	if err != nil {
		return nil, err
	}
	timeoutBlockHeight := currentHeight + convertedBlocks + buffer

	holdInvoice, err := receiving.Lightning.CreateHoldInvoice(ctx, p.InvoiceAmount*1000, p.PreimageHash, reverseInvoiceExpirySeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to create hold invoice: %w", err)
	}

	referralID, err := o.referrals.Resolve(p.ReferralID, p.RoutingNode)
	if err != nil {
		return nil, err
	}

	result, err := o.manager.CreateReverseSwap(ctx, swapmgr.CreateReverseParams{
		PairID:             p.PairID,
		OrderSide:          orderSideString(side),
		PreimageHash:       p.PreimageHash,
		Invoice:            holdInvoice.Invoice,
		MinerFeeInvoice:    minerFeeInvoice,
		OnchainAmount:      onchainAmount,
		HoldInvoiceAmount:  p.InvoiceAmount,
		PercentageFee:      snapshot.PercentageFee,
		PrepayAmount:       prepayAmount,
		ClaimPublicKey:     p.ClaimPublicKey,
		ClaimAddress:       p.ClaimAddress,
		ReferralID:         referralID,
		TimeoutBlockHeight: timeoutBlockHeight,
		Sending:            sending,
	})
	if err != nil {
		return nil, err
	}

	o.hub.Publish(result.ID, events.SwapCreated, map[string]interface{}{
		"lockupAddress":      result.LockupAddress,
		"timeoutBlockHeight": result.TimeoutBlockHeight,
	})

	return &CreateReverseSwapResult{
		ID:                 result.ID,
		Invoice:            holdInvoice.Invoice,
		MinerFeeInvoice:    minerFeeInvoice,
		LockupAddress:      result.LockupAddress,
		RedeemScript:       result.RedeemScript,
		OnchainAmount:      onchainAmount,
		TimeoutBlockHeight: result.TimeoutBlockHeight,
	}, nil
}

// reverseSwapStatus returns the persisted lifecycle status of a reverse
// swap, used by callers polling for settlement.
func (o *Orchestrator) reverseSwapStatus(id string) (string, error) {
	rs, err := o.store.GetReverseSwap(id)
	if err != nil {
		if err == storage.ErrNotFound {
			return "", swaperrors.SwapNotFoundErr(id)
		}
		return "", err
	}
	return rs.Status, nil
}
