package swapmgr

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/evmswap"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/wallet"
)

// Manager is the Swap Manager collaborator: it builds HTLCs (Bitcoin-like
// script or EVM contract instance), binds invoices, and persists the
// authoritative swap record. The orchestrator owns the cross-cutting policy
// (amount verification, fee math, referral resolution); Manager only knows
// how to construct and persist a claim structure once that policy has
// already produced its inputs.
type Manager struct {
	store   *storage.Storage
	wallets map[string]*wallet.HDWallet // keyed by symbol, own claim/refund key source
	evm     map[uint64]*evmswap.Client  // keyed by EVM chain id
}

func NewManager(store *storage.Storage, wallets map[string]*wallet.HDWallet, evm map[uint64]*evmswap.Client) *Manager {
	return &Manager{store: store, wallets: wallets, evm: evm}
}

// CreateSwapParams are the already-validated inputs to a forward swap
// (spec.md §4.2 steps 1-7 have already run in the orchestrator).
type CreateSwapParams struct {
	PairID             string
	OrderSide          string
	PreimageHash       []byte
	RefundPublicKey    []byte // required for BitcoinLike chain currency
	ClaimAddress       string // required for account-chain currency
	ReferralID         string
	TimeoutBlockHeight uint32
	ChainCurrency      *currency.Currency
}

// CreateSwapResult mirrors the orchestrator's createSwap response.
type CreateSwapResult struct {
	ID                 string
	Address            string
	RedeemScript       string
	ClaimAddress       string
	TimeoutBlockHeight uint32
}

// CreateSwap builds the on-chain claim structure for a forward swap and
// persists the swap record (spec.md §4.2 steps 8-9).
func (m *Manager) CreateSwap(ctx context.Context, p CreateSwapParams) (*CreateSwapResult, error) {
	id := uuid.NewString()

	swap := &storage.Swap{
		ID:                 id,
		PairID:             p.PairID,
		OrderSide:          p.OrderSide,
		PreimageHash:       hex.EncodeToString(p.PreimageHash),
		TimeoutBlockHeight: p.TimeoutBlockHeight,
		ReferralID:         p.ReferralID,
		Status:             "created",
	}

	switch p.ChainCurrency.Kind {
	case currency.BitcoinLike:
		claimKeyIndex, err := m.store.NextKeyIndex(p.ChainCurrency.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve key index: %w", err)
		}
		hd, ok := m.wallets[p.ChainCurrency.Symbol]
		if !ok {
			return nil, fmt.Errorf("no wallet configured for %s", p.ChainCurrency.Symbol)
		}
		claimPubKey, err := hd.DerivePublicKey(claimKeyIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to derive claim key: %w", err)
		}
		refundPubKey, err := btcec.ParsePubKey(p.RefundPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid refund public key: %w", err)
		}

		htlcData, err := BuildHTLCScriptData(p.PreimageHash, claimPubKey, refundPubKey, p.TimeoutBlockHeight, p.ChainCurrency.Params)
		if err != nil {
			return nil, err
		}

		swap.LockupAddress = htlcData.Address
		swap.RefundPublicKey = hex.EncodeToString(p.RefundPublicKey)
		swap.RedeemScript = hex.EncodeToString(htlcData.Script)
		swap.HasKeyIndex = true
		swap.KeyIndex = claimKeyIndex

		if err := m.store.CreateSwap(swap); err != nil {
			return nil, err
		}
		return &CreateSwapResult{ID: id, Address: htlcData.Address, RedeemScript: swap.RedeemScript, TimeoutBlockHeight: p.TimeoutBlockHeight}, nil

	case currency.Ether, currency.ERC20:
		client, ok := m.evm[p.ChainCurrency.Params.ChainID]
		if !ok {
			return nil, fmt.Errorf("no EVM client configured for chain id %d", p.ChainCurrency.Params.ChainID)
		}
		var secretHash [32]byte
		copy(secretHash[:], p.PreimageHash)

		lockupAddress, err := client.LockupAddress(ctx)
		if err != nil {
			return nil, err
		}

		swap.LockupAddress = lockupAddress.Hex()
		swap.ClaimAddress = p.ClaimAddress

		if err := m.store.CreateSwap(swap); err != nil {
			return nil, err
		}
		return &CreateSwapResult{ID: id, Address: lockupAddress.Hex(), ClaimAddress: p.ClaimAddress, TimeoutBlockHeight: p.TimeoutBlockHeight}, nil

	default:
		return nil, fmt.Errorf("unsupported currency kind: %s", p.ChainCurrency.Kind)
	}
}

// SetSwapInvoice binds a decoded invoice to an existing swap (spec.md §4.3
// step 8). The orchestrator computes expectedAmount/percentageFee/baseFee
// and acceptZeroConf before calling this.
func (m *Manager) SetSwapInvoice(id, invoice string, expectedAmount uint64, percentageFee float64, baseFee uint64, acceptZeroConf bool) error {
	return m.store.SetInvoice(id, invoice, expectedAmount, percentageFee, baseFee, acceptZeroConf)
}

// CreateReverseParams are the already-validated inputs to a reverse swap
// (spec.md §4.5 steps 1-14 have already run in the orchestrator).
type CreateReverseParams struct {
	PairID             string
	OrderSide          string
	PreimageHash       []byte
	Invoice            string
	MinerFeeInvoice    string
	OnchainAmount      uint64
	HoldInvoiceAmount  uint64
	PercentageFee      float64
	PrepayAmount       uint64
	ClaimPublicKey     []byte // required for BitcoinLike sending currency
	ClaimAddress       string // required for account sending currency
	ReferralID         string
	TimeoutBlockHeight uint32
	Sending            *currency.Currency
}

// CreateReverseResult mirrors the orchestrator's createReverseSwap response.
type CreateReverseResult struct {
	ID                 string
	LockupAddress      string
	RedeemScript       string
	TimeoutBlockHeight uint32
}

// CreateReverseSwap builds the on-chain claim structure for a reverse swap
// and persists the record (spec.md §4.5 steps 15-16). The service's own
// key is the refund key here; the counterparty's claimPublicKey/claimAddress
// is the claim side.
func (m *Manager) CreateReverseSwap(ctx context.Context, p CreateReverseParams) (*CreateReverseResult, error) {
	id := uuid.NewString()

	rs := &storage.ReverseSwap{
		ID:                          id,
		PairID:                      p.PairID,
		OrderSide:                   p.OrderSide,
		PreimageHash:                hex.EncodeToString(p.PreimageHash),
		Invoice:                     p.Invoice,
		MinerFeeInvoice:             p.MinerFeeInvoice,
		OnchainAmount:               p.OnchainAmount,
		HoldInvoiceAmount:           p.HoldInvoiceAmount,
		PercentageFee:               p.PercentageFee,
		PrepayMinerFeeOnchainAmount: p.PrepayAmount,
		HasPrepayMinerFee:           p.PrepayAmount > 0,
		ReferralID:                  p.ReferralID,
		TimeoutBlockHeight:          p.TimeoutBlockHeight,
		Status:                      "created",
	}

	switch p.Sending.Kind {
	case currency.BitcoinLike:
		refundKeyIndex, err := m.store.NextKeyIndex(p.Sending.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve key index: %w", err)
		}
		hd, ok := m.wallets[p.Sending.Symbol]
		if !ok {
			return nil, fmt.Errorf("no wallet configured for %s", p.Sending.Symbol)
		}
		refundPubKey, err := hd.DerivePublicKey(refundKeyIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to derive refund key: %w", err)
		}
		claimPubKey, err := btcec.ParsePubKey(p.ClaimPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid claim public key: %w", err)
		}

		htlcData, err := BuildHTLCScriptData(p.PreimageHash, claimPubKey, refundPubKey, p.TimeoutBlockHeight, p.Sending.Params)
		if err != nil {
			return nil, err
		}

		rs.LockupAddress = htlcData.Address
		rs.ClaimPublicKey = hex.EncodeToString(p.ClaimPublicKey)
		rs.RedeemScript = hex.EncodeToString(htlcData.Script)

		if err := m.store.CreateReverseSwap(rs); err != nil {
			return nil, err
		}
		return &CreateReverseResult{ID: id, LockupAddress: htlcData.Address, RedeemScript: rs.RedeemScript, TimeoutBlockHeight: p.TimeoutBlockHeight}, nil

	case currency.Ether, currency.ERC20:
		client, ok := m.evm[p.Sending.Params.ChainID]
		if !ok {
			return nil, fmt.Errorf("no EVM client configured for chain id %d", p.Sending.Params.ChainID)
		}
		lockupAddress, err := client.LockupAddress(ctx)
		if err != nil {
			return nil, err
		}

		rs.LockupAddress = lockupAddress.Hex()
		rs.ClaimAddress = p.ClaimAddress

		if err := m.store.CreateReverseSwap(rs); err != nil {
			return nil, err
		}
		return &CreateReverseResult{ID: id, LockupAddress: lockupAddress.Hex(), TimeoutBlockHeight: p.TimeoutBlockHeight}, nil

	default:
		return nil, fmt.Errorf("unsupported currency kind: %s", p.Sending.Kind)
	}
}
