// Package service implements the Orchestrator: the swap system's single
// public entry point. It owns every cross-cutting policy the spec assigns
// it — amount verification, fee splitting, prepay-miner-fee logic,
// pair-hash freshness, and the closed error taxonomy — while delegating
// chain/Lightning I/O, HTLC construction, and persistence to collaborators
// it only knows through the internal/currency interfaces and the
// internal/swapmgr, internal/storage, internal/events packages.
//
// Every exported method mirrors one operation of the orchestrator's public
// contract; there is no HTTP or gRPC surface here; a transport layer is a
// thin adapter built on top of this package, not part of it.
package service

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/events"
	"github.com/klingon-exchange/klingon-v2/internal/fee"
	"github.com/klingon-exchange/klingon-v2/internal/nodes"
	"github.com/klingon-exchange/klingon-v2/internal/pairs"
	"github.com/klingon-exchange/klingon-v2/internal/rate"
	"github.com/klingon-exchange/klingon-v2/internal/referral"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/swapmgr"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
	"github.com/klingon-exchange/klingon-v2/internal/timeouts"
	"github.com/klingon-exchange/klingon-v2/pkg/logging"
)

// Orchestrator is the Service: the orchestration core described by the
// component design. The zero value is not usable; construct with New.
type Orchestrator struct {
	currencies map[string]*currency.Currency

	pairs     *pairs.Registry
	fees      *fee.Provider
	rates     *rate.Provider
	timeouts  *timeouts.Provider
	nodes     *nodes.Registry
	referrals *referral.Registry
	store     *storage.Storage
	manager   *swapmgr.Manager
	hub       *events.Hub

	// evmContracts is the getContracts() projection: chain id -> deployed
	// HTLC contract address. Empty means no account-chain manager is
	// configured, which getContracts reports as ETHEREUM_NOT_ENABLED.
	evmContracts map[uint64]string

	reverseSwapsEnabled atomic.Bool
	prepayMinerFee      atomic.Bool

	log *logging.Logger
}

// Config is the fully-wired set of collaborators New needs. Every field is
// required except EVMContracts, which may be nil/empty if no account chain
// is configured.
type Config struct {
	Currencies          map[string]*currency.Currency
	Pairs               *pairs.Registry
	Fees                *fee.Provider
	Rates               *rate.Provider
	Timeouts            *timeouts.Provider
	Nodes               *nodes.Registry
	Referrals           *referral.Registry
	Store               *storage.Storage
	Manager             *swapmgr.Manager
	Hub                 *events.Hub
	EVMContracts        map[uint64]string
	ReverseSwapsEnabled bool
	PrepayMinerFee      bool
}

// New constructs the Orchestrator from an already-wired Config.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		currencies:   cfg.Currencies,
		pairs:        cfg.Pairs,
		fees:         cfg.Fees,
		rates:        cfg.Rates,
		timeouts:     cfg.Timeouts,
		nodes:        cfg.Nodes,
		referrals:    cfg.Referrals,
		store:        cfg.Store,
		manager:      cfg.Manager,
		hub:          cfg.Hub,
		evmContracts: cfg.EVMContracts,
		log:          logging.GetDefault().Component("orchestrator"),
	}
	o.reverseSwapsEnabled.Store(cfg.ReverseSwapsEnabled)
	o.prepayMinerFee.Store(cfg.PrepayMinerFee)
	return o
}

func (o *Orchestrator) currency(symbol string) (*currency.Currency, error) {
	c, ok := o.currencies[symbol]
	if !ok {
		return nil, swaperrors.CurrencyNotFoundErr(symbol)
	}
	return c, nil
}

// PairConfig is one entry of init(pairs[])'s input: the static shape of a
// pair plus the seed values its dependent providers are primed with.
type PairConfig struct {
	Base, Quote         string
	Rate                float64
	Limits              rate.Limits
	PercentageFee       float64
	BaseFee             uint64 // flat fee, in Base's units, for every fee.Purpose
	TimeoutDeltaMinutes uint32
}

// Init wires a configured pair list into the Pair Registry, Timeout-Delta
// Provider, Fee Provider and Rate Provider, then snapshots Lightning node
// URIs (spec.md §4.1 init).
func (o *Orchestrator) Init(ctx context.Context, configs []PairConfig) error {
	for _, pc := range configs {
		base, err := o.currency(pc.Base)
		if err != nil {
			return err
		}
		if _, err := o.currency(pc.Quote); err != nil {
			return err
		}

		p := pairs.Pair{Base: pc.Base, Quote: pc.Quote, TimeoutBlockDelta: deltaBlocks(base, pc.TimeoutDeltaMinutes)}
		o.pairs.Upsert(p)
		pairID := p.ID()

		for _, side := range []timeouts.Side{timeouts.Buy, timeouts.Sell} {
			for _, isReverse := range []bool{false, true} {
				o.timeouts.SetTimeout(pairID, side, isReverse, p.TimeoutBlockDelta)
			}
		}

		o.fees.SetPercentageFee(pairID, pc.PercentageFee)
		o.fees.SetBaseFee(pc.Base, fee.NormalClaim, pc.BaseFee)
		o.fees.SetBaseFee(pc.Base, fee.ReverseLockup, pc.BaseFee)
		o.fees.SetBaseFee(pc.Base, fee.ReverseClaim, pc.BaseFee)

		o.rates.SetSnapshot(pairID, rate.Snapshot{
			Rate:          pc.Rate,
			Limits:        pc.Limits,
			PercentageFee: pc.PercentageFee,
			BaseFee:       pc.BaseFee,
		})
	}

	for symbol, c := range o.currencies {
		if c.Lightning == nil {
			continue
		}
		info, err := c.Lightning.GetInfo(ctx)
		if err != nil {
			o.log.Warn("failed to snapshot lightning node info", "symbol", symbol, "error", err)
			continue
		}
		o.nodes.Set(symbol, nodes.Info{PublicKey: info.IdentityPubkey, URIs: info.URIs})
	}
	return nil
}

func deltaBlocks(base *currency.Currency, minutes uint32) uint32 {
	blockMinutes := 1.0
	if base.Params != nil && base.Params.BlockTimeMinutes > 0 {
		blockMinutes = base.Params.BlockTimeMinutes
	}
	return uint32(math.Ceil(float64(minutes) / blockMinutes))
}

// ---- getInfo ----

// ChainStatus is one currency's chain-client snapshot within getInfo's
// response, with Err set instead of the call propagating a failure
// (spec.md §4.1 "Errors from a collaborator are captured... and never
// propagate").
type ChainStatus struct {
	Version     string
	Connections int
	Blocks      uint32
	Scanned     uint32
	Err         error
}

// LightningStatus is one currency's Lightning-client snapshot within
// getInfo's response.
type LightningStatus struct {
	Version  string
	Height   uint32
	Active   int
	Inactive int
	Pending  int
	Err      error
}

// CurrencyInfo pairs a currency's chain and Lightning status.
type CurrencyInfo struct {
	Chain     ChainStatus
	Lightning *LightningStatus // nil if this currency has no Lightning node
}

// Info is getInfo()'s full response.
type Info struct {
	Version string
	Chains  map[string]CurrencyInfo
}

const serviceVersion = "2.0.0"

// GetInfo probes every currency's chain and (if present) Lightning
// collaborator (spec.md §4.1 getInfo).
func (o *Orchestrator) GetInfo(ctx context.Context) Info {
	chains := make(map[string]CurrencyInfo, len(o.currencies))
	for symbol, c := range o.currencies {
		entry := CurrencyInfo{}

		if c.Chain != nil {
			net, netErr := c.Chain.GetNetworkInfo(ctx)
			bc, bcErr := c.Chain.GetBlockchainInfo(ctx)
			entry.Chain = ChainStatus{
				Version:     net.Version,
				Connections: net.Connections,
				Blocks:      bc.Blocks,
				Scanned:     bc.ScannedBlocks,
			}
			if netErr != nil {
				entry.Chain.Err = netErr
			} else if bcErr != nil {
				entry.Chain.Err = bcErr
			}
		}

		if c.Lightning != nil {
			li, err := c.Lightning.GetInfo(ctx)
			ls := &LightningStatus{
				Version:  li.Version,
				Height:   li.BlockHeight,
				Active:   li.ActiveChannels,
				Inactive: li.InactiveChannels,
				Pending:  li.PendingChannels,
			}
			if err != nil {
				ls.Err = err
			}
			entry.Lightning = ls
		}

		chains[symbol] = entry
	}
	return Info{Version: serviceVersion, Chains: chains}
}

// ---- getBalance ----

// LightningBalance is a currency's aggregate local/remote channel balance.
type LightningBalance struct {
	LocalBalance  uint64
	RemoteBalance uint64
}

// Balance is one currency's full getBalance() entry.
type Balance struct {
	Wallet    currency.WalletBalance
	Lightning *LightningBalance // nil if this currency has no Lightning node
}

// GetBalance sums wallet balance, plus channel balances for Lightning-
// capable currencies (spec.md §4.1 getBalance).
func (o *Orchestrator) GetBalance(ctx context.Context) (map[string]Balance, error) {
	out := make(map[string]Balance, len(o.currencies))
	for symbol, c := range o.currencies {
		var b Balance
		if c.Wallet != nil {
			wb, err := c.Wallet.GetBalance(ctx)
			if err != nil {
				return nil, fmt.Errorf("getBalance(%s): %w", symbol, err)
			}
			b.Wallet = wb
		}
		if c.Lightning != nil {
			channels, err := c.Lightning.ListChannels(ctx)
			if err != nil {
				return nil, fmt.Errorf("getBalance(%s) channels: %w", symbol, err)
			}
			lb := &LightningBalance{}
			for _, ch := range channels {
				lb.LocalBalance += ch.LocalBalance
				lb.RemoteBalance += ch.RemoteBalance
			}
			b.Lightning = lb
		}
		out[symbol] = b
	}
	return out, nil
}

// ---- getPairs ----

// PairsResponse is getPairs()'s response shape.
type PairsResponse struct {
	Pairs    []pairs.Pair
	Info     []string
	Warnings []string
}

// GetPairs returns the configured pairs plus runtime-flag annotations
// (spec.md §4.1 getPairs).
func (o *Orchestrator) GetPairs() PairsResponse {
	resp := PairsResponse{Pairs: o.pairs.List()}
	if o.prepayMinerFee.Load() {
		resp.Info = append(resp.Info, "PrepayMinerFee")
	}
	if !o.reverseSwapsEnabled.Load() {
		resp.Warnings = append(resp.Warnings, "ReverseSwapsDisabled")
	}
	return resp
}

// GetNodes returns the Node URI Registry's full snapshot (spec.md §4.1).
func (o *Orchestrator) GetNodes() map[string]nodes.Info {
	return o.nodes.All()
}

// GetRoutingHints forwards to symbol's Lightning node (spec.md §4.1).
func (o *Orchestrator) GetRoutingHints(ctx context.Context, symbol, routingNode string) ([]string, error) {
	c, err := o.currency(symbol)
	if err != nil {
		return nil, err
	}
	if c.Lightning == nil {
		return nil, swaperrors.NoLndClientErr(symbol)
	}
	return c.Lightning.RoutingHints(ctx, routingNode)
}

// TimeoutInfo is one pair's resolved timeouts, for every (side, direction)
// combination (spec.md §4.1 getTimeouts).
type TimeoutInfo struct {
	PairID              string
	SwapTimeoutBuy      uint32
	SwapTimeoutSell     uint32
	ReverseTimeoutBuy   uint32
	ReverseTimeoutSell  uint32
}

// GetTimeouts projects the Timeout-Delta Provider's configuration for every
// registered pair (spec.md §4.1).
func (o *Orchestrator) GetTimeouts() []TimeoutInfo {
	list := o.pairs.List()
	out := make([]TimeoutInfo, 0, len(list))
	for _, p := range list {
		id := p.ID()
		out = append(out, TimeoutInfo{
			PairID:             id,
			SwapTimeoutBuy:     o.timeouts.GetTimeout(id, timeouts.Buy, false),
			SwapTimeoutSell:    o.timeouts.GetTimeout(id, timeouts.Sell, false),
			ReverseTimeoutBuy:  o.timeouts.GetTimeout(id, timeouts.Buy, true),
			ReverseTimeoutSell: o.timeouts.GetTimeout(id, timeouts.Sell, true),
		})
	}
	return out
}

// GetContracts returns the deployed HTLC contract address per EVM chain
// id. Fails ETHEREUM_NOT_ENABLED if no account-chain manager is configured
// (spec.md §4.1 getContracts).
func (o *Orchestrator) GetContracts() (map[uint64]string, error) {
	if len(o.evmContracts) == 0 {
		return nil, swaperrors.EthereumNotEnabledErr()
	}
	out := make(map[uint64]string, len(o.evmContracts))
	for k, v := range o.evmContracts {
		out[k] = v
	}
	return out, nil
}

// ---- chain passthrough ----

// GetTransaction forwards to symbol's chain client (spec.md §4.1).
func (o *Orchestrator) GetTransaction(ctx context.Context, symbol, txid string) (string, error) {
	c, err := o.currency(symbol)
	if err != nil {
		return "", err
	}
	if c.Chain == nil {
		return "", swaperrors.NotSupportedBySymbolErr(symbol)
	}
	return c.Chain.GetRawTransaction(ctx, txid)
}

// BroadcastTransaction submits hex to symbol's chain (spec.md §4.1
// broadcastTransaction, scenario 6). If the chain rejects a Bitcoin-like
// transaction whose first input spends a known swap's lockup and
// currentBlockHeight is below that swap's timeout, the rejection is
// returned as REFUND_BEFORE_TIMEOUT carrying the timeout height and its
// ETA; any other rejection is returned unchanged.
func (o *Orchestrator) BroadcastTransaction(ctx context.Context, symbol, hexTx string, currentBlockHeight uint32) (string, error) {
	c, err := o.currency(symbol)
	if err != nil {
		return "", err
	}
	if c.Chain == nil {
		return "", swaperrors.NotSupportedBySymbolErr(symbol)
	}

	txid, err := c.Chain.SendRawTransaction(ctx, hexTx)
	if err != nil {
		if c.Kind == currency.BitcoinLike {
			if spentTxID, extractErr := swapmgr.ExtractSpentLockupTxID(hexTx); extractErr == nil {
				if swap, lookupErr := o.store.GetSwapByLockupTransactionID(spentTxID.String()); lookupErr == nil && currentBlockHeight < swap.TimeoutBlockHeight {
					blocksMissing := swap.TimeoutBlockHeight - currentBlockHeight
					eta := timeouts.CalculateTimeoutDate(c, blocksMissing, time.Now())
					return "", swaperrors.RefundBeforeTimeoutErr(err.Error(), swap.TimeoutBlockHeight, eta.Unix())
				}
			}
		}
		return "", err
	}
	return txid, nil
}

// ---- deriveKeys / getAddress ----

// DeriveKeys HD-derives the public/private key pair at index for symbol's
// wallet (spec.md §4.1 deriveKeys).
func (o *Orchestrator) DeriveKeys(ctx context.Context, symbol string, index uint32) (publicKey, privateKey []byte, err error) {
	c, err := o.currency(symbol)
	if err != nil {
		return nil, nil, err
	}
	if c.Wallet == nil {
		return nil, nil, swaperrors.NotSupportedBySymbolErr(symbol)
	}
	return c.Wallet.GetKeysByIndex(ctx, index)
}

// GetAddress returns a fresh receive address from symbol's wallet
// (spec.md §4.1 getAddress).
func (o *Orchestrator) GetAddress(ctx context.Context, symbol string) (string, error) {
	c, err := o.currency(symbol)
	if err != nil {
		return "", err
	}
	if c.Wallet == nil {
		return "", swaperrors.NotSupportedBySymbolErr(symbol)
	}
	return c.Wallet.GetAddress(ctx)
}

// ---- getFeeEstimation ----

const defaultFeeEstimationBlocks = 2

// GetFeeEstimation estimates the on-chain fee rate for symbol (or every
// currency if symbol is empty), collapsing ERC20 symbols onto their
// underlying account chain's native symbol (spec.md §4.1 getFeeEstimation).
func (o *Orchestrator) GetFeeEstimation(ctx context.Context, symbol string, blocks uint32) (map[string]float64, error) {
	if blocks == 0 {
		blocks = defaultFeeEstimationBlocks
	}

	symbols := []string{symbol}
	if symbol == "" {
		symbols = symbols[:0]
		seen := make(map[string]bool)
		for s, c := range o.currencies {
			native := c.NativeSymbol()
			if !seen[native] {
				seen[native] = true
				symbols = append(symbols, s)
			}
		}
	}

	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		c, err := o.currency(s)
		if err != nil {
			return nil, err
		}
		native := c.NativeSymbol()
		if _, ok := out[native]; ok {
			continue
		}
		nativeCurrency, err := o.currency(native)
		if err != nil {
			return nil, err
		}
		if nativeCurrency.Chain == nil {
			continue
		}

		switch nativeCurrency.Kind {
		case currency.BitcoinLike:
			rate, err := nativeCurrency.Chain.EstimateFee(ctx, blocks)
			if err != nil {
				return nil, fmt.Errorf("estimateFee(%s): %w", native, err)
			}
			out[native] = rate
		case currency.Ether, currency.ERC20:
			if nativeCurrency.Account == nil {
				continue
			}
			gasPrice, err := nativeCurrency.Account.GetGasPrice(ctx)
			if err != nil {
				return nil, fmt.Errorf("getGasPrice(%s): %w", native, err)
			}
			out[native] = weiToGwei(gasPrice)
		}
	}
	return out, nil
}

const gweiDecimals = 9

func weiToGwei(wei *big.Int) float64 {
	divisor := new(big.Float).SetFloat64(math.Pow(10, gweiDecimals))
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), divisor)
	f, _ := gwei.Float64()
	return f
}

// ---- addReferral ----

// Referral mirrors internal/referral.Referral for callers of this package.
type Referral = referral.Referral

// AddReferral validates and persists a new referral (spec.md §4.1
// addReferral).
func (o *Orchestrator) AddReferral(id string, feeShare int, routingNode string) (*Referral, error) {
	return o.referrals.Add(id, feeShare, routingNode)
}

// ---- sendCoins ----

// SendResult mirrors currency.SendResult for callers of this package.
type SendResult = currency.SendResult

// SendCoins sends amount to address from symbol's wallet, or sweeps the
// whole balance when sendAll is set (spec.md §4.10 sendCoins).
func (o *Orchestrator) SendCoins(ctx context.Context, symbol, address string, amount uint64, sendAll bool, fee float64) (SendResult, error) {
	c, err := o.currency(symbol)
	if err != nil {
		return SendResult{}, err
	}
	if c.Wallet == nil {
		return SendResult{}, swaperrors.NotSupportedBySymbolErr(symbol)
	}
	if sendAll {
		return c.Wallet.SweepWallet(ctx, address, fee)
	}
	return c.Wallet.SendToAddress(ctx, address, amount, fee)
}
