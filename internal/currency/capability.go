package currency

import (
	"context"
	"math/big"
)

// Kind is the tagged variant over a currency's settlement model (spec.md §3,
// §9 "Polymorphism over currency kind"). Every code path that used to branch
// on a runtime type check becomes an exhaustive switch over Kind instead.
type Kind int

const (
	BitcoinLike Kind = iota
	Ether
	ERC20
)

func (k Kind) String() string {
	switch k {
	case BitcoinLike:
		return "bitcoin-like"
	case Ether:
		return "ether"
	case ERC20:
		return "erc20"
	default:
		return "unknown"
	}
}

// NetworkInfo mirrors the ChainClient.getNetworkInfo() response (spec.md §6).
type NetworkInfo struct {
	Version     string
	Connections int
}

// BlockchainInfo mirrors ChainClient.getBlockchainInfo().
type BlockchainInfo struct {
	Blocks        uint32
	ScannedBlocks uint32
}

// ChainClient is the per-chain collaborator consumed by the orchestrator.
// Real implementations live in internal/backend; this system only depends
// on the interface (spec.md §6, "Out of scope" collaborators).
type ChainClient interface {
	GetNetworkInfo(ctx context.Context) (NetworkInfo, error)
	GetBlockchainInfo(ctx context.Context) (BlockchainInfo, error)
	EstimateFee(ctx context.Context, blocks uint32) (float64, error)
	GetRawTransaction(ctx context.Context, txid string) (string, error)
	SendRawTransaction(ctx context.Context, hex string) (string, error)
}

// ChannelBalance is one entry of LndClient.listChannels().
type ChannelBalance struct {
	LocalBalance  uint64
	RemoteBalance uint64
}

// LightningInfo mirrors LndClient.getInfo().
type LightningInfo struct {
	Version          string
	BlockHeight      uint32
	IdentityPubkey   string
	URIs             []string
	ActiveChannels   int
	InactiveChannels int
	PendingChannels  int
}

// PaymentResult mirrors LndClient.sendPayment().
type PaymentResult struct {
	PaymentHash     string
	PaymentPreimage string
}

// DecodedInvoice mirrors the fields setSwapInvoice needs out of a decoded
// BOLT11 string (spec.md §4.3 step 3).
type DecodedInvoice struct {
	AmountMsat   uint64
	PaymentHash  string
	RoutingHints []string
}

// HoldInvoice is what the Lightning node returns for a reverse swap's
// held invoice (spec.md §4.5 step 15, via Swap Manager).
type HoldInvoice struct {
	Invoice     string
	PaymentHash string
}

// LightningClient is the Lightning-node collaborator (spec.md §6).
type LightningClient interface {
	GetInfo(ctx context.Context) (LightningInfo, error)
	ListChannels(ctx context.Context) ([]ChannelBalance, error)
	SendPayment(ctx context.Context, invoice string) (PaymentResult, error)
	DecodeInvoice(ctx context.Context, invoice string) (DecodedInvoice, error)
	CreateHoldInvoice(ctx context.Context, amountMsat uint64, preimageHash []byte, expiry uint32) (HoldInvoice, error)
	RoutingHints(ctx context.Context, routingNode string) ([]string, error)
}

// AccountProvider is the account-chain collaborator for Ether/ERC20 chains.
type AccountProvider interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
}

// WalletBalance mirrors Wallet.getBalance().
type WalletBalance struct {
	Total       uint64
	Confirmed   uint64
	Unconfirmed uint64
}

// SendResult mirrors the result of Wallet.sendToAddress / sweepWallet.
type SendResult struct {
	TransactionID string
	Vout          uint32 // 0 for account chains
}

// Wallet is the funds-moving collaborator for a single currency (spec.md §6).
type Wallet interface {
	GetBalance(ctx context.Context) (WalletBalance, error)
	GetAddress(ctx context.Context) (string, error)
	GetKeysByIndex(ctx context.Context, index uint32) (publicKey, privateKey []byte, err error)
	SendToAddress(ctx context.Context, address string, amount uint64, fee float64) (SendResult, error)
	SweepWallet(ctx context.Context, address string, fee float64) (SendResult, error)
}

// Currency is a symbol bound to its settlement kind and its (possibly
// partial) set of collaborator capabilities. Absence of a capability is a
// known failure mode surfaced through the orchestrator's error taxonomy
// (NOT_SUPPORTED_BY_SYMBOL, NO_LND_CLIENT, ETHEREUM_NOT_ENABLED) rather than
// a nil-pointer crash.
type Currency struct {
	Symbol  string
	Kind    Kind
	Network Network

	Chain     ChainClient     // nil if this symbol has no chain RPC configured
	Lightning LightningClient // nil if this symbol has no Lightning node
	Account   AccountProvider // nil unless Kind is Ether/ERC20
	Wallet    Wallet          // nil if this symbol has no managed wallet

	Params *Params    // chain parameters (Bitcoin-like, or the EVM chain an ERC20 rides on)
	Token  *TokenInfo // set only when Kind == ERC20
}

// HasLightning reports whether this currency has a Lightning node attached.
func (c *Currency) HasLightning() bool {
	return c.Lightning != nil
}

// NativeSymbol returns the symbol whose wallet/account settles this
// currency: itself for BitcoinLike/Ether, the underlying chain's native
// token for ERC20 (spec.md §4.1 getFeeEstimation ERC20 collapse rule).
func (c *Currency) NativeSymbol() string {
	if c.Kind == ERC20 && c.Params != nil {
		return c.Params.GetNativeToken()
	}
	return c.Symbol
}
