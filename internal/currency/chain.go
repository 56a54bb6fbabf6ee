// Package currency defines per-chain parameters and derivation paths for the
// currencies the swap orchestrator supports: Bitcoin-like UTXO chains and
// Ethereum-family account chains (native Ether and ERC20 tokens riding on
// one of the EVM chains registered here).
package currency

import "github.com/btcsuite/btcd/chaincfg"

// Network represents mainnet or testnet.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ChainType represents the blockchain family.
type ChainType string

const (
	ChainTypeBitcoin ChainType = "bitcoin" // BTC and forks (LTC, ...)
	ChainTypeEVM     ChainType = "evm"     // Ethereum and EVM chains
)

// AddressType represents the address encoding format.
type AddressType string

const (
	AddressP2PKH  AddressType = "p2pkh"  // Legacy (1...)
	AddressP2SH   AddressType = "p2sh"   // Script hash (3...)
	AddressP2WPKH AddressType = "p2wpkh" // Native SegWit (bc1q...)
	AddressP2WSH  AddressType = "p2wsh"  // SegWit script (bc1q...)
	AddressEVM    AddressType = "evm"    // 0x...
)

// Params contains all parameters for a blockchain.
type Params struct {
	// Identity
	Symbol   string    // BTC, LTC, ETH, ...
	Name     string    // Bitcoin, Litecoin, ...
	Type     ChainType // bitcoin, evm
	Decimals uint8     // 8 for BTC, 18 for ETH, ...

	// BlockTimeMinutes is the average time between blocks, used to
	// project HTLC timeouts into wall-clock ETAs and to convert block
	// counts across chains with different block times (spec.md §4.9).
	BlockTimeMinutes float64

	// BIP44 derivation
	CoinType       uint32 // BIP44 coin type (0=BTC, 2=LTC, 60=ETH, ...)
	DefaultPurpose uint32 // 44, 49, or 84

	// Network params (Bitcoin-like)
	PubKeyHashAddrID byte   // Address prefix for P2PKH
	ScriptHashAddrID byte   // Address prefix for P2SH
	Bech32HRP        string // Bech32 human-readable prefix
	WIF              byte   // Private key prefix

	// BIP32 HD key magic bytes (for xpub/xprv serialization)
	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte

	// EVM params
	ChainID     uint64 // EVM chain ID
	NativeToken string // Native token symbol - empty means same as Symbol

	SupportsSegWit bool

	DefaultAddressType AddressType
}

// ChaincfgParams converts Params into a *chaincfg.Params usable with
// btcutil address encoders, for Bitcoin-like chains only.
func (p *Params) ChaincfgParams() *chaincfg.Params {
	return &chaincfg.Params{
		Name:             string(p.Name),
		Bech32HRPSegwit:  p.Bech32HRP,
		PubKeyHashAddrID: p.PubKeyHashAddrID,
		ScriptHashAddrID: p.ScriptHashAddrID,
		PrivateKeyID:     p.WIF,
		HDPrivateKeyID:   p.HDPrivateKeyID,
		HDPublicKeyID:    p.HDPublicKeyID,
	}
}

// DerivationPath returns the BIP44/49/84 derivation path for this chain.
// Format: m/purpose'/coin'/account'/change/index
func (p *Params) DerivationPath(account, change, index uint32) []uint32 {
	return []uint32{
		p.DefaultPurpose + 0x80000000,
		p.CoinType + 0x80000000,
		account + 0x80000000,
		change,
		index,
	}
}

// Registry holds all chain parameters indexed by symbol.
var registry = make(map[string]map[Network]*Params)

// Register adds chain params to the registry.
func Register(symbol string, network Network, params *Params) {
	if registry[symbol] == nil {
		registry[symbol] = make(map[Network]*Params)
	}
	registry[symbol][network] = params
}

// Get returns chain params for a symbol and network.
func Get(symbol string, network Network) (*Params, bool) {
	nets, ok := registry[symbol]
	if !ok {
		return nil, false
	}
	params, ok := nets[network]
	return params, ok
}

// List returns all registered chain symbols.
func List() []string {
	symbols := make([]string, 0, len(registry))
	for symbol := range registry {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// IsSupported returns true if the chain is registered.
func IsSupported(symbol string) bool {
	_, ok := registry[symbol]
	return ok
}

// GetByChainID returns chain params for an EVM chain ID.
func GetByChainID(chainID uint64, network Network) (*Params, bool) {
	for _, nets := range registry {
		if params, ok := nets[network]; ok {
			if params.Type == ChainTypeEVM && params.ChainID == chainID {
				return params, true
			}
		}
	}
	return nil, false
}

// GetNativeToken returns the native token symbol for a chain.
func (p *Params) GetNativeToken() string {
	if p.NativeToken != "" {
		return p.NativeToken
	}
	return p.Symbol
}
