// Package wallet provides HD key derivation and the currency.Wallet
// collaborator (spec.md §1 lists wallet key derivation, UTXO selection, and
// broadcast as an out-of-scope collaborator; this package is kept as wired
// supporting infrastructure a real deployment plugs into the orchestrator
// through the currency.Wallet interface).
package wallet

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// HDWallet manages HD keys derived from a BIP39 seed, following one chain's
// BIP44 derivation path.
type HDWallet struct {
	masterKey *hdkeychain.ExtendedKey
	params    *currency.Params
	network   currency.Network

	mu    sync.Mutex
	cache map[uint32]*hdkeychain.ExtendedKey // index -> derived external key
}

// GenerateMnemonic generates a new 24-word BIP39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic reports whether mnemonic is a valid BIP39 phrase.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// NewFromMnemonic creates an HDWallet for one chain from a BIP39 mnemonic.
// passphrase may be empty.
func NewFromMnemonic(mnemonic, passphrase string, params *currency.Params, network currency.Network) (*HDWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return NewFromSeed(seed, params, network)
}

// NewFromSeed creates an HDWallet for one chain from a raw BIP39 seed.
func NewFromSeed(seed []byte, params *currency.Params, network currency.Network) (*HDWallet, error) {
	chaincfgParams := &chaincfg.MainNetParams
	if network == currency.Testnet {
		chaincfgParams = &chaincfg.TestNet3Params
	}

	masterKey, err := hdkeychain.NewMaster(seed, chaincfgParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	return &HDWallet{
		masterKey: masterKey,
		params:    params,
		network:   network,
		cache:     make(map[uint32]*hdkeychain.ExtendedKey),
	}, nil
}

// deriveKey derives m/purpose'/coinType'/0'/0/index, the external chain
// (change=0) key at index.
func (w *HDWallet) deriveKey(index uint32) (*hdkeychain.ExtendedKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if key, ok := w.cache[index]; ok {
		return key, nil
	}

	purposeKey, err := w.masterKey.Derive(hdkeychain.HardenedKeyStart + w.params.DefaultPurpose)
	if err != nil {
		return nil, fmt.Errorf("failed to derive purpose: %w", err)
	}
	coinKey, err := purposeKey.Derive(hdkeychain.HardenedKeyStart + w.params.CoinType)
	if err != nil {
		return nil, fmt.Errorf("failed to derive coin type: %w", err)
	}
	accountKey, err := coinKey.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account: %w", err)
	}
	changeKey, err := accountKey.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive change: %w", err)
	}
	addressKey, err := changeKey.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address index: %w", err)
	}

	w.cache[index] = addressKey
	return addressKey, nil
}

// DerivePrivateKey returns the private key at index.
func (w *HDWallet) DerivePrivateKey(index uint32) (*btcec.PrivateKey, error) {
	key, err := w.deriveKey(index)
	if err != nil {
		return nil, err
	}
	return key.ECPrivKey()
}

// DerivePublicKey returns the public key at index.
func (w *HDWallet) DerivePublicKey(index uint32) (*btcec.PublicKey, error) {
	key, err := w.deriveKey(index)
	if err != nil {
		return nil, err
	}
	return key.ECPubKey()
}

// DerivationPath returns the BIP44 path string for index, e.g. "m/84'/0'/0'/0/3".
func (w *HDWallet) DerivationPath(index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/0'/0/%d", w.params.DefaultPurpose, w.params.CoinType, index)
}
