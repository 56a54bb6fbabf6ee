package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
)

// KeyIndexReserver reserves the next HD key index for a symbol. Satisfied
// by *storage.Storage's NextKeyIndex; kept as a narrow interface here so
// this package doesn't need to import internal/storage.
type KeyIndexReserver interface {
	NextKeyIndex(symbol string) (uint32, error)
}

// UTXOSource is the indexer capability a Bitcoin-like Service needs for
// getBalance/sendToAddress/sweepWallet: spec.md §6 scopes HD key derivation
// as a collaborator but never defines a UTXO query API on ChainClient, so a
// Service without one wired answers those calls with NOT_SUPPORTED_BY_SYMBOL
// rather than guessing at indexer semantics.
type UTXOSource interface {
	GetUTXOs(ctx context.Context, address string) (confirmed, unconfirmed uint64, err error)
	SendToAddress(ctx context.Context, toAddress string, amount uint64, feeRate float64) (txid string, err error)
	SweepTo(ctx context.Context, toAddress string, feeRate float64) (txid string, err error)
}

// Service is the currency.Wallet implementation for one currency: an
// HD key source plus (for Bitcoin-like chains) an optional UTXO indexer.
// Adapted from the teacher's wallet.Service, narrowed to a single symbol
// since this orchestrator's Currency registry already keys one Wallet per
// symbol rather than one Service spanning every configured chain.
type Service struct {
	symbol string
	kind   currency.Kind
	params *currency.Params
	hd     *HDWallet
	keys   KeyIndexReserver
	utxo   UTXOSource // nil unless wired; BitcoinLike only
}

// NewService constructs the Wallet collaborator for one currency.
func NewService(symbol string, kind currency.Kind, params *currency.Params, hd *HDWallet, keys KeyIndexReserver, utxo UTXOSource) *Service {
	return &Service{symbol: symbol, kind: kind, params: params, hd: hd, keys: keys, utxo: utxo}
}

var _ currency.Wallet = (*Service)(nil)

// GetBalance returns the wallet's aggregate balance. Requires an indexer
// for Bitcoin-like chains; EVM balances are account-based and are reported
// by internal/currency's AccountProvider instead, so GetBalance on an
// account-chain Service always reports NOT_SUPPORTED_BY_SYMBOL.
func (s *Service) GetBalance(ctx context.Context) (currency.WalletBalance, error) {
	if s.kind != currency.BitcoinLike || s.utxo == nil {
		return currency.WalletBalance{}, swaperrors.NotSupportedBySymbolErr(s.symbol)
	}
	address, err := s.address(0)
	if err != nil {
		return currency.WalletBalance{}, err
	}
	confirmed, unconfirmed, err := s.utxo.GetUTXOs(ctx, address)
	if err != nil {
		return currency.WalletBalance{}, fmt.Errorf("failed to query balance: %w", err)
	}
	return currency.WalletBalance{
		Total:       confirmed + unconfirmed,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
	}, nil
}

// GetAddress reserves the next HD key index and returns its address.
func (s *Service) GetAddress(ctx context.Context) (string, error) {
	index, err := s.keys.NextKeyIndex(s.symbol)
	if err != nil {
		return "", fmt.Errorf("failed to reserve key index: %w", err)
	}
	return s.address(index)
}

func (s *Service) address(index uint32) (string, error) {
	pubKey, err := s.hd.DerivePublicKey(index)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	switch s.kind {
	case currency.BitcoinLike:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), s.params.ChaincfgParams())
		if err != nil {
			return "", fmt.Errorf("failed to encode address: %w", err)
		}
		return addr.EncodeAddress(), nil
	case currency.Ether, currency.ERC20:
		privKey, err := s.hd.DerivePrivateKey(index)
		if err != nil {
			return "", fmt.Errorf("failed to derive key: %w", err)
		}
		return crypto.PubkeyToAddress(privKey.ToECDSA().PublicKey).Hex(), nil
	default:
		return "", fmt.Errorf("unsupported currency kind: %s", s.kind)
	}
}

// GetKeysByIndex returns the raw public/private key bytes at index,
// without reserving it (the caller already knows the index, e.g. from a
// persisted swap record).
func (s *Service) GetKeysByIndex(ctx context.Context, index uint32) (publicKey, privateKey []byte, err error) {
	pub, err := s.hd.DerivePublicKey(index)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	priv, err := s.hd.DerivePrivateKey(index)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive private key: %w", err)
	}
	return pub.SerializeCompressed(), priv.Serialize(), nil
}

// SendToAddress sends amount to address. Bitcoin-like only requires an
// indexer to source spendable UTXOs from; account chains aren't modeled
// here since EVM sends are swap-contract calls through internal/evmswap,
// not plain value transfers from this wallet.
func (s *Service) SendToAddress(ctx context.Context, address string, amount uint64, fee float64) (currency.SendResult, error) {
	if s.kind != currency.BitcoinLike || s.utxo == nil {
		return currency.SendResult{}, swaperrors.NotSupportedBySymbolErr(s.symbol)
	}
	txid, err := s.utxo.SendToAddress(ctx, address, amount, fee)
	if err != nil {
		return currency.SendResult{}, err
	}
	return currency.SendResult{TransactionID: txid}, nil
}

// SweepWallet sends the entire spendable balance to address.
func (s *Service) SweepWallet(ctx context.Context, address string, fee float64) (currency.SendResult, error) {
	if s.kind != currency.BitcoinLike || s.utxo == nil {
		return currency.SendResult{}, swaperrors.NotSupportedBySymbolErr(s.symbol)
	}
	txid, err := s.utxo.SweepTo(ctx, address, fee)
	if err != nil {
		return currency.SendResult{}, err
	}
	return currency.SendResult{TransactionID: txid}, nil
}
