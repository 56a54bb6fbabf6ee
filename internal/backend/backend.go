// Package backend provides the concrete ChainClient implementations that
// back internal/currency's Currency.Chain field. This package is read-only
// for private keys: all signing happens in internal/wallet.
package backend

import (
	"context"
	"errors"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// Common errors returned by backend implementations.
var (
	ErrNotConnected       = errors.New("backend not connected")
	ErrBroadcastFailed    = errors.New("broadcast failed")
	ErrUnsupportedBackend = errors.New("unsupported backend type")
)

// RPCType identifies which RPC dialect a JSON-RPC endpoint speaks.
type RPCType string

const (
	RPCTypeBitcoin RPCType = "bitcoin" // Bitcoin Core style RPC
	RPCTypeEVM     RPCType = "evm"     // Ethereum/EVM style RPC
)

// Config describes how to reach one chain's node.
type Config struct {
	RPCType    RPCType `yaml:"rpc_type"`
	MainnetURL string  `yaml:"mainnet"`
	TestnetURL string  `yaml:"testnet"`
	RPCUser    string  `yaml:"rpc_user,omitempty"`
	RPCPass    string  `yaml:"rpc_pass,omitempty"`
}

// New constructs the ChainClient for symbol on network from cfg. It returns
// a *JSONRPCBackend regardless of chain kind; the RPCType field selects
// which wire dialect New speaks to the configured node.
func New(cfg Config, network currency.Network) currency.ChainClient {
	url := cfg.MainnetURL
	if network == currency.Testnet {
		url = cfg.TestnetURL
	}
	return NewJSONRPCBackend(url, cfg.RPCType, cfg.RPCUser, cfg.RPCPass)
}

var _ currency.ChainClient = (*JSONRPCBackend)(nil)
