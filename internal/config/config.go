// Package config provides centralized configuration for the swap
// orchestrator. ALL orchestrator parameters (currencies, pairs, fees,
// timeouts, connection settings) MUST be defined here. No hardcoded values
// should exist elsewhere in the codebase.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klingon-exchange/klingon-v2/internal/backend"
	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/lnd"
)

// =============================================================================
// Currency configuration
// =============================================================================

// CurrencyConfig describes one supported currency: which chain parameters it
// registers under (already known to internal/currency's own registry) and
// how to reach its collaborators.
type CurrencyConfig struct {
	// Symbol must match a symbol internal/currency's chain.go has
	// Register'd chain parameters for (BTC, LTC, ETH, ...), or a
	// tokens.go TokenInfo symbol for an ERC20.
	Symbol string `yaml:"symbol"`

	// Chain configures the ChainClient (internal/backend) for a
	// BitcoinLike or EVM account chain. Nil if this symbol rides another
	// currency's chain (an ERC20 sharing its native chain's RPC).
	Chain *backend.Config `yaml:"chain,omitempty"`

	// Lightning configures the lnd REST client for a currency with a
	// Lightning node. Nil if this symbol has no Lightning support.
	Lightning *lnd.Config `yaml:"lightning,omitempty"`

	// EVMChainID identifies which EVM chain this symbol settles on (Ether
	// itself, or the chain an ERC20 token rides). Ignored for BitcoinLike.
	EVMChainID uint64 `yaml:"evm_chain_id,omitempty"`

	// EVMContractAddress overrides the compiled-in HTLC contract address
	// for EVMChainID (see evm_contracts.go). Leave empty to use the
	// registry's address.
	EVMContractAddress string `yaml:"evm_contract_address,omitempty"`

	// WalletMnemonic seeds this currency's managed HD wallet
	// (internal/wallet). Empty disables deriveKeys/getAddress/sendCoins
	// for this symbol.
	WalletMnemonic string `yaml:"wallet_mnemonic,omitempty"`

	// WalletPassphrase is the BIP39 passphrase applied on top of
	// WalletMnemonic (the empty string is itself a valid passphrase).
	WalletPassphrase string `yaml:"wallet_passphrase,omitempty"`
}

// =============================================================================
// Pair configuration
// =============================================================================

// PairConfig seeds the Pair Registry, Rate Provider, Fee Provider, and
// Timeout-Delta Provider for one base/quote pair (spec.md §4.6-§4.9).
type PairConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`

	// Rate is the pair's quoted base/quote rate (spec.md §8 scenario 5).
	Rate float64 `yaml:"rate"`

	MinAmount uint64 `yaml:"min_amount"`
	MaxAmount uint64 `yaml:"max_amount"`

	PercentageFee float64 `yaml:"percentage_fee"`
	BaseFee       uint64  `yaml:"base_fee"`

	// TimeoutDeltaMinutes is the on-chain claim window, converted to
	// blocks per-chain by deltaBlocks (spec.md §4.9).
	TimeoutDeltaMinutes uint32 `yaml:"timeout_delta_minutes"`
}

// =============================================================================
// Root configuration
// =============================================================================

// Config holds every parameter the orchestrator needs to start.
type Config struct {
	// Network selects mainnet or testnet chain parameters across every
	// configured currency.
	Network currency.Network `yaml:"network"`

	// DataDir is the directory for the SQLite database and any on-disk
	// wallet material.
	DataDir string `yaml:"data_dir"`

	// LogLevel is the pkg/logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// RetryInterval is read from and written to the config file; nothing
	// in the orchestrator reads it, and collaborator calls are not retried.
	RetryInterval time.Duration `yaml:"retry_interval"`

	// RatesInterval is how often the Rate Provider recomputes pair
	// snapshots and hashes (spec.md §5).
	RatesInterval time.Duration `yaml:"rates_interval"`

	// ReverseSwapsDisabled, when true, makes createReverseSwap always
	// fail (spec.md §4.5 step 1).
	ReverseSwapsDisabled bool `yaml:"reverse_swaps_disabled"`

	// PrepayMinerFee is reported by getPairs, which lists "PrepayMinerFee"
	// in its info when it is set. createReverseSwap does not read it: a
	// prepay invoice is issued only when the request sets WantsPrepay.
	PrepayMinerFee bool `yaml:"prepay_miner_fee"`

	// SwapWitnessAddress is read from and written to the config file.
	// Nothing reads it: BitcoinLike lockup addresses are always P2WSH, and
	// no P2SH-wrapped SegWit address is ever built.
	SwapWitnessAddress bool `yaml:"swap_witness_address"`

	Currencies []CurrencyConfig `yaml:"currencies"`
	Pairs      []PairConfig     `yaml:"pairs"`
}

// Default returns a Config with sensible defaults and no currencies or
// pairs configured. Load starts from this value and fills in currencies
// and pairs from the config file.
func Default() *Config {
	return &Config{
		Network:              currency.Mainnet,
		DataDir:              "~/.swapd",
		LogLevel:             "info",
		RetryInterval:        15 * time.Second,
		RatesInterval:        time.Minute,
		ReverseSwapsDisabled: false,
		PrepayMinerFee:       true,
		SwapWitnessAddress:   true,
	}
}

// ConfigFileName is the default config file name within DataDir.
const ConfigFileName = "config.yaml"

// Load reads path, or if it doesn't exist, writes out Default() there and
// returns it. An existing file is unmarshaled on top of Default() so that
// a partial file only overrides what it sets.
func Load(path string) (*Config, error) {
	path = expandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.DataDir = expandPath(filepath.Dir(path))
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.DataDir = expandPath(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating its parent directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# swapd configuration\n# generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks for the mistakes that would otherwise surface as a
// confusing failure deep inside orchestrator wiring: a pair referencing an
// unconfigured currency, or a currency symbol repeated twice.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Currencies))
	for _, cc := range c.Currencies {
		if cc.Symbol == "" {
			return fmt.Errorf("config: currency entry with empty symbol")
		}
		if seen[cc.Symbol] {
			return fmt.Errorf("config: currency %s configured more than once", cc.Symbol)
		}
		seen[cc.Symbol] = true
	}
	for _, pc := range c.Pairs {
		if !seen[pc.Base] {
			return fmt.Errorf("config: pair %s/%s references unconfigured base currency %s", pc.Base, pc.Quote, pc.Base)
		}
		if !seen[pc.Quote] {
			return fmt.Errorf("config: pair %s/%s references unconfigured quote currency %s", pc.Base, pc.Quote, pc.Quote)
		}
		if pc.MinAmount > 0 && pc.MaxAmount > 0 && pc.MinAmount > pc.MaxAmount {
			return fmt.Errorf("config: pair %s/%s has min_amount > max_amount", pc.Base, pc.Quote)
		}
	}
	return nil
}

// ResolveEVMContracts projects the configured currencies onto a chain id ->
// HTLC contract address map, the shape service.Config.EVMContracts expects
// for getContracts() (spec.md §4.1). A currency's EVMContractAddress
// overrides the compiled-in evm_contracts.go registry entry for its chain;
// otherwise the registry's address is used, which may be the zero address
// if no HTLC is deployed there yet.
func (c *Config) ResolveEVMContracts() map[uint64]string {
	out := make(map[uint64]string)
	for _, cc := range c.Currencies {
		if cc.EVMChainID == 0 {
			continue
		}
		if cc.EVMContractAddress != "" {
			out[cc.EVMChainID] = cc.EVMContractAddress
			continue
		}
		if _, ok := out[cc.EVMChainID]; ok {
			continue
		}
		out[cc.EVMChainID] = GetHTLCContract(cc.EVMChainID).Hex()
	}
	return out
}

// ConfigPath returns the default config file path within a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
