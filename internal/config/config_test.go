package config

import (
	"path/filepath"
	"testing"

	"github.com/klingon-exchange/klingon-v2/internal/backend"
	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Network != currency.Mainnet {
		t.Errorf("Default().Network = %v, want Mainnet", cfg.Network)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Default().LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if !cfg.PrepayMinerFee {
		t.Error("Default().PrepayMinerFee = false, want true")
	}
	if cfg.ReverseSwapsDisabled {
		t.Error("Default().ReverseSwapsDisabled = true, want false")
	}
	if len(cfg.Currencies) != 0 || len(cfg.Pairs) != 0 {
		t.Error("Default() should have no currencies or pairs configured")
	}
}

func TestValidateRejectsDuplicateSymbol(t *testing.T) {
	cfg := Default()
	cfg.Currencies = []CurrencyConfig{{Symbol: "BTC"}, {Symbol: "BTC"}}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for duplicate currency symbol")
	}
}

func TestValidateRejectsUnknownPairCurrency(t *testing.T) {
	cfg := Default()
	cfg.Currencies = []CurrencyConfig{{Symbol: "BTC"}}
	cfg.Pairs = []PairConfig{{Base: "LTC", Quote: "BTC", Rate: 0.004}}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for pair referencing unconfigured LTC")
	}
}

func TestValidateRejectsInvertedLimits(t *testing.T) {
	cfg := Default()
	cfg.Currencies = []CurrencyConfig{{Symbol: "BTC"}, {Symbol: "LTC"}}
	cfg.Pairs = []PairConfig{{Base: "LTC", Quote: "BTC", MinAmount: 100, MaxAmount: 10}}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for min_amount > max_amount")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := Default()
	cfg.Currencies = []CurrencyConfig{
		{Symbol: "BTC", Chain: &backend.Config{RPCType: backend.RPCTypeBitcoin, MainnetURL: "http://localhost:8332"}},
		{Symbol: "LTC", Chain: &backend.Config{RPCType: backend.RPCTypeBitcoin, MainnetURL: "http://localhost:9332"}},
	}
	cfg.Pairs = []PairConfig{{Base: "LTC", Quote: "BTC", Rate: 0.004, MinAmount: 10000, MaxAmount: 100000000}}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() on missing file: LogLevel = %q, want %q", cfg.LogLevel, "info")
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again.LogLevel != cfg.LogLevel || again.Network != cfg.Network {
		t.Error("Load() should round-trip the saved default config unchanged")
	}
}

func TestLoadRoundTripsCurrenciesAndPairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Currencies = []CurrencyConfig{
		{Symbol: "BTC", Chain: &backend.Config{RPCType: backend.RPCTypeBitcoin, MainnetURL: "http://localhost:8332"}},
		{Symbol: "LTC", Chain: &backend.Config{RPCType: backend.RPCTypeBitcoin, MainnetURL: "http://localhost:9332"}},
	}
	cfg.Pairs = []PairConfig{{Base: "LTC", Quote: "BTC", Rate: 0.004, PercentageFee: 0.005, BaseFee: 2000, TimeoutDeltaMinutes: 1440}}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Currencies) != 2 {
		t.Fatalf("Load() Currencies len = %d, want 2", len(loaded.Currencies))
	}
	if len(loaded.Pairs) != 1 || loaded.Pairs[0].Rate != 0.004 {
		t.Fatalf("Load() Pairs = %+v, want one pair with rate 0.004", loaded.Pairs)
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("/already/absolute"); got != "/already/absolute" {
		t.Errorf("expandPath() = %q, want unchanged absolute path", got)
	}
	home := expandPath("~/swapd")
	if home == "~/swapd" {
		t.Error("expandPath() should expand a leading ~")
	}
}
