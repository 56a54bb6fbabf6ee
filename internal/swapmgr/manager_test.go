package swapmgr

import (
	"context"
	"os"
	"testing"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/wallet"
)

func newTestManagerStorage(t *testing.T) *storage.Storage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "swapmgr-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := storage.New(&storage.Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testHDWallet(t *testing.T, params *currency.Params) *wallet.HDWallet {
	t.Helper()
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error = %v", err)
	}
	hd, err := wallet.NewFromMnemonic(mnemonic, "", params, currency.Mainnet)
	if err != nil {
		t.Fatalf("NewFromMnemonic() error = %v", err)
	}
	return hd
}

func btcCurrency(t *testing.T) *currency.Currency {
	t.Helper()
	params, ok := currency.Get("BTC", currency.Mainnet)
	if !ok {
		t.Fatal("BTC mainnet params not registered")
	}
	return &currency.Currency{Symbol: "BTC", Kind: currency.BitcoinLike, Network: currency.Mainnet, Params: params}
}

func TestCreateSwapBitcoinLike(t *testing.T) {
	store := newTestManagerStorage(t)
	chainCur := btcCurrency(t)
	hd := testHDWallet(t, chainCur.Params)
	mgr := NewManager(store, map[string]*wallet.HDWallet{"BTC": hd}, nil)

	refundPub, err := hd.DerivePublicKey(0)
	if err != nil {
		t.Fatalf("DerivePublicKey() error = %v", err)
	}

	preimageHash := make([]byte, 32)
	for i := range preimageHash {
		preimageHash[i] = byte(i)
	}

	result, err := mgr.CreateSwap(context.Background(), CreateSwapParams{
		PairID:             "BTC/BTC",
		OrderSide:          "buy",
		PreimageHash:       preimageHash,
		RefundPublicKey:    refundPub.SerializeCompressed(),
		TimeoutBlockHeight: 800144,
		ChainCurrency:      chainCur,
	})
	if err != nil {
		t.Fatalf("CreateSwap() error = %v", err)
	}
	if result.Address == "" {
		t.Error("CreateSwap() returned an empty lockup address")
	}
	if result.RedeemScript == "" {
		t.Error("CreateSwap() returned an empty redeem script")
	}

	persisted, err := store.GetSwap(result.ID)
	if err != nil {
		t.Fatalf("GetSwap() error = %v", err)
	}
	if persisted.LockupAddress != result.Address {
		t.Errorf("persisted LockupAddress = %q, want %q", persisted.LockupAddress, result.Address)
	}
	if !persisted.HasKeyIndex || persisted.KeyIndex != 0 {
		t.Errorf("persisted key index = (has=%v, idx=%d), want (true, 0)", persisted.HasKeyIndex, persisted.KeyIndex)
	}
}

func TestCreateSwapRejectsUnconfiguredWallet(t *testing.T) {
	store := newTestManagerStorage(t)
	chainCur := btcCurrency(t)
	mgr := NewManager(store, map[string]*wallet.HDWallet{}, nil)

	hd := testHDWallet(t, chainCur.Params)
	refundPub, err := hd.DerivePublicKey(0)
	if err != nil {
		t.Fatalf("DerivePublicKey() error = %v", err)
	}

	_, err = mgr.CreateSwap(context.Background(), CreateSwapParams{
		PairID:             "BTC/BTC",
		OrderSide:          "buy",
		PreimageHash:       make([]byte, 32),
		RefundPublicKey:    refundPub.SerializeCompressed(),
		TimeoutBlockHeight: 800144,
		ChainCurrency:      chainCur,
	})
	if err == nil {
		t.Error("CreateSwap() with no wallet configured: want error, got nil")
	}
}

func TestCreateReverseSwapBitcoinLike(t *testing.T) {
	store := newTestManagerStorage(t)
	chainCur := btcCurrency(t)
	hd := testHDWallet(t, chainCur.Params)
	mgr := NewManager(store, map[string]*wallet.HDWallet{"BTC": hd}, nil)

	claimHD := testHDWallet(t, chainCur.Params)
	claimPub, err := claimHD.DerivePublicKey(0)
	if err != nil {
		t.Fatalf("DerivePublicKey() error = %v", err)
	}

	result, err := mgr.CreateReverseSwap(context.Background(), CreateReverseParams{
		PairID:             "BTC/BTC",
		OrderSide:          "sell",
		PreimageHash:       make([]byte, 32),
		Invoice:            "lnbc1...",
		OnchainAmount:      100000,
		HoldInvoiceAmount:  100500,
		ClaimPublicKey:     claimPub.SerializeCompressed(),
		TimeoutBlockHeight: 800144,
		Sending:            chainCur,
	})
	if err != nil {
		t.Fatalf("CreateReverseSwap() error = %v", err)
	}
	if result.LockupAddress == "" {
		t.Error("CreateReverseSwap() returned an empty lockup address")
	}

	persisted, err := store.GetReverseSwap(result.ID)
	if err != nil {
		t.Fatalf("GetReverseSwap() error = %v", err)
	}
	if persisted.LockupAddress != result.LockupAddress {
		t.Errorf("persisted LockupAddress = %q, want %q", persisted.LockupAddress, result.LockupAddress)
	}
}

func TestSetSwapInvoice(t *testing.T) {
	store := newTestManagerStorage(t)
	chainCur := btcCurrency(t)
	hd := testHDWallet(t, chainCur.Params)
	mgr := NewManager(store, map[string]*wallet.HDWallet{"BTC": hd}, nil)

	refundPub, err := hd.DerivePublicKey(0)
	if err != nil {
		t.Fatalf("DerivePublicKey() error = %v", err)
	}
	created, err := mgr.CreateSwap(context.Background(), CreateSwapParams{
		PairID:             "BTC/BTC",
		OrderSide:          "buy",
		PreimageHash:       make([]byte, 32),
		RefundPublicKey:    refundPub.SerializeCompressed(),
		TimeoutBlockHeight: 800144,
		ChainCurrency:      chainCur,
	})
	if err != nil {
		t.Fatalf("CreateSwap() error = %v", err)
	}

	if err := mgr.SetSwapInvoice(created.ID, "lnbc1...", 100000, 0.5, 1000, false); err != nil {
		t.Fatalf("SetSwapInvoice() error = %v", err)
	}

	persisted, err := store.GetSwap(created.ID)
	if err != nil {
		t.Fatalf("GetSwap() error = %v", err)
	}
	if persisted.Invoice != "lnbc1..." || persisted.ExpectedAmount != 100000 {
		t.Errorf("GetSwap() after SetSwapInvoice = %+v, want invoice=lnbc1... amount=100000", persisted)
	}
}
