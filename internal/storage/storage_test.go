package storage

import (
	"os"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "swap-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := New(&Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetSwap(t *testing.T) {
	s := newTestStorage(t)

	swap := &Swap{
		ID:                 "swap-1",
		PairID:             "BTC/BTC",
		OrderSide:          "buy",
		PreimageHash:       "deadbeef",
		LockupAddress:      "bc1qtest",
		TimeoutBlockHeight: 144,
		RefundPublicKey:    "02abc",
		Status:             "created",
	}
	if err := s.CreateSwap(swap); err != nil {
		t.Fatalf("CreateSwap() error = %v", err)
	}

	got, err := s.GetSwap("swap-1")
	if err != nil {
		t.Fatalf("GetSwap() error = %v", err)
	}
	if got.PreimageHash != "deadbeef" {
		t.Errorf("PreimageHash = %s, want deadbeef", got.PreimageHash)
	}
	if got.Invoice != "" {
		t.Errorf("Invoice = %q, want empty before setSwapInvoice", got.Invoice)
	}
}

func TestCreateSwapDuplicatePreimageHash(t *testing.T) {
	s := newTestStorage(t)

	mk := func(id string) *Swap {
		return &Swap{ID: id, PairID: "BTC/BTC", OrderSide: "buy", PreimageHash: "same-hash",
			LockupAddress: "addr", TimeoutBlockHeight: 1, Status: "created"}
	}
	if err := s.CreateSwap(mk("swap-1")); err != nil {
		t.Fatalf("first CreateSwap() error = %v", err)
	}
	err := s.CreateSwap(mk("swap-2"))
	if err != ErrPreimageHashExists {
		t.Errorf("CreateSwap() error = %v, want ErrPreimageHashExists", err)
	}
}

func TestSetInvoiceIsSetOnce(t *testing.T) {
	s := newTestStorage(t)
	swap := &Swap{ID: "swap-1", PairID: "BTC/BTC", OrderSide: "buy", PreimageHash: "h1",
		LockupAddress: "addr", TimeoutBlockHeight: 1, Status: "created"}
	if err := s.CreateSwap(swap); err != nil {
		t.Fatalf("CreateSwap() error = %v", err)
	}

	if err := s.SetInvoice("swap-1", "lnbc1...", 100002, 0.01, 1, true); err != nil {
		t.Fatalf("first SetInvoice() error = %v", err)
	}
	err := s.SetInvoice("swap-1", "lnbc2...", 200000, 0.01, 1, true)
	if err != ErrInvalidSwapState {
		t.Errorf("second SetInvoice() error = %v, want ErrInvalidSwapState", err)
	}
}

func TestNextKeyIndexIsMonotonic(t *testing.T) {
	s := newTestStorage(t)
	first, err := s.NextKeyIndex("BTC")
	if err != nil {
		t.Fatalf("NextKeyIndex() error = %v", err)
	}
	second, err := s.NextKeyIndex("BTC")
	if err != nil {
		t.Fatalf("NextKeyIndex() error = %v", err)
	}
	if second != first+1 {
		t.Errorf("second index = %d, want %d", second, first+1)
	}

	otherSymbol, err := s.NextKeyIndex("LTC")
	if err != nil {
		t.Fatalf("NextKeyIndex() error = %v", err)
	}
	if otherSymbol != 0 {
		t.Errorf("first LTC index = %d, want 0", otherSymbol)
	}
}

func TestReferralRoutingNodeUnique(t *testing.T) {
	s := newTestStorage(t)
	if err := s.CreateReferral(&Referral{ID: "ref1", FeeShare: 10, RoutingNode: "02node", APIKey: "k", APISecret: "s"}); err != nil {
		t.Fatalf("CreateReferral() error = %v", err)
	}
	err := s.CreateReferral(&Referral{ID: "ref2", FeeShare: 5, RoutingNode: "02node", APIKey: "k2", APISecret: "s2"})
	if err != ErrRoutingNodeExists {
		t.Errorf("CreateReferral() error = %v, want ErrRoutingNodeExists", err)
	}

	got, err := s.GetReferralByRoutingNode("02node")
	if err != nil {
		t.Fatalf("GetReferralByRoutingNode() error = %v", err)
	}
	if got.ID != "ref1" {
		t.Errorf("ID = %s, want ref1", got.ID)
	}
}

func TestChannelCreationLifecycle(t *testing.T) {
	s := newTestStorage(t)
	swap := &Swap{ID: "swap-1", PairID: "BTC/BTC", OrderSide: "buy", PreimageHash: "h1",
		LockupAddress: "addr", TimeoutBlockHeight: 1, Status: "created"}
	if err := s.CreateSwap(swap); err != nil {
		t.Fatalf("CreateSwap() error = %v", err)
	}
	if err := s.CreateChannelCreation(&ChannelCreation{SwapID: "swap-1", InboundLiquidityPercent: 25}); err != nil {
		t.Fatalf("CreateChannelCreation() error = %v", err)
	}

	if err := s.DeleteSwap("swap-1"); err != nil {
		t.Fatalf("DeleteSwap() error = %v", err)
	}
	if _, err := s.GetChannelCreation("swap-1"); err != ErrNotFound {
		t.Errorf("GetChannelCreation() after DeleteSwap error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetSwap("swap-1"); err != ErrNotFound {
		t.Errorf("GetSwap() after DeleteSwap error = %v, want ErrNotFound", err)
	}
}
