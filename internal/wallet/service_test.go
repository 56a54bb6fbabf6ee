package wallet

import (
	"context"
	"testing"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

type fakeKeyIndexReserver struct{ next uint32 }

func (f *fakeKeyIndexReserver) NextKeyIndex(symbol string) (uint32, error) {
	idx := f.next
	f.next++
	return idx, nil
}

type fakeUTXOSource struct {
	confirmed, unconfirmed uint64
	sendTxID, sweepTxID    string
}

func (f *fakeUTXOSource) GetUTXOs(ctx context.Context, address string) (uint64, uint64, error) {
	return f.confirmed, f.unconfirmed, nil
}

func (f *fakeUTXOSource) SendToAddress(ctx context.Context, toAddress string, amount uint64, feeRate float64) (string, error) {
	return f.sendTxID, nil
}

func (f *fakeUTXOSource) SweepTo(ctx context.Context, toAddress string, feeRate float64) (string, error) {
	return f.sweepTxID, nil
}

func testService(t *testing.T, kind currency.Kind, utxo UTXOSource) *Service {
	t.Helper()
	mnemonic := testMnemonic(t)
	params := btcParams(t)
	hd, err := NewFromMnemonic(mnemonic, "", params, currency.Mainnet)
	if err != nil {
		t.Fatalf("NewFromMnemonic() error = %v", err)
	}
	return NewService("BTC", kind, params, hd, &fakeKeyIndexReserver{}, utxo)
}

func TestGetAddressBitcoinLike(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, nil)
	addr, err := svc.GetAddress(context.Background())
	if err != nil {
		t.Fatalf("GetAddress() error = %v", err)
	}
	if addr == "" {
		t.Error("GetAddress() returned empty address")
	}
}

func TestGetAddressAdvancesKeyIndex(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, nil)
	first, err := svc.GetAddress(context.Background())
	if err != nil {
		t.Fatalf("GetAddress() error = %v", err)
	}
	second, err := svc.GetAddress(context.Background())
	if err != nil {
		t.Fatalf("GetAddress() error = %v", err)
	}
	if first == second {
		t.Error("GetAddress() returned the same address twice, want distinct indices")
	}
}

func TestGetBalanceWithoutUTXOSourceNotSupported(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, nil)
	if _, err := svc.GetBalance(context.Background()); err == nil {
		t.Error("GetBalance() with no UTXOSource: want error, got nil")
	}
}

func TestGetBalanceWithUTXOSource(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, &fakeUTXOSource{confirmed: 100000, unconfirmed: 5000})
	bal, err := svc.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if bal.Total != 105000 || bal.Confirmed != 100000 || bal.Unconfirmed != 5000 {
		t.Errorf("GetBalance() = %+v, want total=105000 confirmed=100000 unconfirmed=5000", bal)
	}
}

func TestSendToAddress(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, &fakeUTXOSource{sendTxID: "abc123"})
	result, err := svc.SendToAddress(context.Background(), "bc1q...", 50000, 10.0)
	if err != nil {
		t.Fatalf("SendToAddress() error = %v", err)
	}
	if result.TransactionID != "abc123" {
		t.Errorf("SendToAddress().TransactionID = %q, want %q", result.TransactionID, "abc123")
	}
}

func TestSweepWalletWithoutUTXOSourceNotSupported(t *testing.T) {
	svc := testService(t, currency.BitcoinLike, nil)
	if _, err := svc.SweepWallet(context.Background(), "bc1q...", 5.0); err == nil {
		t.Error("SweepWallet() with no UTXOSource: want error, got nil")
	}
}

func TestGetKeysByIndexDoesNotReserve(t *testing.T) {
	reserver := &fakeKeyIndexReserver{}
	mnemonic := testMnemonic(t)
	params := btcParams(t)
	hd, err := NewFromMnemonic(mnemonic, "", params, currency.Mainnet)
	if err != nil {
		t.Fatalf("NewFromMnemonic() error = %v", err)
	}
	svc := NewService("BTC", currency.BitcoinLike, params, hd, reserver, nil)

	pub, priv, err := svc.GetKeysByIndex(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetKeysByIndex() error = %v", err)
	}
	if len(pub) == 0 || len(priv) == 0 {
		t.Error("GetKeysByIndex() returned empty key material")
	}
	if reserver.next != 0 {
		t.Error("GetKeysByIndex() reserved a key index, want it to leave the counter untouched")
	}
}
