package lnd

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T, wantPath string, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Fatalf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if r.Header.Get("Grpc-Metadata-macaroon") != "feedface" {
			t.Fatalf("missing macaroon header, got %q", r.Header.Get("Grpc-Metadata-macaroon"))
		}
		w.Write([]byte(body))
	}))
}

func TestGetInfo(t *testing.T) {
	srv := testServer(t, "/v1/getinfo", `{"version":"0.17.0","identity_pubkey":"03abc","uris":["03abc@10.0.0.1:9735"],"block_height":800000,"num_active_channels":2,"num_inactive_channels":1,"num_pending_channels":0}`)
	defer srv.Close()

	c := New(Config{RESTURL: srv.URL, MacaroonHex: "feedface"})
	info, err := c.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.BlockHeight != 800000 || info.IdentityPubkey != "03abc" || info.ActiveChannels != 2 {
		t.Errorf("GetInfo() = %+v, want block_height=800000 active=2", info)
	}
}

func TestListChannels(t *testing.T) {
	srv := testServer(t, "/v1/channels", `{"channels":[{"local_balance":"100000","remote_balance":"50000"},{"local_balance":"200000","remote_balance":"0"}]}`)
	defer srv.Close()

	c := New(Config{RESTURL: srv.URL, MacaroonHex: "feedface"})
	channels, err := c.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("ListChannels() error = %v", err)
	}
	if len(channels) != 2 || channels[0].LocalBalance != 100000 || channels[0].RemoteBalance != 50000 {
		t.Errorf("ListChannels() = %+v, want [{100000 50000} {200000 0}]", channels)
	}
}

func TestDecodeInvoice(t *testing.T) {
	srv := testServer(t, "/v1/payreq/lnbc1...", `{"num_msat":"100000000","payment_hash":"abc123","route_hints":[{"hop_hints":[{"node_id":"03node1"}]}]}`)
	defer srv.Close()

	c := New(Config{RESTURL: srv.URL, MacaroonHex: "feedface"})
	decoded, err := c.DecodeInvoice(context.Background(), "lnbc1...")
	if err != nil {
		t.Fatalf("DecodeInvoice() error = %v", err)
	}
	if decoded.AmountMsat != 100000000 || decoded.PaymentHash != "abc123" || len(decoded.RoutingHints) != 1 {
		t.Errorf("DecodeInvoice() = %+v, want amount=100000000 hints=1", decoded)
	}
}

func TestCreateHoldInvoice(t *testing.T) {
	srv := testServer(t, "/v2/invoices/hodl", `{"payment_request":"lnbc2..."}`)
	defer srv.Close()

	preimageHash := make([]byte, 32)
	c := New(Config{RESTURL: srv.URL, MacaroonHex: "feedface"})
	inv, err := c.CreateHoldInvoice(context.Background(), 100000000, preimageHash, 3600)
	if err != nil {
		t.Fatalf("CreateHoldInvoice() error = %v", err)
	}
	if inv.Invoice != "lnbc2..." || inv.PaymentHash != hex.EncodeToString(preimageHash) {
		t.Errorf("CreateHoldInvoice() = %+v", inv)
	}
}

func TestSendPaymentFailurePropagatesError(t *testing.T) {
	srv := testServer(t, "/v1/channels/transactions", `{"payment_error":"no route found"}`)
	defer srv.Close()

	c := New(Config{RESTURL: srv.URL, MacaroonHex: "feedface"})
	_, err := c.SendPayment(context.Background(), "lnbc3...")
	if err == nil {
		t.Fatal("SendPayment() error = nil, want error for payment_error response")
	}
}
