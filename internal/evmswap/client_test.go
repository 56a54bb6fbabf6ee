package evmswap

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestSwapStateString(t *testing.T) {
	cases := []struct {
		state SwapState
		want  string
	}{
		{SwapStateEmpty, "empty"},
		{SwapStateActive, "active"},
		{SwapStateClaimed, "claimed"},
		{SwapStateRefunded, "refunded"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("SwapState(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestSwapIsNativeToken(t *testing.T) {
	native := &Swap{Token: common.Address{}}
	if !native.IsNativeToken() {
		t.Error("IsNativeToken() = false for zero address, want true")
	}

	erc20 := &Swap{Token: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	if erc20.IsNativeToken() {
		t.Error("IsNativeToken() = true for non-zero token address, want false")
	}
}

func TestAddressFromPrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	addr := AddressFromPrivateKey(key)
	want := crypto.PubkeyToAddress(key.PublicKey)
	if addr != want {
		t.Errorf("AddressFromPrivateKey() = %s, want %s", addr.Hex(), want.Hex())
	}
}

// rpcServer stubs the subset of the Ethereum JSON-RPC surface NewClient
// calls during dial (eth_chainId), mirroring internal/backend/jsonrpc_test.go's
// rpcServer helper but speaking go-ethereum's rpc.Client envelope.
func rpcServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%q}`, chainID)
	}))
}

func TestNewClientDialsAndResolvesChainID(t *testing.T) {
	srv := rpcServer(t, "0x1")
	defer srv.Close()

	contract := common.HexToAddress("0x2222222222222222222222222222222222222222")
	client, err := NewClient(srv.URL, contract)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if client.ChainID().Cmp(big.NewInt(1)) != 0 {
		t.Errorf("ChainID() = %s, want 1", client.ChainID())
	}

	addr, err := client.LockupAddress(context.Background())
	if err != nil {
		t.Fatalf("LockupAddress() error = %v", err)
	}
	if addr != contract {
		t.Errorf("LockupAddress() = %s, want %s", addr.Hex(), contract.Hex())
	}
}

func TestNewClientRejectsUnreachableRPC(t *testing.T) {
	if _, err := NewClient("http://127.0.0.1:0", common.Address{}); err == nil {
		t.Error("NewClient() with unreachable RPC: want error, got nil")
	}
}
