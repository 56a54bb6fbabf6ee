package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// JSONRPCBackend implements currency.ChainClient over direct JSON-RPC to a
// node, speaking either the Bitcoin Core or the Ethereum/EVM dialect.
type JSONRPCBackend struct {
	rpcURL     string
	rpcType    RPCType
	rpcUser    string
	rpcPass    string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// NewJSONRPCBackend creates a JSON-RPC backend. rpcType selects the wire
// dialect: RPCTypeBitcoin for Bitcoin Core-style nodes (Bitcoin, Litecoin),
// RPCTypeEVM for Ethereum-style nodes.
func NewJSONRPCBackend(rpcURL string, rpcType RPCType, user, pass string) *JSONRPCBackend {
	return &JSONRPCBackend{
		rpcURL:  rpcURL,
		rpcType: rpcType,
		rpcUser: user,
		rpcPass: pass,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetNetworkInfo reports the node's version and peer count.
func (j *JSONRPCBackend) GetNetworkInfo(ctx context.Context) (currency.NetworkInfo, error) {
	if j.rpcType == RPCTypeEVM {
		return j.evmGetNetworkInfo(ctx)
	}
	return j.bitcoinGetNetworkInfo(ctx)
}

// GetBlockchainInfo reports the node's chain height.
func (j *JSONRPCBackend) GetBlockchainInfo(ctx context.Context) (currency.BlockchainInfo, error) {
	if j.rpcType == RPCTypeEVM {
		return j.evmGetBlockchainInfo(ctx)
	}
	return j.bitcoinGetBlockchainInfo(ctx)
}

// EstimateFee returns the fee rate the node recommends for confirmation
// within the given number of blocks (sat/vB for Bitcoin-like chains, gwei
// per gas unit for EVM chains).
func (j *JSONRPCBackend) EstimateFee(ctx context.Context, blocks uint32) (float64, error) {
	if j.rpcType == RPCTypeEVM {
		return j.evmEstimateFee(ctx)
	}
	return j.bitcoinEstimateFee(ctx, blocks)
}

// GetRawTransaction returns the hex-encoded raw transaction.
func (j *JSONRPCBackend) GetRawTransaction(ctx context.Context, txid string) (string, error) {
	if j.rpcType == RPCTypeEVM {
		return j.evmGetRawTransaction(ctx, txid)
	}
	return j.bitcoinGetRawTransaction(ctx, txid)
}

// SendRawTransaction broadcasts a signed transaction and returns its id.
//
// Node rejections surface verbatim in the returned error's message, which
// callers match against (e.g. the refund-safety check for the
// non-mandatory-script-verify-flag locktime rejection on Bitcoin-like
// chains) rather than against a backend-specific sentinel error.
func (j *JSONRPCBackend) SendRawTransaction(ctx context.Context, hex string) (string, error) {
	if j.rpcType == RPCTypeEVM {
		return j.evmSendRawTransaction(ctx, hex)
	}
	return j.bitcoinSendRawTransaction(ctx, hex)
}

// ---- Bitcoin Core dialect ----

func (j *JSONRPCBackend) bitcoinCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	return j.call(ctx, method, params)
}

func (j *JSONRPCBackend) bitcoinGetNetworkInfo(ctx context.Context) (currency.NetworkInfo, error) {
	result, err := j.bitcoinCall(ctx, "getnetworkinfo", []interface{}{})
	if err != nil {
		return currency.NetworkInfo{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	var info struct {
		Version     string `json:"subversion"`
		Connections int    `json:"connections"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		return currency.NetworkInfo{}, err
	}
	return currency.NetworkInfo{Version: info.Version, Connections: info.Connections}, nil
}

func (j *JSONRPCBackend) bitcoinGetBlockchainInfo(ctx context.Context) (currency.BlockchainInfo, error) {
	result, err := j.bitcoinCall(ctx, "getblockchaininfo", []interface{}{})
	if err != nil {
		return currency.BlockchainInfo{}, err
	}
	var info struct {
		Blocks        uint32 `json:"blocks"`
		HeaderBlocks  uint32 `json:"headers"`
		VerificationP float64 `json:"verificationprogress"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		return currency.BlockchainInfo{}, err
	}
	return currency.BlockchainInfo{Blocks: info.Blocks, ScannedBlocks: info.Blocks}, nil
}

func (j *JSONRPCBackend) bitcoinEstimateFee(ctx context.Context, blocks uint32) (float64, error) {
	result, err := j.bitcoinCall(ctx, "estimatesmartfee", []interface{}{blocks})
	if err != nil {
		return 0, err
	}
	var resp struct {
		FeeRate float64 `json:"feerate"` // BTC/kvB
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return 0, err
	}
	// BTC/kvB -> sat/vB
	return resp.FeeRate * 1e8 / 1000, nil
}

func (j *JSONRPCBackend) bitcoinGetRawTransaction(ctx context.Context, txid string) (string, error) {
	result, err := j.bitcoinCall(ctx, "getrawtransaction", []interface{}{txid, false})
	if err != nil {
		return "", err
	}
	var hexStr string
	if err := json.Unmarshal(result, &hexStr); err != nil {
		return "", err
	}
	return hexStr, nil
}

func (j *JSONRPCBackend) bitcoinSendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	result, err := j.bitcoinCall(ctx, "sendrawtransaction", []interface{}{rawTxHex})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// ---- Ethereum/EVM dialect ----

func (j *JSONRPCBackend) evmCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	return j.call(ctx, method, params)
}

func (j *JSONRPCBackend) evmGetNetworkInfo(ctx context.Context) (currency.NetworkInfo, error) {
	result, err := j.evmCall(ctx, "net_peerCount", []interface{}{})
	if err != nil {
		return currency.NetworkInfo{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	var peerCountHex string
	if err := json.Unmarshal(result, &peerCountHex); err != nil {
		return currency.NetworkInfo{}, err
	}
	var peerCount int64
	fmt.Sscanf(peerCountHex, "0x%x", &peerCount)
	return currency.NetworkInfo{Version: "", Connections: int(peerCount)}, nil
}

func (j *JSONRPCBackend) evmGetBlockchainInfo(ctx context.Context) (currency.BlockchainInfo, error) {
	result, err := j.evmCall(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return currency.BlockchainInfo{}, err
	}
	var heightHex string
	if err := json.Unmarshal(result, &heightHex); err != nil {
		return currency.BlockchainInfo{}, err
	}
	var height int64
	fmt.Sscanf(heightHex, "0x%x", &height)
	return currency.BlockchainInfo{Blocks: uint32(height), ScannedBlocks: uint32(height)}, nil
}

func (j *JSONRPCBackend) evmEstimateFee(ctx context.Context) (float64, error) {
	result, err := j.evmCall(ctx, "eth_gasPrice", []interface{}{})
	if err != nil {
		return 0, err
	}
	var priceHex string
	if err := json.Unmarshal(result, &priceHex); err != nil {
		return 0, err
	}
	var wei int64
	fmt.Sscanf(priceHex, "0x%x", &wei)
	// wei -> gwei
	return float64(wei) / 1e9, nil
}

func (j *JSONRPCBackend) evmGetRawTransaction(ctx context.Context, txHash string) (string, error) {
	result, err := j.evmCall(ctx, "eth_getRawTransactionByHash", []interface{}{txHash})
	if err != nil {
		return "", err
	}
	var hexStr string
	if err := json.Unmarshal(result, &hexStr); err != nil {
		return "", err
	}
	return hexStr, nil
}

func (j *JSONRPCBackend) evmSendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	result, err := j.evmCall(ctx, "eth_sendRawTransaction", []interface{}{rawTxHex})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// ---- transport ----

func (j *JSONRPCBackend) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := j.requestID.Add(1)

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", j.rpcURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if j.rpcUser != "" {
		req.SetBasicAuth(j.rpcUser, j.rpcPass)
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var response struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      uint64          `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", response.Error.Code, response.Error.Message)
	}

	return response.Result, nil
}
