// Package lnd implements currency.LightningClient against an lnd node's
// REST API. It follows the same raw-HTTP-client shape as
// internal/backend's JSONRPCBackend rather than pulling in lnd's full gRPC
// client library, since the orchestrator only needs a handful of calls.
package lnd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// Client is the REST-backed LightningClient for one lnd node.
type Client struct {
	baseURL    string
	macaroon   string // hex-encoded admin/invoice macaroon
	httpClient *http.Client
}

// Config describes how to reach one Lightning node.
type Config struct {
	RESTURL      string `yaml:"rest_url"`
	MacaroonHex  string `yaml:"macaroon_hex"`
	TLSSkipVerify bool  `yaml:"tls_skip_verify,omitempty"`
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		baseURL:  cfg.RESTURL,
		macaroon: cfg.MacaroonHex,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
			},
		},
	}
}

var _ currency.LightningClient = (*Client)(nil)

// GetInfo reports the node's identity, block height, and channel counts.
func (c *Client) GetInfo(ctx context.Context) (currency.LightningInfo, error) {
	var resp struct {
		Version            string   `json:"version"`
		IdentityPubkey     string   `json:"identity_pubkey"`
		URIs               []string `json:"uris"`
		BlockHeight        uint32   `json:"block_height"`
		NumActiveChannels  int      `json:"num_active_channels"`
		NumInactiveChannels int     `json:"num_inactive_channels"`
		NumPendingChannels int      `json:"num_pending_channels"`
	}
	if err := c.get(ctx, "/v1/getinfo", &resp); err != nil {
		return currency.LightningInfo{}, err
	}
	return currency.LightningInfo{
		Version:          resp.Version,
		BlockHeight:      resp.BlockHeight,
		IdentityPubkey:   resp.IdentityPubkey,
		URIs:             resp.URIs,
		ActiveChannels:   resp.NumActiveChannels,
		InactiveChannels: resp.NumInactiveChannels,
		PendingChannels:  resp.NumPendingChannels,
	}, nil
}

// ListChannels reports local/remote balances for every open channel, used
// by getBalance's inbound-liquidity rollup (spec.md §4.1, §4.2 step 6).
func (c *Client) ListChannels(ctx context.Context) ([]currency.ChannelBalance, error) {
	var resp struct {
		Channels []struct {
			LocalBalance  string `json:"local_balance"`
			RemoteBalance string `json:"remote_balance"`
		} `json:"channels"`
	}
	if err := c.get(ctx, "/v1/channels", &resp); err != nil {
		return nil, err
	}
	out := make([]currency.ChannelBalance, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		local, _ := strconv.ParseUint(ch.LocalBalance, 10, 64)
		remote, _ := strconv.ParseUint(ch.RemoteBalance, 10, 64)
		out = append(out, currency.ChannelBalance{LocalBalance: local, RemoteBalance: remote})
	}
	return out, nil
}

// SendPayment pays a BOLT11 invoice and blocks until it settles or fails.
func (c *Client) SendPayment(ctx context.Context, invoice string) (currency.PaymentResult, error) {
	body := map[string]interface{}{"payment_request": invoice}
	var resp struct {
		PaymentError    string `json:"payment_error"`
		PaymentHash     string `json:"payment_hash"`
		PaymentPreimage string `json:"payment_preimage"`
	}
	if err := c.post(ctx, "/v1/channels/transactions", body, &resp); err != nil {
		return currency.PaymentResult{}, err
	}
	if resp.PaymentError != "" {
		return currency.PaymentResult{}, fmt.Errorf("payment failed: %s", resp.PaymentError)
	}
	return currency.PaymentResult{PaymentHash: resp.PaymentHash, PaymentPreimage: resp.PaymentPreimage}, nil
}

// DecodeInvoice decodes a BOLT11 string (spec.md §4.3 step 3).
func (c *Client) DecodeInvoice(ctx context.Context, invoice string) (currency.DecodedInvoice, error) {
	var resp struct {
		NumMsat      string   `json:"num_msat"`
		PaymentHash  string   `json:"payment_hash"`
		RouteHints   []struct {
			HopHints []struct {
				NodeID string `json:"node_id"`
			} `json:"hop_hints"`
		} `json:"route_hints"`
	}
	if err := c.get(ctx, "/v1/payreq/"+invoice, &resp); err != nil {
		return currency.DecodedInvoice{}, err
	}
	amountMsat, _ := strconv.ParseUint(resp.NumMsat, 10, 64)
	hints := make([]string, 0, len(resp.RouteHints))
	for _, rh := range resp.RouteHints {
		for _, hop := range rh.HopHints {
			hints = append(hints, hop.NodeID)
		}
	}
	return currency.DecodedInvoice{AmountMsat: amountMsat, PaymentHash: resp.PaymentHash, RoutingHints: hints}, nil
}

// CreateHoldInvoice creates a held invoice for preimageHash, used by
// createReverseSwap (spec.md §4.5 step 15): the payee only learns the
// preimage once the orchestrator settles it after the user claims on-chain.
func (c *Client) CreateHoldInvoice(ctx context.Context, amountMsat uint64, preimageHash []byte, expiry uint32) (currency.HoldInvoice, error) {
	body := map[string]interface{}{
		"hash":    hex.EncodeToString(preimageHash),
		"value_msat": amountMsat,
		"expiry":  expiry,
	}
	var resp struct {
		PaymentRequest string `json:"payment_request"`
	}
	if err := c.post(ctx, "/v2/invoices/hodl", body, &resp); err != nil {
		return currency.HoldInvoice{}, err
	}
	return currency.HoldInvoice{Invoice: resp.PaymentRequest, PaymentHash: hex.EncodeToString(preimageHash)}, nil
}

// RoutingHints returns the channel-edge hints lnd would embed for
// routingNode, so the orchestrator can forward them per spec.md §4.1
// getRoutingHints.
func (c *Client) RoutingHints(ctx context.Context, routingNode string) ([]string, error) {
	var resp struct {
		Channels []struct {
			Node1Pub string `json:"node1_pub"`
			Node2Pub string `json:"node2_pub"`
		} `json:"channels"`
	}
	if err := c.get(ctx, "/v1/graph/node/"+routingNode+"/channels", &resp); err != nil {
		return nil, err
	}
	hints := make([]string, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		if ch.Node1Pub == routingNode {
			hints = append(hints, ch.Node2Pub)
		} else {
			hints = append(hints, ch.Node1Pub)
		}
	}
	return hints, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Grpc-Metadata-macaroon", c.macaroon)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lnd request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("lnd returned %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}
