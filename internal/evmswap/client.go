// Package evmswap is the EVM counterpart to swapmgr's Bitcoin-like HTLC
// builder: instead of a per-swap P2WSH address, every account-chain swap
// locks funds into one deployed HTLC contract shared by all swaps on that
// chain. LockupAddress is therefore the contract address itself, not a
// derived one.
//
// The binding is hand-written against the contract ABI rather than
// generated with abigen: the orchestrator only needs a handful of calls
// (create/claim/refund/view), so a full generated binding would carry
// far more surface than this client exercises.
package evmswap

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// htlcABI is the subset of the KlingonHTLC-style ABI this client calls.
// Trimmed to the functions and events the orchestrator actually uses;
// admin functions (setFeeBps, setDaoAddress, pause, ownership) are left
// out since nothing in this service calls them.
const htlcABI = `[
{"type":"function","name":"computeSwapId","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"receiver","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"secretHash","type":"bytes32"},{"name":"timelock","type":"uint256"},{"name":"nonce","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"createSwapNative","stateMutability":"payable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"receiver","type":"address"},{"name":"secretHash","type":"bytes32"},{"name":"timelock","type":"uint256"}],"outputs":[]},
{"type":"function","name":"createSwapERC20","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"receiver","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"secretHash","type":"bytes32"},{"name":"timelock","type":"uint256"}],"outputs":[]},
{"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"secret","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"getSwap","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"sender","type":"address"},{"name":"receiver","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"daoFee","type":"uint256"},{"name":"secretHash","type":"bytes32"},{"name":"timelock","type":"uint256"},{"name":"state","type":"uint8"}]}]},
{"type":"function","name":"canClaim","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"canRefund","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"timeUntilRefund","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"verifySecret","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"},{"name":"secret","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"event","name":"SwapCreated","anonymous":false,"inputs":[{"name":"swapId","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"receiver","type":"address","indexed":true},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"daoFee","type":"uint256"},{"name":"secretHash","type":"bytes32"},{"name":"timelock","type":"uint256"}]},
{"type":"event","name":"SwapClaimed","anonymous":false,"inputs":[{"name":"swapId","type":"bytes32","indexed":true},{"name":"receiver","type":"address","indexed":true},{"name":"secret","type":"bytes32"}]},
{"type":"event","name":"SwapRefunded","anonymous":false,"inputs":[{"name":"swapId","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true}]}
]`

// SwapState mirrors the contract's enum.
type SwapState uint8

const (
	SwapStateEmpty    SwapState = 0
	SwapStateActive   SwapState = 1
	SwapStateClaimed  SwapState = 2
	SwapStateRefunded SwapState = 3
)

func (s SwapState) String() string {
	switch s {
	case SwapStateActive:
		return "active"
	case SwapStateClaimed:
		return "claimed"
	case SwapStateRefunded:
		return "refunded"
	default:
		return "empty"
	}
}

// Swap is the on-chain record for one HTLC, as returned by getSwap.
type Swap struct {
	Sender     common.Address
	Receiver   common.Address
	Token      common.Address
	Amount     *big.Int
	DaoFee     *big.Int
	SecretHash [32]byte
	Timelock   *big.Int
	State      SwapState
}

func (s *Swap) IsNativeToken() bool {
	return s.Token == common.Address{}
}

// Client wraps one deployed HTLC contract on one EVM chain.
type Client struct {
	rpc      *ethclient.Client
	contract *bind.BoundContract
	address  common.Address
	chainID  *big.Int
}

// NewClient dials rpcURL and binds to the HTLC contract at contractAddress.
func NewClient(rpcURL string, contractAddress common.Address) (*Client, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(htlcABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTLC ABI: %w", err)
	}

	chainID, err := rpc.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	return &Client{
		rpc:      rpc,
		contract: bind.NewBoundContract(contractAddress, parsed, rpc, rpc, rpc),
		address:  contractAddress,
		chainID:  chainID,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// LockupAddress is the address a lockup payment (native) or approval
// (ERC20) is sent to: the shared HTLC contract, not a per-swap address.
func (c *Client) LockupAddress(ctx context.Context) (common.Address, error) {
	return c.address, nil
}

// ComputeSwapID mirrors the contract's deterministic swap id derivation.
func (c *Client) ComputeSwapID(ctx context.Context, sender, receiver, token common.Address, amount *big.Int, secretHash [32]byte, timelock, nonce *big.Int) ([32]byte, error) {
	var out [32]byte
	results := make([]interface{}, 0, 1)
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "computeSwapId", sender, receiver, token, amount, secretHash, timelock, nonce)
	if err != nil {
		return out, err
	}
	copy(out[:], results[0].([32]byte)[:])
	return out, nil
}

func (c *Client) newTransactor(ctx context.Context, privateKey *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

// CreateSwapNative locks native coin (ETH/BNB/...) into the HTLC.
func (c *Client) CreateSwapNative(ctx context.Context, privateKey *ecdsa.PrivateKey, swapID [32]byte, receiver common.Address, secretHash [32]byte, timelock *big.Int, amount *big.Int) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	auth.Value = amount
	return c.contract.Transact(auth, "createSwapNative", swapID, receiver, secretHash, timelock)
}

// CreateSwapERC20 locks an ERC20 token into the HTLC. The token must
// already have an allowance for the HTLC contract covering amount.
func (c *Client) CreateSwapERC20(ctx context.Context, privateKey *ecdsa.PrivateKey, swapID [32]byte, receiver, token common.Address, amount *big.Int, secretHash [32]byte, timelock *big.Int) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	return c.contract.Transact(auth, "createSwapERC20", swapID, receiver, token, amount, secretHash, timelock)
}

// Claim reveals the preimage and releases the lockup to the receiver.
func (c *Client) Claim(ctx context.Context, privateKey *ecdsa.PrivateKey, swapID, secret [32]byte) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	return c.contract.Transact(auth, "claim", swapID, secret)
}

// Refund returns the lockup to the sender once the timelock has passed.
func (c *Client) Refund(ctx context.Context, privateKey *ecdsa.PrivateKey, swapID [32]byte) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	return c.contract.Transact(auth, "refund", swapID)
}

// GetSwap reads the on-chain swap record.
func (c *Client) GetSwap(ctx context.Context, swapID [32]byte) (*Swap, error) {
	var results []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "getSwap", swapID)
	if err != nil {
		return nil, fmt.Errorf("failed to get swap: %w", err)
	}
	raw := abi.ConvertType(results[0], new(struct {
		Sender     common.Address
		Receiver   common.Address
		Token      common.Address
		Amount     *big.Int
		DaoFee     *big.Int
		SecretHash [32]byte
		Timelock   *big.Int
		State      uint8
	})).(*struct {
		Sender     common.Address
		Receiver   common.Address
		Token      common.Address
		Amount     *big.Int
		DaoFee     *big.Int
		SecretHash [32]byte
		Timelock   *big.Int
		State      uint8
	})

	return &Swap{
		Sender:     raw.Sender,
		Receiver:   raw.Receiver,
		Token:      raw.Token,
		Amount:     raw.Amount,
		DaoFee:     raw.DaoFee,
		SecretHash: raw.SecretHash,
		Timelock:   raw.Timelock,
		State:      SwapState(raw.State),
	}, nil
}

func (c *Client) CanClaim(ctx context.Context, swapID [32]byte) (bool, error) {
	var results []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "canClaim", swapID); err != nil {
		return false, err
	}
	return results[0].(bool), nil
}

func (c *Client) CanRefund(ctx context.Context, swapID [32]byte) (bool, error) {
	var results []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "canRefund", swapID); err != nil {
		return false, err
	}
	return results[0].(bool), nil
}

func (c *Client) TimeUntilRefund(ctx context.Context, swapID [32]byte) (*big.Int, error) {
	var results []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "timeUntilRefund", swapID); err != nil {
		return nil, err
	}
	return results[0].(*big.Int), nil
}

func (c *Client) VerifySecretOnChain(ctx context.Context, swapID, secret [32]byte) (bool, error) {
	var results []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &results, "verifySecret", swapID, secret); err != nil {
		return false, err
	}
	return results[0].(bool), nil
}

// WaitForTx blocks until tx is mined and returns its receipt.
func (c *Client) WaitForTx(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, c.rpc, tx)
}

// GetSecretFromClaim scans a claim transaction's receipt for the
// SwapClaimed event and extracts the revealed secret.
func (c *Client) GetSecretFromClaim(ctx context.Context, txHash common.Hash) ([32]byte, error) {
	var out [32]byte
	receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
	if err != nil {
		return out, fmt.Errorf("failed to get receipt: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(htlcABI))
	if err != nil {
		return out, err
	}

	for _, log := range receipt.Logs {
		if log.Address != c.address {
			continue
		}
		event, err := parsed.EventByID(log.Topics[0])
		if err != nil || event.Name != "SwapClaimed" {
			continue
		}
		unpacked := map[string]interface{}{}
		if err := parsed.UnpackIntoMap(unpacked, "SwapClaimed", log.Data); err != nil {
			continue
		}
		secret, ok := unpacked["secret"].([32]byte)
		if !ok {
			continue
		}
		return secret, nil
	}

	return out, fmt.Errorf("no SwapClaimed event found in transaction")
}

// AddressFromPrivateKey derives an EVM address from a private key.
func AddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}
