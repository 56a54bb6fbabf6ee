package backend

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

// EVMAccountProvider implements currency.AccountProvider directly over an
// ethclient connection, shared by Ether and every ERC20 riding the same
// chain (getFeeEstimation's native-symbol collapse, spec.md §4.1).
type EVMAccountProvider struct {
	rpc *ethclient.Client
}

var _ currency.AccountProvider = (*EVMAccountProvider)(nil)

// NewEVMAccountProvider dials rpcURL. The connection is shared: callers
// register the same *EVMAccountProvider against every symbol on that chain.
func NewEVMAccountProvider(rpcURL string) (*EVMAccountProvider, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	return &EVMAccountProvider{rpc: rpc}, nil
}

func (p *EVMAccountProvider) GetBlockNumber(ctx context.Context) (uint64, error) {
	return p.rpc.BlockNumber(ctx)
}

func (p *EVMAccountProvider) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return p.rpc.SuggestGasPrice(ctx)
}

func (p *EVMAccountProvider) Close() {
	p.rpc.Close()
}
