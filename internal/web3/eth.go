package web3

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

// NativeDecimals of the gas coin on every supported chain.
const NativeDecimals = 18

const latest = "latest"

func (c *Client) BlockNumber(ctx context.Context, chainID int, node NodeType) (uint64, error) {
	var out hexutil.Uint64
	if err := c.Call(ctx, chainID, node, &out, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

// GasPrice returns the gas price in wei.
func (c *Client) GasPrice(ctx context.Context, chainID int, node NodeType) (*big.Int, error) {
	var out hexutil.Big
	if err := c.Call(ctx, chainID, node, &out, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return out.ToInt(), nil
}

func (c *Client) ChainID(ctx context.Context, chainID int, node NodeType) (uint64, error) {
	var out hexutil.Uint64
	if err := c.Call(ctx, chainID, node, &out, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

// Balance returns the native coin balance of address at the latest block.
func (c *Client) Balance(ctx context.Context, chainID int, node NodeType, address string) (amount.Amount, error) {
	if err := oneinch.CheckAddress(address); err != nil {
		return amount.Amount{}, err
	}

	var out string
	if err := c.Call(ctx, chainID, node, &out, "eth_getBalance", address, latest); err != nil {
		return amount.Amount{}, err
	}

	balance, err := amount.FromHexQuantity(out, NativeDecimals)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("eth_getBalance: %w", err)
	}
	return balance, nil
}

// TransactionCount returns the nonce of address at the latest block.
func (c *Client) TransactionCount(ctx context.Context, chainID int, node NodeType, address string) (uint64, error) {
	if err := oneinch.CheckAddress(address); err != nil {
		return 0, err
	}

	var out hexutil.Uint64
	if err := c.Call(ctx, chainID, node, &out, "eth_getTransactionCount", address, latest); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

type NetworkInfo struct {
	ChainID     uint64        `json:"chainId"`
	BlockNumber uint64        `json:"blockNumber"`
	GasPrice    amount.Amount `json:"gasPrice"`
}

// NetworkInfo collects chain id, head block and gas price. The three calls queue on the limiter
// one after another.
func (c *Client) NetworkInfo(ctx context.Context, chainID int, node NodeType) (NetworkInfo, error) {
	id, err := c.ChainID(ctx, chainID, node)
	if err != nil {
		return NetworkInfo{}, err
	}
	block, err := c.BlockNumber(ctx, chainID, node)
	if err != nil {
		return NetworkInfo{}, err
	}
	price, err := c.GasPrice(ctx, chainID, node)
	if err != nil {
		return NetworkInfo{}, err
	}
	gas, err := amount.FromBig(price, NativeDecimals)
	if err != nil {
		return NetworkInfo{}, err
	}

	return NetworkInfo{ChainID: id, BlockNumber: block, GasPrice: gas}, nil
}
