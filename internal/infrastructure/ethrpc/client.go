// Package ethrpc reads native and ERC-20 balances from an EVM JSON-RPC node.
package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"walletscope/internal/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// defaultDecimals applies when a token does not answer decimals().
const defaultDecimals = 18

// chainReader is the subset of ethclient.Client used here.
type chainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Client struct {
	reader  chainReader
	erc20   abi.ABI
	chainID string
	closer  func()
}

type Config struct {
	URL     string
	ChainID string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc url is required")
	}
	rpc, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	client, err := newClient(rpc, cfg.ChainID)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	client.closer = rpc.Close
	return client, nil
}

func newClient(reader chainReader, chainID string) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Client{reader: reader, erc20: parsed, chainID: chainID}, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// NativeBalance returns the latest native balance in wei.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	balance, err := c.reader.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	return balance, nil
}

// TokenBalances snapshots holder's balance in each contract, in the given
// order. Contracts that fail balanceOf or hold nothing are skipped.
func (c *Client) TokenBalances(ctx context.Context, holder string, contracts []string) ([]domain.TokenBalance, error) {
	if !common.IsHexAddress(holder) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, holder)
	}
	owner := common.HexToAddress(holder)
	balances := make([]domain.TokenBalance, 0, len(contracts))
	for _, contract := range contracts {
		if err := ctx.Err(); err != nil {
			return balances, err
		}
		if !common.IsHexAddress(contract) {
			continue
		}
		token := common.HexToAddress(contract)
		raw, err := c.balanceOf(ctx, token, owner)
		if err != nil {
			slog.Debug("erc20 balanceOf failed", "chain", c.chainID, "contract", token.Hex(), "err", err)
			continue
		}
		if raw.Sign() == 0 {
			continue
		}
		balances = append(balances, domain.TokenBalance{
			Contract: token.Hex(),
			Symbol:   c.symbol(ctx, token),
			Decimals: c.decimals(ctx, token),
			Raw:      raw,
		})
	}
	return balances, nil
}

func (c *Client) balanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	values, err := c.call(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output %T", values[0])
	}
	return balance, nil
}

func (c *Client) symbol(ctx context.Context, token common.Address) string {
	values, err := c.call(ctx, token, "symbol")
	if err != nil {
		return ""
	}
	symbol, _ := values[0].(string)
	return symbol
}

func (c *Client) decimals(ctx context.Context, token common.Address) int {
	values, err := c.call(ctx, token, "decimals")
	if err != nil {
		return defaultDecimals
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return defaultDecimals
	}
	return int(decimals)
}

func (c *Client) call(ctx context.Context, token common.Address, method string, args ...any) ([]any, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := c.reader.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := c.erc20.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s output", method)
	}
	return values, nil
}
