package ethrpc

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"walletscope/internal/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	holderAddr = "0x1111111111111111111111111111111111111111"
	usdtAddr   = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	emptyAddr  = "0x2222222222222222222222222222222222222222"
	brokenAddr = "0x3333333333333333333333333333333333333333"
	bareAddr   = "0x4444444444444444444444444444444444444444"
)

type token struct {
	balance  *big.Int
	symbol   string
	decimals *uint8
}

type fakeChain struct {
	t        *testing.T
	client   *Client
	balances map[common.Address]*big.Int
	tokens   map[common.Address]token
}

func (f *fakeChain) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	balance, ok := f.balances[account]
	if !ok {
		return nil, errors.New("unknown account")
	}
	return balance, nil
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	tok, ok := f.tokens[*call.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	methods := f.client.erc20.Methods
	switch {
	case bytes.HasPrefix(call.Data, methods["balanceOf"].ID):
		return methods["balanceOf"].Outputs.Pack(tok.balance)
	case bytes.HasPrefix(call.Data, methods["symbol"].ID):
		if tok.symbol == "" {
			return nil, errors.New("execution reverted")
		}
		return methods["symbol"].Outputs.Pack(tok.symbol)
	case bytes.HasPrefix(call.Data, methods["decimals"].ID):
		if tok.decimals == nil {
			return nil, errors.New("execution reverted")
		}
		return methods["decimals"].Outputs.Pack(*tok.decimals)
	}
	f.t.Fatalf("unexpected call data %x", call.Data)
	return nil, nil
}

func newFakeClient(t *testing.T) (*Client, *fakeChain) {
	t.Helper()
	six := uint8(6)
	chain := &fakeChain{
		t: t,
		balances: map[common.Address]*big.Int{
			common.HexToAddress(holderAddr): big.NewInt(42),
		},
		tokens: map[common.Address]token{
			common.HexToAddress(usdtAddr):  {balance: big.NewInt(1_500_000), symbol: "USDT", decimals: &six},
			common.HexToAddress(emptyAddr): {balance: big.NewInt(0), symbol: "ZERO", decimals: &six},
			common.HexToAddress(bareAddr):  {balance: big.NewInt(7)},
		},
	}
	client, err := newClient(chain, "eth")
	require.NoError(t, err)
	chain.client = client
	return client, chain
}

func TestNativeBalance(t *testing.T) {
	client, _ := newFakeClient(t)

	balance, err := client.NativeBalance(context.Background(), holderAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance.Int64())

	_, err = client.NativeBalance(context.Background(), "0xnope")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = client.NativeBalance(context.Background(), emptyAddr)
	assert.ErrorContains(t, err, "unknown account")
}

func TestTokenBalances(t *testing.T) {
	client, _ := newFakeClient(t)

	balances, err := client.TokenBalances(context.Background(), holderAddr, []string{usdtAddr, emptyAddr, brokenAddr, "garbage", bareAddr})
	require.NoError(t, err)

	require.Len(t, balances, 2)
	assert.Equal(t, domain.TokenBalance{
		Contract: common.HexToAddress(usdtAddr).Hex(),
		Symbol:   "USDT",
		Decimals: 6,
		Raw:      big.NewInt(1_500_000),
	}, balances[0])
	assert.Equal(t, "", balances[1].Symbol)
	assert.Equal(t, defaultDecimals, balances[1].Decimals)
	assert.Equal(t, int64(7), balances[1].Raw.Int64())
}

func TestTokenBalancesRejectsInvalidHolder(t *testing.T) {
	client, _ := newFakeClient(t)

	_, err := client.TokenBalances(context.Background(), "holder", []string{usdtAddr})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestTokenBalancesStopsOnCancel(t *testing.T) {
	client, _ := newFakeClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	balances, err := client.TokenBalances(ctx, holderAddr, []string{usdtAddr})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, balances)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}
