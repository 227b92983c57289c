// Package helius adapts the Helius enhanced-transaction and balance APIs and
// the Solana RPC to the chain pipeline.
package helius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"walletscope/internal/application"
	"walletscope/internal/domain"
	"walletscope/internal/infrastructure/httpjson"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	DefaultBaseURL = "https://api.helius.xyz"

	// maxPageSize is the largest page the enhanced-transaction API serves.
	maxPageSize     = 100
	defaultDecimals = 9
	computeBudgetID = "ComputeBudget111111111111111111111111111111"
	genericTxType   = "TRANSFER"
	unknownTxType   = "UNKNOWN"
)

type balanceReader interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	// RPCURL is the Solana JSON-RPC endpoint; it defaults to the Helius
	// mainnet RPC for the key.
	RPCURL string
}

type Client struct {
	http    *httpjson.Client
	rpc     balanceReader
	baseURL string
	apiKey  string
}

func NewClient(httpClient *httpjson.Client, cfg Config) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("helius api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RPCURL == "" {
		cfg.RPCURL = "https://mainnet.helius-rpc.com/?api-key=" + url.QueryEscape(cfg.APIKey)
	}
	return &Client{
		http:    httpClient,
		rpc:     rpc.New(cfg.RPCURL),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

type enhancedTransaction struct {
	Signature       string `json:"signature"`
	Timestamp       int64  `json:"timestamp"`
	Type            string `json:"type"`
	Source          string `json:"source"`
	FeePayer        string `json:"feePayer"`
	NativeTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          uint64 `json:"amount"`
	} `json:"nativeTransfers"`
	TokenTransfers []struct {
		FromUserAccount string      `json:"fromUserAccount"`
		ToUserAccount   string      `json:"toUserAccount"`
		Mint            string      `json:"mint"`
		TokenAmount     json.Number `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	Instructions []struct {
		ProgramID string `json:"programId"`
	} `json:"instructions"`
}

// FetchActivity maps enhanced transactions onto the shared activity model.
// Token transfers come from the same transactions, so limits.Transfers is not
// used.
func (c *Client) FetchActivity(ctx context.Context, address string, limits application.ActivityLimits) (domain.Activity, error) {
	limit := limits.Transactions
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var records []enhancedTransaction
	params := url.Values{"api-key": {c.apiKey}, "limit": {strconv.Itoa(limit)}}
	if err := c.http.Get(ctx, c.endpoint(address, "transactions"), params, &records); err != nil {
		return domain.Activity{}, fmt.Errorf("enhanced transactions: %w", err)
	}

	var activity domain.Activity
	for _, record := range records {
		activity.Transactions = append(activity.Transactions, mapTransaction(record, address))
		for _, transfer := range record.TokenTransfers {
			activity.Transfers = append(activity.Transfers, domain.TokenTransferEvent{
				Hash:     record.Signature,
				Contract: transfer.Mint,
				From:     transfer.FromUserAccount,
				To:       transfer.ToUserAccount,
				Value:    transfer.TokenAmount.String(),
			})
		}
	}
	return activity, nil
}

func mapTransaction(record enhancedTransaction, holder string) domain.NativeTransaction {
	tx := domain.NativeTransaction{
		Hash:      record.Signature,
		Timestamp: record.Timestamp,
		From:      record.FeePayer,
		Value:     new(big.Int),
	}
	for _, instruction := range record.Instructions {
		if instruction.ProgramID != "" && instruction.ProgramID != computeBudgetID {
			tx.To = instruction.ProgramID
			break
		}
	}
	for _, transfer := range record.NativeTransfers {
		if transfer.FromUserAccount == holder || transfer.ToUserAccount == holder {
			tx.Value.Add(tx.Value, new(big.Int).SetUint64(transfer.Amount))
		}
	}
	switch strings.ToUpper(record.Type) {
	case "", unknownTxType, genericTxType:
	default:
		tx.Method = record.Type
	}
	return tx
}

// NativeBalance returns the lamport balance through the Solana RPC.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	key, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	result, err := c.rpc.GetBalance(ctx, key, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if result == nil {
		return new(big.Int), nil
	}
	return new(big.Int).SetUint64(result.Value), nil
}

type balancesResponse struct {
	Tokens []struct {
		Mint     string      `json:"mint"`
		Amount   json.Number `json:"amount"`
		Decimals *int        `json:"decimals"`
	} `json:"tokens"`
}

// TokenBalances lists every SPL token account of holder. The candidate
// contracts are ignored because the balances endpoint already enumerates them.
func (c *Client) TokenBalances(ctx context.Context, holder string, _ []string) ([]domain.TokenBalance, error) {
	var resp balancesResponse
	if err := c.http.Get(ctx, c.endpoint(holder, "balances"), url.Values{"api-key": {c.apiKey}}, &resp); err != nil {
		return nil, fmt.Errorf("token balances: %w", err)
	}
	balances := make([]domain.TokenBalance, 0, len(resp.Tokens))
	for _, token := range resp.Tokens {
		raw, ok := new(big.Int).SetString(token.Amount.String(), 10)
		if !ok || raw.Sign() <= 0 {
			continue
		}
		decimals := defaultDecimals
		if token.Decimals != nil {
			decimals = *token.Decimals
		}
		balances = append(balances, domain.TokenBalance{
			Contract: token.Mint,
			Decimals: decimals,
			Raw:      raw,
		})
	}
	return balances, nil
}

func (c *Client) endpoint(address, resource string) string {
	return fmt.Sprintf("%s/v0/addresses/%s/%s", c.baseURL, url.PathEscape(address), resource)
}
