// Package explorer reads account history from the Etherscan v2 multichain API.
package explorer

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

	"github.com/holiman/uint256"
)

const DefaultBaseURL = "https://api.etherscan.io/v2/api"

type Config struct {
	BaseURL string
	APIKey  string
	ChainID string
}

// Client fetches native transactions and token transfers for one chain.
type Client struct {
	http    *httpjson.Client
	baseURL string
	apiKey  string
	chainID string
}

func NewClient(httpClient *httpjson.Client, cfg Config) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("explorer api key is required")
	}
	if cfg.ChainID == "" {
		return nil, errors.New("explorer chain id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: cfg.BaseURL, apiKey: cfg.APIKey, chainID: cfg.ChainID}, nil
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type txRecord struct {
	Hash      string `json:"hash"`
	TimeStamp string `json:"timeStamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Input     string `json:"input"`
}

type tokenTxRecord struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// FetchActivity fetches both feeds. When one feed fails the other is still
// returned together with the error.
func (c *Client) FetchActivity(ctx context.Context, address string, limits application.ActivityLimits) (domain.Activity, error) {
	var activity domain.Activity
	txs, txErr := c.Transactions(ctx, address, limits.Transactions)
	if txErr == nil {
		activity.Transactions = txs
	}
	transfers, transferErr := c.TokenTransfers(ctx, address, limits.Transfers)
	if transferErr == nil {
		activity.Transfers = transfers
	}
	return activity, errors.Join(txErr, transferErr)
}

// Transactions returns up to limit native transactions, newest first.
func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]domain.NativeTransaction, error) {
	params := c.params("txlist", address, limit)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")

	var records []txRecord
	if err := c.fetch(ctx, params, &records); err != nil {
		return nil, fmt.Errorf("txlist: %w", err)
	}
	txs := make([]domain.NativeTransaction, 0, len(records))
	for _, record := range records {
		timestamp, err := strconv.ParseInt(record.TimeStamp, 10, 64)
		if err != nil {
			timestamp = 0
		}
		input := record.Input
		if input == "" {
			input = "0x"
		}
		txs = append(txs, domain.NativeTransaction{
			Hash:      record.Hash,
			Timestamp: timestamp,
			From:      record.From,
			To:        record.To,
			Value:     parseAmount(record.Value),
			Input:     input,
		})
	}
	return txs, nil
}

// TokenTransfers returns up to limit token transfer events, newest first.
func (c *Client) TokenTransfers(ctx context.Context, address string, limit int) ([]domain.TokenTransferEvent, error) {
	var records []tokenTxRecord
	if err := c.fetch(ctx, c.params("tokentx", address, limit), &records); err != nil {
		return nil, fmt.Errorf("tokentx: %w", err)
	}
	events := make([]domain.TokenTransferEvent, 0, len(records))
	for _, record := range records {
		decimals, err := strconv.Atoi(record.TokenDecimal)
		if err != nil {
			decimals = 0
		}
		events = append(events, domain.TokenTransferEvent{
			Hash:     record.Hash,
			Contract: record.ContractAddress,
			From:     record.From,
			To:       record.To,
			Symbol:   record.TokenSymbol,
			Value:    record.Value,
			Decimals: decimals,
		})
	}
	return events, nil
}

func (c *Client) params(action, address string, limit int) url.Values {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("chainid", c.chainID)
	params.Set("module", "account")
	params.Set("action", action)
	params.Set("address", address)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(limit))
	params.Set("sort", "desc")
	params.Set("apikey", c.apiKey)
	return params
}

func (c *Client) fetch(ctx context.Context, params url.Values, out any) error {
	var resp response
	if err := c.http.Get(ctx, c.baseURL, params, &resp); err != nil {
		return err
	}
	if resp.Status != "1" {
		// An empty history is reported as status 0 with an empty result list.
		if strings.HasPrefix(strings.ToLower(resp.Message), "no transactions found") {
			return nil
		}
		return fmt.Errorf("explorer error: %s", explorerMessage(resp))
	}
	return json.Unmarshal(resp.Result, out)
}

func explorerMessage(resp response) string {
	var detail string
	if err := json.Unmarshal(resp.Result, &detail); err == nil && detail != "" {
		return resp.Message + ": " + detail
	}
	return resp.Message
}

// parseAmount parses a decimal uint256 string; malformed values become zero.
func parseAmount(raw string) *big.Int {
	value, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return new(big.Int)
	}
	return value.ToBig()
}
