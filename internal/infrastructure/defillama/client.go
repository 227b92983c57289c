// Package defillama reads current USD prices from the DefiLlama coins API.
package defillama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"walletscope/internal/infrastructure/httpjson"
)

const (
	DefaultBaseURL = "https://coins.llama.fi/prices/current/"
	chunkSize      = 80
)

type Client struct {
	http    *httpjson.Client
	baseURL string
}

func NewClient(httpClient *httpjson.Client, baseURL string) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{http: httpClient, baseURL: baseURL}, nil
}

type pricesResponse struct {
	Coins map[string]struct {
		Price  *float64 `json:"price"`
		Symbol string   `json:"symbol"`
	} `json:"coins"`
}

// Prices queries keys in chunks. A failed chunk is skipped; the error is
// returned only when every chunk failed.
func (c *Client) Prices(ctx context.Context, keys []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(keys))
	var errs []error
	chunks := 0
	for start := 0; start < len(keys); start += chunkSize {
		end := min(start+chunkSize, len(keys))
		chunks++
		if err := c.fetch(ctx, keys[start:end], prices); err != nil {
			slog.Warn("price chunk failed", "keys", end-start, "err", err)
			errs = append(errs, err)
		}
	}
	if chunks > 0 && len(errs) == chunks {
		return prices, errors.Join(errs...)
	}
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, keys []string, into map[string]float64) error {
	escaped := make([]string, len(keys))
	for i, key := range keys {
		escaped[i] = url.PathEscape(key)
	}
	var resp pricesResponse
	if err := c.http.Get(ctx, c.baseURL+strings.Join(escaped, ","), nil, &resp); err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}
	for key, coin := range resp.Coins {
		if coin.Price != nil {
			into[key] = *coin.Price
		}
	}
	return nil
}
