// Package fourbyte looks up function selectors in the 4byte.directory registry.
package fourbyte

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"walletscope/internal/infrastructure/httpjson"
)

const DefaultBaseURL = "https://www.4byte.directory/api/v1/signatures/"

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
	return &Client{http: httpClient, baseURL: baseURL}, nil
}

type signaturesResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ID            int64  `json:"id"`
		TextSignature string `json:"text_signature"`
	} `json:"results"`
}

// LookupSignature returns the first text signature registered for selector.
func (c *Client) LookupSignature(ctx context.Context, selector string) (string, bool, error) {
	var resp signaturesResponse
	if err := c.http.Get(ctx, c.baseURL, url.Values{"hex_signature": {selector}}, &resp); err != nil {
		return "", false, fmt.Errorf("lookup selector %s: %w", selector, err)
	}
	if len(resp.Results) == 0 || resp.Results[0].TextSignature == "" {
		return "", false, nil
	}
	return resp.Results[0].TextSignature, true, nil
}
