package defillama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"walletscope/internal/infrastructure/httpjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(httpjson.NewClient(httpjson.Config{Retries: 1, Timeout: time.Second}), server.URL+"/prices/current")
	require.NoError(t, err)
	return client
}

func TestPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/current/coingecko:ethereum,ethereum:0xabc,solana:missing", r.URL.Path)
		_, _ = w.Write([]byte(`{"coins":{
			"coingecko:ethereum":{"price":3100.5,"symbol":"ETH"},
			"ethereum:0xabc":{"price":0.99,"symbol":"USDC"},
			"solana:nullprice":{"price":null}
		}}`))
	})

	prices, err := client.Prices(context.Background(), []string{"coingecko:ethereum", "ethereum:0xabc", "solana:missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"coingecko:ethereum": 3100.5, "ethereum:0xabc": 0.99}, prices)
}

func TestPricesChunksKeys(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		keys := strings.Split(strings.TrimPrefix(r.URL.Path, "/prices/current/"), ",")
		if n == 1 {
			assert.Len(t, keys, chunkSize)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Len(t, keys, 5)
		_, _ = fmt.Fprintf(w, `{"coins":{%q:{"price":1}}}`, keys[0])
	})

	keys := make([]string, chunkSize+5)
	for i := range keys {
		keys[i] = fmt.Sprintf("ethereum:0x%02d", i)
	}
	prices, err := client.Prices(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{keys[chunkSize]: 1}, prices)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPricesAllChunksFail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	prices, err := client.Prices(context.Background(), []string{"coingecko:solana"})
	assert.Error(t, err)
	assert.Empty(t, prices)
}

func TestPricesNoKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	prices, err := client.Prices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}
