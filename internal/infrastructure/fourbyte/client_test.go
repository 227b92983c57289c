package fourbyte

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	client, err := NewClient(httpjson.NewClient(httpjson.Config{Retries: 1, Timeout: time.Second}), server.URL)
	require.NoError(t, err)
	return client
}

func TestLookupSignature(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0x095ea7b3", r.URL.Query().Get("hex_signature"))
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"id":2,"text_signature":"approve(address,uint256)"},
			{"id":1,"text_signature":"sign_szabo_bytecode(bytes16,uint128)"}
		]}`))
	})

	text, found, err := client.LookupSignature(context.Background(), "0x095ea7b3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "approve(address,uint256)", text)
}

func TestLookupSignatureNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	})

	text, found, err := client.LookupSignature(context.Background(), "0xdeadbeef")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, text)
}

func TestLookupSignatureError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, found, err := client.LookupSignature(context.Background(), "0xdeadbeef")
	assert.Error(t, err)
	assert.False(t, found)
}
