package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	answers map[string]string
	calls   int
}

func (c *countingLookup) LookupSignature(_ context.Context, selector string) (string, bool, error) {
	c.calls++
	text, ok := c.answers[selector]
	return text, ok, nil
}

func TestSignatureCachePassThroughWithoutAddr(t *testing.T) {
	base := &countingLookup{answers: map[string]string{"0x095ea7b3": "approve(address,uint256)"}}
	cache, err := NewSignatureCache(context.Background(), base, Config{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		text, found, err := cache.LookupSignature(context.Background(), "0x095ea7b3")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "approve(address,uint256)", text)
	}
	assert.Equal(t, 2, base.calls)
	assert.NoError(t, cache.Close())
}

func TestSignatureCacheUnreachableRedis(t *testing.T) {
	_, err := NewSignatureCache(context.Background(), &countingLookup{}, Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewSignatureCache(context.Background(), nil, Config{})
	assert.Error(t, err)
}

// Runs against a live server when WALLETSCOPE_TEST_REDIS is set.
func TestSignatureCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("WALLETSCOPE_TEST_REDIS")
	if addr == "" {
		t.Skip("WALLETSCOPE_TEST_REDIS not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	base := &countingLookup{answers: map[string]string{"0xa9059cbb": "transfer(address,uint256)"}}
	cache := newSignatureCache(base, client, time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	hit := "0xa9059cbb"
	miss := "0x" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = redis.NewClient(&redis.Options{Addr: addr}).Del(ctx, signatureKeyPrefix+hit, signatureKeyPrefix+miss).Err()
	})

	for i := 0; i < 2; i++ {
		text, found, err := cache.LookupSignature(ctx, hit)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "transfer(address,uint256)", text)

		_, found, err = cache.LookupSignature(ctx, miss)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.LessOrEqual(t, base.calls, 2)

	stored, err := client.Get(ctx, signatureKeyPrefix+miss).Result()
	require.NoError(t, err)
	assert.Equal(t, noMatchMarker, stored)
}
