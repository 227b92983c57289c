// Package rediscache shares resolved method signatures between processes.
package rediscache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"walletscope/internal/application"

	"github.com/redis/go-redis/v9"
)

const (
	signatureKeyPrefix = "walletscope:sig:"
	// noMatchMarker records a selector the registry does not know.
	noMatchMarker   = "-"
	defaultCacheTTL = 7 * 24 * time.Hour
)

type Config struct {
	Addr string
	TTL  time.Duration
}

// SignatureCache is a read-through cache in front of a SignatureLookup.
type SignatureCache struct {
	base  application.SignatureLookup
	cache *redis.Client
	ttl   time.Duration
}

// NewSignatureCache connects to redis. An empty address disables caching and
// every lookup goes straight to base.
func NewSignatureCache(ctx context.Context, base application.SignatureLookup, cfg Config) (*SignatureCache, error) {
	if base == nil {
		return nil, errors.New("base lookup is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &SignatureCache{base: base}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newSignatureCache(base, client, cfg.TTL), nil
}

func newSignatureCache(base application.SignatureLookup, client *redis.Client, ttl time.Duration) *SignatureCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SignatureCache{base: base, cache: client, ttl: ttl}
}

func (c *SignatureCache) LookupSignature(ctx context.Context, selector string) (string, bool, error) {
	if c.cache == nil {
		return c.base.LookupSignature(ctx, selector)
	}
	key := signatureKeyPrefix + strings.ToLower(selector)
	cached, err := c.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == noMatchMarker {
			return "", false, nil
		}
		return cached, true, nil
	case !errors.Is(err, redis.Nil):
		slog.Debug("signature cache read failed", "selector", selector, "err", err)
	}

	text, found, err := c.base.LookupSignature(ctx, selector)
	if err != nil {
		return "", false, err
	}
	value := text
	if !found || text == "" {
		value = noMatchMarker
	}
	if err := c.cache.Set(ctx, key, value, c.ttl).Err(); err != nil {
		slog.Debug("signature cache write failed", "selector", selector, "err", err)
	}
	return text, found, nil
}

func (c *SignatureCache) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
