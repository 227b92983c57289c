package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// selectorLength is "0x" plus four bytes of hex.
const selectorLength = 10

// SignatureLookup queries an external registry for a selector's readable text.
// A selector without candidates is reported as found=false with a nil error.
type SignatureLookup interface {
	LookupSignature(ctx context.Context, selector string) (text string, found bool, err error)
}

// SelectorObserver is notified about every resolution outcome.
type SelectorObserver interface {
	OnSelectorLookup(outcome string)
}

const (
	SelectorCacheHit = "cache_hit"
	SelectorResolved = "resolved"
	SelectorNoMatch  = "no_match"
	SelectorError    = "error"
)

type selectorEntry struct {
	text  string
	found bool
}

// SelectorResolver maps method selectors to signatures. Resolved entries,
// including "no match", stay cached for the lifetime of the resolver.
type SelectorResolver struct {
	lookup   SignatureLookup
	observer SelectorObserver

	mu     sync.RWMutex
	cache  map[string]selectorEntry
	flight singleflight.Group
}

func NewSelectorResolver(lookup SignatureLookup, observer SelectorObserver) *SelectorResolver {
	return &SelectorResolver{
		lookup:   lookup,
		observer: observer,
		cache:    make(map[string]selectorEntry),
	}
}

// Selector extracts the lowercase 4-byte selector from calldata.
func Selector(input string) (string, bool) {
	if input == "" || input == "0x" || len(input) < selectorLength {
		return "", false
	}
	return strings.ToLower(input[:selectorLength]), true
}

// Resolve returns the readable signature for the calldata's selector, or
// false when there is none.
func (r *SelectorResolver) Resolve(ctx context.Context, input string) (string, bool) {
	key, ok := Selector(input)
	if !ok {
		return "", false
	}

	r.mu.RLock()
	entry, cached := r.cache[key]
	r.mu.RUnlock()
	if cached {
		r.observe(SelectorCacheHit)
		return entry.text, entry.found
	}
	if r.lookup == nil {
		return "", false
	}

	// The shared lookup outlives any single caller; each caller stops
	// waiting on its own context.
	lookupCtx := context.WithoutCancel(ctx)
	results := r.flight.DoChan(key, func() (any, error) {
		r.mu.RLock()
		entry, cached := r.cache[key]
		r.mu.RUnlock()
		if cached {
			return entry, nil
		}
		text, found, err := r.lookup.LookupSignature(lookupCtx, key)
		if err != nil {
			return nil, err
		}
		entry = selectorEntry{text: text, found: found && text != ""}
		r.mu.Lock()
		r.cache[key] = entry
		r.mu.Unlock()
		if entry.found {
			r.observe(SelectorResolved)
		} else {
			r.observe(SelectorNoMatch)
		}
		return entry, nil
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		slog.Warn("signature lookup abandoned", "selector", key, "err", ctx.Err())
		r.observe(SelectorError)
		return "", false
	case result = <-results:
	}
	if result.Err != nil {
		// Errors are not cached; the next occurrence retries the lookup.
		slog.Warn("signature lookup failed", "selector", key, "err", result.Err)
		r.observe(SelectorError)
		return "", false
	}
	entry = result.Val.(selectorEntry)
	return entry.text, entry.found
}

// CacheSize returns the number of cached selectors.
func (r *SelectorResolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *SelectorResolver) observe(outcome string) {
	if r.observer != nil {
		r.observer.OnSelectorLookup(outcome)
	}
}
