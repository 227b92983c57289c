package application

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"walletscope/internal/domain"
)

// hexCanon lowercases 0x addresses; anything else is invalid.
type hexCanon struct{}

func (hexCanon) Canonicalize(address string) (string, error) {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return "", domain.ErrInvalidAddress
	}
	return strings.ToLower(address), nil
}

type fakeLookup struct {
	mu      sync.Mutex
	answers map[string]string
	err     error
	calls   map[string]int
}

func newFakeLookup(answers map[string]string) *fakeLookup {
	return &fakeLookup{answers: answers, calls: make(map[string]int)}
}

func (f *fakeLookup) LookupSignature(_ context.Context, selector string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[selector]++
	if f.err != nil {
		return "", false, f.err
	}
	text, ok := f.answers[selector]
	return text, ok, nil
}

func (f *fakeLookup) count(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[selector]
}

type recordingObserver struct {
	mu        sync.Mutex
	errors    []string
	assembled []domain.ChainRecord
	statuses  []string
	outcomes  []string
}

func (o *recordingObserver) OnFetchError(chainID, source string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, chainID+"/"+source)
}

func (o *recordingObserver) OnChainAssembled(record domain.ChainRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assembled = append(o.assembled, record)
}

func (o *recordingObserver) OnAnalysisFinished(status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) OnSelectorLookup(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type fakeActivity struct {
	activity domain.Activity
	err      error
	limits   ActivityLimits
}

func (f *fakeActivity) FetchActivity(_ context.Context, _ string, limits ActivityLimits) (domain.Activity, error) {
	f.limits = limits
	return f.activity, f.err
}

type fakeHoldings struct {
	native    *big.Int
	nativeErr error
	tokens    []domain.TokenBalance
	tokensErr error
	contracts []string
}

func (f *fakeHoldings) NativeBalance(context.Context, string) (*big.Int, error) {
	return f.native, f.nativeErr
}

func (f *fakeHoldings) TokenBalances(_ context.Context, _ string, contracts []string) ([]domain.TokenBalance, error) {
	f.contracts = contracts
	return f.tokens, f.tokensErr
}

type fakePrices struct {
	prices map[string]float64
	err    error
	keys   []string
}

func (f *fakePrices) Prices(_ context.Context, keys []string) (map[string]float64, error) {
	f.keys = keys
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, key := range keys {
		if price, ok := f.prices[key]; ok {
			out[key] = price
		}
	}
	return out, nil
}

type fakeSummarizer struct {
	text string
	err  error
}

func (f fakeSummarizer) Summarize(context.Context, domain.Profile, []domain.ChainRecord) (string, error) {
	return f.text, f.err
}

type memorySink struct {
	reports []domain.Report
	err     error
}

func (s *memorySink) Consume(_ context.Context, report domain.Report) error {
	s.reports = append(s.reports, report)
	return s.err
}

var errUpstream = errors.New("upstream down")

func wei(s string) *big.Int {
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return value
}
