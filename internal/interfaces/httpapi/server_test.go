package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"walletscope/internal/application"
	"walletscope/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	report  domain.Report
	err     error
	address string
	opts    application.AnalyzeOptions
}

func (f *fakeAnalyzer) Analyze(_ context.Context, address string, opts application.AnalyzeOptions) (domain.Report, error) {
	f.address = address
	f.opts = opts
	return f.report, f.err
}

func (f *fakeAnalyzer) EnabledChains() []string {
	return []string{"eth", "sol"}
}

type fakeRuns struct {
	reports map[string]domain.Report
	err     error
	pingErr error
}

func (f *fakeRuns) LatestRun(_ context.Context, address string) (domain.Report, bool, error) {
	if f.err != nil {
		return domain.Report{}, false, f.err
	}
	report, ok := f.reports[address]
	return report, ok, nil
}

func (f *fakeRuns) Ping(context.Context) error {
	return f.pingErr
}

func newTestServer(t *testing.T, analyzer Analyzer, runs RunReader) *httptest.Server {
	t.Helper()
	server, err := NewServer(analyzer, runs, nil, BuildInfo{Version: "1.2.3", Commit: "abc", BuildTime: "now"}, time.Second)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, nil)

	var health map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])

	var info BuildInfo
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/version", &info))
	assert.Equal(t, BuildInfo{Version: "1.2.3", Commit: "abc", BuildTime: "now"}, info)
}

func TestReady(t *testing.T) {
	runs := &fakeRuns{}
	ts := newTestServer(t, &fakeAnalyzer{}, runs)

	var ready struct {
		Status string   `json:"status"`
		Chains []string `json:"chains"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/readyz", &ready))
	assert.Equal(t, []string{"eth", "sol"}, ready.Chains)

	runs.pingErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/readyz", nil))
}

func TestAnalyze(t *testing.T) {
	analyzer := &fakeAnalyzer{report: domain.Report{RunID: "run-1", Profile: domain.Profile{Address: "0xabc", Kind: "EOA"}}}
	ts := newTestServer(t, analyzer, nil)

	var report domain.Report
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/analyze?address=%200xabc%20&summarize=true", &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "0xabc", analyzer.address)
	assert.True(t, analyzer.opts.Summarize)

	resp, err := http.Post(ts.URL+"/analyze?address=0xabc", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, analyzer.opts.Summarize)
}

func TestAnalyzeErrors(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	ts := newTestServer(t, analyzer, nil)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/analyze", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/analyze?address=x&summarize=maybe", nil))

	analyzer.err = application.ErrNoChains
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/analyze?address=x", nil))

	analyzer.err = application.ErrNoActivity
	var body map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/analyze?address=x", &body))
	assert.Equal(t, application.ErrNoActivity.Error(), body["error"])

	analyzer.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts.URL+"/analyze?address=x", &body))
	assert.Equal(t, "analysis failed", body["error"])

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/analyze?address=x", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLatestRun(t *testing.T) {
	runs := &fakeRuns{reports: map[string]domain.Report{"0xabc": {RunID: "run-9"}}}
	ts := newTestServer(t, &fakeAnalyzer{}, runs)

	var report domain.Report
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/runs/latest?address=0xabc", &report))
	assert.Equal(t, "run-9", report.RunID)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/runs/latest?address=0xdef", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/runs/latest", nil))

	runs.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts.URL+"/runs/latest?address=0xabc", nil))
}

func TestLatestRunWithoutStore(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, nil)
	assert.Equal(t, http.StatusNotImplemented, getJSON(t, ts.URL+"/runs/latest?address=0xabc", nil))
}

func TestNewServerRequiresAnalyzer(t *testing.T) {
	_, err := NewServer(nil, nil, nil, BuildInfo{}, 0)
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	server, err := NewServer(&fakeAnalyzer{}, nil, metrics, BuildInfo{}, 0)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	metrics.OnAnalysisFinished("ok", 2*time.Second)
	metrics.OnSelectorLookup(application.SelectorCacheHit)
	metrics.OnFetchError("eth", "activity", errors.New("x"))
	metrics.OnChainAssembled(domain.ChainRecord{
		Chain:    "bsc",
		Actions:  []domain.ClassifiedAction{{Kind: domain.ActionSwap}, {Kind: domain.ActionSwap}, {Kind: domain.ActionApprove}},
		Holdings: []domain.Holding{{Symbol: "BNB"}},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.analyses.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.actions.WithLabelValues("bsc", "swap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.holdings.WithLabelValues("bsc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fetchErrors.WithLabelValues("eth", "activity")))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `walletscope_selector_lookups_total{outcome="cache_hit"} 1`))
	assert.Contains(t, text, "walletscope_analysis_duration_seconds_count 1")
	assert.Contains(t, text, "walletscope_uptime_seconds")
	assert.Contains(t, text, "go_goroutines")
}
