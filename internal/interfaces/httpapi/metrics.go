package httpapi

import (
	"net/http"
	"time"

	"walletscope/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pipeline progress. It implements application.Observer and
// application.SelectorObserver.
type Metrics struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	actions          *prometheus.CounterVec
	holdings         *prometheus.GaugeVec
	selectorLookups  *prometheus.CounterVec
	fetchErrors      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	startTime := time.Now()
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "walletscope_uptime_seconds",
		Help: "Seconds since the process started",
	}, func() float64 { return time.Since(startTime).Seconds() })

	return &Metrics{
		registry: registry,
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletscope_analyses_total",
			Help: "Finished analyses by status",
		}, []string{"status"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletscope_analysis_duration_seconds",
			Help:    "Wall time of one multi-chain analysis",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletscope_actions_total",
			Help: "Classified actions by chain and kind",
		}, []string{"chain", "kind"}),
		holdings: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletscope_last_holdings",
			Help: "Holdings in the most recently assembled record per chain",
		}, []string{"chain"}),
		selectorLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletscope_selector_lookups_total",
			Help: "Selector resolutions by outcome",
		}, []string{"outcome"}),
		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletscope_fetch_errors_total",
			Help: "Upstream fetch failures by chain and source",
		}, []string{"chain", "source"}),
	}
}

func (m *Metrics) OnFetchError(chainID, source string, _ error) {
	m.fetchErrors.WithLabelValues(chainID, source).Inc()
}

func (m *Metrics) OnChainAssembled(record domain.ChainRecord) {
	for _, action := range record.Actions {
		m.actions.WithLabelValues(record.Chain, string(action.Kind)).Inc()
	}
	m.holdings.WithLabelValues(record.Chain).Set(float64(len(record.Holdings)))
}

func (m *Metrics) OnAnalysisFinished(status string, duration time.Duration) {
	m.analyses.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

func (m *Metrics) OnSelectorLookup(outcome string) {
	m.selectorLookups.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
