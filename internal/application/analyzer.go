package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"walletscope/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoActivity is returned when no enabled chain produced data.
	ErrNoActivity = errors.New("no on-chain activity found")
	// ErrNoChains is returned when the address is not valid on any enabled chain.
	ErrNoChains = errors.New("address is not valid on any enabled chain")
)

// Summarizer writes a natural-language analysis of the chain records.
type Summarizer interface {
	Summarize(ctx context.Context, profile domain.Profile, chains []domain.ChainRecord) (string, error)
}

// ReportSink receives every finished report.
type ReportSink interface {
	Consume(ctx context.Context, report domain.Report) error
}

type AnalyzerConfig struct {
	Workers int
}

// AnalyzeOptions tunes a single run.
type AnalyzeOptions struct {
	Summarize bool
}

// Analyzer runs the assembler over every enabled chain and builds a report.
type Analyzer struct {
	assembler  *Assembler
	protocols  *ProtocolRegistry
	chains     []ChainSources
	prices     PriceSource
	summarizer Summarizer
	sinks      []ReportSink
	observer   Observer
	cfg        AnalyzerConfig
	now        func() time.Time
	newID      func() string
}

func NewAnalyzer(assembler *Assembler, protocols *ProtocolRegistry, chains []ChainSources, prices PriceSource, summarizer Summarizer, sinks []ReportSink, observer Observer, cfg AnalyzerConfig) (*Analyzer, error) {
	if assembler == nil || protocols == nil {
		return nil, errors.New("analyzer dependencies must not be nil")
	}
	if len(chains) == 0 {
		return nil, errors.New("at least one chain must be enabled")
	}
	for _, chain := range chains {
		if _, ok := protocols.Canonicalizer(chain.Chain.ID); !ok {
			return nil, fmt.Errorf("no canonicalizer registered for chain %s", chain.Chain.ID)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Analyzer{
		assembler:  assembler,
		protocols:  protocols,
		chains:     chains,
		prices:     prices,
		summarizer: summarizer,
		sinks:      sinks,
		observer:   observer,
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// EnabledChains returns the identifiers of the configured chains.
func (a *Analyzer) EnabledChains() []string {
	ids := make([]string, 0, len(a.chains))
	for _, chain := range a.chains {
		ids = append(ids, chain.Chain.ID)
	}
	return ids
}

// Analyze builds the multi-chain report for address.
func (a *Analyzer) Analyze(ctx context.Context, address string, opts AnalyzeOptions) (domain.Report, error) {
	start := a.now()
	ctx, span := otel.Tracer("walletscope/application").Start(ctx, "analyze")
	defer span.End()

	report, err := a.analyze(ctx, strings.TrimSpace(address), opts)
	status := "ok"
	switch {
	case errors.Is(err, ErrNoActivity):
		status = "empty"
	case err != nil:
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if a.observer != nil {
		a.observer.OnAnalysisFinished(status, a.now().Sub(start))
	}
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, address string, opts AnalyzeOptions) (domain.Report, error) {
	type target struct {
		sources ChainSources
		address string
	}
	var targets []target
	for _, sources := range a.chains {
		canon, _ := a.protocols.Canonicalizer(sources.Chain.ID)
		canonical, err := canon.Canonicalize(address)
		if err != nil {
			slog.Debug("address not valid on chain", "chain", sources.Chain.ID, "address", address)
			continue
		}
		targets = append(targets, target{sources: sources, address: canonical})
	}
	if len(targets) == 0 {
		return domain.Report{}, ErrNoChains
	}

	records := make([]domain.ChainRecord, len(targets))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.cfg.Workers)
	for i, t := range targets {
		group.Go(func() error {
			slog.Info("analyzing chain", "chain", t.sources.Chain.ID, "address", t.address)
			records[i] = a.assembler.Assemble(groupCtx, t.sources, t.address)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return domain.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}

	chains := make([]domain.ChainRecord, 0, len(records))
	for _, record := range records {
		if record.Empty() {
			continue
		}
		chains = append(chains, record)
	}
	if len(chains) == 0 {
		return domain.Report{}, ErrNoActivity
	}

	report := domain.Report{
		RunID:     a.newID(),
		Profile:   domain.Profile{Address: address, Kind: "EOA"},
		Chains:    chains,
		CreatedAt: a.now().UTC(),
	}
	report.TotalNetWorthUSD = ApplyPrices(ctx, a.prices, report.Chains)

	if opts.Summarize && a.summarizer != nil {
		analysis, err := a.summarizer.Summarize(ctx, report.Profile, report.Chains)
		if err != nil {
			slog.Warn("summarizer failed", "err", err)
			analysis = fmt.Sprintf("analysis unavailable: %v", err)
		}
		report.Analysis = analysis
	}

	a.deliver(ctx, report)
	return report, nil
}

func (a *Analyzer) deliver(ctx context.Context, report domain.Report) {
	ctx, span := otel.Tracer("walletscope/application").Start(ctx, "deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Int("sinks", len(a.sinks)),
	)
	for _, sink := range a.sinks {
		if err := sink.Consume(ctx, report); err != nil {
			span.RecordError(err)
			slog.Warn("report sink failed", "run_id", report.RunID, "sink", fmt.Sprintf("%T", sink), "err", err)
		}
	}
}
