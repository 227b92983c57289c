package application

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"walletscope/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ActivityLimits bounds how many records a source returns per feed.
type ActivityLimits struct {
	Transactions int
	Transfers    int
}

// ActivitySource fetches the transaction and token-transfer feeds of an
// address, newest first. A source may return partial activity together with
// an error when one of the feeds failed.
type ActivitySource interface {
	FetchActivity(ctx context.Context, address string, limits ActivityLimits) (domain.Activity, error)
}

// HoldingsSource reads current balances.
type HoldingsSource interface {
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalances(ctx context.Context, holder string, contracts []string) ([]domain.TokenBalance, error)
}

// ChainSources wires the collaborators for one chain.
type ChainSources struct {
	Chain    domain.Chain
	Activity ActivitySource
	Holdings HoldingsSource
}

// Observer receives progress from the assembler and the analyzer.
type Observer interface {
	OnFetchError(chainID, source string, err error)
	OnChainAssembled(record domain.ChainRecord)
	OnAnalysisFinished(status string, duration time.Duration)
}

type AssemblerConfig struct {
	MaxActions     int
	TransferLimit  int
	DiscoveryLimit int
	HoldingsLimit  int
}

// Assembler produces one ChainRecord per chain. It never fails: upstream
// errors degrade to empty input.
type Assembler struct {
	classifier *Classifier
	protocols  *ProtocolRegistry
	observer   Observer
	cfg        AssemblerConfig
}

func NewAssembler(classifier *Classifier, protocols *ProtocolRegistry, observer Observer, cfg AssemblerConfig) *Assembler {
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = 50
	}
	if cfg.TransferLimit <= 0 {
		cfg.TransferLimit = 100
	}
	if cfg.DiscoveryLimit <= 0 {
		cfg.DiscoveryLimit = 50
	}
	if cfg.HoldingsLimit <= 0 {
		cfg.HoldingsLimit = 10
	}
	if protocols == nil {
		protocols = NewProtocolRegistry()
	}
	return &Assembler{classifier: classifier, protocols: protocols, observer: observer, cfg: cfg}
}

// Assemble builds the record for address on one chain. address must already
// be canonical for the chain.
func (a *Assembler) Assemble(ctx context.Context, sources ChainSources, address string) domain.ChainRecord {
	chain := sources.Chain
	ctx, span := otel.Tracer("walletscope/application").Start(ctx, "assemble.chain")
	defer span.End()
	span.SetAttributes(attribute.String("chain.id", chain.ID))

	record := domain.ChainRecord{Chain: chain.ID}

	var activity domain.Activity
	if sources.Activity != nil {
		fetched, err := sources.Activity.FetchActivity(ctx, address, ActivityLimits{
			Transactions: a.cfg.MaxActions,
			Transfers:    a.cfg.TransferLimit,
		})
		if err != nil {
			a.fetchError(chain.ID, "activity", err)
			span.RecordError(err)
		}
		activity = fetched
	}

	canon, _ := a.protocols.Canonicalizer(chain.ID)
	record.Holdings = a.holdings(ctx, sources, address, DiscoverTokenContracts(activity.Transfers, canon, a.cfg.DiscoveryLimit))

	actions := a.classifier.ClassifyAll(ctx, chain.ID, address, activity.Transactions, IndexTransfers(activity.Transfers))
	if len(actions) > a.cfg.MaxActions {
		actions = actions[:a.cfg.MaxActions]
	}
	record.Actions = actions
	record.Features = ComputeFeatures(actions)

	span.SetAttributes(
		attribute.Int("actions", len(record.Actions)),
		attribute.Int("holdings", len(record.Holdings)),
	)
	slog.Debug("chain assembled",
		"chain", chain.ID,
		"transactions", len(activity.Transactions),
		"transfers", len(activity.Transfers),
		"actions", len(record.Actions),
		"holdings", len(record.Holdings),
	)
	if a.observer != nil {
		a.observer.OnChainAssembled(record)
	}
	return record
}

func (a *Assembler) holdings(ctx context.Context, sources ChainSources, address string, contracts []string) []domain.Holding {
	if sources.Holdings == nil {
		return nil
	}
	chain := sources.Chain
	holdings := make([]domain.Holding, 0, a.cfg.HoldingsLimit)

	native, err := sources.Holdings.NativeBalance(ctx, address)
	if err != nil {
		a.fetchError(chain.ID, "native_balance", err)
	} else if native != nil && native.Sign() > 0 {
		holdings = append(holdings, domain.Holding{
			Symbol:   chain.NativeSymbol,
			Decimals: chain.NativeDecimals,
			Balance:  domain.ScaleAmount(native, chain.NativeDecimals),
			Chain:    chain.ID,
		})
	}

	tokens, err := sources.Holdings.TokenBalances(ctx, address, contracts)
	if err != nil {
		a.fetchError(chain.ID, "token_balances", err)
	}
	for _, token := range tokens {
		if len(holdings) >= a.cfg.HoldingsLimit {
			break
		}
		if token.Raw == nil || token.Raw.Sign() <= 0 {
			continue
		}
		symbol := token.Symbol
		if symbol == "" {
			symbol = domain.UnknownSymbol
		}
		holdings = append(holdings, domain.Holding{
			Symbol:   symbol,
			Contract: token.Contract,
			Decimals: token.Decimals,
			Balance:  domain.ScaleAmount(token.Raw, token.Decimals),
			Chain:    chain.ID,
		})
	}
	return holdings
}

func (a *Assembler) fetchError(chainID, source string, err error) {
	slog.Warn("chain fetch failed", "chain", chainID, "source", source, "err", err)
	if a.observer != nil {
		a.observer.OnFetchError(chainID, source, err)
	}
}
