// Package bootstrap wires configuration into a ready analyzer and its sinks.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"walletscope/internal/application"
	"walletscope/internal/config"
	"walletscope/internal/domain"
	"walletscope/internal/infrastructure/address"
	"walletscope/internal/infrastructure/defillama"
	"walletscope/internal/infrastructure/ethrpc"
	"walletscope/internal/infrastructure/explorer"
	"walletscope/internal/infrastructure/fourbyte"
	"walletscope/internal/infrastructure/helius"
	"walletscope/internal/infrastructure/httpjson"
	"walletscope/internal/infrastructure/kafka"
	"walletscope/internal/infrastructure/llm"
	"walletscope/internal/infrastructure/rediscache"
	"walletscope/internal/infrastructure/report"
	"walletscope/internal/infrastructure/storage"
)

type Options struct {
	Observer         application.Observer
	SelectorObserver application.SelectorObserver
	// WriteFiles adds the JSON/CSV report writer as a sink.
	WriteFiles bool
}

// Runtime owns every long-lived collaborator built from configuration.
type Runtime struct {
	Analyzer *application.Analyzer
	Store    application.RunStore
	Files    *report.FileWriter

	closers []func() error
}

// Close releases connections in reverse construction order.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Build(ctx context.Context, cfg config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{}
	analyzer, err := build(ctx, cfg, opts, rt)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Analyzer = analyzer
	return rt, nil
}

func build(ctx context.Context, cfg config.Config, opts Options, rt *Runtime) (*application.Analyzer, error) {
	protocols, err := buildProtocols(cfg)
	if err != nil {
		return nil, err
	}

	explorerHTTP := httpjson.NewClient(httpjson.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries, RPS: cfg.ExplorerRPS})
	signatureHTTP := httpjson.NewClient(httpjson.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries, RPS: cfg.SignatureRPS})
	plainHTTP := httpjson.NewClient(httpjson.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries})

	signatures, err := fourbyte.NewClient(signatureHTTP, cfg.FourByteURL)
	if err != nil {
		return nil, err
	}
	var lookup application.SignatureLookup = signatures
	if cfg.RedisAddr != "" {
		cache, err := rediscache.NewSignatureCache(ctx, signatures, rediscache.Config{Addr: cfg.RedisAddr, TTL: cfg.SignatureCacheTTL})
		if err != nil {
			slog.Warn("redis signature cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			lookup = cache
			rt.closers = append(rt.closers, cache.Close)
		}
	}

	resolver := application.NewSelectorResolver(lookup, opts.SelectorObserver)
	classifier := application.NewClassifier(resolver, protocols)
	assembler := application.NewAssembler(classifier, protocols, opts.Observer, application.AssemblerConfig{
		MaxActions:     cfg.MaxTxPerChain,
		TransferLimit:  cfg.TokenTxLimit,
		DiscoveryLimit: cfg.TokenDiscoveryLimit,
		HoldingsLimit:  cfg.HoldingsLimit,
	})

	chains, err := buildChains(ctx, cfg, rt, explorerHTTP, plainHTTP)
	if err != nil {
		return nil, err
	}

	prices, err := defillama.NewClient(plainHTTP, cfg.PriceURL)
	if err != nil {
		return nil, err
	}

	var summarizer application.Summarizer
	if cfg.LLMAPIKey != "" {
		llmSummarizer, err := llm.NewSummarizer(llm.Config{APIKey: cfg.LLMAPIKey, BaseURL: cfg.LLMBaseURL, Model: cfg.LLMModel})
		if err != nil {
			return nil, err
		}
		summarizer = llmSummarizer
	} else {
		slog.Info("DEEPSEEK_API_KEY not set, summaries disabled")
	}

	sinks, err := buildSinks(cfg, rt, opts)
	if err != nil {
		return nil, err
	}

	return application.NewAnalyzer(assembler, protocols, chains, prices, summarizer, sinks, opts.Observer, application.AnalyzerConfig{
		Workers: cfg.ChainWorkers,
	})
}

func buildProtocols(cfg config.Config) (*application.ProtocolRegistry, error) {
	overrides, err := config.LoadProtocols(cfg.ProtocolsFile)
	if err != nil {
		return nil, err
	}
	registry := application.NewProtocolRegistry()
	for _, chain := range domain.Chains {
		if err := registry.Register(chain.ID, address.ForChain(chain), application.DefaultProtocols[chain.ID]); err != nil {
			return nil, err
		}
	}
	for chainID, entries := range overrides {
		chain, err := domain.ChainByID(chainID)
		if err != nil {
			return nil, fmt.Errorf("protocols file: %w", err)
		}
		if err := registry.Register(chain.ID, nil, entries); err != nil {
			return nil, fmt.Errorf("protocols file: %w", err)
		}
	}
	return registry, nil
}

func buildChains(ctx context.Context, cfg config.Config, rt *Runtime, explorerHTTP, plainHTTP *httpjson.Client) ([]application.ChainSources, error) {
	var chains []application.ChainSources
	for _, chain := range domain.Chains {
		if !cfg.ChainEnabled(chain.ID) {
			slog.Info("chain disabled", "chain", chain.ID)
			continue
		}
		sources := application.ChainSources{Chain: chain}
		switch chain.Kind {
		case domain.ChainKindEVM:
			activity, err := explorer.NewClient(explorerHTTP, explorer.Config{
				BaseURL: cfg.EtherscanAPIURL,
				APIKey:  cfg.EtherscanAPIKey,
				ChainID: chain.ExplorerChainID,
			})
			if err != nil {
				return nil, fmt.Errorf("%s explorer: %w", chain.ID, err)
			}
			holdings, err := ethrpc.NewClient(ctx, ethrpc.Config{URL: cfg.RPCURL(chain.ID), ChainID: chain.ID})
			if err != nil {
				return nil, fmt.Errorf("%s rpc: %w", chain.ID, err)
			}
			rt.closers = append(rt.closers, func() error { holdings.Close(); return nil })
			sources.Activity = activity
			sources.Holdings = holdings
		case domain.ChainKindSolana:
			client, err := helius.NewClient(plainHTTP, helius.Config{
				BaseURL: cfg.HeliusBaseURL,
				APIKey:  cfg.HeliusAPIKey,
				RPCURL:  cfg.HeliusRPCURL,
			})
			if err != nil {
				return nil, fmt.Errorf("%s helius: %w", chain.ID, err)
			}
			sources.Activity = client
			sources.Holdings = client
		}
		chains = append(chains, sources)
	}
	if len(chains) == 0 {
		return nil, errors.New("no chain is configured: set ETHERSCAN_API_KEY with INFURA_URL or BSC_RPC_URL, or HELIUS_API_KEY")
	}
	return chains, nil
}

func buildSinks(cfg config.Config, rt *Runtime, opts Options) ([]application.ReportSink, error) {
	var sinks []application.ReportSink

	store, err := storage.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	if store != nil {
		rt.Store = store
		rt.closers = append(rt.closers, store.Close)
		sinks = append(sinks, store)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.KafkaBrokers, TopicPrefix: cfg.KafkaTopicPrefix})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, producer.Close)
		sinks = append(sinks, producer)
	}

	if opts.WriteFiles {
		files, err := report.NewFileWriter(cfg.OutDir)
		if err != nil {
			return nil, err
		}
		rt.Files = files
		sinks = append(sinks, files)
	}
	return sinks, nil
}
