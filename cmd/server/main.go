package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletscope/internal/bootstrap"
	"walletscope/internal/config"
	"walletscope/internal/infrastructure/logging"
	"walletscope/internal/infrastructure/telemetry"
	"walletscope/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logFile, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Service:    "walletscope-server",
	})
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "walletscope-server", cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown error", "err", err)
		}
	}()

	metrics := httpapi.NewMetrics()
	rt, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		Observer:         metrics,
		SelectorObserver: metrics,
	})
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}()

	var runs httpapi.RunReader
	if rt.Store != nil {
		runs = rt.Store
	}
	server, err := httpapi.NewServer(rt.Analyzer, runs, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}, 0)
	if err != nil {
		log.Fatalf("http server error: %v", err)
	}

	slog.Info("http server listening", "addr", cfg.HTTPAddr, "chains", rt.Analyzer.EnabledChains())
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("http server error", "err", err)
	}
}
