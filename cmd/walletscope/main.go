package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"walletscope/internal/application"
	"walletscope/internal/bootstrap"
	"walletscope/internal/config"
	"walletscope/internal/infrastructure/logging"
	"walletscope/internal/infrastructure/report"
	"walletscope/internal/infrastructure/telemetry"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(os.Stderr, "usage: walletscope <address>\n(walletscope %s, commit %s, built %s)\n", version, commit, buildTime)
		return 2
	}
	address := strings.TrimSpace(args[0])

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logFile, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Console:    os.Stderr,
		Service:    "walletscope",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "walletscope-cli", cfg.OtelEndpoint)
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

	rt, err := bootstrap.Build(ctx, cfg, bootstrap.Options{WriteFiles: true})
	if err != nil {
		slog.Error("startup failed", "err", err)
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}()

	result, err := rt.Analyzer.Analyze(ctx, address, application.AnalyzeOptions{Summarize: true})
	switch {
	case errors.Is(err, application.ErrNoChains):
		fmt.Fprintf(os.Stderr, "%s is not a valid address on any enabled chain (%s)\n", address, strings.Join(rt.Analyzer.EnabledChains(), ", "))
		return 1
	case errors.Is(err, application.ErrNoActivity):
		fmt.Fprintf(os.Stderr, "no on-chain activity found for %s\n", address)
		return 1
	case err != nil:
		slog.Error("analysis failed", "address", address, "err", err)
		return 1
	}

	report.WriteConsole(os.Stdout, result)
	if rt.Files != nil {
		jsonPath, csvPath := rt.Files.Paths(result.Profile.Address)
		fmt.Fprintf(os.Stdout, "\nSaved: %s, %s\n", jsonPath, csvPath)
	}
	return 0
}
