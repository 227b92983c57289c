package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"walletscope/internal/application"
	"walletscope/internal/domain"
)

type Analyzer interface {
	Analyze(ctx context.Context, address string, opts application.AnalyzeOptions) (domain.Report, error)
	EnabledChains() []string
}

// RunReader serves stored runs.
type RunReader interface {
	LatestRun(ctx context.Context, address string) (domain.Report, bool, error)
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	analyzer       Analyzer
	runs           RunReader
	metrics        *Metrics
	buildInfo      BuildInfo
	analyzeTimeout time.Duration
}

// NewServer builds the API. runs may be nil when no store is configured.
func NewServer(analyzer Analyzer, runs RunReader, metrics *Metrics, buildInfo BuildInfo, analyzeTimeout time.Duration) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if analyzeTimeout <= 0 {
		analyzeTimeout = 3 * time.Minute
	}
	return &Server{analyzer: analyzer, runs: runs, metrics: metrics, buildInfo: buildInfo, analyzeTimeout: analyzeTimeout}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/version", s.handleVersion)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/runs/latest", s.handleLatestRun)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "db not ready")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"chains": s.analyzer.EnabledChains(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}
	summarize, err := parseBoolParam(r, "summarize")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.analyzeTimeout)
	defer cancel()
	report, err := s.analyzer.Analyze(ctx, address, application.AnalyzeOptions{Summarize: summarize})
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, report)
	case errors.Is(err, application.ErrNoChains):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrNoActivity):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("analysis failed", "address", address, "err", err)
		respondError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusNotImplemented, "run store is not configured")
		return
	}
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}
	report, ok, err := s.runs.LatestRun(r.Context(), address)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no runs for address")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func parseBoolParam(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("invalid " + key)
	}
	return value, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
