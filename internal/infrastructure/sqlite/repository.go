package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletscope/internal/application"
	"walletscope/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			address_key TEXT NOT NULL,
			address TEXT NOT NULL,
			chains TEXT NOT NULL,
			total_usd REAL NOT NULL,
			created_at INTEGER NOT NULL,
			report TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS runs_address_idx ON runs (address_key, created_at)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Consume stores the report; it makes the repository a report sink.
func (r *Repository) Consume(ctx context.Context, report domain.Report) error {
	return r.SaveRun(ctx, report)
}

func (r *Repository) SaveRun(ctx context.Context, report domain.Report) error {
	if report.RunID == "" {
		return errors.New("run id is required")
	}
	ctx, span := otel.Tracer("walletscope/sqlite").Start(ctx, "sqlite.SaveRun")
	span.SetAttributes(attribute.String("db.system", "sqlite"), attribute.String("run.id", report.RunID))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO runs (run_id, address_key, address, chains, total_usd, created_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			chains = excluded.chains,
			total_usd = excluded.total_usd,
			report = excluded.report`,
		report.RunID,
		application.RunKey(report.Profile.Address),
		report.Profile.Address,
		chainList(report),
		report.TotalNetWorthUSD,
		report.CreatedAt.UnixMilli(),
		string(payload),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Repository) LatestRun(ctx context.Context, address string) (domain.Report, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE address_key = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, application.RunKey(address)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Report{}, false, nil
		}
		return domain.Report{}, false, err
	}
	var report domain.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return domain.Report{}, false, fmt.Errorf("decode report: %w", err)
	}
	return report, true, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func chainList(report domain.Report) string {
	ids := make([]string, 0, len(report.Chains))
	for _, chain := range report.Chains {
		ids = append(ids, chain.Chain)
	}
	return strings.Join(ids, ",")
}
