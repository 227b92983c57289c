package mysql

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

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR(36) NOT NULL,
			address_key VARCHAR(64) NOT NULL,
			address VARCHAR(64) NOT NULL,
			chains VARCHAR(64) NOT NULL,
			total_usd DOUBLE NOT NULL,
			created_at BIGINT NOT NULL,
			report MEDIUMTEXT NOT NULL,
			PRIMARY KEY (run_id),
			KEY runs_address_idx (address_key, created_at)
		)`,
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
	ctx, span := startDBSpan(ctx, "mysql.SaveRun",
		attribute.String("run.id", report.RunID),
		attribute.Int("chain.count", len(report.Chains)),
	)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO runs (run_id, address_key, address, chains, total_usd, created_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			chains = VALUES(chains),
			total_usd = VALUES(total_usd),
			report = VALUES(report)`,
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
	ctx, span := startDBSpan(ctx, "mysql.LatestRun")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE address_key = ?
		ORDER BY created_at DESC LIMIT 1`, application.RunKey(address)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Report{}, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
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

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mysql"))
	return otel.Tracer("walletscope/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
