package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"walletscope/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func report(runID, address string, createdAt time.Time, total float64) domain.Report {
	return domain.Report{
		RunID:            runID,
		Profile:          domain.Profile{Address: address, Kind: "EOA"},
		Chains:           []domain.ChainRecord{{Chain: "eth", Actions: []domain.ClassifiedAction{{Hash: "0x01", Kind: domain.ActionSwap}}}},
		TotalNetWorthUSD: total,
		CreatedAt:        createdAt,
	}
}

func TestSaveAndLatestRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Consume(ctx, report("run-1", "0xAbCd000000000000000000000000000000000001", base, 10)))
	require.NoError(t, repo.Consume(ctx, report("run-2", "0xAbCd000000000000000000000000000000000001", base.Add(time.Minute), 20)))
	require.NoError(t, repo.Consume(ctx, report("run-3", "0x9999000000000000000000000000000000000009", base.Add(time.Hour), 30)))

	latest, ok, err := repo.LatestRun(ctx, "0xabcd000000000000000000000000000000000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", latest.RunID)
	assert.Equal(t, 20.0, latest.TotalNetWorthUSD)
	assert.Equal(t, domain.ActionSwap, latest.Chains[0].Actions[0].Kind)
	assert.True(t, latest.CreatedAt.Equal(base.Add(time.Minute)))
}

func TestSaveRunUpserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveRun(ctx, report("run-1", "So11111111111111111111111111111111111111112", created, 1)))
	require.NoError(t, repo.SaveRun(ctx, report("run-1", "So11111111111111111111111111111111111111112", created, 2)))

	latest, ok, err := repo.LatestRun(ctx, "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, latest.TotalNetWorthUSD)

	var count int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLatestRunMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, ok, err := repo.LatestRun(context.Background(), "0x0")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestSaveRunRequiresRunID(t *testing.T) {
	repo := newTestRepository(t)
	assert.Error(t, repo.SaveRun(context.Background(), domain.Report{}))
}

func TestChainList(t *testing.T) {
	assert.Equal(t, "eth,sol", chainList(domain.Report{Chains: []domain.ChainRecord{{Chain: "eth"}, {Chain: "sol"}}}))
}
