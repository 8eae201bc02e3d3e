package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/domain/runs"
	"github.com/bryanwahyu/automaton-tod/internal/infra/db/postgres"
)

// Runs against a real database only when TOD_TEST_POSTGRES_DSN is set.
func TestRunRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("TOD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TOD_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := postgres.NewRunRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	tenant := "test-" + uuid.NewString()[:8]
	started := time.Now().UTC().Truncate(time.Millisecond)
	results := map[controls.Dimension]controls.DimensionResult{}
	for _, d := range controls.Dimensions {
		results[d] = controls.DimensionResult{Dimension: d, Rating: controls.RatingEffective, Answer: "Yes"}
	}
	report := &controls.AnalysisReport{ID: uuid.NewString(), SourceName: "in.xlsx", Model: "gpt-4o", StartedAt: started, FinishedAt: started.Add(time.Second)}
	report.Add(controls.ControlAnalysis{Control: controls.ControlRecord{Row: 2, ControlID: "C1", RiskID: "R1"}, Results: results})

	run := runs.FromReport(tenant, report)
	require.NoError(t, repo.Save(ctx, run, report.Controls))
	run.ReportURL = "http://minio/reports/x.xlsx"
	require.NoError(t, repo.Save(ctx, run, report.Controls))

	got, err := repo.Get(ctx, tenant, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ReportURL, got.ReportURL)
	require.Equal(t, 1, got.Counts.Overall()[controls.RatingEffective])

	_, err = repo.Get(ctx, tenant, "missing")
	require.ErrorIs(t, err, runs.ErrNotFound)

	list, err := repo.Paginate(ctx, tenant, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	failure := &runs.Failure{TenantID: tenant, RunID: run.ID, ControlID: "C1", Row: 2, Dimension: "frequency", Message: "timeout"}
	require.NoError(t, repo.SaveFailure(ctx, failure))
	require.NotZero(t, failure.ID)

	failures, err := repo.ListFailures(ctx, tenant, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "{}", failures[0].DetailsJSON)
}
