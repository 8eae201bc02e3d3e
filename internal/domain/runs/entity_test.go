package runs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/domain/runs"
)

func TestFromReport(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	results := make(map[controls.Dimension]controls.DimensionResult, len(controls.Dimensions))
	for _, d := range controls.Dimensions {
		results[d] = controls.DimensionResult{Dimension: d, Rating: controls.RatingEffective}
	}
	results[controls.DimensionFrequency] = controls.NotAnalyzed(controls.DimensionFrequency, nil)

	report := &controls.AnalysisReport{
		ID:         "run-1",
		SourceName: "controls.xlsx",
		Model:      "gpt-4o",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	report.Add(controls.ControlAnalysis{Control: controls.ControlRecord{Row: 2, ControlID: "C1"}, Results: results})

	run := runs.FromReport("acme", report)
	require.Equal(t, runs.RunID("run-1"), run.ID)
	require.Equal(t, "acme", run.TenantID)
	require.Equal(t, runs.StatusCompleted, run.Status)
	require.Equal(t, 1, run.Controls)
	require.Equal(t, 1, run.NotAnalyzed)
	require.Equal(t, 1, run.Counts.Overall()[controls.RatingEffective])
	require.Equal(t, started.Add(time.Minute), run.FinishedAt)
}
