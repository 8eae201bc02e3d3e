package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	domain "github.com/bryanwahyu/automaton-tod/internal/domain/runs"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

var _ domain.Repository = (*RunRepository)(nil)

// Save inserts or updates the run and replaces its per-dimension results.
func (r *RunRepository) Save(ctx context.Context, run *domain.Run, results []controls.ControlAnalysis) error {
	const upsert = `
INSERT INTO tod_runs
  (id, tenant_id, source_name, model, status, report_url, controls, not_analyzed, counts_json, error_message, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status,
  report_url=EXCLUDED.report_url,
  controls=EXCLUDED.controls,
  not_analyzed=EXCLUDED.not_analyzed,
  counts_json=EXCLUDED.counts_json,
  error_message=EXCLUDED.error_message,
  finished_at=EXCLUDED.finished_at;
`
	const insertResult = `
INSERT INTO tod_results
  (run_id, row_no, control_id, risk_id, dimension, rating, answer, commentary, details_json)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = started
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsert,
		string(run.ID), stringOrDash(run.TenantID), stringOrDash(run.SourceName), stringOrDash(run.Model),
		string(run.Status), run.ReportURL, run.Controls, run.NotAnalyzed, validJSON(string(counts)),
		run.Error, started, finished,
	); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tod_results WHERE run_id=$1`, string(run.ID)); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertResult)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range results {
		for _, d := range controls.Dimensions {
			res := a.Result(d)
			if _, err := stmt.ExecContext(ctx,
				string(run.ID), a.Control.Row, stringOrDash(a.Control.ControlID), stringOrDash(a.Control.RiskID),
				string(d), string(res.Rating), res.Answer, res.Commentary, resultDetails(res),
			); err != nil {
				return fmt.Errorf("save result row %d %s: %w", a.Control.Row, d, err)
			}
		}
	}
	return tx.Commit()
}

const selectRun = `
SELECT id, tenant_id, source_name, model, status, report_url, controls, not_analyzed, counts_json, error_message, started_at, finished_at
FROM tod_runs
`

func scanRun(s interface{ Scan(...any) error }) (*domain.Run, error) {
	var run domain.Run
	var id, status string
	var counts []byte
	if err := s.Scan(&id, &run.TenantID, &run.SourceName, &run.Model, &status, &run.ReportURL,
		&run.Controls, &run.NotAnalyzed, &counts, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.ID = domain.RunID(id)
	run.Status = domain.Status(status)
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &run.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
	}
	return &run, nil
}

// Get returns a run of the tenant, or domain.ErrNotFound.
func (r *RunRepository) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, selectRun+`WHERE tenant_id=$1 AND id=$2`, tenant, string(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// Paginate returns a page of runs ordered by started_at desc
func (r *RunRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Run, error) {
	limit, offset := pageOffset(page, pageSize)
	rows, err := r.db.QueryContext(ctx, selectRun+`WHERE tenant_id=$1
ORDER BY started_at DESC, id DESC
LIMIT $2 OFFSET $3;`, tenant, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
