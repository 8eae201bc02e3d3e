package postgres

import (
	"context"
	"time"

	domain "github.com/bryanwahyu/automaton-tod/internal/domain/runs"
)

func (r *RunRepository) SaveFailure(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO tod_failures
  (tenant_id, run_id, control_id, row_no, dimension, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(f.TenantID), stringOrDash(string(f.RunID)), stringOrDash(f.ControlID), f.Row,
		stringOrDash(f.Dimension), stringOrDash(f.Message), validJSON(f.DetailsJSON), created,
	).Scan(&f.ID)
}

func (r *RunRepository) ListFailures(ctx context.Context, tenant string, id domain.RunID, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, tenant_id, run_id, control_id, row_no, dimension, message, details_json, created_at
FROM tod_failures
WHERE tenant_id = $1 AND run_id = $2
ORDER BY row_no ASC, id ASC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Failure
	for rows.Next() {
		var f domain.Failure
		var runID string
		if err := rows.Scan(&f.ID, &f.TenantID, &runID, &f.ControlID, &f.Row, &f.Dimension, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.RunID = domain.RunID(runID)
		out = append(out, &f)
	}
	return out, rows.Err()
}
