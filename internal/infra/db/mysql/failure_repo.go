package mysql

import (
	"context"
	"time"

	domain "github.com/bryanwahyu/automaton-tod/internal/domain/runs"
)

func (r *RunRepository) SaveFailure(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO tod_failures
  (tenant_id, run_id, control_id, row_no, dimension, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?,?)
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.TenantID), stringOrDash(string(f.RunID)), stringOrDash(f.ControlID), f.Row,
		stringOrDash(f.Dimension), stringOrDash(f.Message), validJSON(f.DetailsJSON), created,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *RunRepository) ListFailures(ctx context.Context, tenant string, id domain.RunID, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, tenant_id, run_id, control_id, row_no, dimension, message, details_json, created_at
FROM tod_failures
WHERE tenant_id = ? AND run_id = ?
ORDER BY row_no ASC, id ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Failure
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.TenantID, &f.RunID, &f.ControlID, &f.Row, &f.Dimension, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
