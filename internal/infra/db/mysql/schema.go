package mysql

import (
	"context"
	"fmt"
)

// The driver runs one statement per Exec, so the schema is kept as a list.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tod_runs (
  id            VARCHAR(64)  NOT NULL PRIMARY KEY,
  tenant_id     VARCHAR(64)  NOT NULL,
  source_name   VARCHAR(255) NOT NULL,
  model         VARCHAR(128) NOT NULL,
  status        VARCHAR(32)  NOT NULL,
  report_url    TEXT         NOT NULL,
  controls      INT          NOT NULL,
  not_analyzed  INT          NOT NULL,
  counts_json   JSON         NOT NULL,
  error_message TEXT         NOT NULL,
  started_at    DATETIME(6)  NOT NULL,
  finished_at   DATETIME(6)  NOT NULL,
  INDEX idx_tod_runs_tenant (tenant_id, started_at)
)`,
	`CREATE TABLE IF NOT EXISTS tod_results (
  run_id       VARCHAR(64)  NOT NULL,
  row_no       INT          NOT NULL,
  control_id   VARCHAR(128) NOT NULL,
  risk_id      VARCHAR(128) NOT NULL,
  dimension    VARCHAR(64)  NOT NULL,
  rating       VARCHAR(32)  NOT NULL,
  answer       TEXT         NOT NULL,
  commentary   TEXT         NOT NULL,
  details_json JSON         NOT NULL,
  PRIMARY KEY (run_id, row_no, dimension)
)`,
	`CREATE TABLE IF NOT EXISTS tod_failures (
  id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  tenant_id    VARCHAR(64)  NOT NULL,
  run_id       VARCHAR(64)  NOT NULL,
  control_id   VARCHAR(128) NOT NULL,
  row_no       INT          NOT NULL,
  dimension    VARCHAR(64)  NOT NULL,
  message      TEXT         NOT NULL,
  details_json JSON         NOT NULL,
  created_at   DATETIME(6)  NOT NULL,
  INDEX idx_tod_failures_run (tenant_id, run_id)
)`,
}

// EnsureSchema creates the tod_* tables when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
