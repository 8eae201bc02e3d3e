package runs

import (
	"time"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// RunID identifier type
type RunID string

// Status of a stored run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Run is the persisted summary of one analysis batch.
type Run struct {
	ID          RunID                 `json:"id"`
	TenantID    string                `json:"tenant_id"`
	SourceName  string                `json:"source_name"`
	Model       string                `json:"model"`
	Status      Status                `json:"status"`
	ReportURL   string                `json:"report_url,omitempty"`
	Controls    int                   `json:"controls"`
	NotAnalyzed int                   `json:"not_analyzed"`
	Counts      controls.RatingCounts `json:"counts"`
	Error       string                `json:"error,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// FromReport summarizes a finished report into a Run.
func FromReport(tenant string, report *controls.AnalysisReport) *Run {
	counts := report.Counts()
	return &Run{
		ID:          RunID(report.ID),
		TenantID:    tenant,
		SourceName:  report.SourceName,
		Model:       report.Model,
		Status:      StatusCompleted,
		Controls:    len(report.Controls),
		NotAnalyzed: counts.NotAnalyzed(),
		Counts:      counts,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
	}
}

// Failure records a dimension that ended as Not analyzed, or a run that aborted.
type Failure struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       RunID     `json:"run_id"`
	ControlID   string    `json:"control_id,omitempty"`
	Row         int       `json:"row,omitempty"`
	Dimension   string    `json:"dimension,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
