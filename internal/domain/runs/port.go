package runs

import (
	"context"
	"errors"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// ErrNotFound is returned by Get when the run does not exist for the tenant.
var ErrNotFound = errors.New("run not found")

// Repository persists runs, their per-dimension results and failures.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, run *Run, results []controls.ControlAnalysis) error
	SaveFailure(ctx context.Context, f *Failure) error
	Get(ctx context.Context, tenant string, id RunID) (*Run, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Run, error)
	ListFailures(ctx context.Context, tenant string, id RunID, limit int) ([]*Failure, error)
}

// ArtifactStore uploads written reports and returns their URL.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
