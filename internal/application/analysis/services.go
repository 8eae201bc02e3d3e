package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/application"
	"github.com/bryanwahyu/automaton-tod/internal/domain/ai"
	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/domain/runs"
	"github.com/bryanwahyu/automaton-tod/internal/infra/ai/prompt"
)

// ErrRunAborted wraps the fatal LLM error that stopped a batch.
var ErrRunAborted = errors.New("analysis run aborted")

// LLM is the completion surface the pipeline needs.
type LLM interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
	Ping(ctx context.Context, system, user string) error
	Model() string
}

// ReportWriter renders a finished report to a file.
type ReportWriter interface {
	WriteFile(path string, report *controls.AnalysisReport) error
}

// Service runs the per-row, per-dimension analysis. Repo and Artifacts are optional.
type Service struct {
	LLM       LLM
	Writer    ReportWriter
	Repo      runs.Repository
	Artifacts runs.ArtifactStore
	Clock     application.Clock
	Logger    *zap.Logger
	Preflight bool
	NewID     func() string
}

// RunCommand describes one batch. An empty OutputPath skips writing the report and a nil
// ArtifactKey skips the upload.
type RunCommand struct {
	TenantID    string
	SourceName  string
	Load        func() ([]controls.ControlRecord, error)
	OutputPath  string
	ArtifactKey func(runID string) string
}

// RunResult is the outcome of a completed batch.
type RunResult struct {
	Report     *controls.AnalysisReport `json:"-"`
	Run        *runs.Run                `json:"run"`
	OutputPath string                   `json:"-"`
	Failures   []*runs.Failure          `json:"failures,omitempty"`
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Run loads and validates the input, checks the LLM connection, analyzes every control in
// order and writes the report. Validation errors return before any LLM call. A fatal LLM
// error aborts the batch with ErrRunAborted and no report is written.
func (s *Service) Run(ctx context.Context, cmd RunCommand) (*RunResult, error) {
	log := s.logger()
	started := s.now()

	records, err := cmd.Load()
	if err != nil {
		return nil, err
	}
	log.Info("controls loaded", zap.String("source", cmd.SourceName), zap.Int("controls", len(records)))

	if s.Preflight {
		if err := s.LLM.Ping(ctx, prompt.PingSystem, prompt.PingUser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunAborted, err)
		}
	}

	report := &controls.AnalysisReport{
		ID:         s.newID(),
		SourceName: cmd.SourceName,
		Model:      s.LLM.Model(),
		StartedAt:  started,
	}
	log = log.With(zap.String("run_id", report.ID))

	var failures []*runs.Failure
	for i, rec := range records {
		log.Info(fmt.Sprintf("processing [%d/%d]", i+1, len(records)), zap.String("control", rec.Label()))

		analysis, rowFailures, err := s.analyzeControl(ctx, log, rec)
		for _, f := range rowFailures {
			f.TenantID, f.RunID = cmd.TenantID, runs.RunID(report.ID)
		}
		failures = append(failures, rowFailures...)
		if err != nil {
			report.FinishedAt = s.now()
			s.persistAborted(ctx, cmd.TenantID, report, failures, rec, err)
			log.Error("analysis aborted", zap.String("control", rec.Label()), zap.Error(err))
			return nil, fmt.Errorf("%w at %s: %w", ErrRunAborted, rec.Label(), err)
		}
		report.Add(analysis)
		log.Info("control analyzed",
			zap.String("control", rec.Label()),
			zap.String("overall", string(analysis.Result(controls.DimensionOverallRating).Rating)),
		)
	}
	report.FinishedAt = s.now()

	run := runs.FromReport(cmd.TenantID, report)
	result := &RunResult{Report: report, Run: run, OutputPath: cmd.OutputPath, Failures: failures}

	if cmd.OutputPath != "" {
		if err := s.Writer.WriteFile(cmd.OutputPath, report); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		if s.Artifacts != nil && cmd.ArtifactKey != nil {
			url, err := s.Artifacts.Upload(ctx, cmd.OutputPath, cmd.ArtifactKey(report.ID))
			if err != nil {
				log.Warn("report upload failed", zap.Error(err))
			} else {
				run.ReportURL = url
			}
		}
	}

	s.persist(ctx, run, report.Controls, failures)

	counts := report.Counts()
	log.Info("analysis completed",
		zap.Int("controls", len(report.Controls)),
		zap.Int("not_analyzed", counts.NotAnalyzed()),
		zap.Any("overall", counts.Overall()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return result, nil
}

// analyzeControl runs every dimension for one control. Transient exhaustion marks the
// dimension Not analyzed; fatal errors and cancellation are returned.
func (s *Service) analyzeControl(ctx context.Context, log *zap.Logger, rec controls.ControlRecord) (controls.ControlAnalysis, []*runs.Failure, error) {
	results := make(map[controls.Dimension]controls.DimensionResult, len(controls.Dimensions))
	var failures []*runs.Failure

	for _, d := range controls.Dimensions {
		req, err := prompt.Build(d, rec, results)
		if err != nil {
			return controls.ControlAnalysis{}, failures, err
		}
		text, err := s.LLM.Complete(ctx, req)
		if err != nil {
			if ai.IsFatal(err) || ctx.Err() != nil || !ai.IsTransient(err) {
				return controls.ControlAnalysis{}, failures, err
			}
			log.Warn("dimension not analyzed",
				zap.String("control", rec.Label()),
				zap.String("dimension", string(d)),
				zap.Error(err),
			)
			results[d] = controls.NotAnalyzed(d, err)
			failures = append(failures, newFailure(rec, d, err, s.now()))
			continue
		}

		res := controls.ParseResponse(d, text)
		if res.Rating == controls.RatingUnparsed {
			log.Warn("response unparsed",
				zap.String("control", rec.Label()),
				zap.String("dimension", string(d)),
				zap.String("reason", res.Commentary),
			)
		}
		results[d] = res
	}
	return controls.ControlAnalysis{Control: rec, Results: results}, failures, nil
}

func newFailure(rec controls.ControlRecord, d controls.Dimension, cause error, at time.Time) *runs.Failure {
	details, _ := json.Marshal(map[string]any{
		"fatal":     ai.IsFatal(cause),
		"exhausted": errors.Is(cause, ai.ErrRetriesExhausted),
		"quota":     errors.Is(cause, ai.ErrQuotaExceeded),
	})
	return &runs.Failure{
		ControlID:   rec.ControlID,
		Row:         rec.Row,
		Dimension:   string(d),
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   at,
	}
}

func (s *Service) persist(ctx context.Context, run *runs.Run, results []controls.ControlAnalysis, failures []*runs.Failure) {
	if s.Repo == nil {
		return
	}
	log := s.logger().With(zap.String("run_id", string(run.ID)))
	if err := s.Repo.Save(ctx, run, results); err != nil {
		log.Warn("failed to persist run", zap.Error(err))
		return
	}
	for _, f := range failures {
		if err := s.Repo.SaveFailure(ctx, f); err != nil {
			log.Warn("failed to persist failure", zap.Error(err))
		}
	}
}

// persistAborted keeps the partial results of an aborted batch. It uses a fresh context
// since ctx may be the reason for the abort.
func (s *Service) persistAborted(ctx context.Context, tenant string, report *controls.AnalysisReport, failures []*runs.Failure, rec controls.ControlRecord, cause error) {
	if s.Repo == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	run := runs.FromReport(tenant, report)
	run.Status = runs.StatusAborted
	run.Error = cause.Error()
	failures = append(failures, &runs.Failure{
		TenantID:  tenant,
		RunID:     run.ID,
		ControlID: rec.ControlID,
		Row:       rec.Row,
		Message:   "run aborted: " + cause.Error(),
		CreatedAt: s.now(),
	})
	s.persist(saveCtx, run, report.Controls, failures)
}
