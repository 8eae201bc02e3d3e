package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/application/analysis"
	domai "github.com/bryanwahyu/automaton-tod/internal/domain/ai"
	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/domain/runs"
	"github.com/bryanwahyu/automaton-tod/internal/infra/spreadsheet"
	"github.com/bryanwahyu/automaton-tod/internal/infra/storage"
	"github.com/bryanwahyu/automaton-tod/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errNoRepository is returned by the history endpoints when no database is configured.
var errNoRepository = errors.New("run history requires a database")

// Analyzer runs one analysis batch.
type Analyzer interface {
	Run(ctx context.Context, cmd analysis.RunCommand) (*analysis.RunResult, error)
}

// Options configures NewRouter. Repo, Limiter and HealthChecks are optional.
type Options struct {
	Analyzer       Analyzer
	Repo           runs.Repository
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	Logger         *zap.Logger
	APIKeys        map[string]string
	CORSOrigins    []string
	MaxUploadBytes int64
	HealthChecks   map[string]middleware.HealthChecker
	// Sheet selects the input worksheet; empty means the first one.
	Sheet string
}

type Router struct {
	analyzer  Analyzer
	repo      runs.Repository
	metrics   *middleware.Metrics
	logger    *zap.Logger
	maxUpload int64
	sheet     string
	reports   *spreadsheet.ReportWriter
}

func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	r := &Router{
		analyzer:  opts.Analyzer,
		repo:      opts.Repo,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		maxUpload: opts.MaxUploadBytes,
		sheet:     opts.Sheet,
		reports:   spreadsheet.NewReportWriter(opts.Logger.Named("report")),
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(opts.Metrics.Middleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Use(middleware.RequireValidTenant)
		if opts.Limiter != nil {
			rt.Use(opts.Limiter.Middleware)
		}
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors that carry no domain type.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Int("status", status), zap.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
	}
}

func statusFor(err error) int {
	var validation *controls.ValidationError
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &validation), errors.Is(err, controls.ErrNoControls):
		return http.StatusUnprocessableEntity
	case errors.Is(err, runs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoRepository):
		return http.StatusServiceUnavailable
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, analysis.ErrRunAborted), domai.IsFatal(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/analyses
// Multipart form with the workbook in "file". ?download=1 returns the report workbook
// instead of the JSON run summary.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest{fmt.Errorf("read upload: %w", err)}
	}
	defer file.Close()
	if err := middleware.ValidateUpload(header.Filename, header.Size, r.maxUpload); err != nil {
		return badRequest{err}
	}

	workDir, err := os.MkdirTemp("", "tod-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	source := filepath.Base(header.Filename)
	output := filepath.Join(workDir, filepath.Base(spreadsheet.DefaultOutputPath(source)))
	loader := spreadsheet.Loader{Sheet: r.sheet}

	result, err := r.analyzer.Run(req.Context(), analysis.RunCommand{
		TenantID:   tenant,
		SourceName: source,
		Load:       func() ([]controls.ControlRecord, error) { return loader.Load(file) },
		OutputPath: output,
		ArtifactKey: func(runID string) string {
			return storage.ReportKey(tenant, runID, output)
		},
	})
	if err != nil {
		r.metrics.RecordAnalysisFailure()
		return err
	}
	r.metrics.RecordAnalysis(result.Run.Controls, result.Run.NotAnalyzed)

	if download, _ := strconv.ParseBool(req.URL.Query().Get("download")); download {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(output)))
		return r.reports.Write(w, result.Report)
	}
	return writeJSON(w, http.StatusCreated, result)
}

// GET /v1/{tenant}/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	if r.repo == nil {
		return errNoRepository
	}
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	page, size = middleware.ValidatePage(page), middleware.ValidateLimit(size)

	list, err := r.repo.Paginate(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*runs.Run{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"page":      page,
		"page_size": size,
		"items":     list,
	})
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	if r.repo == nil {
		return errNoRepository
	}
	tenant := chi.URLParam(req, "tenant")
	id := strings.ToLower(chi.URLParam(req, "id"))
	if err := middleware.ValidateRunID(id); err != nil {
		return badRequest{err}
	}

	run, err := r.repo.Get(req.Context(), tenant, runs.RunID(id))
	if err != nil {
		return err
	}
	failures, err := r.repo.ListFailures(req.Context(), tenant, run.ID, 100)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"run":      run,
		"failures": failures,
	})
}
