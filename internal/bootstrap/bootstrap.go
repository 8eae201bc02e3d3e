package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/application"
	appai "github.com/bryanwahyu/automaton-tod/internal/application/ai"
	"github.com/bryanwahyu/automaton-tod/internal/application/analysis"
	"github.com/bryanwahyu/automaton-tod/internal/config"
	"github.com/bryanwahyu/automaton-tod/internal/domain/runs"
	"github.com/bryanwahyu/automaton-tod/internal/infra/ai/openai"
	mysqlrepo "github.com/bryanwahyu/automaton-tod/internal/infra/db/mysql"
	pgrepo "github.com/bryanwahyu/automaton-tod/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-tod/internal/infra/spreadsheet"
	"github.com/bryanwahyu/automaton-tod/internal/infra/storage"
)

// App holds the wired components shared by the CLI and the API server.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	LLM      *appai.Service
	Analysis *analysis.Service
	Writer   *spreadsheet.ReportWriter
	Repo     runs.Repository // nil without a database
	Store    *storage.Store  // nil without MinIO
	DB       *sql.DB
}

// Options toggle the optional backends. The CLI skips them unless configured.
type Options struct {
	Database bool
	Minio    bool
}

// New validates cfg and wires the LLM, analysis service and optional persistence.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(openai.Options{
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	})
	if !openai.IsSupportedModel(client.Model) {
		logger.Warn("model is not in the tested list; results may vary",
			zap.String("model", client.Model),
			zap.Strings("supported", openai.SupportedModels),
		)
	}
	llm := appai.NewService(client, client.Model, appai.RetryConfig{
		MaxRetries:     cfg.AI.MaxRetries,
		InitialBackoff: cfg.AI.InitialBackoff,
		MaxBackoff:     cfg.AI.MaxBackoff,
	}, logger.Named("llm"))

	app := &App{
		Config: cfg,
		Logger: logger,
		LLM:    llm,
		Writer: spreadsheet.NewReportWriter(logger.Named("report")),
	}

	if opts.Database && cfg.Database.Driver != "" {
		db, repo, err := connectRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		app.DB, app.Repo = db, repo
		logger.Info("run repository ready", zap.String("driver", cfg.Database.Driver))
	}

	if opts.Minio && cfg.MinioEnabled() {
		store, err := storage.New(ctx, storage.Options{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			BucketName: cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
		}, logger.Named("storage"))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		app.Store = store
	}

	app.Analysis = &analysis.Service{
		LLM:       llm,
		Writer:    app.Writer,
		Clock:     application.SystemClock{},
		Logger:    logger.Named("analysis"),
		Preflight: cfg.AI.Preflight,
	}
	if app.Repo != nil {
		app.Analysis.Repo = app.Repo
	}
	if app.Store != nil {
		app.Analysis.Artifacts = app.Store
	}
	return app, nil
}

func connectRepository(ctx context.Context, cfg *config.Config) (*sql.DB, runs.Repository, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlrepo.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlrepo.NewRunRepository(db), nil
	case "postgres":
		db, err := pgrepo.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, pgrepo.NewRunRepository(db), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// Close releases the database handle.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
