package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/application/analysis"
	"github.com/bryanwahyu/automaton-tod/internal/bootstrap"
	"github.com/bryanwahyu/automaton-tod/internal/config"
	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/infra/logging"
	"github.com/bryanwahyu/automaton-tod/internal/infra/spreadsheet"
	"github.com/bryanwahyu/automaton-tod/internal/infra/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// load reads the config file and applies the persistent flag overrides.
func (f *rootFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	logger, err := logging.New(logging.Options{
		Level:  logging.Level(cfg.Log.Level),
		Format: logging.Format(cfg.Log.Format),
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "tod",
		Short: "AI-assisted Test of Design for internal controls",
		Long: `tod reads a workbook of risks and controls, asks an LLM to assess every control
across nine design dimensions and writes a rated, colour-coded workbook.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format: console or structured")

	cmd.AddCommand(newAnalyzeCommand(flags))
	cmd.AddCommand(newSampleCommand())
	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

type analyzeOptions struct {
	output      string
	sheet       string
	model       string
	noPreflight bool
}

func newAnalyzeCommand(flags *rootFlags) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [input.xlsx]",
		Short: "Analyze every control in a workbook and write the result workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			input := cfg.Input.Path
			if len(args) == 1 {
				input = args[0]
			}
			if strings.TrimSpace(input) == "" {
				return errors.New("no input workbook given (argument or input.path)")
			}
			if opts.sheet != "" {
				cfg.Input.Sheet = opts.sheet
			}
			if opts.model != "" {
				cfg.AI.Model = opts.model
			}
			if opts.noPreflight {
				cfg.AI.Preflight = false
			}
			output := opts.output
			if output == "" {
				output = cfg.Output.Path
			}
			if output == "" {
				output = spreadsheet.DefaultOutputPath(input)
			}

			app, err := bootstrap.New(cmd.Context(), cfg, logger, bootstrap.Options{Database: true, Minio: true})
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer app.Close()

			loader := spreadsheet.Loader{Sheet: cfg.Input.Sheet}
			result, err := app.Analysis.Run(cmd.Context(), analysis.RunCommand{
				SourceName: filepath.Base(input),
				Load:       func() ([]controls.ControlRecord, error) { return loader.LoadFile(input) },
				OutputPath: output,
				ArtifactKey: func(runID string) string {
					return storage.ReportKey("", runID, output)
				},
			})
			if err != nil {
				logger.Error("analysis failed", zap.Error(err))
				return err
			}
			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "result workbook (default <input>_TestResult.xlsx)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "input worksheet (default first sheet)")
	cmd.Flags().StringVar(&opts.model, "model", "", "completion model")
	cmd.Flags().BoolVar(&opts.noPreflight, "no-preflight", false, "skip the connection test before the batch")
	return cmd
}

func printSummary(w io.Writer, result *analysis.RunResult) {
	run := result.Run
	fmt.Fprintf(w, "Analyzed %d controls with %s\n", run.Controls, run.Model)
	overall := run.Counts[controls.DimensionOverallRating]
	for _, r := range controls.Ratings {
		if n := overall[r]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", r, n)
		}
	}
	if run.NotAnalyzed > 0 {
		fmt.Fprintf(w, "%d dimensions could not be analyzed; see the log for details\n", run.NotAnalyzed)
	}
	fmt.Fprintf(w, "Report written to %s\n", result.OutputPath)
	if run.ReportURL != "" {
		fmt.Fprintf(w, "Uploaded to %s\n", run.ReportURL)
	}
}

func newSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [path]",
		Short: "Write a demo input workbook with four example controls",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "sample_controls.xlsx"
			if len(args) == 1 {
				path = args[0]
			}
			if err := spreadsheet.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample workbook written to %s\n", path)
			return nil
		},
	}
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the multi-tenant HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			app, err := bootstrap.New(cmd.Context(), cfg, logger, bootstrap.Options{Database: true, Minio: true})
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tod "+version)
		},
	}
}
