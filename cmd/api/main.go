package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/bootstrap"
	"github.com/bryanwahyu/automaton-tod/internal/config"
	"github.com/bryanwahyu/automaton-tod/internal/infra/logging"
)

func main() {
	// path config.yaml
	path := os.Getenv(config.EnvConfigPath)

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  logging.Level(cfg.Log.Level),
		Format: logging.Format(cfg.Log.Format),
		File:   cfg.Log.File,
	})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Database: true, Minio: true})
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	if err := app.Serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		stop()
		app.Close()
		os.Exit(1)
	}
}
