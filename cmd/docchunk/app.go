package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/docchunk-mcp/internal/config"
	"github.com/dshills/docchunk-mcp/internal/extractor"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/progress"
	"github.com/dshills/docchunk-mcp/internal/splitter"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// app wires storage, extraction, metrics and the task runner from config
type app struct {
	cfg       *config.Config
	store     *storage.SQLiteStorage
	extractor *extractor.Extractor
	runner    *splitter.Runner
	registry  *prometheus.Registry
}

func openApp(cfg *config.Config) (*app, error) {
	if cfg.Storage.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := metrics.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ext := extractor.New(extractor.WithMaxTextBytes(cfg.Extract.MaxTextBytes))

	runner, err := splitter.New(store, ext, &splitter.Config{
		CommitMode: types.CommitMode(cfg.Splitter.CommitMode),
		Limits:     cfg.SplitLimits(),
		Tracker:    progress.New(cfg.Tasks.MaxRetained, cfg.Tasks.Retention),
		Metrics:    m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}

	return &app{
		cfg:       cfg,
		store:     store,
		extractor: ext,
		runner:    runner,
		registry:  registry,
	}, nil
}

// Close waits for running tasks, then closes the database
func (a *app) Close(ctx context.Context) error {
	runErr := a.runner.Close(ctx)
	return errors.Join(runErr, a.store.Close())
}
