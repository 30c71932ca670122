package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/briefbot/briefbot/internal/config"
	"github.com/briefbot/briefbot/internal/httpx"
	"github.com/briefbot/briefbot/internal/metrics"
	"github.com/briefbot/briefbot/internal/pipeline"
	"github.com/briefbot/briefbot/internal/registry"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	client  *httpx.Client
	store   registry.Store
	files   *registry.FileStore
	models  *registry.ModelSelector
	metrics *metrics.Set
	reg     *prometheus.Registry
}

// buildApp loads config and wires the shared stack. The file store is
// always created because model preferences live there even when the
// brief cache runs on redis.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}

	client := httpx.New(
		httpx.WithDebug(cfg.Debug),
		httpx.WithLogger(log.Logger),
	)

	files, err := registry.NewFileStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	var store registry.Store = files
	if cfg.CacheBackend == "redis" {
		rs, err := registry.NewRedisStore(context.Background(), cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis cache backend: %w", err)
		}
		store = rs
	}

	reg := prometheus.NewRegistry()
	return &app{
		cfg:     cfg,
		client:  client,
		store:   store,
		files:   files,
		models:  registry.NewModelSelector(client, files, log.Logger),
		metrics: metrics.New(reg),
		reg:     reg,
	}, nil
}

// orchestrator builds the pipeline entry point with the given sink.
func (a *app) orchestrator(sink pipeline.ProgressSink) *pipeline.Orchestrator {
	return pipeline.New(pipeline.Options{
		Client:      a.client,
		Store:       a.store,
		Models:      a.models,
		Credentials: a.cfg.Credentials,
		Metrics:     a.metrics,
		Sink:        sink,
		Logger:      log.Logger,
		FixturesDir: a.cfg.FixturesDir,
	})
}
