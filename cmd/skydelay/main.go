package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/skydelay/cascade-engine/internal/config"
	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/ingest"
	"github.com/skydelay/cascade-engine/internal/metrics"
	"github.com/skydelay/cascade-engine/internal/services"
	"github.com/skydelay/cascade-engine/internal/store"
	"github.com/skydelay/cascade-engine/internal/utils"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "skydelay",
		Short: "Flight delay cascade and economic impact engine",
		Long: `skydelay turns a batch of BTS on-time flight records into delay economics marts,
detects two-level delay cascades at each airport, ranks airports by cascade vulnerability,
and serves what-if delay simulations over gRPC.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (falls back to SKYDELAY_CONFIG)")

	rootCmd.AddCommand(newRunCmd(), newServeCmd(), newSimulateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the components every subcommand shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *engine.Pipeline
	store    *store.Store
	sink     store.Sink
	runner   *services.Runner
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	pipeline := engine.NewPipeline(logger, pipelineOptions(cfg))
	st := store.New()

	var sink store.Sink = store.NoopSink{}
	if cfg.Store.Enabled {
		mysqlSink, err := store.NewMySQLSink(ctx, mysqlConfig(cfg.Store), logger)
		if err != nil {
			return nil, fmt.Errorf("connect mysql sink: %w", err)
		}
		sink = mysqlSink
	}

	source := ingest.FileSource{Loader: ingest.NewLoader(logger), Path: cfg.Input.Path}
	return &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		store:    st,
		sink:     sink,
		runner:   services.NewRunner(logger, source, pipeline, st, sink),
	}, nil
}

func (a *app) Close() {
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("close sink", slog.Any("error", err))
	}
}

func pipelineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Economics:       engine.EconomicConfig(cfg.Economics),
		Cascade:         engine.CascadeConfig(cfg.Cascade),
		Weights:         engine.ScoringWeights(cfg.Scoring),
		MinRouteFlights: cfg.Aggregation.MinRouteFlights,
		TrendThreshold:  cfg.Aggregation.TrendThreshold,
		Workers:         cfg.Pipeline.Workers,
	}
}

func mysqlConfig(c config.StoreConfig) store.MySQLConfig {
	return store.MySQLConfig{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Timeout:         c.Timeout,
	}
}
