package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/skydelay/cascade-engine/internal/api"
	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/services"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the marts and simulations over gRPC, refreshing on the configured interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, stop, a)
		},
	}
}

func serve(ctx context.Context, stop context.CancelFunc, a *app) error {
	logger := a.logger
	cfg := a.cfg
	logger.Info("starting skydelay", slog.String("address", cfg.Server.Address))

	svc := services.NewCascadeService(logger, a.store, engine.NewSimulator(a.pipeline.Economics()))
	server, err := api.NewServer(cfg.Server, svc)
	if err != nil {
		return err
	}
	a.runner.OnPublish(func(*models.Snapshot) { server.SetReady(true) })

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	// Serve immediately; queries answer FailedPrecondition until the first run publishes.
	go func() {
		if _, err := a.runner.RunOnce(ctx); err != nil {
			logger.Warn("initial pipeline run failed", slog.Any("error", err))
		}
		if cfg.Input.RefreshInterval > 0 {
			if err := a.runner.Loop(ctx, cfg.Input.RefreshInterval); err != nil {
				logger.Error("refresh loop exited", slog.Any("error", err))
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("skydelay stopped", slog.Duration("simulate_p95", svc.LatencyP95()))
	return nil
}
