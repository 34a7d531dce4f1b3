package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/velostat/cmd/collector/config"
	"github.com/HatiCode/velostat/cmd/collector/logger"
	"github.com/HatiCode/velostat/cmd/collector/metrics"
	"github.com/HatiCode/velostat/cmd/collector/router"
	"github.com/HatiCode/velostat/cmd/collector/store"
	"github.com/HatiCode/velostat/pkg/httpx"
	"github.com/HatiCode/velostat/pkg/jcdecaux"
)

const version = "v0.1.0"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting velostat collector",
		"version", version,
		"contract", cfg.Contract,
		"store", cfg.Store,
		"interval", cfg.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, file, logger); err != nil {
		logger.Error("collector failed", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, file *config.File, logger *slog.Logger) error {
	st, err := store.New(ctx, cfg, file, logger)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	api := jcdecaux.NewClient(jcdecaux.Config{
		APIKey:  file.API.Key,
		BaseURL: cfg.APIURL,
		Version: cfg.APIVersion,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})

	c := New(cfg.Contract, api, st, m, logger)

	if cfg.Interval == 0 {
		return runOnce(ctx, c, cfg.PushgatewayURL, reg, logger)
	}
	return runLoop(ctx, c, cfg, reg, logger)
}

// runOnce performs a single collection and optionally pushes the metrics it
// produced. A failed push is logged and does not change the outcome.
func runOnce(ctx context.Context, c *Collector, pushURL string, g prometheus.Gatherer, logger *slog.Logger) error {
	err := c.Tick(ctx)

	if pushURL != "" {
		if perr := metrics.Push(pushURL, g); perr != nil {
			logger.Warn("failed to push metrics", "url", pushURL, "error", perr)
		} else {
			logger.Debug("pushed metrics", "url", pushURL)
		}
	}

	return err
}

// runLoop collects every interval and serves /healthz, /status and /metrics
// until ctx is canceled.
func runLoop(ctx context.Context, c *Collector, cfg *config.Config, g prometheus.Gatherer, logger *slog.Logger) error {
	handler := router.SetupRoutes(c.Healthy, func() any { return c.Status() }, g, logger)
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return c.Run(gctx, cfg.Interval)
	})
	grp.Go(func() error {
		return httpServer.Start()
	})
	grp.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return httpServer.Stop(10 * time.Second)
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
