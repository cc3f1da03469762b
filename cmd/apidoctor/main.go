package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annolab/apidoctor/internal/client"
	"github.com/annolab/apidoctor/internal/config"
	"github.com/annolab/apidoctor/internal/discovery"
	"github.com/annolab/apidoctor/internal/history"
	"github.com/annolab/apidoctor/internal/metrics"
	"github.com/annolab/apidoctor/internal/report"
	"github.com/annolab/apidoctor/internal/suite"
	"github.com/annolab/apidoctor/internal/triage"
	"github.com/annolab/apidoctor/internal/utils"
)

func main() {
	var (
		configPath string
		mode       string
		target     string
		token      string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&mode, "mode", "suite", "Run mode: suite, triage, discover, watch, history")
	flag.StringVar(&target, "target", "", "Target base URL (overrides config)")
	flag.StringVar(&token, "token", "", "API bearer token (overrides config)")
	flag.Parse()

	// A local .env is a convenience for developers; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(2)
	}
	if target != "" {
		cfg.Target.BaseURL = target
	}
	if token != "" {
		cfg.Target.Token = token
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting apidoctor",
		slog.String("mode", mode),
		slog.String("target", cfg.Target.BaseURL))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(2)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("run history unavailable", slog.Any("error", err))
		} else {
			defer store.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := client.New(cfg.Target.BaseURL, cfg.Target.Token, cfg.Target.Timeout)

	switch mode {
	case "suite":
		os.Exit(runSuite(ctx, logger, apiClient, cfg, store))
	case "triage":
		os.Exit(runTriage(ctx, logger, apiClient, cfg, store))
	case "discover":
		os.Exit(runDiscover(ctx, logger, apiClient, cfg))
	case "watch":
		os.Exit(runWatch(ctx, logger, apiClient, cfg, store))
	case "history":
		os.Exit(runHistory(ctx, logger, store))
	default:
		logger.Error("unknown mode", slog.String("mode", mode))
		os.Exit(2)
	}
}

func runSuite(ctx context.Context, logger *slog.Logger, c *client.Client, cfg *config.Config, store *history.Store) int {
	runner := suite.NewRunner(logger, c, cfg.Suite)
	run := runner.Execute(ctx)

	if store != nil {
		if err := store.RecordSuite(ctx, run); err != nil {
			logger.Warn("failed to record run history", slog.Any("error", err))
		}
	}

	path, err := report.WriteSuite(cfg.Suite.ResultsFile, run)
	if err != nil {
		logger.Error("failed to save results", slog.Any("error", err))
		return 1
	}
	logger.Info("results saved", slog.String("path", path))

	if run.Failed > 0 {
		return 1
	}
	return 0
}

func runTriage(ctx context.Context, logger *slog.Logger, c *client.Client, cfg *config.Config, store *history.Store) int {
	engine := triage.NewEngine(logger, c, cfg.Triage)
	bundle, err := engine.Diagnose(ctx)
	if err != nil {
		if errors.Is(err, triage.ErrFatalPrecondition) {
			logger.Error("triage aborted", slog.Any("error", err))
		} else {
			logger.Error("triage failed", slog.Any("error", err))
		}
		return 1
	}

	if store != nil {
		if err := store.RecordTriage(ctx, bundle); err != nil {
			logger.Warn("failed to record run history", slog.Any("error", err))
		}
	}

	if bundle.Summary.Failed == 0 {
		logger.Info("no failed jobs found")
	}
	path, err := report.WriteBundle(cfg.Triage.OutputFile, bundle)
	if err != nil {
		logger.Error("failed to save diagnostics", slog.Any("error", err))
		return 1
	}
	logger.Info("diagnostics saved",
		slog.String("path", path),
		slog.Bool("partial", bundle.Partial))
	return 0
}

func runDiscover(ctx context.Context, logger *slog.Logger, c *client.Client, cfg *config.Config) int {
	schema, err := discovery.FetchSchema(ctx, c)
	if err != nil {
		logger.Error("schema discovery failed", slog.Any("error", err))
		return 1
	}
	logger.Info("schema fetched",
		slog.String("source", schema.Source),
		slog.Int("endpoints", len(schema.Paths)))

	classified := discovery.Classify(schema.Paths)
	for _, cat := range discovery.Categories {
		bucket := classified[cat]
		logger.Info("endpoint group",
			slog.String("category", string(cat)),
			slog.Int("count", len(bucket)))
		for _, p := range bucket {
			logger.Info("  endpoint", slog.String("path", p))
		}
	}

	drift := discovery.CompareExpected(schema, cfg.Suite.ExpectedEndpoints)
	for _, entry := range drift {
		if entry.Exists {
			logger.Info("client expectation met", slog.String("path", entry.Path))
		} else {
			logger.Warn("client expects missing endpoint (404 expected)", slog.String("path", entry.Path))
		}
	}

	doc := map[string]any{
		"source":    schema.Source,
		"endpoints": classified,
		"drift":     drift,
	}
	path, err := report.WriteJSON("server_actual_api_spec.json", doc)
	if err != nil {
		logger.Error("failed to save schema report", slog.Any("error", err))
		return 1
	}
	logger.Info("schema report saved", slog.String("path", path))
	return 0
}

func runWatch(ctx context.Context, logger *slog.Logger, c *client.Client, cfg *config.Config, store *history.Store) int {
	var metricsServer *http.Server
	if cfg.Watch.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Watch.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Watch.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	runner := suite.NewRunner(logger, c, cfg.Suite)
	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	run := runner.Execute(ctx)
	recordWatchRun(ctx, logger, store, run)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("metrics server shutdown", slog.Any("error", err))
				}
				cancel()
			}
			return 0
		case <-ticker.C:
			run := runner.Execute(ctx)
			recordWatchRun(ctx, logger, store, run)
		}
	}
}

func recordWatchRun(ctx context.Context, logger *slog.Logger, store *history.Store, run suite.Run) {
	if store == nil {
		return
	}
	if err := store.RecordSuite(ctx, run); err != nil {
		logger.Warn("failed to record run history", slog.Any("error", err))
	}
}

func runHistory(ctx context.Context, logger *slog.Logger, store *history.Store) int {
	if store == nil {
		logger.Error("run history is not enabled; set history.enabled in the config")
		return 2
	}
	entries, err := store.RecentSuiteRuns(ctx, 20)
	if err != nil {
		logger.Error("failed to list run history", slog.Any("error", err))
		return 1
	}
	if len(entries) == 0 {
		logger.Info("no recorded runs")
		return 0
	}
	for _, entry := range entries {
		logger.Info("run",
			slog.String("time", entry.Timestamp.Format(time.RFC3339)),
			slog.String("target", entry.Target),
			slog.String("result", fmt.Sprintf("%d passed / %d failed / %d skipped",
				entry.Passed, entry.Failed, entry.Skipped)))
	}
	return 0
}
