// Package main provides the entry point for the background analysis worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-enrichment-service/internal/analysis"
	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/jobs"
	"github.com/helixir/paper-enrichment-service/internal/llm"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("paper-enrichment-service worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	metrics := observability.NewMetrics("scipaper_worker")

	paperRepo := repository.NewPgPaperRepository(db)
	fileRepo := repository.NewPgPaperFileRepository(db)
	analysisRepo := repository.NewPgAnalysisRepository(db)
	jobRepo := repository.NewPgJobRepository(db)

	// The worker cannot run without object storage; every job reads a
	// stored document.
	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("object storage endpoint is required for the worker")
	}
	store, err := storage.NewMinioStore(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("connect to object storage: %w", err)
	}
	logger.Info().Str("endpoint", cfg.Storage.Endpoint).Str("bucket", cfg.Storage.Bucket).Msg("object storage connected")

	analyzer := llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	analysisSvc := analysis.NewService(paperRepo, fileRepo, analysisRepo, jobRepo, analyzer, store, metrics, logger)

	consumer := jobs.NewConsumer(jobs.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, analysisSvc, logger)
	defer func() {
		if closeErr := consumer.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close job consumer")
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    cfg.Server.MetricsAddress(),
			Handler: metricsMux,
		}
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("group_id", cfg.Kafka.GroupID).
		Msg("paper-enrichment-service worker is ready")

	err = consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-enrichment-service worker shutdown complete")
	return nil
}
