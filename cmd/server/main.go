// Package main provides the entry point for the paper enrichment API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-enrichment-service/internal/analysis"
	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/graph"
	"github.com/helixir/paper-enrichment-service/internal/ingest"
	"github.com/helixir/paper-enrichment-service/internal/jobs"
	"github.com/helixir/paper-enrichment-service/internal/llm"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
	"github.com/helixir/paper-enrichment-service/internal/papersources/arxiv"
	"github.com/helixir/paper-enrichment-service/internal/papersources/pubmed"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/searchindex"
	httpserver "github.com/helixir/paper-enrichment-service/internal/server/http"
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
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-enrichment-service server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics("scipaper")

	// Repositories.
	userRepo := repository.NewPgUserRepository(db)
	paperRepo := repository.NewPgPaperRepository(db)
	fileRepo := repository.NewPgPaperFileRepository(db)
	analysisRepo := repository.NewPgAnalysisRepository(db)
	jobRepo := repository.NewPgJobRepository(db)
	grantRepo := repository.NewPgGrantRepository(db)
	proposalRepo := repository.NewPgProposalRepository(db)

	// Bibliographic sources.
	registry := papersources.NewRegistry()
	if cfg.PaperSources.PubMed.Enabled {
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:   cfg.PaperSources.PubMed.BaseURL,
			Timeout:   cfg.PaperSources.PubMed.Timeout,
			RateLimit: cfg.PaperSources.PubMed.RateLimit,
		}))
	}
	if cfg.PaperSources.ArXiv.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:   cfg.PaperSources.ArXiv.BaseURL,
			Timeout:   cfg.PaperSources.ArXiv.Timeout,
			RateLimit: cfg.PaperSources.ArXiv.RateLimit,
		}))
	}

	// Search index.
	var index searchindex.PaperIndex
	if cfg.Search.URL != "" {
		esIndex, err := searchindex.New(searchindex.Config{
			URL:    cfg.Search.URL,
			APIKey: cfg.Search.APIKey,
			Index:  cfg.Search.Index,
		})
		if err != nil {
			return fmt.Errorf("create search index client: %w", err)
		}
		if err := esIndex.EnsureIndex(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to ensure search index, continuing")
		}
		index = esIndex
		logger.Info().Str("url", cfg.Search.URL).Str("index", cfg.Search.Index).Msg("search index configured")
	} else {
		logger.Warn().Msg("search index not configured, search endpoints disabled")
	}

	// Co-authorship graph.
	var coauthors graph.CoauthorGraph
	if cfg.Graph.URI != "" {
		neoGraph, err := graph.New(ctx, graph.Config{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
		})
		if err != nil {
			return fmt.Errorf("connect to graph store: %w", err)
		}
		defer func() {
			if closeErr := neoGraph.Close(context.Background()); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close graph driver")
			}
		}()
		coauthors = neoGraph
		logger.Info().Str("uri", cfg.Graph.URI).Msg("graph store connected")
	} else {
		logger.Warn().Msg("graph store not configured, collaborator endpoints disabled")
	}

	// Object storage.
	var store storage.ObjectStore
	if cfg.Storage.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("connect to object storage: %w", err)
		}
		store = minioStore
		logger.Info().Str("endpoint", cfg.Storage.Endpoint).Str("bucket", cfg.Storage.Bucket).Msg("object storage connected")
	} else {
		logger.Warn().Msg("object storage not configured, upload endpoint disabled")
	}

	// Analysis engine.
	analyzer := llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	// Job producer.
	producer := jobs.NewProducer(jobs.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, jobRepo, logger)
	defer func() {
		if closeErr := producer.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close job producer")
		}
	}()

	// Services.
	ingestSvc := ingest.NewService(registry, paperRepo, index, coauthors, metrics, logger)
	analysisSvc := analysis.NewService(paperRepo, fileRepo, analysisRepo, jobRepo, analyzer, store, metrics, logger)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		httpserver.Repositories{
			Users:     userRepo,
			Papers:    paperRepo,
			Files:     fileRepo,
			Analyses:  analysisRepo,
			Jobs:      jobRepo,
			Grants:    grantRepo,
			Proposals: proposalRepo,
		},
		ingestSvc,
		analysisSvc,
		producer,
		index,
		coauthors,
		store,
		db,
		metrics,
		logger,
	)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-enrichment-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-enrichment-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-enrichment-service shutdown complete")
	return nil
}
