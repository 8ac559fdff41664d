// Package main provides the entry point for the citation service HTTP server.
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

	"github.com/chive-archive/citation-service/internal/citations"
	"github.com/chive-archive/citation-service/internal/config"
	"github.com/chive-archive/citation-service/internal/database"
	"github.com/chive-archive/citation-service/internal/docstore"
	"github.com/chive-archive/citation-service/internal/enrichers/openalex"
	"github.com/chive-archive/citation-service/internal/enrichers/semanticscholar"
	"github.com/chive-archive/citation-service/internal/events"
	"github.com/chive-archive/citation-service/internal/graphstore"
	"github.com/chive-archive/citation-service/internal/grobid"
	"github.com/chive-archive/citation-service/internal/observability"
	"github.com/chive-archive/citation-service/internal/repository"
	"github.com/chive-archive/citation-service/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("citation-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
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

	// Create repositories.
	citationRepo := repository.NewPgCitationRepository(db)
	corpusRepo := repository.NewPgCorpusRepository(db)

	// Open the local citation graph store.
	graphStore, err := graphstore.Open(cfg.GraphStore.Path)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer func() {
		if closeErr := graphStore.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close graph store")
		}
	}()
	logger.Info().Str("path", cfg.GraphStore.Path).Msg("graph store opened")

	// Set up Prometheus metrics if enabled.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("chive_citations")
	}

	// Create the document store client.
	documents, err := docstore.NewClient(docstore.Config{
		BaseURL: cfg.DocumentStore.BaseURL,
		Timeout: cfg.DocumentStore.Timeout,
		MaxSize: cfg.DocumentStore.MaxSizeBytes,
	})
	if err != nil {
		return fmt.Errorf("create document store client: %w", err)
	}

	// Create the structural extractor if enabled.
	var extractor citations.StructuralExtractor
	if cfg.Grobid.Enabled {
		extractor = grobid.NewClient(grobid.Config{
			BaseURL: cfg.Grobid.BaseURL,
			Timeout: cfg.Grobid.Timeout,
		})
		logger.Info().Str("base_url", cfg.Grobid.BaseURL).Msg("structural extractor configured")
	}

	// Create scholarly-graph enrichers. Slice order is the dedup priority
	// order after the structural extractor.
	var enricherClients []citations.Enricher
	if cfg.Enrichers.SemanticScholar.Enabled {
		enricherClients = append(enricherClients, semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:   cfg.Enrichers.SemanticScholar.BaseURL,
			APIKey:    cfg.Enrichers.SemanticScholar.APIKey,
			Timeout:   cfg.Enrichers.SemanticScholar.Timeout,
			RateLimit: cfg.Enrichers.SemanticScholar.RateLimit,
		}, nil))
	}
	if cfg.Enrichers.OpenAlex.Enabled {
		enricherClients = append(enricherClients, openalex.New(openalex.Config{
			BaseURL:   cfg.Enrichers.OpenAlex.BaseURL,
			Email:     cfg.Enrichers.OpenAlex.Email,
			Timeout:   cfg.Enrichers.OpenAlex.Timeout,
			RateLimit: cfg.Enrichers.OpenAlex.RateLimit,
		}))
	}
	logger.Info().Int("enrichers", len(enricherClients)).Msg("enrichers configured")

	// Create the corpus matcher.
	matcher := citations.NewMatcher(corpusRepo, cfg.Extraction.TitleMatchConfidence, logger)

	// Create the Kafka publisher if event streaming is enabled.
	var publisher citations.RunPublisher
	var kafkaPublisher *events.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = events.NewPublisher(events.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.CitationsExtractedTopic,
		}, metrics, logger)
		publisher = kafkaPublisher
		defer func() {
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close event publisher")
			}
		}()
	}

	// Create the extraction orchestrator.
	extractionService := citations.NewService(
		documents,
		extractor,
		enricherClients,
		matcher,
		citationRepo,
		graphStore,
		publisher,
		metrics,
		logger,
	)

	// Create the HTTP API server.
	httpCfg := server.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := server.NewServer(
		httpCfg,
		extractionService,
		citationRepo,
		graphStore,
		db,
		graphStore,
		metrics,
		logger,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
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

	// Channel to collect server errors.
	errCh := make(chan error, 3)

	// Start HTTP API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Start the document event listener if Kafka is enabled.
	var listener *events.Listener
	if cfg.Kafka.Enabled {
		listener = events.NewListener(events.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.DocumentIndexedTopic,
			GroupID: cfg.Kafka.GroupID,
		}, extractionService, metrics, logger)

		go func() {
			logger.Info().
				Str("topic", cfg.Kafka.DocumentIndexedTopic).
				Str("group_id", cfg.Kafka.GroupID).
				Msg("document event listener starting")
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("document listener error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("citation-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down citation-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shut down HTTP API server with timeout.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Shut down metrics server if running.
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	// Close the Kafka reader so the consumer group rebalances promptly.
	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error().Err(err).Msg("document listener close error")
		}
	}

	logger.Info().Msg("citation-service shutdown complete")
	return nil
}
