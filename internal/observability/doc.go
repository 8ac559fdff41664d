// Package observability provides logging and metrics support for the
// citation extraction service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for extraction runs, sources, matching, and stores
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("citing_uri", uri).Msg("extraction started")
//
// Add document context to a logger:
//
//	logger = observability.WithDocumentContext(logger, citingURI)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("chive_citations")
//
// Record metrics:
//
//	metrics.ExtractionsStarted.Inc()
//	metrics.ReferencesExtracted.WithLabelValues("structural").Add(42)
//	metrics.MatchesByMethod.WithLabelValues("doi").Inc()
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithRunID(ctx, runID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	runID := observability.RunIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - run_id: Extraction run identifier
//   - citing_uri: URI of the citing document
//   - source: Extraction source (structural, semantic_scholar, openalex)
//   - method: Match method (doi, title, none)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
