// Package events wires the extraction pipeline to Kafka: a listener that
// consumes document-indexed events and a publisher that announces finished
// extraction runs.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/observability"
)

// DocumentIndexedEvent is emitted by the indexing pipeline when a document
// becomes part of the corpus. It carries everything extraction needs to run
// without a corpus round-trip.
type DocumentIndexedEvent struct {
	DocumentURI string `json:"document_uri"`
	DOI         string `json:"doi"`
	OwnerID     string `json:"owner_id"`
	ContentID   string `json:"content_id"`
}

// Extractor runs the citation extraction pipeline for one document.
type Extractor interface {
	ExtractCitations(ctx context.Context, documentURI string, opts domain.ExtractionOptions) (*domain.ExtractionResult, error)
}

// Listener consumes document-indexed events from Kafka and triggers citation
// extraction for each one.
type Listener struct {
	reader    *kafka.Reader
	extractor Extractor
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// ListenerConfig holds configuration for the document event listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic carrying document-indexed events.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// NewListener creates a new document event listener.
func NewListener(
	cfg ListenerConfig,
	extractor Extractor,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})

	return &Listener{
		reader:    reader,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger.With().Str("component", "document_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting document event listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("document listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received document event")

		var event DocumentIndexedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal document event")
			continue
		}

		if l.metrics != nil {
			l.metrics.EventsConsumed.Inc()
		}

		if err := l.handleDocumentIndexed(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("document_uri", event.DocumentURI).
				Msg("failed to handle document indexed event")
		}
	}
}

// handleDocumentIndexed runs extraction for one indexed document. Extraction
// failures are logged but do not stop the listener; a re-index of the same
// document produces a fresh event and a fresh run.
func (l *Listener) handleDocumentIndexed(ctx context.Context, event DocumentIndexedEvent) error {
	if event.DocumentURI == "" {
		return domain.NewValidationError("document_uri", "is required")
	}

	l.logger.Info().
		Str("document_uri", event.DocumentURI).
		Str("doi", event.DOI).
		Msg("handling document indexed event")

	opts := domain.ExtractionOptions{
		UseStructuralExtractor: event.OwnerID != "" && event.ContentID != "",
		UseEnrichers:           true,
		DOI:                    event.DOI,
		OwnerID:                event.OwnerID,
		ContentID:              event.ContentID,
	}

	result, err := l.extractor.ExtractCitations(ctx, event.DocumentURI, opts)
	if err != nil {
		return err
	}

	l.logger.Info().
		Str("document_uri", event.DocumentURI).
		Int("total_extracted", result.TotalExtracted).
		Int("matched_to_chive", result.MatchedToChive).
		Msg("extraction run completed from event")
	return nil
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing document event listener")
	return l.reader.Close()
}
