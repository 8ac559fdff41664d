package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/observability"
)

// CitationsExtractedEvent announces a finished extraction run to downstream
// consumers (search indexers, recommendation jobs).
type CitationsExtractedEvent struct {
	DocumentURI    string `json:"document_uri"`
	TotalExtracted int    `json:"total_extracted"`
	MatchedToChive int    `json:"matched_to_chive"`
	DurationMs     int64  `json:"duration_ms"`
	ExtractedAt    string `json:"extracted_at"`
}

// messageWriter is the subset of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes citations-extracted events to Kafka.
type Publisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// PublisherConfig holds configuration for the extraction event publisher.
type PublisherConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for citations-extracted events.
	Topic string
}

// NewPublisher creates a publisher backed by a real Kafka writer.
func NewPublisher(cfg PublisherConfig, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(writer, metrics, logger)
}

func newPublisher(writer messageWriter, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	return &Publisher{
		writer:  writer,
		metrics: metrics,
		logger:  logger.With().Str("component", "extraction_publisher").Logger(),
	}
}

// PublishExtracted publishes one citations-extracted event, keyed by the
// citing document URI so runs for the same document stay ordered.
func (p *Publisher) PublishExtracted(ctx context.Context, result *domain.ExtractionResult) error {
	if result == nil {
		return domain.NewValidationError("result", "is required")
	}

	event := CitationsExtractedEvent{
		DocumentURI:    result.CitingURI,
		TotalExtracted: result.TotalExtracted,
		MatchedToChive: result.MatchedToChive,
		DurationMs:     result.DurationMs,
		ExtractedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal extraction event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.CitingURI),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish extraction event: %w", err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.Inc()
	}
	p.logger.Debug().
		Str("document_uri", result.CitingURI).
		Int("matched_to_chive", result.MatchedToChive).
		Msg("published extraction event")
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
