package citations

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/observability"
)

// DocumentSource supplies the raw PDF bytes for an indexed document.
type DocumentSource interface {
	GetBytes(ctx context.Context, ownerID, contentID string) ([]byte, error)
}

// StructuralExtractor turns PDF bytes into raw structured references.
// Implementations throw only for programmer error; operational failures
// surface as ordinary errors and are absorbed by the orchestrator.
type StructuralExtractor interface {
	IsAvailable(ctx context.Context) bool
	ExtractReferences(ctx context.Context, pdf []byte) ([]domain.RawReference, error)
}

// Enricher fetches a paper's known reference list from an external
// bibliographic graph, keyed by the citing document's DOI.
type Enricher interface {
	// Source identifies the enricher for counting and dedup priority.
	Source() domain.SourceType
	// Name is the human-readable name used in logs and failure notes.
	Name() string
	// GetPaperByDOI resolves a DOI to the enricher's internal paper ID.
	// Returns domain.ErrNotFound when the graph does not know the paper.
	GetPaperByDOI(ctx context.Context, doi string) (string, error)
	// GetReferences returns the paper's full reference list, drained
	// across the enricher's internal pagination before returning.
	GetReferences(ctx context.Context, externalID string) ([]domain.RawReference, error)
}

// CitationWriter replaces the stored canonical citation rows for a document.
type CitationWriter interface {
	ReplaceCitations(ctx context.Context, citingURI string, citations []domain.CanonicalCitation) error
}

// GraphWriter replaces the stored outgoing edges for a document.
type GraphWriter interface {
	ReplaceEdges(ctx context.Context, citingURI string, edges []domain.CitationRelationship) error
}

// RunPublisher is notified after a successful extraction run. Publishing is
// best-effort; a publish failure never fails the run.
type RunPublisher interface {
	PublishExtracted(ctx context.Context, result *domain.ExtractionResult) error
}

// Service orchestrates citation extraction: it sequences the structural
// extractor and enrichers, merges their output into the canonical citation
// set, resolves citations against the corpus, and replaces both stores.
//
// Concurrent runs for the same document are serialized on a per-document
// lock; runs for different documents proceed in parallel. All reads and
// matching complete before the first write, so a cancelled or failed read
// phase leaves both stores untouched.
type Service struct {
	documents DocumentSource
	extractor StructuralExtractor
	enrichers []Enricher
	matcher   *Matcher
	citations CitationWriter
	graph     GraphWriter
	publisher RunPublisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	locks     *keyedMutex
}

// NewService creates the extraction orchestrator. The extractor and
// publisher may be nil; enrichers may be empty. The slice order of
// enrichers is the dedup priority order after the structural extractor.
func NewService(
	documents DocumentSource,
	extractor StructuralExtractor,
	enrichers []Enricher,
	matcher *Matcher,
	citationWriter CitationWriter,
	graphWriter GraphWriter,
	publisher RunPublisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		documents: documents,
		extractor: extractor,
		enrichers: enrichers,
		matcher:   matcher,
		citations: citationWriter,
		graph:     graphWriter,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "citation-extraction").Logger(),
		locks:     newKeyedMutex(),
	}
}

// ExtractCitations runs the full pipeline for one document and returns the
// run summary. Extractor and enricher failures are non-fatal: they are
// recorded as per-source notes and contribute zero references. Corpus read
// failures and store write failures fail the run with Success=false and the
// underlying error.
func (s *Service) ExtractCitations(ctx context.Context, documentURI string, opts domain.ExtractionOptions) (*domain.ExtractionResult, error) {
	if documentURI == "" {
		return nil, domain.NewValidationError("document_uri", "is required")
	}

	s.locks.Lock(documentURI)
	defer s.locks.Unlock(documentURI)

	start := time.Now()
	result := domain.NewExtractionResult(documentURI)
	logger := s.logger.With().Str("citing_uri", documentURI).Logger()

	if s.metrics != nil {
		s.metrics.ExtractionsStarted.Inc()
	}
	logger.Info().
		Bool("structural", opts.UseStructuralExtractor).
		Bool("enrichers", opts.UseEnrichers).
		Str("doi", opts.DOI).
		Msg("citation extraction started")

	// Read phase: gather raw references from every configured source in
	// priority order. Each source is independently fault-isolated.
	var raw []domain.RawReference
	if opts.UseStructuralExtractor && s.extractor != nil {
		raw = append(raw, s.runStructural(ctx, opts, result, logger)...)
	}
	if opts.UseEnrichers && opts.DOI != "" {
		for _, enricher := range s.enrichers {
			raw = append(raw, s.runEnricher(ctx, enricher, opts.DOI, result, logger)...)
		}
	}

	canonical := Deduplicate(documentURI, raw)
	result.TotalExtracted = len(canonical)

	matched, err := s.matcher.MatchCitations(ctx, canonical)
	if err != nil {
		return s.fail(result, start, logger, fmt.Errorf("corpus matching: %w", err))
	}

	edges := make([]domain.CitationRelationship, 0, len(matched))
	for i := range matched {
		if !matched[i].Matched() {
			continue
		}
		result.MatchedToChive++
		edges = append(edges, domain.CitationRelationship{
			CitingURI:  documentURI,
			CitedURI:   matched[i].ChiveMatchURI,
			Confidence: matched[i].MatchConfidence,
			CreatedAt:  matched[i].CreatedAt,
		})
	}

	// The write phase is a short, non-interruptible critical section.
	// Cancellation up to this point discards all work with no mutation.
	if err := ctx.Err(); err != nil {
		return s.fail(result, start, logger, fmt.Errorf("%w: %w", domain.ErrCancelled, err))
	}

	if err := s.citations.ReplaceCitations(ctx, documentURI, matched); err != nil {
		return s.fail(result, start, logger, domain.NewPersistenceError("citation", "replace", err))
	}
	// The graph writer is always invoked, even with an empty edge set, so a
	// re-run that matched nothing still clears stale edges.
	if err := s.graph.ReplaceEdges(ctx, documentURI, edges); err != nil {
		return s.fail(result, start, logger, domain.NewPersistenceError("graph", "replace edges", err))
	}

	result.Success = true
	result.DurationMs = time.Since(start).Milliseconds()

	if s.metrics != nil {
		s.metrics.ExtractionsCompleted.Inc()
		s.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
		s.metrics.CitationsMatched.Add(float64(result.MatchedToChive))
		s.metrics.EdgesWritten.Add(float64(len(edges)))
		for i := range matched {
			s.metrics.MatchesByMethod.WithLabelValues(string(matched[i].MatchMethod)).Inc()
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExtracted(ctx, result); err != nil {
			logger.Warn().Err(err).Msg("failed to publish extraction event")
		}
	}

	logger.Info().
		Int("total_extracted", result.TotalExtracted).
		Int("matched_to_chive", result.MatchedToChive).
		Int64("duration_ms", result.DurationMs).
		Msg("citation extraction completed")

	return result, nil
}

// MatchCitations exposes the corpus matcher independently of a full
// extraction run, for callers that already hold a citation set.
func (s *Service) MatchCitations(ctx context.Context, citations []domain.CanonicalCitation) ([]domain.CanonicalCitation, error) {
	return s.matcher.MatchCitations(ctx, citations)
}

// runStructural fetches the document bytes and runs the structural
// extractor. Every failure mode contributes an empty list and a note.
func (s *Service) runStructural(ctx context.Context, opts domain.ExtractionOptions, result *domain.ExtractionResult, logger zerolog.Logger) []domain.RawReference {
	source := domain.SourceTypeStructural
	result.SourceCounts[source] = 0

	if !s.extractor.IsAvailable(ctx) {
		s.recordSourceFailure(result, source, "extractor unavailable", nil, logger)
		return nil
	}

	if s.documents == nil {
		s.recordSourceFailure(result, source, "no document source configured", nil, logger)
		return nil
	}
	pdf, err := s.documents.GetBytes(ctx, opts.OwnerID, opts.ContentID)
	if err != nil {
		s.recordSourceFailure(result, source, "fetch document bytes", err, logger)
		return nil
	}

	refs, err := s.extractor.ExtractReferences(ctx, pdf)
	if err != nil {
		s.recordSourceFailure(result, source, "extract references", err, logger)
		return nil
	}

	result.SourceCounts[source] = len(refs)
	if s.metrics != nil {
		s.metrics.ReferencesExtracted.WithLabelValues(string(source)).Add(float64(len(refs)))
	}
	logger.Debug().Int("count", len(refs)).Msg("structural extraction finished")
	return refs
}

// runEnricher queries one scholarly-graph enricher for the document's
// reference list. Not-found DOIs and all operational failures contribute an
// empty list.
func (s *Service) runEnricher(ctx context.Context, enricher Enricher, doi string, result *domain.ExtractionResult, logger zerolog.Logger) []domain.RawReference {
	source := enricher.Source()
	result.SourceCounts[source] = 0

	externalID, err := enricher.GetPaperByDOI(ctx, doi)
	if err != nil {
		s.recordSourceFailure(result, source, enricher.Name()+" paper lookup", err, logger)
		return nil
	}

	refs, err := enricher.GetReferences(ctx, externalID)
	if err != nil {
		s.recordSourceFailure(result, source, enricher.Name()+" references", err, logger)
		return nil
	}

	result.SourceCounts[source] = len(refs)
	if s.metrics != nil {
		s.metrics.ReferencesExtracted.WithLabelValues(string(source)).Add(float64(len(refs)))
	}
	logger.Debug().Str("enricher", enricher.Name()).Int("count", len(refs)).Msg("enrichment finished")
	return refs
}

// recordSourceFailure notes a non-fatal source failure on the result.
func (s *Service) recordSourceFailure(result *domain.ExtractionResult, source domain.SourceType, op string, err error, logger zerolog.Logger) {
	note := op
	if err != nil {
		note = fmt.Sprintf("%s: %v", op, err)
	}
	result.SourceErrors[source] = note
	if s.metrics != nil {
		s.metrics.SourceFailures.WithLabelValues(string(source)).Inc()
	}
	logger.Warn().Str("source", string(source)).Str("note", note).Msg("extraction source failed")
}

// fail finalizes a failed run.
func (s *Service) fail(result *domain.ExtractionResult, start time.Time, logger zerolog.Logger, err error) (*domain.ExtractionResult, error) {
	result.Success = false
	result.Error = err.Error()
	result.DurationMs = time.Since(start).Milliseconds()
	if s.metrics != nil {
		s.metrics.ExtractionsFailed.Inc()
	}
	logger.Error().Err(err).Msg("citation extraction failed")
	return result, err
}
