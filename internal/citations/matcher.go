package citations

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chive-archive/citation-service/internal/domain"
)

// DefaultTitleMatchConfidence is the confidence assigned to title-based
// matches. Title matching is a weaker identification method than DOI
// matching, so it never reaches 1.0.
const DefaultTitleMatchConfidence = 0.7

// CorpusIndex is the read path into the indexed Chive corpus used to
// resolve canonical citations. Lookups return domain.ErrNotFound when no
// document matches; an ambiguous lookup is treated the same way.
type CorpusIndex interface {
	// FindURIByDOI resolves a normalized (lowercase, prefix-stripped) DOI
	// to a document URI.
	FindURIByDOI(ctx context.Context, doi string) (string, error)

	// FindURIByNormalizedTitle resolves a normalized title to a document URI.
	FindURIByNormalizedTitle(ctx context.Context, title string) (string, error)
}

// Matcher resolves canonical citations against the local corpus. Matching
// is exact-key only: a case-insensitive DOI lookup first, then a
// normalized-title lookup. No fuzzy or embedding-based matching is done.
type Matcher struct {
	corpus          CorpusIndex
	titleConfidence float64
	logger          zerolog.Logger
}

// NewMatcher creates a matcher over the given corpus index. If
// titleConfidence is not in (0, 1), DefaultTitleMatchConfidence is used.
func NewMatcher(corpus CorpusIndex, titleConfidence float64, logger zerolog.Logger) *Matcher {
	if titleConfidence <= 0 || titleConfidence >= 1 {
		titleConfidence = DefaultTitleMatchConfidence
	}
	return &Matcher{
		corpus:          corpus,
		titleConfidence: titleConfidence,
		logger:          logger.With().Str("component", "matcher").Logger(),
	}
}

// MatchCitations annotates each citation with its corpus match, if any.
// The input slice is not modified; the returned slice preserves order.
// Corpus read failures are returned to the caller: the corpus is a required
// collaborator and a failed read fails the run, unlike extractor failures.
func (m *Matcher) MatchCitations(ctx context.Context, citations []domain.CanonicalCitation) ([]domain.CanonicalCitation, error) {
	matched := make([]domain.CanonicalCitation, len(citations))
	copy(matched, citations)

	for i := range matched {
		if err := m.matchOne(ctx, &matched[i]); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// matchOne runs the two-phase lookup for a single citation in place.
func (m *Matcher) matchOne(ctx context.Context, c *domain.CanonicalCitation) error {
	c.ChiveMatchURI = ""
	c.MatchConfidence = 0
	c.MatchMethod = domain.MatchMethodNone

	if doi := NormalizeDOI(c.DOI); doi != "" {
		uri, err := m.corpus.FindURIByDOI(ctx, doi)
		switch {
		case err == nil:
			if uri == c.CitingURI {
				// A reference resolving to the citing document itself is a
				// self-citation; report it as unmatched.
				m.logger.Debug().Str("citing_uri", c.CitingURI).Str("doi", doi).
					Msg("self-citation suppressed")
				return nil
			}
			c.ChiveMatchURI = uri
			c.MatchConfidence = domain.DOIMatchConfidence
			c.MatchMethod = domain.MatchMethodDOI
			return nil
		case errors.Is(err, domain.ErrNotFound):
			// Fall through to the title phase.
		default:
			return fmt.Errorf("doi lookup: %w", err)
		}
	}

	if title := NormalizeTitle(c.Title); title != "" {
		uri, err := m.corpus.FindURIByNormalizedTitle(ctx, title)
		switch {
		case err == nil:
			if uri == c.CitingURI {
				m.logger.Debug().Str("citing_uri", c.CitingURI).Str("title", title).
					Msg("self-citation suppressed")
				return nil
			}
			c.ChiveMatchURI = uri
			c.MatchConfidence = m.titleConfidence
			c.MatchMethod = domain.MatchMethodTitle
			return nil
		case errors.Is(err, domain.ErrNotFound):
			return nil
		default:
			return fmt.Errorf("title lookup: %w", err)
		}
	}

	return nil
}

// TitleConfidence returns the confidence assigned to title matches.
func (m *Matcher) TitleConfidence() float64 {
	return m.titleConfidence
}
