package repository

import (
	"context"

	"github.com/chive-archive/citation-service/internal/domain"
)

// CitationRepository manages the canonical citation rows of the citation
// store. The citation set for a document is always written whole: an
// extraction run replaces every row for its citing document in one
// transaction, so partial sets are never observable.
type CitationRepository interface {
	// ReplaceCitations atomically deletes the stored citation set for
	// citingURI and inserts the given one. An empty set clears the document's
	// citations. Returns domain.ErrInvalidInput if citingURI is empty or any
	// citation belongs to a different citing document.
	ReplaceCitations(ctx context.Context, citingURI string, citations []domain.CanonicalCitation) error

	// GetByCitingURI returns the stored citation set for a document in
	// insertion order. Returns an empty slice when the document has no
	// citations.
	GetByCitingURI(ctx context.Context, citingURI string) ([]domain.CanonicalCitation, error)

	// CountByCitingURI returns the number of stored citations for a document.
	CountByCitingURI(ctx context.Context, citingURI string) (int64, error)
}
