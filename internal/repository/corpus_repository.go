package repository

import (
	"context"

	"github.com/chive-archive/citation-service/internal/domain"
)

// CorpusRepository provides read-only lookups into the indexed documents
// table. The table is owned by the indexing subsystem; this service never
// writes it.
type CorpusRepository interface {
	// FindURIByDOI resolves a normalized (lowercase, prefix-stripped) DOI to
	// a document URI. Returns domain.ErrNotFound when no document matches or
	// when more than one document claims the DOI.
	FindURIByDOI(ctx context.Context, doi string) (string, error)

	// FindURIByNormalizedTitle resolves a normalized title to a document URI.
	// Returns domain.ErrNotFound when no document matches or when the title
	// is ambiguous.
	FindURIByNormalizedTitle(ctx context.Context, title string) (string, error)

	// GetByURI returns the corpus record for a document URI.
	// Returns domain.ErrNotFound when the document is not indexed.
	GetByURI(ctx context.Context, uri string) (*domain.CorpusDocument, error)
}
