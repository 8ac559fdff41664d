package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chive-archive/citation-service/internal/domain"
)

// Compile-time interface verification.
var _ CorpusRepository = (*PgCorpusRepository)(nil)

// PgCorpusRepository is a PostgreSQL implementation of CorpusRepository over
// the documents read model.
type PgCorpusRepository struct {
	db DBTX
}

// NewPgCorpusRepository creates a new PostgreSQL corpus repository.
func NewPgCorpusRepository(db DBTX) *PgCorpusRepository {
	return &PgCorpusRepository{db: db}
}

// FindURIByDOI resolves a normalized DOI to a document URI. An ambiguous DOI
// (claimed by more than one document) resolves to not found rather than an
// arbitrary pick.
func (r *PgCorpusRepository) FindURIByDOI(ctx context.Context, doi string) (string, error) {
	if doi == "" {
		return "", domain.NewValidationError("doi", "is required")
	}

	query := `SELECT uri FROM documents WHERE lower(doi) = $1 LIMIT 2`
	return r.findSingleURI(ctx, query, doi, "document by DOI")
}

// FindURIByNormalizedTitle resolves a normalized title to a document URI.
// Ambiguous titles resolve to not found.
func (r *PgCorpusRepository) FindURIByNormalizedTitle(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", domain.NewValidationError("title", "is required")
	}

	query := `SELECT uri FROM documents WHERE normalized_title = $1 LIMIT 2`
	return r.findSingleURI(ctx, query, title, "document by title")
}

// GetByURI returns the corpus record for a document URI.
func (r *PgCorpusRepository) GetByURI(ctx context.Context, uri string) (*domain.CorpusDocument, error) {
	if uri == "" {
		return nil, domain.NewValidationError("uri", "is required")
	}

	query := `SELECT uri, doi, title, normalized_title FROM documents WHERE uri = $1`

	var doc domain.CorpusDocument
	err := r.db.QueryRow(ctx, query, uri).Scan(&doc.URI, &doc.DOI, &doc.Title, &doc.NormalizedTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("document", uri)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// findSingleURI runs a LIMIT 2 lookup and returns the URI only when exactly
// one row matched.
func (r *PgCorpusRepository) findSingleURI(ctx context.Context, query, key, entity string) (string, error) {
	rows, err := r.db.Query(ctx, query, key)
	if err != nil {
		return "", fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return "", fmt.Errorf("failed to scan document URI: %w", err)
		}
		uris = append(uris, uri)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate documents: %w", err)
	}

	if len(uris) != 1 {
		return "", domain.NewNotFoundError(entity, key)
	}
	return uris[0], nil
}
