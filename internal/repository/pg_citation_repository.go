package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chive-archive/citation-service/internal/domain"
)

// Compile-time interface verification.
var _ CitationRepository = (*PgCitationRepository)(nil)

// PgCitationRepository is a PostgreSQL implementation of CitationRepository.
type PgCitationRepository struct {
	db TxDBTX
}

// NewPgCitationRepository creates a new PostgreSQL citation repository.
func NewPgCitationRepository(db TxDBTX) *PgCitationRepository {
	return &PgCitationRepository{db: db}
}

const insertCitationQuery = `
	INSERT INTO citations (
		id, citing_uri, raw_text, title, doi, source,
		chive_match_uri, match_confidence, match_method, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`

// ReplaceCitations atomically replaces the citation set for a document.
// The delete and the batch insert run in one transaction; a failed insert
// rolls the delete back.
func (r *PgCitationRepository) ReplaceCitations(ctx context.Context, citingURI string, citations []domain.CanonicalCitation) error {
	if citingURI == "" {
		return domain.NewValidationError("citing_uri", "is required")
	}
	for i := range citations {
		if citations[i].CitingURI != citingURI {
			return domain.NewValidationError("citations", fmt.Sprintf("citation %d belongs to %q", i, citations[i].CitingURI))
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op after commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM citations WHERE citing_uri = $1`, citingURI); err != nil {
		return fmt.Errorf("failed to delete existing citations: %w", err)
	}

	if len(citations) > 0 {
		batch := &pgx.Batch{}
		for i := range citations {
			c := &citations[i]
			batch.Queue(insertCitationQuery,
				c.ID,
				c.CitingURI,
				c.RawText,
				c.Title,
				c.DOI,
				c.Source,
				c.ChiveMatchURI,
				c.MatchConfidence,
				c.MatchMethod,
				c.CreatedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range citations {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert citation at index %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByCitingURI returns the stored citation set for a document.
func (r *PgCitationRepository) GetByCitingURI(ctx context.Context, citingURI string) ([]domain.CanonicalCitation, error) {
	if citingURI == "" {
		return nil, domain.NewValidationError("citing_uri", "is required")
	}

	query := `
		SELECT id, citing_uri, raw_text, title, doi, source,
			chive_match_uri, match_confidence, match_method, created_at
		FROM citations
		WHERE citing_uri = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, citingURI)
	if err != nil {
		return nil, fmt.Errorf("failed to query citations: %w", err)
	}
	defer rows.Close()

	citations := make([]domain.CanonicalCitation, 0)
	for rows.Next() {
		var c domain.CanonicalCitation
		if err := rows.Scan(
			&c.ID,
			&c.CitingURI,
			&c.RawText,
			&c.Title,
			&c.DOI,
			&c.Source,
			&c.ChiveMatchURI,
			&c.MatchConfidence,
			&c.MatchMethod,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan citation: %w", err)
		}
		citations = append(citations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate citations: %w", err)
	}

	return citations, nil
}

// CountByCitingURI returns the number of stored citations for a document.
func (r *PgCitationRepository) CountByCitingURI(ctx context.Context, citingURI string) (int64, error) {
	if citingURI == "" {
		return 0, domain.NewValidationError("citing_uri", "is required")
	}

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM citations WHERE citing_uri = $1`, citingURI).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count citations: %w", err)
	}

	return count, nil
}
