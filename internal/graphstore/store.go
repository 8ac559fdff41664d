// Package graphstore persists the citation graph as an embedded SQLite
// database. The graph is the edge-level view of the citation store: one
// directed edge per matched canonical citation, replaced per citing document
// in lock-step with the citation rows.
package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chive-archive/citation-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS citation_edges (
  citing_uri TEXT NOT NULL,
  cited_uri  TEXT NOT NULL,
  confidence REAL NOT NULL,
  created_at TEXT NOT NULL,
  PRIMARY KEY (citing_uri, cited_uri)
);
CREATE INDEX IF NOT EXISTS idx_citation_edges_cited ON citation_edges(cited_uri);
`

// Store is the SQLite-backed citation graph store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the graph database at path with WAL mode enabled
// and the schema applied.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("graph store path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening graph database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying graph schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the graph database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ReplaceEdges atomically replaces the outgoing edges of a citing document.
// An empty edge set clears the document's edges; stale edges from a previous
// run never survive a replace. Two references can legitimately resolve to
// the same cited document; such edges collapse into one row keeping the
// highest confidence.
func (s *Store) ReplaceEdges(ctx context.Context, citingURI string, edges []domain.CitationRelationship) error {
	if citingURI == "" {
		return domain.NewValidationError("citing_uri", "is required")
	}
	for i := range edges {
		if edges[i].CitingURI != citingURI {
			return domain.NewValidationError("edges", fmt.Sprintf("edge %d belongs to %q", i, edges[i].CitingURI))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning graph transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM citation_edges WHERE citing_uri = ?`, citingURI); err != nil {
		return fmt.Errorf("deleting existing edges: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO citation_edges (citing_uri, cited_uri, confidence, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (citing_uri, cited_uri)
		DO UPDATE SET confidence = MAX(confidence, excluded.confidence)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for i := range edges {
		e := &edges[i]
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, e.CitingURI, e.CitedURI, e.Confidence, createdAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.CitingURI, e.CitedURI, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing graph transaction: %w", err)
	}
	return nil
}

// References returns the outgoing edges of a document: the documents it
// cites, ordered by descending confidence then cited URI.
func (s *Store) References(ctx context.Context, citingURI string) ([]domain.CitationRelationship, error) {
	return s.queryEdges(ctx, `
		SELECT citing_uri, cited_uri, confidence, created_at
		FROM citation_edges
		WHERE citing_uri = ?
		ORDER BY confidence DESC, cited_uri`, citingURI)
}

// CitedBy returns the incoming edges of a document: the documents that cite
// it, ordered by descending confidence then citing URI.
func (s *Store) CitedBy(ctx context.Context, citedURI string) ([]domain.CitationRelationship, error) {
	return s.queryEdges(ctx, `
		SELECT citing_uri, cited_uri, confidence, created_at
		FROM citation_edges
		WHERE cited_uri = ?
		ORDER BY confidence DESC, citing_uri`, citedURI)
}

// CoCitation is a document frequently cited together with another document.
type CoCitation struct {
	URI   string `json:"uri"`
	Count int    `json:"count"`
}

// CoCitedWith returns documents that share at least one citing document
// with uri, ordered by how many citing documents they share.
func (s *Store) CoCitedWith(ctx context.Context, uri string, limit int) ([]CoCitation, error) {
	if uri == "" {
		return nil, domain.NewValidationError("uri", "is required")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.cited_uri, COUNT(*) AS n
		FROM citation_edges a
		JOIN citation_edges b ON a.citing_uri = b.citing_uri
		WHERE a.cited_uri = ? AND b.cited_uri <> ?
		GROUP BY b.cited_uri
		ORDER BY n DESC, b.cited_uri
		LIMIT ?`, uri, uri, limit)
	if err != nil {
		return nil, fmt.Errorf("querying co-citations: %w", err)
	}
	defer rows.Close()

	var results []CoCitation
	for rows.Next() {
		var c CoCitation
		if err := rows.Scan(&c.URI, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning co-citation: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// EdgeCount returns the total number of edges in the graph.
func (s *Store) EdgeCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citation_edges`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting edges: %w", err)
	}
	return count, nil
}

// queryEdges runs an edge query with one URI parameter.
func (s *Store) queryEdges(ctx context.Context, query, uri string) ([]domain.CitationRelationship, error) {
	if uri == "" {
		return nil, domain.NewValidationError("uri", "is required")
	}

	rows, err := s.db.QueryContext(ctx, query, uri)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	edges := make([]domain.CitationRelationship, 0)
	for rows.Next() {
		var e domain.CitationRelationship
		var createdAt string
		if err := rows.Scan(&e.CitingURI, &e.CitedURI, &e.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
