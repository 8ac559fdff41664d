// Package repository provides data access interfaces and implementations
// for the Chive citation service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL
// implementations following the repository pattern to abstract data
// persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - CitationRepository: Manages the canonical citation rows per document
//   - CorpusRepository: Read-only lookups into the indexed documents table
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple
// goroutines. The underlying pgxpool handles connection pooling and
// synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// ReplaceCitations manages its own transaction via TxDBTX so the
// delete-and-insert pair commits atomically.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chive-archive/citation-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and
// transactions.
type DBTX = database.DBTX

// TxDBTX is a DBTX that can also open transactions. The connection pool and
// pgxmock both satisfy it.
type TxDBTX interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}
