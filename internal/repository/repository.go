// Package repository provides data access interfaces and implementations
// for the paper enrichment service.
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
//   - UserRepository: Manages user registration records
//   - PaperRepository: Manages ingested paper metadata
//   - PaperFileRepository: Manages uploaded document references
//   - AnalysisRepository: Manages structured analysis results
//   - JobRepository: Manages background job lifecycle state
//   - GrantRepository: Manages funding call records
//   - ProposalRepository: Manages user proposal documents
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
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// The repositories run against the pool directly; pgx.Tx also satisfies
// DBTX when a caller needs transactional scope.
package repository

import (
	"github.com/helixir/paper-enrichment-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts. Repository constructors accept DBTX so the same implementation
// works against the pool, a pgx.Tx, or a mock in tests.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
