// Package papersources provides clients for external bibliographic databases.
//
// Each supported source (PubMed, arXiv) implements the PaperSource interface,
// letting the ingest service query any source through a single API. Clients
// apply per-source rate limiting and map source responses to domain.Paper.
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// SearchParams defines the parameters for searching a bibliographic source.
type SearchParams struct {
	// Query is the search query string (required). The format is
	// source-specific; both supported sources accept free text.
	Query string

	// MaxResults limits the number of papers returned in a single request.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	Offset int
}

// SearchResult contains the results from a source search operation.
type SearchResult struct {
	// Papers contains the papers returned by the search. May be empty.
	Papers []*domain.Paper

	// TotalResults is the total number of papers matching the query as
	// reported by the source, regardless of pagination.
	TotalResults int

	// Source identifies which source produced these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource is implemented by each bibliographic source client.
//
// Implementations must respect context cancellation, apply their own rate
// limiting, and translate source responses to domain.Paper values.
type PaperSource interface {
	// Search queries the source for papers matching the given parameters.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logging and error messages.
	Name() string
}
