package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// PaperFilter defines criteria for listing papers.
type PaperFilter struct {
	Source string
	Year   int
	Limit  int
	Offset int
}

// PaperRepository handles ingested paper metadata. Papers are immutable
// after creation; analysis runs never modify the originating paper row.
type PaperRepository interface {
	// Create inserts a new paper.
	// Returns the created paper with its assigned ID and timestamp.
	// Returns domain.ErrInvalidInput if the paper has no title.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// GetBySourceID retrieves a paper by its (source, source_id) pair.
	// Used for deduplication during ingest.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetBySourceID(ctx context.Context, source domain.SourceType, sourceID string) (*domain.Paper, error)

	// List retrieves papers matching the filter criteria, newest first.
	// Returns the matching papers and total count for pagination.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)
}
