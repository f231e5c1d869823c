package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// AnalysisRepository handles structured analysis results. Every completed
// analysis run appends a new row; results are never updated in place, so a
// paper accumulates one row per run.
type AnalysisRepository interface {
	// Create inserts a new analysis record.
	// Returns domain.ErrNotFound if the paper does not exist.
	Create(ctx context.Context, analysis *domain.Analysis) (*domain.Analysis, error)

	// GetByID retrieves an analysis by its UUID.
	// Returns domain.ErrNotFound if no matching analysis exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error)

	// ListByPaper retrieves all analyses for a paper, newest first.
	// Returns an empty slice if the paper has no analyses.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Analysis, error)
}
