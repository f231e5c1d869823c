package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// PaperFileRepository handles references to uploaded documents held in
// object storage. The file bytes themselves live in the object store; rows
// here only carry the storage path and basic metadata.
type PaperFileRepository interface {
	// Create inserts a new file reference.
	// Returns domain.ErrNotFound if the paper does not exist.
	Create(ctx context.Context, file *domain.PaperFile) (*domain.PaperFile, error)

	// GetByID retrieves a file reference by its UUID.
	// Returns domain.ErrNotFound if no matching file exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaperFile, error)

	// GetLatestByPaper retrieves the most recently uploaded file for a paper.
	// Returns domain.ErrNotFound if the paper has no files.
	GetLatestByPaper(ctx context.Context, paperID uuid.UUID) (*domain.PaperFile, error)

	// UpdatePages sets the page count once text extraction has run.
	// Returns domain.ErrNotFound if no matching file exists.
	UpdatePages(ctx context.Context, id uuid.UUID, pages int) error
}
