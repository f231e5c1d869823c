package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// GrantFilter defines criteria for listing grants.
type GrantFilter struct {
	Agency string
	Tag    string
	Limit  int
	Offset int
}

// GrantRepository handles funding call records.
type GrantRepository interface {
	// Create inserts a new grant.
	// Returns domain.ErrInvalidInput if the grant has no title.
	Create(ctx context.Context, grant *domain.Grant) (*domain.Grant, error)

	// GetByID retrieves a grant by its UUID.
	// Returns domain.ErrNotFound if no matching grant exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error)

	// List retrieves grants matching the filter criteria, soonest
	// deadline first with undated calls last.
	List(ctx context.Context, filter GrantFilter) ([]*domain.Grant, error)
}
