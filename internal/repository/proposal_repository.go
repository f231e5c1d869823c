package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// ProposalRepository handles user-authored proposal documents.
type ProposalRepository interface {
	// Create inserts a new proposal.
	// Returns domain.ErrNotFound if the owning user does not exist.
	Create(ctx context.Context, proposal *domain.Proposal) (*domain.Proposal, error)

	// GetByID retrieves a proposal by its UUID.
	// Returns domain.ErrNotFound if no matching proposal exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)

	// ListByUser retrieves all proposals owned by a user, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Proposal, error)
}
