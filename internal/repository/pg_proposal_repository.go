package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ ProposalRepository = (*PgProposalRepository)(nil)

// PgProposalRepository is a PostgreSQL implementation of ProposalRepository.
type PgProposalRepository struct {
	db DBTX
}

// NewPgProposalRepository creates a new PostgreSQL proposal repository.
func NewPgProposalRepository(db DBTX) *PgProposalRepository {
	return &PgProposalRepository{db: db}
}

// Create inserts a new proposal.
func (r *PgProposalRepository) Create(ctx context.Context, proposal *domain.Proposal) (*domain.Proposal, error) {
	if proposal == nil {
		return nil, domain.NewValidationError("proposal", "proposal cannot be nil")
	}
	if len(proposal.Content) == 0 {
		return nil, domain.NewValidationError("content", "content is required")
	}

	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO proposals (id, user_id, domain, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		proposal.ID,
		proposal.UserID,
		proposal.Domain,
		[]byte(proposal.Content),
		now,
	).Scan(&proposal.ID, &proposal.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("user", proposal.UserID.String())
		}
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	return proposal, nil
}

// GetByID retrieves a proposal by its UUID.
func (r *PgProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	query := `
		SELECT id, user_id, domain, content, created_at
		FROM proposals
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	proposal, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("proposal", id.String())
		}
		return nil, fmt.Errorf("failed to get proposal by ID: %w", err)
	}

	return proposal, nil
}

// ListByUser retrieves all proposals owned by a user, newest first.
func (r *PgProposalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Proposal, error) {
	query := `
		SELECT id, user_id, domain, content, created_at
		FROM proposals
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]*domain.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal row: %w", err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate proposal rows: %w", err)
	}

	return proposals, nil
}

// scanProposal scans a single proposal row, tolerating a NULL domain column.
func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var proposal domain.Proposal
	var dom *string

	err := row.Scan(&proposal.ID, &proposal.UserID, &dom, &proposal.Content, &proposal.CreatedAt)
	if err != nil {
		return nil, err
	}

	if dom != nil {
		proposal.Domain = *dom
	}

	return &proposal, nil
}
