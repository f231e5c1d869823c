package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// UserRepository handles user registration records. Users are created once
// and never updated or deleted.
type UserRepository interface {
	// Create inserts a new user.
	// Returns domain.ErrAlreadyExists if the email is already registered.
	// Returns domain.ErrInvalidInput if the email is empty.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetByID retrieves a user by its internal UUID.
	// Returns domain.ErrNotFound if no matching user exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	// Returns domain.ErrNotFound if no matching user exists.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List retrieves users ordered by registration time, newest first.
	// A limit of 0 applies the default page size.
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}
