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
var _ UserRepository = (*PgUserRepository)(nil)

// PgUserRepository is a PostgreSQL implementation of UserRepository.
type PgUserRepository struct {
	db DBTX
}

// NewPgUserRepository creates a new PostgreSQL user repository.
func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// Create inserts a new user.
func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", "user cannot be nil")
	}
	if user.Email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, email, name, affiliation, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Affiliation,
		now,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("user", user.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by its UUID.
func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, name, affiliation, created_at
		FROM users
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email address.
func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	query := `
		SELECT id, email, name, affiliation, created_at
		FROM users
		WHERE email = $1`

	row := r.db.QueryRow(ctx, query, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// List retrieves users ordered by registration time, newest first.
func (r *PgUserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	applyPaginationDefaults(&limit, &offset)

	query := `
		SELECT id, email, name, affiliation, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// scanUser scans a single user row, tolerating NULL optional columns.
func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var name, affiliation *string

	err := row.Scan(&user.ID, &user.Email, &name, &affiliation, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	if name != nil {
		user.Name = *name
	}
	if affiliation != nil {
		user.Affiliation = *affiliation
	}

	return &user, nil
}
