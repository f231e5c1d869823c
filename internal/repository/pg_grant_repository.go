package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ GrantRepository = (*PgGrantRepository)(nil)

// PgGrantRepository is a PostgreSQL implementation of GrantRepository.
type PgGrantRepository struct {
	db DBTX
}

// NewPgGrantRepository creates a new PostgreSQL grant repository.
func NewPgGrantRepository(db DBTX) *PgGrantRepository {
	return &PgGrantRepository{db: db}
}

// Create inserts a new grant.
func (r *PgGrantRepository) Create(ctx context.Context, grant *domain.Grant) (*domain.Grant, error) {
	if grant == nil {
		return nil, domain.NewValidationError("grant", "grant cannot be nil")
	}
	if grant.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO grants (id, source, call_id, title, deadline, url, agency, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		grant.ID,
		grant.Source,
		grant.CallID,
		grant.Title,
		grant.Deadline,
		grant.URL,
		grant.Agency,
		grant.Tags,
		now,
	).Scan(&grant.ID, &grant.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	return grant, nil
}

// GetByID retrieves a grant by its UUID.
func (r *PgGrantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error) {
	query := `
		SELECT id, source, call_id, title, deadline, url, agency, tags, created_at
		FROM grants
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("grant", id.String())
		}
		return nil, fmt.Errorf("failed to get grant by ID: %w", err)
	}

	return grant, nil
}

// List retrieves grants matching the filter criteria.
func (r *PgGrantRepository) List(ctx context.Context, filter GrantFilter) ([]*domain.Grant, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Agency != "" {
		conditions = append(conditions, fmt.Sprintf("agency = $%d", argPos))
		args = append(args, filter.Agency)
		argPos++
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argPos))
		args = append(args, filter.Tag)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, source, call_id, title, deadline, url, agency, tags, created_at
		FROM grants
		%s
		ORDER BY deadline ASC NULLS LAST
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	grants := make([]*domain.Grant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grant rows: %w", err)
	}

	return grants, nil
}

// scanGrant scans a single grant row, tolerating NULL optional columns.
func scanGrant(row pgx.Row) (*domain.Grant, error) {
	var grant domain.Grant
	var source, callID, url, agency *string

	err := row.Scan(
		&grant.ID,
		&source,
		&callID,
		&grant.Title,
		&grant.Deadline,
		&url,
		&agency,
		&grant.Tags,
		&grant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if source != nil {
		grant.Source = *source
	}
	if callID != nil {
		grant.CallID = *callID
	}
	if url != nil {
		grant.URL = *url
	}
	if agency != nil {
		grant.Agency = *agency
	}

	return &grant, nil
}
