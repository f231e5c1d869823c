package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// Create inserts a new paper.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO papers (
			id, source, source_id, title, authors, year,
			journal, url, doi, language, abstract, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Source,
		paper.SourceID,
		paper.Title,
		authorsJSON,
		paper.Year,
		paper.Journal,
		paper.URL,
		paper.DOI,
		paper.Language,
		paper.Abstract,
		now,
	).Scan(&paper.ID, &paper.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `
		SELECT id, source, source_id, title, authors, year,
			journal, url, doi, language, abstract, created_at
		FROM papers
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// GetBySourceID retrieves a paper by its (source, source_id) pair.
func (r *PgPaperRepository) GetBySourceID(ctx context.Context, source domain.SourceType, sourceID string) (*domain.Paper, error) {
	if sourceID == "" {
		return nil, domain.NewValidationError("source_id", "source ID is required")
	}

	query := `
		SELECT id, source, source_id, title, authors, year,
			journal, url, doi, language, abstract, created_at
		FROM papers
		WHERE source = $1 AND source_id = $2
		ORDER BY created_at ASC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, source, sourceID)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", fmt.Sprintf("%s:%s", source, sourceID))
		}
		return nil, fmt.Errorf("failed to get paper by source ID: %w", err)
	}

	return paper, nil
}

// List retrieves papers matching the filter criteria, newest first.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argPos))
		args = append(args, filter.Source)
		argPos++
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argPos))
		args = append(args, filter.Year)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, source, source_id, title, authors, year,
			journal, url, doi, language, abstract, created_at
		FROM papers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []*domain.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper row: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate paper rows: %w", err)
	}

	return papers, total, nil
}

// scanPaper scans a single paper row, tolerating NULL optional columns.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var paper domain.Paper
	var authorsJSON []byte
	var year *int
	var journal, url, doi, language, abstract *string

	err := row.Scan(
		&paper.ID,
		&paper.Source,
		&paper.SourceID,
		&paper.Title,
		&authorsJSON,
		&year,
		&journal,
		&url,
		&doi,
		&language,
		&abstract,
		&paper.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	if year != nil {
		paper.Year = *year
	}
	if journal != nil {
		paper.Journal = *journal
	}
	if url != nil {
		paper.URL = *url
	}
	if doi != nil {
		paper.DOI = *doi
	}
	if language != nil {
		paper.Language = *language
	}
	if abstract != nil {
		paper.Abstract = *abstract
	}

	return &paper, nil
}
