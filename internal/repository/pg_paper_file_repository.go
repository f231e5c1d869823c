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
var _ PaperFileRepository = (*PgPaperFileRepository)(nil)

// PgPaperFileRepository is a PostgreSQL implementation of PaperFileRepository.
type PgPaperFileRepository struct {
	db DBTX
}

// NewPgPaperFileRepository creates a new PostgreSQL paper file repository.
func NewPgPaperFileRepository(db DBTX) *PgPaperFileRepository {
	return &PgPaperFileRepository{db: db}
}

// Create inserts a new file reference.
func (r *PgPaperFileRepository) Create(ctx context.Context, file *domain.PaperFile) (*domain.PaperFile, error) {
	if file == nil {
		return nil, domain.NewValidationError("file", "file cannot be nil")
	}
	if file.StoragePath == "" {
		return nil, domain.NewValidationError("storage_path", "storage path is required")
	}

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO paper_files (id, paper_id, storage_path, mime, pages, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		file.ID,
		file.PaperID,
		file.StoragePath,
		file.MIME,
		file.Pages,
		now,
	).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("paper", file.PaperID.String())
		}
		return nil, fmt.Errorf("failed to create paper file: %w", err)
	}

	return file, nil
}

// GetByID retrieves a file reference by its UUID.
func (r *PgPaperFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaperFile, error) {
	query := `
		SELECT id, paper_id, storage_path, mime, pages, created_at
		FROM paper_files
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	file, err := scanPaperFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper_file", id.String())
		}
		return nil, fmt.Errorf("failed to get paper file by ID: %w", err)
	}

	return file, nil
}

// GetLatestByPaper retrieves the most recently uploaded file for a paper.
func (r *PgPaperFileRepository) GetLatestByPaper(ctx context.Context, paperID uuid.UUID) (*domain.PaperFile, error) {
	query := `
		SELECT id, paper_id, storage_path, mime, pages, created_at
		FROM paper_files
		WHERE paper_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, paperID)
	file, err := scanPaperFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper_file", paperID.String())
		}
		return nil, fmt.Errorf("failed to get latest paper file: %w", err)
	}

	return file, nil
}

// UpdatePages sets the page count once text extraction has run.
func (r *PgPaperFileRepository) UpdatePages(ctx context.Context, id uuid.UUID, pages int) error {
	query := `
		UPDATE paper_files
		SET pages = $2
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, pages)
	if err != nil {
		return fmt.Errorf("failed to update paper file pages: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper_file", id.String())
	}

	return nil
}

// scanPaperFile scans a single file row, tolerating NULL optional columns.
func scanPaperFile(row pgx.Row) (*domain.PaperFile, error) {
	var file domain.PaperFile
	var mime *string
	var pages *int

	err := row.Scan(&file.ID, &file.PaperID, &file.StoragePath, &mime, &pages, &file.CreatedAt)
	if err != nil {
		return nil, err
	}

	if mime != nil {
		file.MIME = *mime
	}
	if pages != nil {
		file.Pages = *pages
	}

	return &file, nil
}
