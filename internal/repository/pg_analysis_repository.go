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
var _ AnalysisRepository = (*PgAnalysisRepository)(nil)

// PgAnalysisRepository is a PostgreSQL implementation of AnalysisRepository.
type PgAnalysisRepository struct {
	db DBTX
}

// NewPgAnalysisRepository creates a new PostgreSQL analysis repository.
func NewPgAnalysisRepository(db DBTX) *PgAnalysisRepository {
	return &PgAnalysisRepository{db: db}
}

// Create inserts a new analysis record. The plagiarism and citations
// buckets are written as given; callers that never populate them leave
// NULL in the row.
func (r *PgAnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) (*domain.Analysis, error) {
	if analysis == nil {
		return nil, domain.NewValidationError("analysis", "analysis cannot be nil")
	}
	if analysis.Status == "" {
		return nil, domain.NewValidationError("status", "status is required")
	}

	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO analyses (
			id, paper_id, status, duration_ms, findings, methods,
			datasets, gaps, limitations, plagiarism, citations, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		analysis.ID,
		analysis.PaperID,
		analysis.Status,
		analysis.DurationMS,
		rawOrNil(analysis.Findings),
		rawOrNil(analysis.Methods),
		rawOrNil(analysis.Datasets),
		rawOrNil(analysis.Gaps),
		rawOrNil(analysis.Limitations),
		rawOrNil(analysis.Plagiarism),
		rawOrNil(analysis.Citations),
		now,
	).Scan(&analysis.ID, &analysis.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("paper", analysis.PaperID.String())
		}
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	return analysis, nil
}

// GetByID retrieves an analysis by its UUID.
func (r *PgAnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	query := `
		SELECT id, paper_id, status, duration_ms, findings, methods,
			datasets, gaps, limitations, plagiarism, citations, created_at
		FROM analyses
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	analysis, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("analysis", id.String())
		}
		return nil, fmt.Errorf("failed to get analysis by ID: %w", err)
	}

	return analysis, nil
}

// ListByPaper retrieves all analyses for a paper, newest first.
func (r *PgAnalysisRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Analysis, error) {
	query := `
		SELECT id, paper_id, status, duration_ms, findings, methods,
			datasets, gaps, limitations, plagiarism, citations, created_at
		FROM analyses
		WHERE paper_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*domain.Analysis, 0)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis rows: %w", err)
	}

	return analyses, nil
}

// rawOrNil converts an empty raw JSON value to nil so it persists as NULL
// instead of an empty string, which jsonb rejects.
func rawOrNil(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// scanAnalysis scans a single analysis row, tolerating NULL optional columns.
func scanAnalysis(row pgx.Row) (*domain.Analysis, error) {
	var analysis domain.Analysis
	var durationMS *int

	err := row.Scan(
		&analysis.ID,
		&analysis.PaperID,
		&analysis.Status,
		&durationMS,
		&analysis.Findings,
		&analysis.Methods,
		&analysis.Datasets,
		&analysis.Gaps,
		&analysis.Limitations,
		&analysis.Plagiarism,
		&analysis.Citations,
		&analysis.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if durationMS != nil {
		analysis.DurationMS = *durationMS
	}

	return &analysis, nil
}
