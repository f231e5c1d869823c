package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ JobRepository = (*PgJobRepository)(nil)

// PgJobRepository is a PostgreSQL implementation of JobRepository.
type PgJobRepository struct {
	db DBTX
}

// NewPgJobRepository creates a new PostgreSQL job repository.
func NewPgJobRepository(db DBTX) *PgJobRepository {
	return &PgJobRepository{db: db}
}

// Create inserts a new job in the queued state.
func (r *PgJobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job == nil {
		return nil, domain.NewValidationError("job", "job cannot be nil")
	}
	if job.Kind == "" {
		return nil, domain.NewValidationError("kind", "kind is required")
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = domain.JobStatusQueued

	query := `
		INSERT INTO jobs (id, kind, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		job.ID,
		job.Kind,
		rawOrNil(job.Payload),
		job.Status,
	).Scan(&job.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// GetByID retrieves a job by its UUID.
func (r *PgJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, kind, payload, status, started_at, finished_at, error
		FROM jobs
		WHERE id = $1`

	var job domain.Job
	var errMsg *string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Kind,
		&job.Payload,
		&job.Status,
		&job.StartedAt,
		&job.FinishedAt,
		&errMsg,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("job", id.String())
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}

	if errMsg != nil {
		job.Error = *errMsg
	}

	return &job, nil
}

// MarkRunning transitions a queued job to running.
func (r *PgJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4`

	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, id, domain.JobStatusRunning, now, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("job", id.String())
	}

	return nil
}

// MarkSucceeded transitions a running job to succeeded.
func (r *PgJobRepository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $2, finished_at = $3
		WHERE id = $1 AND status = $4`

	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, id, domain.JobStatusSucceeded, now, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job succeeded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("job", id.String())
	}

	return nil
}

// MarkFailed transitions a running job to failed with a failure message.
func (r *PgJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, finished_at = $3, error = $4
		WHERE id = $1 AND status = $5`

	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, id, domain.JobStatusFailed, now, errMsg, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("job", id.String())
	}

	return nil
}
