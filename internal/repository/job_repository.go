package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// JobRepository tracks background job lifecycle state. A job moves through
// queued -> running -> succeeded | failed; transitions are one-way.
type JobRepository interface {
	// Create inserts a new job in the queued state.
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)

	// GetByID retrieves a job by its UUID.
	// Returns domain.ErrNotFound if no matching job exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// MarkRunning transitions a queued job to running and records the
	// start time. Returns domain.ErrNotFound if no queued job matches.
	MarkRunning(ctx context.Context, id uuid.UUID) error

	// MarkSucceeded transitions a running job to succeeded and records the
	// finish time. Returns domain.ErrNotFound if no running job matches.
	MarkSucceeded(ctx context.Context, id uuid.UUID) error

	// MarkFailed transitions a running job to failed, recording the finish
	// time and the failure message.
	// Returns domain.ErrNotFound if no running job matches.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
