package analysis

import (
	"context"
	"fmt"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/jobs"
	"github.com/helixir/paper-enrichment-service/internal/pdftext"
)

// Compile-time check that the service can back the job consumer.
var _ jobs.Handler = (*Service)(nil)

// HandleAnalyzePDF runs the full-text analysis path for one queued job:
// download the document, extract its text, analyze, persist. Every failure
// marks the job failed with the error; the job is never retried and a
// failed run leaves no Analysis row.
func (s *Service) HandleAnalyzePDF(ctx context.Context, payload jobs.AnalyzePDFPayload) error {
	logger := s.logger.With().
		Str("job_id", payload.JobID.String()).
		Str("paper_id", payload.PaperID.String()).
		Logger()

	if err := s.jobRepo.MarkRunning(ctx, payload.JobID); err != nil {
		// Not transitioning means the job is gone or already claimed.
		logger.Warn().Err(err).Msg("job not in queued state, skipping")
		s.metrics.JobsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	// Bookkeeping writes run on a context detached from the job's.
	// When shutdown cancels a run mid-flight the failure must still be
	// recorded, otherwise the row is stranded in running and the queued
	// guard in MarkRunning blocks any redelivery from finishing it.
	markCtx := context.WithoutCancel(ctx)

	if err := s.analyzePDF(ctx, payload); err != nil {
		logger.Error().Err(err).Msg("full-text analysis failed")
		if markErr := s.jobRepo.MarkFailed(markCtx, payload.JobID, err.Error()); markErr != nil {
			logger.Error().Err(markErr).Msg("failed to mark job failed")
		}
		s.metrics.JobsProcessed.WithLabelValues("failed").Inc()
		return err
	}

	if err := s.jobRepo.MarkSucceeded(markCtx, payload.JobID); err != nil {
		logger.Error().Err(err).Msg("failed to mark job succeeded")
		return err
	}
	s.metrics.JobsProcessed.WithLabelValues("succeeded").Inc()
	return nil
}

func (s *Service) analyzePDF(ctx context.Context, payload jobs.AnalyzePDFPayload) error {
	paper, err := s.paperRepo.GetByID(ctx, payload.PaperID)
	if err != nil {
		return fmt.Errorf("load paper: %w", err)
	}

	data, err := s.store.Get(ctx, payload.StoragePath)
	if err != nil {
		return fmt.Errorf("download %s: %w", payload.StoragePath, err)
	}

	text, pages, err := pdftext.Extract(data)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	// The page count is incidental to the run; losing it is not worth
	// failing the analysis over.
	if file, err := s.fileRepo.GetLatestByPaper(ctx, payload.PaperID); err == nil {
		if err := s.fileRepo.UpdatePages(ctx, file.ID, pages); err != nil {
			s.logger.Warn().Err(err).
				Str("file_id", file.ID.String()).
				Msg("failed to record page count")
		}
	}

	if _, err := s.run(ctx, paper.ID, paper.Title, text, domain.AnalysisStatusCompletedFullText); err != nil {
		return err
	}
	return nil
}
