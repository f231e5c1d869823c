// Package analysis orchestrates structured analysis runs over papers,
// covering both the synchronous abstract path and the asynchronous
// full-text path driven by background jobs.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/llm"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/storage"
)

// Service runs analyses and persists their results. A failed run writes no
// Analysis row; only completed runs are recorded.
type Service struct {
	paperRepo    repository.PaperRepository
	fileRepo     repository.PaperFileRepository
	analysisRepo repository.AnalysisRepository
	jobRepo      repository.JobRepository
	analyzer     llm.PaperAnalyzer
	store        storage.ObjectStore
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

// NewService creates an analysis service.
func NewService(
	paperRepo repository.PaperRepository,
	fileRepo repository.PaperFileRepository,
	analysisRepo repository.AnalysisRepository,
	jobRepo repository.JobRepository,
	analyzer llm.PaperAnalyzer,
	store storage.ObjectStore,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		paperRepo:    paperRepo,
		fileRepo:     fileRepo,
		analysisRepo: analysisRepo,
		jobRepo:      jobRepo,
		analyzer:     analyzer,
		store:        store,
		metrics:      metrics,
		logger:       logger.With().Str("component", "analysis_service").Logger(),
	}
}

// AnalyzeAbstract runs a synchronous analysis over a paper's abstract.
// Returns domain.ErrNotFound if the paper does not exist and a validation
// error if the paper has no abstract to analyze.
func (s *Service) AnalyzeAbstract(ctx context.Context, paperID uuid.UUID) (*domain.Analysis, error) {
	paper, err := s.paperRepo.GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if !paper.HasAbstract() {
		return nil, domain.NewValidationError("abstract", "paper has no abstract to analyze")
	}

	return s.run(ctx, paper.ID, paper.Title, paper.Abstract, domain.AnalysisStatusCompleted)
}

// run executes the model call and persists the result under the given
// status, recording the wall-clock duration of the whole run.
func (s *Service) run(ctx context.Context, paperID uuid.UUID, title, text, status string) (*domain.Analysis, error) {
	started := time.Now()

	result, err := s.analyzer.Analyze(ctx, title, text)
	s.metrics.LLMRequestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.LLMRequestsTotal.WithLabelValues("error").Inc()
		s.metrics.AnalysesFailed.Inc()
		return nil, fmt.Errorf("analyze paper %s: %w", paperID, err)
	}
	s.metrics.LLMRequestsTotal.WithLabelValues("success").Inc()

	duration := time.Since(started)

	analysis, err := s.persist(ctx, paperID, status, int(duration.Milliseconds()), result)
	if err != nil {
		s.metrics.AnalysesFailed.Inc()
		return nil, err
	}

	s.metrics.AnalysesCompleted.WithLabelValues(status).Inc()
	s.metrics.AnalysisDuration.Observe(duration.Seconds())

	s.logger.Info().
		Str("paper_id", paperID.String()).
		Str("analysis_id", analysis.ID.String()).
		Str("status", status).
		Dur("duration", duration).
		Msg("analysis complete")

	return analysis, nil
}

// persist maps the engine result onto an Analysis row. The stored buckets
// mirror the schema columns; the suggested experiments bucket has no
// column and is not stored.
func (s *Service) persist(ctx context.Context, paperID uuid.UUID, status string, durationMS int, result *llm.AnalysisResult) (*domain.Analysis, error) {
	analysis := &domain.Analysis{
		PaperID:     paperID,
		Status:      status,
		DurationMS:  durationMS,
		Findings:    marshalBucket(result.Findings),
		Methods:     marshalBucket(result.Methods),
		Datasets:    marshalBucket(result.Datasets),
		Gaps:        marshalBucket(result.Gaps),
		Limitations: marshalBucket(result.Limitations),
	}

	created, err := s.analysisRepo.Create(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("persist analysis for paper %s: %w", paperID, err)
	}
	return created, nil
}

// marshalBucket encodes a bucket as a JSON array, never null.
func marshalBucket(items []string) json.RawMessage {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		// A []string cannot fail to marshal.
		return json.RawMessage("[]")
	}
	return raw
}
