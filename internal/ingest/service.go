// Package ingest orchestrates pulling papers from bibliographic sources
// into the relational store, the search index, and the co-authorship graph.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/graph"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/searchindex"
)

// Result summarizes one ingestion run.
type Result struct {
	// Source is the bibliographic source that was queried.
	Source domain.SourceType `json:"source"`
	// Query is the search query that was executed.
	Query string `json:"query"`
	// Found is the number of papers the source returned.
	Found int `json:"found"`
	// Ingested is the number of new papers persisted.
	Ingested int `json:"ingested"`
	// Skipped is the number of papers already present.
	Skipped int `json:"skipped"`
	// Papers are the newly persisted papers.
	Papers []*domain.Paper `json:"papers"`
}

// Service coordinates one ingestion run across the source registry and the
// three backing stores. The relational write is authoritative; index and
// graph writes are best effort and never fail the run.
type Service struct {
	registry  *papersources.Registry
	paperRepo repository.PaperRepository
	index     searchindex.PaperIndex
	coauthors graph.CoauthorGraph
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewService creates an ingestion service. The index and graph may be nil
// when those backends are not configured; their steps are then skipped.
func NewService(
	registry *papersources.Registry,
	paperRepo repository.PaperRepository,
	index searchindex.PaperIndex,
	coauthors graph.CoauthorGraph,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		paperRepo: paperRepo,
		index:     index,
		coauthors: coauthors,
		metrics:   metrics,
		logger:    logger.With().Str("component", "ingest_service").Logger(),
	}
}

// Ingest searches the named source and persists each returned paper that is
// not already stored. Papers already present for the same (source, source_id)
// pair are counted as skipped. Index and graph failures are logged and
// counted but do not fail the run.
func (s *Service) Ingest(ctx context.Context, source domain.SourceType, query string, maxResults int) (*Result, error) {
	if query == "" {
		return nil, domain.NewValidationError("query", "query is required")
	}

	src := s.registry.Get(source)
	if src == nil {
		return nil, domain.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}

	s.metrics.SourceSearches.WithLabelValues(string(source)).Inc()

	result, err := src.Search(ctx, papersources.SearchParams{
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		s.metrics.SourceSearchesFailed.WithLabelValues(string(source)).Inc()
		return nil, fmt.Errorf("search %s: %w", src.Name(), err)
	}

	out := &Result{
		Source: source,
		Query:  query,
		Found:  len(result.Papers),
		Papers: []*domain.Paper{},
	}

	for _, paper := range result.Papers {
		_, err := s.paperRepo.GetBySourceID(ctx, source, paper.SourceID)
		if err == nil {
			out.Skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("check existing paper %s/%s: %w", source, paper.SourceID, err)
		}

		created, err := s.paperRepo.Create(ctx, paper)
		if err != nil {
			// A concurrent run may have inserted the same paper between
			// the existence check and the insert.
			var existsErr *domain.AlreadyExistsError
			if errors.As(err, &existsErr) {
				out.Skipped++
				continue
			}
			return nil, fmt.Errorf("persist paper %s/%s: %w", source, paper.SourceID, err)
		}

		s.metrics.PapersIngested.WithLabelValues(string(source)).Inc()
		out.Ingested++
		out.Papers = append(out.Papers, created)

		s.indexPaper(ctx, created)
		s.mergeAuthors(ctx, created)
	}

	s.logger.Info().
		Str("source", string(source)).
		Str("query", query).
		Int("found", out.Found).
		Int("ingested", out.Ingested).
		Int("skipped", out.Skipped).
		Msg("ingestion run complete")

	return out, nil
}

func (s *Service) indexPaper(ctx context.Context, paper *domain.Paper) {
	if s.index == nil {
		return
	}
	if err := s.index.UpsertPaper(ctx, paper); err != nil {
		s.metrics.IndexUpsertsFailed.Inc()
		s.logger.Warn().Err(err).
			Str("paper_id", paper.ID.String()).
			Msg("failed to index paper")
		return
	}
	s.metrics.IndexUpserts.Inc()
}

func (s *Service) mergeAuthors(ctx context.Context, paper *domain.Paper) {
	if s.coauthors == nil {
		return
	}
	if err := s.coauthors.AddPaperAndAuthors(ctx, paper); err != nil {
		s.metrics.GraphMergesFailed.Inc()
		s.logger.Warn().Err(err).
			Str("paper_id", paper.ID.String()).
			Msg("failed to merge paper into co-authorship graph")
		return
	}
	s.metrics.GraphMerges.Inc()
}
