package papersources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// stubSource is a minimal PaperSource for registry tests.
type stubSource struct {
	sourceType domain.SourceType
}

func (s *stubSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	return &SearchResult{Source: s.sourceType}, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return string(s.sourceType) }

func TestRegistry(t *testing.T) {
	t.Run("returns registered source by type", func(t *testing.T) {
		registry := NewRegistry()
		pubmed := &stubSource{sourceType: domain.SourceTypePubMed}
		arxiv := &stubSource{sourceType: domain.SourceTypeArXiv}

		registry.Register(pubmed)
		registry.Register(arxiv)

		assert.Same(t, pubmed, registry.Get(domain.SourceTypePubMed).(*stubSource))
		assert.Same(t, arxiv, registry.Get(domain.SourceTypeArXiv).(*stubSource))
		assert.Len(t, registry.All(), 2)
	})

	t.Run("returns nil for unregistered type", func(t *testing.T) {
		registry := NewRegistry()
		assert.Nil(t, registry.Get(domain.SourceTypePubMed))
	})

	t.Run("replaces source on duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		first := &stubSource{sourceType: domain.SourceTypePubMed}
		second := &stubSource{sourceType: domain.SourceTypePubMed}

		registry.Register(first)
		registry.Register(second)

		assert.Same(t, second, registry.Get(domain.SourceTypePubMed).(*stubSource))
		assert.Len(t, registry.All(), 1)
	})
}
