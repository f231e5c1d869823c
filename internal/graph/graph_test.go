package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

func TestAddPaperAndAuthors_SkipsPapersWithoutDOI(t *testing.T) {
	// A nil driver would panic on any session use; reaching it would mean
	// the DOI guard failed.
	g := NewWithDriver(nil)

	err := g.AddPaperAndAuthors(context.Background(), &domain.Paper{
		Title:   "No DOI Here",
		Authors: []domain.Author{{Name: "Ada Lovelace"}},
	})
	assert.NoError(t, err)

	err = g.AddPaperAndAuthors(context.Background(), &domain.Paper{
		Title: "Whitespace DOI",
		DOI:   "   ",
	})
	assert.NoError(t, err)
}

func TestMergeStatements_KeyedOnDOI(t *testing.T) {
	paper := &domain.Paper{
		Title: "Graph Embeddings",
		DOI:   "10.1000/embed.1",
		Authors: []domain.Author{
			{Name: "Ada Lovelace"},
			{Name: "Grace Hopper"},
		},
	}

	stmts := mergeStatements(paper)
	require.Len(t, stmts, 3)

	assert.Contains(t, stmts[0].query, "MERGE (p:Paper {doi: $doi})")
	assert.Equal(t, "10.1000/embed.1", stmts[0].params["doi"])
	assert.Equal(t, "Graph Embeddings", stmts[0].params["title"])

	for _, stmt := range stmts[1:] {
		assert.Contains(t, stmt.query, "MERGE (a:Author {name: $name})")
		assert.Contains(t, stmt.query, "MERGE (a)-[:AUTHORED]->(p)")
		assert.Equal(t, "10.1000/embed.1", stmt.params["doi"])
	}
	assert.Equal(t, "Ada Lovelace", stmts[1].params["name"])
	assert.Equal(t, "Grace Hopper", stmts[2].params["name"])
}

func TestMergeStatements_Idempotent(t *testing.T) {
	paper := &domain.Paper{
		Title:   "Repeatable Writes",
		DOI:     "10.1000/repeat.2",
		Authors: []domain.Author{{Name: "Ada Lovelace"}},
	}

	// Identical MERGE statements on repeated ingests of the same paper
	// match the existing nodes instead of creating duplicates.
	first := mergeStatements(paper)
	second := mergeStatements(paper)
	assert.Equal(t, first, second)
}

func TestMergeStatements_SkipsBlankAuthors(t *testing.T) {
	paper := &domain.Paper{
		Title: "Partial Author List",
		DOI:   "10.1000/blank.3",
		Authors: []domain.Author{
			{Name: "  "},
			{Name: "Grace Hopper"},
			{Name: ""},
		},
	}

	stmts := mergeStatements(paper)
	require.Len(t, stmts, 2)
	assert.Equal(t, "Grace Hopper", stmts[1].params["name"])
}

func TestSuggestStatement_CapsResults(t *testing.T) {
	stmt := suggestStatement("transformers")

	assert.Contains(t, stmt.query, "ORDER BY papers DESC LIMIT $limit")
	assert.Equal(t, suggestLimit, stmt.params["limit"])
	assert.Equal(t, "transformers", stmt.params["topic"])
}
