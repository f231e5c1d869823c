// Package graph maintains the co-authorship graph in Neo4j.
//
// Papers are merged by DOI and authors by name, joined with AUTHORED
// relationships. Papers without a DOI are skipped silently because there is
// no stable merge key for them. Collaborator suggestions walk the graph for
// authors publishing on a topic.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// suggestLimit caps how many collaborator suggestions one query returns.
const suggestLimit = 10

// Collaborator is one suggested author, ranked by how many matching papers
// they have authored.
type Collaborator struct {
	Author string `json:"author"`
	Papers int64  `json:"papers"`
}

// CoauthorGraph is the graph abstraction used by ingest and the HTTP layer.
type CoauthorGraph interface {
	// AddPaperAndAuthors merges the paper node (by DOI), its author nodes
	// (by name), and the AUTHORED edges between them. Papers without a DOI
	// are skipped without error.
	AddPaperAndAuthors(ctx context.Context, paper *domain.Paper) error

	// SuggestCollaborators returns up to ten authors who have authored
	// papers whose title contains the topic, ordered by paper count.
	SuggestCollaborators(ctx context.Context, topic string) ([]Collaborator, error)

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}

// Config holds the Neo4j connection settings.
type Config struct {
	URI      string
	Username string
	Password string
}

// Neo4jGraph implements CoauthorGraph over the Bolt protocol.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

// Compile-time interface verification.
var _ CoauthorGraph = (*Neo4jGraph)(nil)

// New connects to Neo4j and verifies the connection.
func New(ctx context.Context, cfg Config) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Neo4jGraph{driver: driver}, nil
}

// NewWithDriver wraps an existing driver. This is useful for testing.
func NewWithDriver(driver neo4j.DriverWithContext) *Neo4jGraph {
	return &Neo4jGraph{driver: driver}
}

// statement is one parameterized Cypher statement.
type statement struct {
	query  string
	params map[string]any
}

// mergeStatements builds the MERGE statements for a paper and its authors.
// The paper is keyed by DOI and each author by name, so re-running the same
// statements leaves the graph unchanged. Authors with blank names produce no
// statement. Returns nil when the paper has no DOI to merge on.
func mergeStatements(paper *domain.Paper) []statement {
	doi := strings.TrimSpace(paper.DOI)
	if doi == "" {
		return nil
	}

	stmts := []statement{{
		query:  "MERGE (p:Paper {doi: $doi}) SET p.title = $title",
		params: map[string]any{"doi": doi, "title": paper.Title},
	}}

	for _, author := range paper.Authors {
		name := strings.TrimSpace(author.Name)
		if name == "" {
			continue
		}

		stmts = append(stmts, statement{
			query: "MERGE (a:Author {name: $name}) " +
				"WITH a MATCH (p:Paper {doi: $doi}) " +
				"MERGE (a)-[:AUTHORED]->(p)",
			params: map[string]any{"name": name, "doi": doi},
		})
	}

	return stmts
}

// suggestStatement builds the ranked collaborator lookup for a topic.
func suggestStatement(topic string) statement {
	return statement{
		query: "MATCH (a:Author)-[:AUTHORED]->(p:Paper) " +
			"WHERE toLower(p.title) CONTAINS toLower($topic) " +
			"RETURN a.name AS author, count(p) AS papers " +
			"ORDER BY papers DESC LIMIT $limit",
		params: map[string]any{"topic": topic, "limit": suggestLimit},
	}
}

// AddPaperAndAuthors merges the paper, its authors, and the AUTHORED edges
// in a single write transaction.
func (g *Neo4jGraph) AddPaperAndAuthors(ctx context.Context, paper *domain.Paper) error {
	stmts := mergeStatements(paper)
	if len(stmts) == 0 {
		return nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range stmts {
			if _, err := tx.Run(ctx, stmt.query, stmt.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("merge paper and authors: %w", err)
	}

	return nil
}

// SuggestCollaborators returns authors publishing on the topic, most
// prolific first.
func (g *Neo4jGraph) SuggestCollaborators(ctx context.Context, topic string) ([]Collaborator, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	stmt := suggestStatement(topic)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, stmt.query, stmt.params)
		if err != nil {
			return nil, err
		}

		collaborators := make([]Collaborator, 0, suggestLimit)
		for res.Next(ctx) {
			record := res.Record()

			author, _ := record.Get("author")
			papers, _ := record.Get("papers")

			name, ok := author.(string)
			if !ok {
				continue
			}
			count, ok := papers.(int64)
			if !ok {
				continue
			}

			collaborators = append(collaborators, Collaborator{Author: name, Papers: count})
		}

		return collaborators, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("suggest collaborators: %w", err)
	}

	return result.([]Collaborator), nil
}

// Close releases the underlying driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
