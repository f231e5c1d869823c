// Package searchindex maintains the Elasticsearch full-text index of papers.
//
// Every ingested paper is indexed under its database UUID so the relational
// store remains the source of truth. Queries run a multi_match over the
// title and abstract fields.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// paperMapping defines the index schema. Title and abstract are analyzed
// text; identifier-like fields stay keywords.
const paperMapping = `{
	"mappings": {
		"properties": {
			"title": {"type": "text"},
			"abstract": {"type": "text"},
			"authors": {"type": "nested", "properties": {"name": {"type": "text"}}},
			"journal": {"type": "keyword"},
			"year": {"type": "integer"},
			"doi": {"type": "keyword"},
			"url": {"type": "keyword"},
			"language": {"type": "keyword"}
		}
	}
}`

// PaperDocument is the shape of one indexed paper.
type PaperDocument struct {
	Title    string          `json:"title"`
	Abstract string          `json:"abstract,omitempty"`
	Authors  []domain.Author `json:"authors,omitempty"`
	Journal  string          `json:"journal,omitempty"`
	Year     int             `json:"year,omitempty"`
	DOI      string          `json:"doi,omitempty"`
	URL      string          `json:"url,omitempty"`
	Language string          `json:"language,omitempty"`
}

// PaperIndex is the search index abstraction used by ingest and the HTTP layer.
type PaperIndex interface {
	// EnsureIndex creates the index with its mapping if it does not exist.
	EnsureIndex(ctx context.Context) error

	// UpsertPaper indexes or reindexes one paper under its database UUID.
	UpsertPaper(ctx context.Context, paper *domain.Paper) error

	// Search runs a full-text query over title and abstract and returns
	// the matching documents in relevance order.
	Search(ctx context.Context, query string) ([]PaperDocument, error)
}

// Config holds the Elasticsearch connection settings.
type Config struct {
	// URL is the Elasticsearch endpoint.
	URL string
	// APIKey authenticates requests. Optional for unsecured clusters.
	APIKey string
	// Index is the index name holding paper documents.
	Index string
}

// ESIndex implements PaperIndex against an Elasticsearch cluster.
type ESIndex struct {
	client *elasticsearch.Client
	index  string
}

// Compile-time interface verification.
var _ PaperIndex = (*ESIndex)(nil)

// New creates a paper index client.
func New(cfg Config) (*ESIndex, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
	}
	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &ESIndex{client: client, index: cfg.Index}, nil
}

// EnsureIndex creates the index with the paper mapping if it does not exist.
func (e *ESIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{e.index},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	drainBody(res.Body)

	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return fmt.Errorf("check index: unexpected status %d", res.StatusCode)
	}

	createRes, err := e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(paperMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer drainBody(createRes.Body)

	if createRes.IsError() {
		return fmt.Errorf("create index: status %s", createRes.Status())
	}

	return nil
}

// UpsertPaper indexes one paper under its database UUID.
func (e *ESIndex) UpsertPaper(ctx context.Context, paper *domain.Paper) error {
	doc := PaperDocument{
		Title:    paper.Title,
		Abstract: paper.Abstract,
		Authors:  paper.Authors,
		Journal:  paper.Journal,
		Year:     paper.Year,
		DOI:      paper.DOI,
		URL:      paper.URL,
		Language: paper.Language,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal paper document: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithDocumentID(paper.ID.String()),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index paper: %w", err)
	}
	defer drainBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("index paper: status %s", res.Status())
	}

	return nil
}

// Search runs a multi_match query over title and abstract.
func (e *ESIndex) Search(ctx context.Context, query string) ([]PaperDocument, error) {
	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title", "abstract"},
			},
		},
	}

	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	defer drainBody(res.Body)

	if res.IsError() {
		return nil, fmt.Errorf("search papers: status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source PaperDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]PaperDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	return docs, nil
}

// drainBody fully reads and closes a response body so the connection can be
// reused.
func drainBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
