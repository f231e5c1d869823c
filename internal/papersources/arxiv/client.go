package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the token bucket burst for the limiter.
	DefaultBurstSize = 3

	// DefaultTimeout bounds a single query API request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// sourceName is the display name reported by Name.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full entry URL, dropping any
// version suffix. Matches "http://arxiv.org/abs/2301.12345v1" as well as
// old-style IDs like "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	MaxResults int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client talks to the arXiv Atom query API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New builds an arXiv client from cfg.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		}),
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType identifies this client as the arXiv source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name reports the display name of the source.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", "all:"+params.Query)
	query.Set("max_results", strconv.Itoa(maxResults))
	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain.Paper.
func entryToPaper(entry *Entry) *domain.Paper {
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	year := 0
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			year = t.Year()
		}
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: name})
	}

	// Prefer the alternate (abstract page) link; fall back to the entry ID
	// which carries the same URL.
	pageURL := entry.ID
	for _, link := range entry.Links {
		if link.Rel == "alternate" && link.Href != "" {
			pageURL = link.Href
			break
		}
	}

	return &domain.Paper{
		Source:   string(domain.SourceTypeArXiv),
		SourceID: arxivID,
		Title:    normalizeWhitespace(entry.Title),
		Authors:  authors,
		Year:     year,
		Journal:  strings.TrimSpace(entry.JournalRef),
		URL:      pageURL,
		DOI:      strings.TrimSpace(entry.DOI),
		Abstract: normalizeWhitespace(entry.Summary),
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" yields "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses runs of whitespace. arXiv titles
// and summaries include hard-wrapped newlines.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
