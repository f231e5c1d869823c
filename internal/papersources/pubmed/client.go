package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for the NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is what NCBI permits without an API key.
	// With an API key, NCBI allows 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the token bucket burst for the limiter.
	DefaultBurstSize = 3

	// DefaultTimeout bounds a single E-utilities request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is how many articles a search fetches by default.
	DefaultMaxResults = 20

	// MaxResultsLimit is the hard per-request cap enforced by the API.
	MaxResultsLimit = 10000

	// articleURLPrefix builds the canonical web URL for a PMID.
	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	// sourceName is the display name reported by Name.
	sourceName = "PubMed"
)

// Config configures the PubMed client.
type Config struct {
	// BaseURL points at the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits. Optional.
	APIKey string

	// Timeout is the request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit caps requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the limiter burst allowance.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the fetch size used when a search asks for zero.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int
}

// applyDefaults fills zero fields with package defaults.
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

// Client talks to PubMed through the NCBI E-utilities API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New builds a PubMed client from cfg.
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

// NewWithHTTPClient builds a client over a caller-supplied HTTP client,
// which lets tests point it at a local server.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search finds papers matching params.
// It performs a two-step search:
//  1. esearch.fcgi retrieves PMIDs matching the query
//  2. efetch.fcgi retrieves full article metadata for the PMIDs
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// A phrase-not-found response is an empty result, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return &papersources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   0,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	if len(searchResult.IDList.IDs) == 0 {
		return &papersources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   searchResult.Count,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(articles.Articles))
	for i := range articles.Articles {
		papers = append(papers, articleToPaper(&articles.Articles[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResult.Count,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType identifies this client as the PubMed source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name reports the display name of the source.
func (c *Client) Name() string {
	return sourceName
}

// esearch runs the query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	var result ESearchResult
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// efetch pulls full article metadata for pmids.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	var result PubmedArticleSet
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// getXML executes a GET request and decodes the XML response into out.
func (c *Client) getXML(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to parse XML response: %w", err)
	}

	return nil
}

// articleToPaper converts a PubmedArticle to a domain.Paper.
func articleToPaper(article *PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pmid := citation.PMID.Value

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	language := ""
	if len(citation.Article.Language) > 0 {
		language = citation.Article.Language[0]
	}

	return &domain.Paper{
		Source:   string(domain.SourceTypePubMed),
		SourceID: pmid,
		Title:    strings.TrimSpace(citation.Article.ArticleTitle),
		Authors:  extractAuthors(citation.Article.AuthorList),
		Year:     extractYear(citation.Article.Journal.JournalIssue.PubDate),
		Journal:  journal,
		URL:      articleURLPrefix + pmid + "/",
		DOI:      extractDOI(article),
		Language: language,
		Abstract: extractAbstract(citation.Article.Abstract),
	}
}

// extractDOI extracts the DOI from article metadata. ELocationID is checked
// first because it is the more reliable field, then ArticleIdList.
func extractDOI(article *PubmedArticle) string {
	for _, eloc := range article.MedlineCitation.Article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return strings.TrimSpace(eloc.Value)
		}
	}

	for _, aid := range article.PubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return strings.TrimSpace(aid.Value)
		}
	}

	return ""
}

// extractYear extracts the publication year from the issue date. The
// MedlineDate format ("2020 Jan-Feb", "2020-2021") is used as a fallback
// when no structured year is present.
func extractYear(pubDate PubDate) int {
	if pubDate.Year != "" {
		if year, err := strconv.Atoi(pubDate.Year); err == nil {
			return year
		}
	}

	if pubDate.MedlineDate != "" {
		parts := strings.Fields(pubDate.MedlineDate)
		if len(parts) > 0 {
			yearStr := strings.Split(parts[0], "-")[0]
			if year, err := strconv.Atoi(yearStr); err == nil {
				return year
			}
		}
	}

	return 0
}

// extractAbstract concatenates multiple abstract sections into one string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to domain authors.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name == "" {
			continue
		}

		authors = append(authors, domain.Author{Name: name})
	}

	return authors
}
