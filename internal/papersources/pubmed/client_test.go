package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

// Sample XML responses for testing.
const esearchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>2</Count>
	<RetMax>2</RetMax>
	<RetStart>0</RetStart>
	<IdList>
		<Id>12345678</Id>
		<Id>87654321</Id>
	</IdList>
</eSearchResult>`

const esearchPhraseNotFoundXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>0</Count>
	<RetMax>0</RetMax>
	<RetStart>0</RetStart>
	<IdList>
	</IdList>
	<ErrorList>
		<PhraseNotFound>nonexistent_term_xyz</PhraseNotFound>
	</ErrorList>
</eSearchResult>`

const efetchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<Article PubModel="Print-Electronic">
				<Journal>
					<JournalIssue CitedMedium="Internet">
						<Volume>25</Volume>
						<Issue>3</Issue>
						<PubDate>
							<Year>2023</Year>
							<Month>Mar</Month>
							<Day>15</Day>
						</PubDate>
					</JournalIssue>
					<Title>Journal of Testing</Title>
					<ISOAbbreviation>J Test</ISOAbbreviation>
				</Journal>
				<ArticleTitle>CRISPR-Cas9 Gene Editing in Biomedical Research</ArticleTitle>
				<ELocationID EIdType="doi" ValidYN="Y">10.1234/test.2023.001</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND">Gene editing technologies have revolutionized biomedical research.</AbstractText>
					<AbstractText Label="RESULTS">Our findings demonstrate improved editing efficiency.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Smith</LastName>
						<ForeName>John A</ForeName>
						<Initials>JA</Initials>
					</Author>
					<Author ValidYN="Y">
						<CollectiveName>CRISPR Research Consortium</CollectiveName>
					</Author>
				</AuthorList>
				<Language>eng</Language>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="doi">10.1234/test.2023.001</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">87654321</PMID>
			<Article PubModel="Print">
				<Journal>
					<JournalIssue>
						<PubDate>
							<MedlineDate>2020 Jan-Feb</MedlineDate>
						</PubDate>
					</JournalIssue>
					<ISOAbbreviation>J Abbrev</ISOAbbreviation>
				</Journal>
				<ArticleTitle>A Paper Without an Abstract</ArticleTitle>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">87654321</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

// newTestServer creates an httptest server that dispatches esearch and
// efetch requests to canned XML responses.
func newTestServer(t *testing.T, esearchXML, efetchXML string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		switch {
		case strings.Contains(r.URL.Path, "esearch"):
			_, _ = w.Write([]byte(esearchXML))
		case strings.Contains(r.URL.Path, "efetch"):
			_, _ = w.Write([]byte(efetchXML))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testClient(baseURL string) *Client {
	return NewWithHTTPClient(
		Config{BaseURL: baseURL},
		papersources.NewHTTPClient(papersources.HTTPClientConfig{RateLimit: 1000, BurstSize: 1000}),
	)
}

func TestClient_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("returns papers with parsed metadata", func(t *testing.T) {
		server := newTestServer(t, esearchResponseXML, efetchResponseXML)
		defer server.Close()

		client := testClient(server.URL)
		result, err := client.Search(ctx, papersources.SearchParams{Query: "CRISPR"})
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalResults)
		assert.Equal(t, domain.SourceTypePubMed, result.Source)
		require.Len(t, result.Papers, 2)

		paper := result.Papers[0]
		assert.Equal(t, "pubmed", paper.Source)
		assert.Equal(t, "12345678", paper.SourceID)
		assert.Equal(t, "CRISPR-Cas9 Gene Editing in Biomedical Research", paper.Title)
		assert.Equal(t, 2023, paper.Year)
		assert.Equal(t, "Journal of Testing", paper.Journal)
		assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345678/", paper.URL)
		assert.Equal(t, "10.1234/test.2023.001", paper.DOI)
		assert.Equal(t, "eng", paper.Language)

		require.Len(t, paper.Authors, 2)
		assert.Equal(t, "John A Smith", paper.Authors[0].Name)
		assert.Equal(t, "CRISPR Research Consortium", paper.Authors[1].Name)

		// Structured abstract sections are labeled and concatenated.
		assert.Contains(t, paper.Abstract, "BACKGROUND: Gene editing technologies")
		assert.Contains(t, paper.Abstract, "RESULTS: Our findings")
	})

	t.Run("handles article without abstract and medline date", func(t *testing.T) {
		server := newTestServer(t, esearchResponseXML, efetchResponseXML)
		defer server.Close()

		client := testClient(server.URL)
		result, err := client.Search(ctx, papersources.SearchParams{Query: "anything"})
		require.NoError(t, err)
		require.Len(t, result.Papers, 2)

		paper := result.Papers[1]
		assert.Empty(t, paper.Abstract)
		assert.False(t, paper.HasAbstract())
		assert.Equal(t, 2020, paper.Year)
		assert.Equal(t, "J Abbrev", paper.Journal)
	})

	t.Run("treats phrase not found as empty result", func(t *testing.T) {
		server := newTestServer(t, esearchPhraseNotFoundXML, efetchResponseXML)
		defer server.Close()

		client := testClient(server.URL)
		result, err := client.Search(ctx, papersources.SearchParams{Query: "nonexistent_term_xyz"})
		require.NoError(t, err)
		assert.Empty(t, result.Papers)
		assert.Equal(t, 0, result.TotalResults)
	})

	t.Run("returns external API error on server failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.Search(ctx, papersources.SearchParams{Query: "CRISPR"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})
}

func TestClient_SourceMetadata(t *testing.T) {
	client := New(Config{})
	assert.Equal(t, domain.SourceTypePubMed, client.SourceType())
	assert.Equal(t, "PubMed", client.Name())
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name    string
		pubDate PubDate
		want    int
	}{
		{"structured year", PubDate{Year: "2021"}, 2021},
		{"medline date range", PubDate{MedlineDate: "2019-2020"}, 2019},
		{"medline date season", PubDate{MedlineDate: "2018 Spring"}, 2018},
		{"no date", PubDate{}, 0},
		{"garbage year", PubDate{Year: "n.d."}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractYear(tt.pubDate))
		})
	}
}
