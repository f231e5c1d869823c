package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/graph"
	"github.com/helixir/paper-enrichment-service/internal/ingest"
	"github.com/helixir/paper-enrichment-service/internal/searchindex"
)

func TestIngestPapers(t *testing.T) {
	srv, m := newTestServer(t)

	m.ingester.On("Ingest", mock.Anything, domain.SourceTypeArXiv, "graph neural networks", 2).
		Return(&ingest.Result{
			Source:   domain.SourceTypeArXiv,
			Query:    "graph neural networks",
			Found:    2,
			Ingested: 2,
			Papers:   []*domain.Paper{{ID: uuid.New()}, {ID: uuid.New()}},
		}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?query=graph+neural+networks&source=arxiv&max_results=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Ingested)
	assert.Len(t, result.Papers, 2)
}

func TestIngestPapers_UnknownSource(t *testing.T) {
	srv, m := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?query=x&source=scopus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.ingester.AssertNotCalled(t, "Ingest")
}

func TestIngestPapers_MissingQuery(t *testing.T) {
	srv, m := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?source=arxiv", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.ingester.AssertNotCalled(t, "Ingest")
}

func TestIngestPapers_DefaultMaxResults(t *testing.T) {
	srv, m := newTestServer(t)

	m.ingester.On("Ingest", mock.Anything, domain.SourceTypePubMed, "crispr", defaultMaxResults).
		Return(&ingest.Result{Source: domain.SourceTypePubMed, Papers: []*domain.Paper{}}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?query=crispr&source=pubmed", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzePaper(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.analyzer.On("AnalyzeAbstract", mock.Anything, paperID).
		Return(&domain.Analysis{
			ID:      uuid.New(),
			PaperID: paperID,
			Status:  domain.AnalysisStatusCompleted,
		}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/analyze/"+paperID.String(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var analysis domain.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, domain.AnalysisStatusCompleted, analysis.Status)
}

func TestAnalyzePaper_NotFound(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.analyzer.On("AnalyzeAbstract", mock.Anything, paperID).
		Return(nil, domain.NewNotFoundError("paper", paperID.String()))

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/analyze/"+paperID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzePaper_NoAbstract(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.analyzer.On("AnalyzeAbstract", mock.Anything, paperID).
		Return(nil, domain.NewValidationError("abstract", "paper has no abstract to analyze"))

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/analyze/"+paperID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzePaper_EngineFailure(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.analyzer.On("AnalyzeAbstract", mock.Anything, paperID).
		Return(nil, domain.NewExternalAPIError("openai", 429, "rate limited", nil))

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/analyze/"+paperID.String(), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchPapers(t *testing.T) {
	srv, m := newTestServer(t)

	m.index.On("Search", mock.Anything, "transformers").
		Return([]searchindex.PaperDocument{{Title: "Attention Is All You Need"}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/search?query=transformers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []searchindex.PaperDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	assert.Len(t, docs, 1)
}

func TestSearchPapers_MissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestCollaborators(t *testing.T) {
	srv, m := newTestServer(t)

	m.graph.On("SuggestCollaborators", mock.Anything, "proteomics").
		Return([]graph.Collaborator{
			{Author: "Ada Lovelace", Papers: 4},
			{Author: "Alan Turing", Papers: 2},
		}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/collaborators?topic=proteomics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var collaborators []graph.Collaborator
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collaborators))
	require.Len(t, collaborators, 2)
	assert.Equal(t, "Ada Lovelace", collaborators[0].Author)
}

func TestSuggestCollaborators_Empty(t *testing.T) {
	srv, m := newTestServer(t)

	m.graph.On("SuggestCollaborators", mock.Anything, "nonexistent").
		Return([]graph.Collaborator{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/collaborators?topic=nonexistent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func multipartPDFRequest(t *testing.T, target string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadPDF(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()
	jobID := uuid.New()

	m.papers.On("GetByID", mock.Anything, paperID).Return(&domain.Paper{ID: paperID}, nil)
	m.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.files.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.PaperFile) bool {
		return f.PaperID == paperID && f.Pages == 0
	})).Return(nil, nil)
	m.enqueuer.On("EnqueueAnalyzePDF", mock.Anything, paperID, mock.Anything).
		Return(&domain.Job{ID: jobID, Kind: domain.JobKindAnalyzePDF, Status: domain.JobStatusQueued}, nil)

	req := multipartPDFRequest(t, "/api/v1/files/"+paperID.String()+"/upload-pdf", []byte("%PDF-1.4 fake"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp uploadPDFResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, jobID.String(), resp.JobID)
	assert.Equal(t, domain.JobStatusQueued, resp.Status)
	assert.Equal(t, 0, resp.File.Pages)
	assert.NotEmpty(t, resp.StoragePath)
}

func TestUploadPDF_PaperNotFound(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.papers.On("GetByID", mock.Anything, paperID).
		Return(nil, domain.NewNotFoundError("paper", paperID.String()))

	req := multipartPDFRequest(t, "/api/v1/files/"+paperID.String()+"/upload-pdf", []byte("%PDF"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	m.store.AssertNotCalled(t, "Put")
}

func TestUploadPDF_MissingFileField(t *testing.T) {
	srv, m := newTestServer(t)
	paperID := uuid.New()

	m.papers.On("GetByID", mock.Anything, paperID).Return(&domain.Paper{ID: paperID}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/"+paperID.String()+"/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.enqueuer.AssertNotCalled(t, "EnqueueAnalyzePDF")
}

func TestUploadPDF_RejectsOversizedFile(t *testing.T) {
	srv, m := newTestServerWithConfig(t, Config{
		Address:        "127.0.0.1:0",
		MaxUploadBytes: 1024,
	})
	paperID := uuid.New()

	m.papers.On("GetByID", mock.Anything, paperID).Return(&domain.Paper{ID: paperID}, nil)

	oversized := bytes.Repeat([]byte("x"), 4096)
	req := multipartPDFRequest(t, "/api/v1/files/"+paperID.String()+"/upload-pdf", oversized)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "size limit")
	m.store.AssertNotCalled(t, "Put")
	m.enqueuer.AssertNotCalled(t, "EnqueueAnalyzePDF")
}
