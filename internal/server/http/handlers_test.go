package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/repository"
)

func doRequest(t *testing.T, srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateUser(t *testing.T) {
	srv, m := newTestServer(t)

	m.users.On("GetByEmail", mock.Anything, "ada@example.org").
		Return(nil, domain.NewNotFoundError("user", "ada@example.org"))
	m.users.On("Create", mock.Anything, mock.Anything).
		Return(&domain.User{ID: uuid.New(), Email: "ada@example.org", Name: "Ada"}, nil)

	body, _ := json.Marshal(map[string]string{"email": "ada@example.org", "name": "Ada"})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/users", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ada@example.org", user.Email)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	srv, m := newTestServer(t)

	m.users.On("GetByEmail", mock.Anything, "ada@example.org").
		Return(&domain.User{ID: uuid.New(), Email: "ada@example.org"}, nil)

	body, _ := json.Marshal(map[string]string{"email": "ada@example.org"})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/users", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered")
	m.users.AssertNotCalled(t, "Create")
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	srv, m := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": "not-an-email"})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/users", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.users.AssertNotCalled(t, "GetByEmail")
}

func TestCreateUser_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/users", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	srv, m := newTestServer(t)
	id := uuid.New()

	m.users.On("GetByID", mock.Anything, id).
		Return(nil, domain.NewNotFoundError("user", id.String()))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/users/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser_InvalidUUID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers(t *testing.T) {
	srv, m := newTestServer(t)

	m.users.On("List", mock.Anything, 0, 0).
		Return([]*domain.User{{ID: uuid.New(), Email: "a@b.c"}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

func TestCreatePaper(t *testing.T) {
	srv, m := newTestServer(t)

	m.papers.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Paper) bool {
		return p.Source == "arxiv" && p.SourceID == "2301.00001" && p.Title == "Test Paper"
	})).Return(&domain.Paper{ID: uuid.New(), Source: "arxiv", SourceID: "2301.00001", Title: "Test Paper"}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"source":    "arxiv",
		"source_id": "2301.00001",
		"title":     "Test Paper",
	})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/papers", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreatePaper_MissingTitle(t *testing.T) {
	srv, m := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"source": "arxiv", "source_id": "x"})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/papers", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.papers.AssertNotCalled(t, "Create")
}

func TestListPapers(t *testing.T) {
	srv, m := newTestServer(t)

	m.papers.On("List", mock.Anything, repository.PaperFilter{Source: "pubmed", Year: 2023}).
		Return([]*domain.Paper{{ID: uuid.New(), Title: "One"}}, int64(1), nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/papers?source=pubmed&year=2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listPapersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalCount)
	assert.Len(t, resp.Papers, 1)
}

func TestListPapers_BadYear(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/papers?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaper_NotFound(t *testing.T) {
	srv, m := newTestServer(t)
	id := uuid.New()

	m.papers.On("GetByID", mock.Anything, id).
		Return(nil, domain.NewNotFoundError("paper", id.String()))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/papers/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPaperAnalyses(t *testing.T) {
	srv, m := newTestServer(t)
	id := uuid.New()

	m.papers.On("GetByID", mock.Anything, id).Return(&domain.Paper{ID: id}, nil)
	m.analyses.On("ListByPaper", mock.Anything, id).
		Return([]*domain.Analysis{{ID: uuid.New(), PaperID: id, Status: domain.AnalysisStatusCompleted}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/papers/"+id.String()+"/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analyses []*domain.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analyses))
	assert.Len(t, analyses, 1)
}

func TestListGrants(t *testing.T) {
	srv, m := newTestServer(t)

	m.grants.On("List", mock.Anything, repository.GrantFilter{Agency: "NSF"}).
		Return([]*domain.Grant{{ID: uuid.New(), Title: "Call"}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/grants?agency=NSF", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProposal(t *testing.T) {
	srv, m := newTestServer(t)
	userID := uuid.New()

	m.proposals.On("Create", mock.Anything, mock.Anything).Return(nil, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"domain":  "genomics",
		"content": map[string]string{"summary": "a proposal"},
	})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/proposals", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateProposal_UserMissing(t *testing.T) {
	srv, m := newTestServer(t)
	userID := uuid.New()

	m.proposals.On("Create", mock.Anything, mock.Anything).
		Return(nil, domain.NewNotFoundError("user", userID.String()))

	body, _ := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"domain":  "genomics",
		"content": map[string]string{"summary": "a proposal"},
	})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/proposals", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob(t *testing.T) {
	srv, m := newTestServer(t)
	id := uuid.New()

	m.jobs.On("GetByID", mock.Anything, id).
		Return(&domain.Job{ID: id, Kind: domain.JobKindAnalyzePDF, Status: domain.JobStatusQueued}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/jobs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, domain.JobStatusQueued, job.Status)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
