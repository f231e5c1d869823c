package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/repository"
)

// Request body and pagination limits.
const (
	maxRequestBodySize = 1 << 20 // 1 MB
	defaultMaxResults  = 10
	maxIngestResults   = 100
)

// createUserRequest is the JSON request body for registering a user.
type createUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// createPaperRequest is the JSON request body for manually adding a paper.
type createPaperRequest struct {
	Source   string          `json:"source" validate:"required"`
	SourceID string          `json:"source_id" validate:"required"`
	Title    string          `json:"title" validate:"required"`
	Authors  []domain.Author `json:"authors,omitempty"`
	Year     int             `json:"year,omitempty"`
	Journal  string          `json:"journal,omitempty"`
	URL      string          `json:"url,omitempty"`
	DOI      string          `json:"doi,omitempty"`
	Language string          `json:"language,omitempty"`
	Abstract string          `json:"abstract,omitempty"`
}

// createProposalRequest is the JSON request body for saving a proposal.
type createProposalRequest struct {
	UserID  uuid.UUID       `json:"user_id" validate:"required"`
	Domain  string          `json:"domain" validate:"required"`
	Content json.RawMessage `json:"content" validate:"required"`
}

type listPapersResponse struct {
	Papers     []*domain.Paper `json:"papers"`
	TotalCount int64           `json:"total_count"`
}

// decodeBody reads and unmarshals a size-limited JSON request body into v,
// then runs struct validation.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens a validator error into a short message naming
// the first offending field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return strings.ToLower(fe.Field()) + " failed " + fe.Tag() + " validation"
	}
	return "invalid request body"
}

// parseUUIDParam reads a UUID path parameter, answering 400 on garbage.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads limit/offset query parameters, tolerating absence.
func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

// createUser handles POST /api/v1/users.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	// Pre-check plus unique index. The pre-check gives the friendlier
	// message; the index catches the race.
	if _, err := s.repos.Users.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}

	user, err := s.repos.Users.Create(r.Context(), &domain.User{
		Email:       req.Email,
		Name:        req.Name,
		Affiliation: req.Affiliation,
	})
	if err != nil {
		var existsErr *domain.AlreadyExistsError
		if errors.As(err, &existsErr) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// listUsers handles GET /api/v1/users.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	users, err := s.repos.Users.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// getUser handles GET /api/v1/users/{userID}.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}
	user, err := s.repos.Users.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// createPaper handles POST /api/v1/papers.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	var req createPaperRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	paper, err := s.repos.Papers.Create(r.Context(), &domain.Paper{
		Source:   req.Source,
		SourceID: req.SourceID,
		Title:    strings.TrimSpace(req.Title),
		Authors:  req.Authors,
		Year:     req.Year,
		Journal:  req.Journal,
		URL:      req.URL,
		DOI:      req.DOI,
		Language: req.Language,
		Abstract: req.Abstract,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, paper)
}

// listPapers handles GET /api/v1/papers.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repository.PaperFilter{
		Source: r.URL.Query().Get("source"),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = year
	}

	papers, total, err := s.repos.Papers.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listPapersResponse{Papers: papers, TotalCount: total})
}

// getPaper handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "paperID")
	if !ok {
		return
	}
	paper, err := s.repos.Papers.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// listPaperAnalyses handles GET /api/v1/papers/{paperID}/analyses.
func (s *Server) listPaperAnalyses(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "paperID")
	if !ok {
		return
	}
	if _, err := s.repos.Papers.GetByID(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	analyses, err := s.repos.Analyses.ListByPaper(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

// listGrants handles GET /api/v1/grants.
func (s *Server) listGrants(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	grants, err := s.repos.Grants.List(r.Context(), repository.GrantFilter{
		Agency: r.URL.Query().Get("agency"),
		Tag:    r.URL.Query().Get("tag"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// createProposal handles POST /api/v1/proposals.
func (s *Server) createProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	proposal, err := s.repos.Proposals.Create(r.Context(), &domain.Proposal{
		UserID:  req.UserID,
		Domain:  req.Domain,
		Content: req.Content,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

// getJob handles GET /api/v1/jobs/{jobID}.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "jobID")
	if !ok {
		return
	}
	job, err := s.repos.Jobs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
