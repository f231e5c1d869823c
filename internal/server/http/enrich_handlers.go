package httpserver

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/storage"
)

// defaultMaxUploadBytes caps PDF uploads at 50 MB when the server
// config does not set a limit.
const defaultMaxUploadBytes = 50 << 20

type uploadPDFResponse struct {
	File        *domain.PaperFile `json:"file"`
	JobID       string            `json:"job_id"`
	StoragePath string            `json:"storage_path"`
	Status      string            `json:"status"`
}

// ingestPapers handles POST /api/v1/ingest.
// Papers are pulled synchronously; the response carries the created rows.
func (s *Server) ingestPapers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	source := domain.SourceType(r.URL.Query().Get("source"))
	if !domain.IsValidSourceType(source) {
		writeError(w, http.StatusBadRequest, "source must be one of: pubmed, arxiv")
		return
	}

	maxResults := defaultMaxResults
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "max_results must be a positive integer")
			return
		}
		if n > maxIngestResults {
			n = maxIngestResults
		}
		maxResults = n
	}

	result, err := s.ingester.Ingest(r.Context(), source, query, maxResults)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// analyzePaper handles POST /api/v1/analyze/{paperID}.
func (s *Server) analyzePaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "paperID")
	if !ok {
		return
	}

	analysis, err := s.analyzer.AnalyzeAbstract(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, analysis)
}

// searchPapers handles GET /api/v1/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	docs, err := s.index.Search(r.Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// suggestCollaborators handles GET /api/v1/collaborators.
func (s *Server) suggestCollaborators(w http.ResponseWriter, r *http.Request) {
	if s.coauthors == nil {
		writeError(w, http.StatusServiceUnavailable, "collaborator suggestions are not configured")
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic parameter is required")
		return
	}

	collaborators, err := s.coauthors.SuggestCollaborators(r.Context(), topic)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("collaborator suggestion failed")
		writeError(w, http.StatusInternalServerError, "collaborator suggestion failed")
		return
	}
	writeJSON(w, http.StatusOK, collaborators)
}

// uploadPDF handles POST /api/v1/files/{paperID}/upload-pdf.
// The document is stored and a background analysis job queued; the page
// count stays zero until the worker extracts text. The eventual job outcome
// is only visible through job and analysis polling.
func (s *Server) uploadPDF(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.enqueuer == nil {
		writeError(w, http.StatusServiceUnavailable, "file upload is not configured")
		return
	}

	paperID, ok := parseUUIDParam(w, r, "paperID")
	if !ok {
		return
	}

	if _, err := s.repos.Papers.GetByID(r.Context(), paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "uploaded file exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	key := storage.ObjectKey(paperID)
	if err := s.store.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.logger.Error().Err(err).Str("paper_id", paperID.String()).Msg("failed to store uploaded file")
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	fileRec, err := s.repos.Files.Create(r.Context(), &domain.PaperFile{
		PaperID:     paperID,
		StoragePath: key,
		MIME:        contentType,
		Pages:       0,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	job, err := s.enqueuer.EnqueueAnalyzePDF(r.Context(), paperID, key)
	if err != nil {
		s.logger.Error().Err(err).Str("paper_id", paperID.String()).Msg("failed to enqueue analysis job")
		writeError(w, http.StatusInternalServerError, "failed to enqueue analysis job")
		return
	}
	s.metrics.JobsEnqueued.Inc()

	writeJSON(w, http.StatusAccepted, uploadPDFResponse{
		File:        fileRec,
		JobID:       job.ID.String(),
		StoragePath: key,
		Status:      job.Status,
	})
}
