// Package domain defines the core entities and errors for the paper
// enrichment service.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies an external bibliographic source.
type SourceType string

// Supported bibliographic sources.
const (
	SourceTypePubMed SourceType = "pubmed"
	SourceTypeArXiv  SourceType = "arxiv"
)

// IsValidSourceType returns true if the source type is supported.
func IsValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypePubMed, SourceTypeArXiv:
		return true
	}
	return false
}

// Analysis status labels. An analysis record only exists for runs that
// completed; a failed run leaves no record.
const (
	AnalysisStatusCompleted         = "completed"
	AnalysisStatusCompletedFullText = "completed_full_text"
)

// Job lifecycle states for background work.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobKindAnalyzePDF is the job kind for full-text PDF analysis.
const JobKindAnalyzePDF = "analyze_pdf"

// Author represents a paper author. Only the name is tracked.
type Author struct {
	Name string `json:"name"`
}

// User represents a registered user. Users are created once at signup and
// never updated or deleted.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Affiliation string    `json:"affiliation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Paper represents an ingested article. The (Source, SourceID) pair is
// intended to be unique per external article but is not enforced. Papers
// are never updated after creation; re-analysis does not touch them.
type Paper struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	Authors   []Author  `json:"authors,omitempty"`
	Year      int       `json:"year,omitempty"`
	Journal   string    `json:"journal,omitempty"`
	URL       string    `json:"url,omitempty"`
	DOI       string    `json:"doi,omitempty"`
	Language  string    `json:"language,omitempty"`
	Abstract  string    `json:"abstract,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAbstract returns true if the paper has a non-empty abstract.
func (p *Paper) HasAbstract() bool {
	return strings.TrimSpace(p.Abstract) != ""
}

// PaperFile references an uploaded document for a paper in object storage.
type PaperFile struct {
	ID          uuid.UUID `json:"id"`
	PaperID     uuid.UUID `json:"paper_id"`
	StoragePath string    `json:"storage_path"`
	MIME        string    `json:"mime,omitempty"`
	Pages       int       `json:"pages"`
	CreatedAt   time.Time `json:"created_at"`
}

// Analysis holds the structured result of one analysis run over a paper.
// Multiple analyses may exist per paper. The Plagiarism and Citations
// buckets are declared in the schema but never populated by the engine;
// they persist as null.
type Analysis struct {
	ID          uuid.UUID       `json:"id"`
	PaperID     uuid.UUID       `json:"paper_id"`
	Status      string          `json:"status"`
	DurationMS  int             `json:"duration_ms"`
	Findings    json.RawMessage `json:"findings,omitempty"`
	Methods     json.RawMessage `json:"methods,omitempty"`
	Datasets    json.RawMessage `json:"datasets,omitempty"`
	Gaps        json.RawMessage `json:"gaps,omitempty"`
	Limitations json.RawMessage `json:"limitations,omitempty"`
	Plagiarism  json.RawMessage `json:"plagiarism,omitempty"`
	Citations   json.RawMessage `json:"citations,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Grant represents a funding call.
type Grant struct {
	ID        uuid.UUID  `json:"id"`
	Source    string     `json:"source"`
	CallID    string     `json:"call_id"`
	Title     string     `json:"title"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	URL       string     `json:"url,omitempty"`
	Agency    string     `json:"agency,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Proposal represents a user-authored proposal document.
type Proposal struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Domain    string          `json:"domain"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// Job tracks one unit of asynchronous work dispatched to the worker pool.
// Lifecycle: queued -> running -> succeeded | failed.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     string          `json:"status"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Error      string          `json:"error,omitempty"`
}
