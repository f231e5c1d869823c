package httpserver

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/graph"
	"github.com/helixir/paper-enrichment-service/internal/ingest"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/searchindex"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

type mockPaperRepo struct{ mock.Mock }

func (m *mockPaperRepo) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	args := m.Called(ctx, paper)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Paper), args.Error(1)
}

func (m *mockPaperRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Paper), args.Error(1)
}

func (m *mockPaperRepo) GetBySourceID(ctx context.Context, source domain.SourceType, sourceID string) (*domain.Paper, error) {
	args := m.Called(ctx, source, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Paper), args.Error(1)
}

func (m *mockPaperRepo) List(ctx context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Paper), args.Get(1).(int64), args.Error(2)
}

type mockFileRepo struct{ mock.Mock }

func (m *mockFileRepo) Create(ctx context.Context, file *domain.PaperFile) (*domain.PaperFile, error) {
	args := m.Called(ctx, file)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	out := *file
	out.ID = uuid.New()
	return &out, nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaperFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaperFile), args.Error(1)
}

func (m *mockFileRepo) GetLatestByPaper(ctx context.Context, paperID uuid.UUID) (*domain.PaperFile, error) {
	args := m.Called(ctx, paperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaperFile), args.Error(1)
}

func (m *mockFileRepo) UpdatePages(ctx context.Context, id uuid.UUID, pages int) error {
	return m.Called(ctx, id, pages).Error(0)
}

type mockAnalysisRepo struct{ mock.Mock }

func (m *mockAnalysisRepo) Create(ctx context.Context, analysis *domain.Analysis) (*domain.Analysis, error) {
	args := m.Called(ctx, analysis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *mockAnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *mockAnalysisRepo) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Analysis, error) {
	args := m.Called(ctx, paperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Analysis), args.Error(1)
}

type mockJobRepo struct{ mock.Mock }

func (m *mockJobRepo) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *mockJobRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockJobRepo) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

type mockGrantRepo struct{ mock.Mock }

func (m *mockGrantRepo) Create(ctx context.Context, grant *domain.Grant) (*domain.Grant, error) {
	args := m.Called(ctx, grant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Grant), args.Error(1)
}

func (m *mockGrantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Grant), args.Error(1)
}

func (m *mockGrantRepo) List(ctx context.Context, filter repository.GrantFilter) ([]*domain.Grant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Grant), args.Error(1)
}

type mockProposalRepo struct{ mock.Mock }

func (m *mockProposalRepo) Create(ctx context.Context, proposal *domain.Proposal) (*domain.Proposal, error) {
	args := m.Called(ctx, proposal)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	out := *proposal
	out.ID = uuid.New()
	return &out, nil
}

func (m *mockProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Proposal), args.Error(1)
}

func (m *mockProposalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Proposal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Proposal), args.Error(1)
}

type mockIngester struct{ mock.Mock }

func (m *mockIngester) Ingest(ctx context.Context, source domain.SourceType, query string, maxResults int) (*ingest.Result, error) {
	args := m.Called(ctx, source, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Result), args.Error(1)
}

type mockAbstractAnalyzer struct{ mock.Mock }

func (m *mockAbstractAnalyzer) AnalyzeAbstract(ctx context.Context, paperID uuid.UUID) (*domain.Analysis, error) {
	args := m.Called(ctx, paperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

type mockEnqueuer struct{ mock.Mock }

func (m *mockEnqueuer) EnqueueAnalyzePDF(ctx context.Context, paperID uuid.UUID, storagePath string) (*domain.Job, error) {
	args := m.Called(ctx, paperID, storagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

type mockIndex struct{ mock.Mock }

func (m *mockIndex) EnsureIndex(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockIndex) UpsertPaper(ctx context.Context, paper *domain.Paper) error {
	return m.Called(ctx, paper).Error(0)
}

func (m *mockIndex) Search(ctx context.Context, query string) ([]searchindex.PaperDocument, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]searchindex.PaperDocument), args.Error(1)
}

type mockGraph struct{ mock.Mock }

func (m *mockGraph) AddPaperAndAuthors(ctx context.Context, paper *domain.Paper) error {
	return m.Called(ctx, paper).Error(0)
}

func (m *mockGraph) SuggestCollaborators(ctx context.Context, topic string) ([]graph.Collaborator, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]graph.Collaborator), args.Error(1)
}

func (m *mockGraph) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// serverMocks bundles every mocked dependency for one test server.
type serverMocks struct {
	users     *mockUserRepo
	papers    *mockPaperRepo
	files     *mockFileRepo
	analyses  *mockAnalysisRepo
	jobs      *mockJobRepo
	grants    *mockGrantRepo
	proposals *mockProposalRepo
	ingester  *mockIngester
	analyzer  *mockAbstractAnalyzer
	enqueuer  *mockEnqueuer
	index     *mockIndex
	graph     *mockGraph
	store     *mockStore
}

func newTestServer(t *testing.T) (*Server, *serverMocks) {
	t.Helper()
	return newTestServerWithConfig(t, Config{Address: "127.0.0.1:0"})
}

func newTestServerWithConfig(t *testing.T, cfg Config) (*Server, *serverMocks) {
	t.Helper()
	m := &serverMocks{
		users:     new(mockUserRepo),
		papers:    new(mockPaperRepo),
		files:     new(mockFileRepo),
		analyses:  new(mockAnalysisRepo),
		jobs:      new(mockJobRepo),
		grants:    new(mockGrantRepo),
		proposals: new(mockProposalRepo),
		ingester:  new(mockIngester),
		analyzer:  new(mockAbstractAnalyzer),
		enqueuer:  new(mockEnqueuer),
		index:     new(mockIndex),
		graph:     new(mockGraph),
		store:     new(mockStore),
	}
	repos := Repositories{
		Users:     m.users,
		Papers:    m.papers,
		Files:     m.files,
		Analyses:  m.analyses,
		Jobs:      m.jobs,
		Grants:    m.grants,
		Proposals: m.proposals,
	}
	metrics := observability.NewMetrics("test_http_" + uuid.NewString()[:8])
	srv := NewServer(cfg, repos, m.ingester, m.analyzer, m.enqueuer, m.index, m.graph, m.store, nil, metrics, zerolog.Nop())
	return srv, m
}
