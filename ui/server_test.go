package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"promptlab/adapters/rng"
	"promptlab/app"
	"promptlab/domain/core"
	"promptlab/domain/design"
	"promptlab/domain/space"
	"promptlab/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu      sync.Mutex
	runs    map[core.RunID]ports.RunMeta
	records map[core.RunID][]design.Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		runs:    make(map[core.RunID]ports.RunMeta),
		records: make(map[core.RunID][]design.Record),
	}
}

func (m *memoryRepo) CreateRun(ctx context.Context, meta ports.RunMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[meta.ID] = meta
	return nil
}

func (m *memoryRepo) AppendRecords(ctx context.Context, runID core.RunID, records []design.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[runID] = append(m.records[runID], records...)
	return nil
}

func (m *memoryRepo) GetRun(ctx context.Context, runID core.RunID) (*ports.RunMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.runs[runID]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return &meta, nil
}

func (m *memoryRepo) GetRecords(ctx context.Context, runID core.RunID) ([]design.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[runID], nil
}

func (m *memoryRepo) ListRuns(ctx context.Context, limit, offset int) ([]ports.RunMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var metas []ports.RunMeta
	for _, meta := range m.runs {
		metas = append(metas, meta)
	}
	return metas, nil
}

func testServer() (*Server, *memoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := newMemoryRepo()
	producer := ports.ProducerFunc(func(ctx context.Context, prompt string, hypers space.Binding) (string, error) {
		return "canned output", nil
	})
	experiments := app.NewExperimentService(producer, rng.New(), repo, nil)
	return NewServer(experiments, repo, nil), repo
}

const experimentBody = `{
	"template": "Write a {tone} greeting",
	"prompt_space": [{"name": "tone", "candidates": ["formal", "casual"]}],
	"prompt_strategy": {"mode": "factorial"},
	"hyper_space": [{"name": "temperature", "candidates": [0.2, 0.8]}],
	"hyper_strategy": {"mode": "factorial"},
	"seed": 42
}`

func TestRunExperimentEndpoint(t *testing.T) {
	server, repo := testServer()

	req := httptest.NewRequest(http.MethodPost, "/api/experiments", strings.NewReader(experimentBody))
	resp := httptest.NewRecorder()
	server.Handler().ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		RunID   string `json:"run_id"`
		Policy  string `json:"policy"`
		Records int    `json:"records"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, string(design.PolicyFullFactorial), created.Policy)
	assert.Equal(t, 4, created.Records)

	stored, err := repo.GetRecords(context.Background(), core.RunID(created.RunID))
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// Records endpoint returns what was persisted.
	req = httptest.NewRequest(http.MethodGet, "/api/experiments/"+created.RunID+"/records", nil)
	resp = httptest.NewRecorder()
	server.Handler().ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "canned output")

	// Report renders to HTML.
	req = httptest.NewRequest(http.MethodGet, "/api/experiments/"+created.RunID+"/report", nil)
	resp = httptest.NewRecorder()
	server.Handler().ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Body.String(), "Experiment run")
}

func TestRunExperimentEndpoint_InvalidDefinition(t *testing.T) {
	server, _ := testServer()

	body := `{"template": "It is {degrees} degrees", "prompt_strategy": {"mode": "factorial"}, "hyper_strategy": {"mode": "factorial"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/experiments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	server.Handler().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "degrees")
}

func TestGetRun_NotFound(t *testing.T) {
	server, _ := testServer()

	req := httptest.NewRequest(http.MethodGet, "/api/experiments/missing", nil)
	resp := httptest.NewRecorder()
	server.Handler().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
