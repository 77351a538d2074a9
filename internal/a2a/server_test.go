// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/internal/taskstore"
	"github.com/pdiddy/research-agent/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct {
	report types.ResearchReport
	err    error
	got    []research.Request
}

func (r *stubRunner) Run(_ context.Context, req research.Request) (types.ResearchReport, error) {
	r.got = append(r.got, req)
	if r.err != nil {
		return types.ResearchReport{}, r.err
	}
	if _, err := research.Plan(req); err != nil {
		return types.ResearchReport{}, err
	}
	return r.report, nil
}

var generated = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func sampleReport() types.ResearchReport {
	return types.ResearchReport{
		Query: "how does nile university support innovation",
		Results: []types.ScoredResult{{
			NormalizedResult: types.NormalizedResult{
				URL:          "https://nu.edu.eg/innovation",
				Title:        "Innovation hub",
				SourceDomain: "nu.edu.eg",
				Provider:     types.ProviderTavily,
			},
			OverallScore: 8.4,
		}},
		Methodology: types.Methodology{
			SearchMode: types.ModeHybrid,
			ToolsUsed:  []types.Provider{types.ProviderPerplexity, types.ProviderTavily, types.ProviderExa},
		},
		GeneratedAt: generated,
	}
}

func testConfig() types.ServerConfig {
	return types.ServerConfig{
		Addr:      ":0",
		PublicURL: "https://agent.example.com/",
		APIKeys:   []string{"key-one", "key-two"},
		RateLimit: types.RateLimitConfig{PerMinute: 10, PerHour: 100},
	}
}

func testServer(t *testing.T, runner Runner, cfg types.ServerConfig) (*Server, *taskstore.Store) {
	t.Helper()
	store, err := taskstore.NewStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewServer(runner, store, cfg, "1.2.3", nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
	return s, store
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var apiKey = map[string]string{"X-API-Key": "key-one"}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, &stubRunner{}, testConfig())
	rec := do(s.Router(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestInfo(t *testing.T) {
	s, _ := testServer(t, &stubRunner{}, testConfig())
	rec := do(s.Router(), http.MethodGet, "/a2a/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var card AgentCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "research-agent", card.Name)
	assert.Equal(t, "1.2.3", card.Version)
	assert.Equal(t, "https://agent.example.com/a2a/task", card.URL)
	assert.Equal(t, []string{"bearer", "x-api-key"}, card.Authentication.Schemes)
	assert.Equal(t, RateLimits{RequestsPerMinute: 10, RequestsPerHour: 100}, card.RateLimits)

	require.Len(t, card.Capabilities.Skills, 1)
	skill := card.Capabilities.Skills[0]
	assert.Equal(t, "autonomous_research", skill.Name)
	assert.True(t, skill.Parameters["query"].Required)
	assert.Equal(t, []string{"normal", "url", "hybrid"}, skill.Parameters["search_mode"].Enum)
	assert.EqualValues(t, 10, skill.Parameters["max_results_per_tool"].Default)
	assert.Equal(t, []string{"perplexity", "tavily", "exa"}, skill.Parameters["providers"].Items.Enum)
}

func TestAuth(t *testing.T) {
	body := `{"query":"q"}`
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong x-api-key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"wrong bearer", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden},
		{"basic scheme ignored", map[string]string{"Authorization": "Basic key-one"}, http.StatusUnauthorized},
		{"x-api-key", map[string]string{"X-API-Key": "key-one"}, http.StatusOK},
		{"bearer second key", map[string]string{"Authorization": "Bearer key-two"}, http.StatusOK},
		{"bearer lower-case scheme", map[string]string{"Authorization": "bearer key-one"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testServer(t, &stubRunner{report: sampleReport()}, testConfig())
			rec := do(s.Router(), http.MethodPost, "/a2a/task", body, tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthDisabledWithoutKeys(t *testing.T) {
	cfg := testConfig()
	cfg.APIKeys = nil
	s, _ := testServer(t, &stubRunner{report: sampleReport()}, cfg)
	rec := do(s.Router(), http.MethodPost, "/a2a/task", `{"query":"q"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTask(t *testing.T) {
	runner := &stubRunner{report: sampleReport()}
	s, store := testServer(t, runner, testConfig())

	body := `{"query":"how does nile university support innovation","search_mode":"hybrid","domains":["nu.edu.eg"],"max_results_per_tool":5,"min_score":7}`
	rec := do(s.Router(), http.MethodPost, "/a2a/task", body, apiKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Equal(t, taskstore.StatusCompleted, resp.Status)
	assert.Contains(t, resp.ResearchReport, "[Tavily] - https://nu.edu.eg/innovation - Innovation hub - Score: 8.4/10")
	require.Len(t, resp.Report.Results, 1)

	require.Len(t, runner.got, 1)
	got := runner.got[0]
	assert.Equal(t, types.ModeHybrid, got.Mode)
	assert.Equal(t, []string{"nu.edu.eg"}, got.Domains)
	assert.Equal(t, 5, got.MaxResultsPerTool)
	require.NotNil(t, got.MinScore)
	assert.Equal(t, 7.0, *got.MinScore)

	task, err := store.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusCompleted, task.Status)
	assert.Equal(t, types.ModeHybrid, task.Mode)
	require.NotNil(t, task.Report)
	assert.Equal(t, 8.4, task.Report.Results[0].OverallScore)
}

func TestCreateTaskBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"empty body", ``},
		{"empty query", `{"query":"   "}`},
		{"unknown mode", `{"query":"q","search_mode":"deep"}`},
		{"url mode without domains", `{"query":"q","search_mode":"url"}`},
		{"unknown provider", `{"query":"q","providers":["google"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := testServer(t, &stubRunner{report: sampleReport()}, testConfig())
			rec := do(s.Router(), http.MethodPost, "/a2a/task", tt.body, apiKey)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])

			tasks, err := store.List(context.Background(), taskstore.ListOptions{})
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestCreateTaskAllProvidersFailed(t *testing.T) {
	runner := &stubRunner{err: &research.AllProvidersFailedError{Errors: []error{
		&research.ProviderTimeoutError{Provider: types.ProviderTavily, Timeout: 30 * time.Second},
		&research.ProviderError{Provider: types.ProviderExa, Err: fmt.Errorf("HTTP 500")},
	}}}
	s, store := testServer(t, runner, testConfig())

	rec := do(s.Router(), http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body struct {
		SessionID string                  `json:"session_id"`
		Status    string                  `json:"status"`
		Failures  []types.ProviderFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.SessionID)
	assert.Equal(t, "failed", body.Status)
	require.Len(t, body.Failures, 2)
	assert.Equal(t, types.ProviderTavily, body.Failures[0].Provider)
	assert.True(t, body.Failures[0].TimedOut)

	task, err := store.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusFailed, task.Status)
	assert.Equal(t, types.ModeNormal, task.Mode)
	assert.NotEmpty(t, task.Error)
}

func TestCreateTaskInternalError(t *testing.T) {
	s, _ := testServer(t, &stubRunner{err: fmt.Errorf("boom")}, testConfig())
	rec := do(s.Router(), http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestGetTask(t *testing.T) {
	s, _ := testServer(t, &stubRunner{report: sampleReport()}, testConfig())
	h := s.Router()

	rec := do(h, http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/a2a/task/session-1", "", apiKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID      string         `json:"session_id"`
		Status         string         `json:"status"`
		ResearchReport string         `json:"research_report"`
		Task           taskstore.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.SessionID)
	assert.Equal(t, "completed", body.Status)
	assert.Contains(t, body.ResearchReport, "Sources & Citations")
	require.NotNil(t, body.Task.Report)

	rec = do(h, http.MethodGet, "/a2a/task/missing", "", apiKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/a2a/task/session-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTaskWithoutStore(t *testing.T) {
	s := NewServer(&stubRunner{report: sampleReport()}, nil, testConfig(), "dev", nil)
	h := s.Router()

	rec := do(h, http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/a2a/task/anything", "", apiKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = types.RateLimitConfig{PerMinute: 2, PerHour: 100}
	s, _ := testServer(t, &stubRunner{report: sampleReport()}, cfg)
	h := s.Router()

	for i := 0; i < 2; i++ {
		rec := do(h, http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(h, http.MethodPost, "/a2a/task", `{"query":"q"}`, apiKey)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Budgets are per API key.
	rec = do(h, http.MethodPost, "/a2a/task", `{"query":"q"}`, map[string]string{"X-API-Key": "key-two"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads are not limited.
	rec = do(h, http.MethodGet, "/a2a/task/session-1", "", apiKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("hour window", func(t *testing.T) {
		rl := newRateLimiter(10, 3)
		for i := 0; i < 3; i++ {
			ok, _ := rl.allow("c", now)
			require.True(t, ok)
		}
		ok, wait := rl.allow("c", now)
		assert.False(t, ok)
		assert.InDelta(t, (20 * time.Minute).Seconds(), wait.Seconds(), 1)
	})

	t.Run("rejection takes no token", func(t *testing.T) {
		rl := newRateLimiter(1, 100)
		ok, _ := rl.allow("c", now)
		require.True(t, ok)
		for i := 0; i < 5; i++ {
			ok, _ = rl.allow("c", now)
			require.False(t, ok)
		}
		// One minute later the minute bucket has refilled and the hour
		// bucket still holds its tokens.
		ok, _ = rl.allow("c", now.Add(time.Minute))
		assert.True(t, ok)
	})

	t.Run("idle clients are evicted", func(t *testing.T) {
		rl := newRateLimiter(1, 10)
		ok, _ := rl.allow("ip:10.0.0.1", now)
		require.True(t, ok)
		ok, _ = rl.allow("ip:10.0.0.2", now.Add(30*time.Minute))
		require.True(t, ok)
		assert.Equal(t, 2, rl.size())

		ok, _ = rl.allow("ip:10.0.0.3", now.Add(61*time.Minute))
		require.True(t, ok)
		assert.Equal(t, 2, rl.size(), "only the client idle for an hour is dropped")

		// A client seen within the hour keeps its spent minute bucket.
		ok, _ = rl.allow("ip:10.0.0.3", now.Add(61*time.Minute))
		assert.False(t, ok)
	})

	t.Run("zero disables", func(t *testing.T) {
		rl := newRateLimiter(0, 0)
		for i := 0; i < 50; i++ {
			ok, _ := rl.allow("c", now)
			require.True(t, ok)
		}
	})
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "127.0.0.1:0"
	s := NewServer(&stubRunner{}, nil, cfg, "dev", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
