package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/taskmanager-api/internal/api"
	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug"},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, URL: ":memory:"},
		Cache:    config.CacheConfig{TTLSeconds: 60},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	log, _ := logger.NewTestLogger()

	app, err := newApplication(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.backend.Close() })
	return app
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestApp(t, cfg).setupRouter())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := do(t, http.MethodGet, srv.URL+"/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readBody(t, resp))
}

func TestUnmatchedRoutesUseErrorBody(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := do(t, http.MethodGet, srv.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"error":"Not Found"`)
	assert.Contains(t, body, `"message":"No handler for GET /nope"`)

	resp = do(t, http.MethodGet, srv.URL+"/api/tasks/1/comments", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"path":"/api/tasks/1/comments"`)

	resp = do(t, http.MethodPatch, srv.URL+"/api/tasks/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"message":"Method PATCH is not supported for /api/tasks/1"`)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, testConfig())
	yesterday := domain.DateOf(time.Now()).AddDays(-1)

	resp := do(t, http.MethodPost, srv.URL+"/api/tasks",
		`{"title":"Pay rent","dueDate":"`+yesterday.String()+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	var created api.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Overdue)
	location := srv.URL + resp.Header.Get("Location")

	resp = do(t, http.MethodGet, srv.URL+"/api/tasks/overdue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var overdue []api.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&overdue))
	require.Len(t, overdue, 1)
	assert.Equal(t, created.ID, overdue[0].ID)

	resp = do(t, http.MethodPatch, location+"/status?status=DONE", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/tasks/overdue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))

	resp = do(t, http.MethodDelete, location, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, location, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Task not found with id: ")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	do(t, http.MethodPost, srv.URL+"/api/tasks", `{"title":"Counted"}`)
	do(t, http.MethodGet, srv.URL+"/api/tasks/1", "")

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)

	assert.Contains(t, body, `taskmanager_tasks{status="TODO"} 1`)
	assert.Contains(t, body, `taskmanager_tasks{status="DONE"} 0`)
	assert.Contains(t, body, `taskmanager_task_events_total{event_type="task.created"} 1`)
	assert.Contains(t, body, `taskmanager_http_requests_total{code="201",method="POST",route="/api/tasks`)
	assert.Contains(t, body, `route="/api/tasks/{id}"`)
	assert.NotContains(t, body, "taskmanager_task_cache_requests_total")
}

func TestCacheMetricsWhenEnabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.RedisURL = "redis://" + mr.Addr()
	srv := newTestServer(t, cfg)

	resp := do(t, http.MethodPost, srv.URL+"/api/tasks", `{"title":"Cached"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	do(t, http.MethodGet, srv.URL+resp.Header.Get("Location"), "")

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Contains(t, readBody(t, resp), `taskmanager_task_cache_requests_total{result="hit"} 1`)
}

func TestCORS(t *testing.T) {
	t.Run("open mode", func(t *testing.T) {
		srv := newTestServer(t, testConfig())

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/tasks", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://anywhere.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("restricted mode preflight", func(t *testing.T) {
		cfg := testConfig()
		cfg.CORS.AllowedOrigins = "https://app.example, https://admin.example"
		srv := newTestServer(t, cfg)

		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/tasks/1", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://admin.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "https://admin.example", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	app := newTestApp(t, testConfig())
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, listener, app.setupRouter()) }()

	url := "http://" + listener.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestRunMigrationsRejectsBadInput(t *testing.T) {
	log, _ := logger.NewTestLogger()
	ctx := context.Background()

	err := runMigrations(ctx, testConfig(), log, "sideways")
	assert.ErrorContains(t, err, `unknown migration command "sideways"`)

	err = runMigrations(ctx, testConfig(), log, "up")
	assert.ErrorContains(t, err, "require the postgres driver")
}
