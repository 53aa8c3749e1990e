// ABOUTME: Tests for the crew runner HTTP server and chi router.
// ABOUTME: Covers health, the index page, crew control, outputs, results, file serving and CORS.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/extract"
	"github.com/2389-research/featurecrew/hub"
	"github.com/2389-research/featurecrew/progress"
)

type textResult string

func (s textResult) String() string { return string(s) }

type testEnv struct {
	srv    *Server
	exec   *executor.Executor
	hub    *hub.Registry
	outDir string
}

func newTestServer(t *testing.T, p executor.Pipeline) *testEnv {
	t.Helper()
	if p == nil {
		p = executor.PipelineFunc(func(ctx context.Context, inputs map[string]string) (extract.Result, error) {
			return textResult("done"), nil
		})
	}
	outDir := t.TempDir()
	reg := hub.NewRegistry()
	exec := executor.New(p, progress.NewLogger(reg), executor.Config{OutputDir: outDir})
	srv, err := NewServer(ServerConfig{Executor: exec, Hub: reg, OutputDir: outDir})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{srv: srv, exec: exec, hub: reg, outDir: outDir}
}

// blockingPipeline returns a pipeline that holds the slot until cancelled.
func blockingPipeline() executor.Pipeline {
	return executor.PipelineFunc(func(ctx context.Context, inputs map[string]string) (extract.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{Hub: hub.NewRegistry()}); err == nil {
		t.Fatal("expected error for missing executor")
	}
	exec := executor.New(blockingPipeline(), progress.NewLogger(nil), executor.Config{})
	if _, err := NewServer(ServerConfig{Executor: exec}); err == nil {
		t.Fatal("expected error for missing hub")
	}
}

func TestServerHealth(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Fatalf("expected status healthy, got %v", body["status"])
	}
	if body["websocket_connections"] != float64(0) {
		t.Fatalf("expected 0 connections, got %v", body["websocket_connections"])
	}
	if body["crew_running"] != false {
		t.Fatalf("expected crew_running false, got %v", body["crew_running"])
	}
}

func TestServerIndexAndStatic(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "featurecrew") {
		t.Fatalf("expected index page, got %q", rec.Body.String())
	}

	for _, path := range []string{"/static/css/app.css", "/static/js/app.js"} {
		rec := env.do(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rec.Code)
		}
	}
}

func TestStartCrewValidation(t *testing.T) {
	env := newTestServer(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing field", "{}"},
		{"blank request", `{"feature_request": "   "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/start-crew", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if _, ok := decodeBody(t, rec)["detail"]; !ok {
				t.Fatal("expected detail in error body")
			}
		})
	}
	if env.exec.IsRunning() {
		t.Fatal("expected no execution after rejected requests")
	}
}

func TestStartCrewConflictAndStop(t *testing.T) {
	env := newTestServer(t, blockingPipeline())

	rec := env.do(http.MethodPost, "/api/start-crew", `{"feature_request": "add search"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "started" || body["feature_request"] != "add search" {
		t.Fatalf("unexpected start body: %v", body)
	}

	rec = env.do(http.MethodPost, "/api/start-crew", `{"feature_request": "add filters"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["detail"]; got != "Crew is already running" {
		t.Fatalf("expected already-running detail, got %v", got)
	}

	waitUntil(t, "run id", func() bool { return env.exec.Status().RunID != "" })

	rec = env.do(http.MethodPost, "/api/stop-crew", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from stop, got %d: %s", rec.Code, rec.Body.String())
	}
	waitUntil(t, "slot release", func() bool { return !env.exec.IsRunning() })

	res := env.exec.LastResult()
	if res == nil || res.Success {
		t.Fatalf("expected failed result after stop, got %+v", res)
	}
}

func TestStopCrewWhenIdle(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodPost, "/api/stop-crew", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["detail"]; got != "No crew is currently running" {
		t.Fatalf("expected idle detail, got %v", got)
	}
}

func TestStatusIdle(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["is_running"] != false {
		t.Fatalf("expected is_running false, got %v", body["is_running"])
	}
	if body["total_tasks"] != float64(len(progress.Tasks)) {
		t.Fatalf("expected total_tasks %d, got %v", len(progress.Tasks), body["total_tasks"])
	}
	if body["start_time"] != nil {
		t.Fatalf("expected null start_time, got %v", body["start_time"])
	}
}

func TestOutputsAndRenderedHTML(t *testing.T) {
	env := newTestServer(t, nil)
	task := progress.Tasks[0]

	rec := env.do(http.MethodGet, "/api/outputs/"+task.Name+"/html", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any output, got %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/outputs/no_such_task/html", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", rec.Code)
	}

	env.exec.Logger().AgentOutput(context.Background(), task.Agent, task.Name, "# Spec\n\n- one", "text")

	rec = env.do(http.MethodGet, "/api/outputs", "")
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", body["count"])
	}
	outputs := body["outputs"].(map[string]any)
	byAgent, ok := outputs[task.Name].(map[string]any)
	if !ok {
		t.Fatalf("expected outputs for %s, got %v", task.Name, outputs)
	}
	if entry := byAgent[task.Agent].(map[string]any); entry["output"] != "# Spec\n\n- one" {
		t.Fatalf("unexpected captured output: %v", entry)
	}

	rec = env.do(http.MethodGet, "/api/outputs/"+task.Name+"/html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	html := decodeBody(t, rec)["html"].(map[string]any)
	rendered, _ := html[task.Agent].(string)
	if !strings.Contains(rendered, "<h1>Spec</h1>") || !strings.Contains(rendered, "<li>one</li>") {
		t.Fatalf("expected rendered markdown, got %q", rendered)
	}
}

func TestResult(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/result", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", rec.Code)
	}

	if _, err := env.exec.Run(context.Background(), "add search"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec = env.do(http.MethodGet, "/api/result", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if body["run_id"] == "" {
		t.Fatal("expected a run id")
	}
}

func TestFileServing(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/files/"+executor.FrontendFile, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before generation, got %d", rec.Code)
	}

	page := "<!DOCTYPE html><html><body>hi</body></html>"
	if err := os.WriteFile(filepath.Join(env.outDir, executor.FrontendFile), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.outDir, "secret.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec = env.do(http.MethodGet, "/api/files/"+executor.FrontendFile, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != page {
		t.Fatalf("expected page body, got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html, got %q", ct)
	}

	rec = env.do(http.MethodGet, "/api/files/secret.txt", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for file outside the allow-list, got %d", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected Access-Control-Allow-Origin header")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
