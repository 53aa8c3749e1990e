// ABOUTME: Tests for the sequential crew using a scripted in-memory LLM client.
// ABOUTME: Covers prompt context threading, output files, callbacks, cancellation and errors.
package crew

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	muxllm "github.com/2389-research/mux/llm"
)

type scriptedClient struct {
	mu       sync.Mutex
	replies  []string
	failAt   int
	requests []*muxllm.Request
	onCall   func(n int)
}

func (s *scriptedClient) CreateMessage(_ context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(n)
	}
	if s.failAt > 0 && n+1 == s.failAt {
		return nil, errors.New("model unavailable")
	}
	text := ""
	if n < len(s.replies) {
		text = s.replies[n]
	}
	return &muxllm.Response{
		Content:    []muxllm.ContentBlock{{Type: muxllm.ContentTypeText, Text: text}},
		StopReason: muxllm.StopReasonEndTurn,
	}, nil
}

func (s *scriptedClient) CreateMessageStream(_ context.Context, _ *muxllm.Request) (<-chan muxllm.StreamEvent, error) {
	return nil, errors.New("streaming not supported")
}

func newTestCrew(t *testing.T, client *scriptedClient) *Crew {
	t.Helper()
	def, err := DefaultDefinition()
	if err != nil {
		t.Fatalf("failed to load definition: %v", err)
	}
	return New(def, client, "test-model", WithOutputDir(t.TempDir()))
}

func TestCrewKickoffRunsTasksInOrder(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"  product spec  ",
		"wireframe",
		"api",
		"<!DOCTYPE html><html></html>",
	}}
	c := newTestCrew(t, client)

	var done []string
	c.OnTaskDone = func(i int, out TaskOutput) {
		done = append(done, out.Name)
	}

	out, err := c.Kickoff(context.Background(), map[string]string{"feature_request": "add a dark mode toggle"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Tasks) != 4 {
		t.Fatalf("expected 4 task outputs, got %d", len(out.Tasks))
	}
	if out.Tasks[0].Text != "product spec" {
		t.Errorf("expected trimmed text, got %q", out.Tasks[0].Text)
	}
	if out.Tasks[0].Raw != "  product spec  " {
		t.Errorf("expected raw text preserved, got %q", out.Tasks[0].Raw)
	}
	if strings.Join(done, ",") != strings.Join(c.Definition().TaskNames(), ",") {
		t.Errorf("expected callbacks in task order, got %v", done)
	}

	first := client.requests[0]
	if first.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", first.Model)
	}
	if !strings.Contains(first.Messages[0].Content, "add a dark mode toggle") {
		t.Errorf("expected feature request in first prompt, got %q", first.Messages[0].Content)
	}
	if !strings.Contains(first.System, "Product Manager") {
		t.Errorf("expected product manager persona, got %q", first.System)
	}

	last := client.requests[3].Messages[0].Content
	for _, want := range []string{"product spec", "wireframe", "api"} {
		if !strings.Contains(last, want) {
			t.Errorf("expected frontend prompt to include context %q", want)
		}
	}
	if strings.Contains(client.requests[2].Messages[0].Content, "wireframe\n") {
		t.Error("expected backend prompt to take context only from the product task")
	}
}

func TestCrewWritesOutputFile(t *testing.T) {
	client := &scriptedClient{replies: []string{"a", "b", "c", "<!DOCTYPE html><html></html>"}}
	dir := t.TempDir()
	def, _ := DefaultDefinition()
	c := New(def, client, "", WithOutputDir(dir))

	if _, err := c.Kickoff(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "frontend_code.html"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if string(data) != "<!DOCTYPE html><html></html>" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestCrewKickoffError(t *testing.T) {
	client := &scriptedClient{replies: []string{"a", "b"}, failAt: 2}
	c := newTestCrew(t, client)

	out, err := c.Kickoff(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "uiux_design_task") {
		t.Errorf("expected failing task in error, got %v", err)
	}
	if len(out.Tasks) != 1 {
		t.Errorf("expected partial output with 1 task, got %d", len(out.Tasks))
	}
}

func TestCrewKickoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{replies: []string{"a", "b", "c", "d"}}
	client.onCall = func(n int) {
		if n == 0 {
			cancel()
		}
	}
	c := newTestCrew(t, client)

	_, err := c.Kickoff(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(client.requests) != 1 {
		t.Errorf("expected run to stop after the first task, got %d calls", len(client.requests))
	}
}

func TestOutputAdapters(t *testing.T) {
	out := &Output{Tasks: []TaskOutput{
		{Name: "a", Text: "one", Raw: " one "},
		{Name: "b", Text: "two", Raw: " two\n"},
	}}
	if out.String() != "two" {
		t.Errorf("expected final text, got %q", out.String())
	}
	if out.RawPayload() != " two\n" {
		t.Errorf("expected raw payload of last task, got %q", out.RawPayload())
	}
	if n := len(out.TaskResults()); n != 2 {
		t.Errorf("expected 2 task results, got %d", n)
	}

	empty := &Output{}
	if empty.String() != "" || empty.RawPayload() != "" {
		t.Error("expected empty output to stringify as empty")
	}
}
