// ABOUTME: JSON handlers for starting and stopping executions and reading their state and outputs.
// ABOUTME: Maps executor sentinel errors onto HTTP status codes.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/progress"
	"github.com/go-chi/chi/v5"
)

// maxRequestBody bounds the start-crew request body.
const maxRequestBody = 64 << 10

// servableFiles lists the generated files clients may download.
var servableFiles = map[string]bool{
	executor.FrontendFile: true,
}

type startRequest struct {
	FeatureRequest string `json:"feature_request"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := StaticFS.ReadFile("static/index.html")
	if err != nil {
		log.Printf("component=web action=index_missing err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleStartCrew(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.FeatureRequest = strings.TrimSpace(req.FeatureRequest)

	switch err := s.exec.Start(req.FeatureRequest); {
	case errors.Is(err, executor.ErrEmptyRequest):
		writeDetail(w, http.StatusBadRequest, "feature_request must not be empty")
		return
	case errors.Is(err, executor.ErrAlreadyRunning):
		writeDetail(w, http.StatusConflict, "Crew is already running")
		return
	case err != nil:
		log.Printf("component=web action=start_failed err=%v", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Crew execution started",
		"status":          "started",
		"feature_request": req.FeatureRequest,
	})
}

func (s *Server) handleStopCrew(w http.ResponseWriter, r *http.Request) {
	if err := s.exec.Stop(); err != nil {
		if errors.Is(err, executor.ErrNotRunning) {
			writeDetail(w, http.StatusConflict, "No crew is currently running")
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Crew execution stopped",
		"status":  "stopped",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.exec.Status())
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	outs := s.exec.Logger().Outputs()
	writeJSON(w, http.StatusOK, map[string]any{
		"outputs": outs,
		"count":   outs.Count(),
	})
}

// handleOutputHTML renders each agent's output for one task from markdown.
func (s *Server) handleOutputHTML(w http.ResponseWriter, r *http.Request) {
	task := chi.URLParam(r, "task")
	if _, ok := progress.LookupTask(task); !ok {
		writeDetail(w, http.StatusNotFound, "Unknown task")
		return
	}
	byAgent, ok := s.exec.Logger().Outputs()[task]
	if !ok || len(byAgent) == 0 {
		writeDetail(w, http.StatusNotFound, "No output for task")
		return
	}

	rendered := make(map[string]string, len(byAgent))
	for agent, co := range byAgent {
		rendered[agent] = RenderMarkdown(co.Output)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task": task,
		"html": rendered,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res := s.exec.LastResult()
	if res == nil {
		writeDetail(w, http.StatusNotFound, "No execution has finished yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !servableFiles[name] {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	path := filepath.Join(s.outputDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "healthy",
		"websocket_connections": s.hub.Count(),
		"crew_running":          s.exec.IsRunning(),
	})
}
