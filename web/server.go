// ABOUTME: HTTP front door for the crew runner: JSON control API, static page and the /ws event stream.
// ABOUTME: All routes hang off one chi router with recovery, request logging and permissive CORS.
package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/hub"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Server serves the control API and the WebSocket event stream.
type Server struct {
	exec      *executor.Executor
	hub       *hub.Registry
	outputDir string
	router    chi.Router
	upgrader  websocket.Upgrader
}

// ServerConfig holds the dependencies of the HTTP server.
type ServerConfig struct {
	Executor *executor.Executor
	Hub      *hub.Registry
	// OutputDir is where generated files are served from.
	OutputDir string
}

// NewServer creates a Server and builds its routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("Executor must not be nil")
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("Hub must not be nil")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	s := &Server{
		exec:      cfg.Executor,
		hub:       cfg.Hub,
		outputDir: cfg.OutputDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	router, err := s.buildRouter()
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr with timeouts suited to long
// lived WebSocket connections.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) buildRouter() (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(webRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start-crew", s.handleStartCrew)
		r.Post("/stop-crew", s.handleStopCrew)
		r.Get("/status", s.handleStatus)
		r.Get("/outputs", s.handleOutputs)
		r.Get("/outputs/{task}/html", s.handleOutputHTML)
		r.Get("/result", s.handleResult)
		r.Get("/files/{filename}", s.handleFile)
		r.Get("/health", s.handleHealth)
	})

	return r, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body in the {"detail": ...} shape clients expect.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
