// Package server provides the HTTP server of the sign capture tool.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/dataset"
	"github.com/ayusman/signcapture/internal/labels"
	"github.com/ayusman/signcapture/internal/metrics"
	"github.com/ayusman/signcapture/internal/server/api"
	"github.com/ayusman/signcapture/internal/store"
	"github.com/ayusman/signcapture/internal/web"
)

// Config holds the server configuration. Pipeline enables the capture
// endpoints; the remaining collaborators enable their routes when set.
type Config struct {
	Pipeline     *capture.Pipeline
	Dataset      *dataset.Store
	Labels       *labels.Registry
	Catalog      *store.Store
	Metrics      *metrics.Metrics
	Events       *EventHub
	MaxBodyBytes int64
}

// Server represents the HTTP server of the capture tool.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Pipeline != nil {
		captureHandler := api.NewCaptureHandler(s.config.Pipeline, s.config.MaxBodyBytes)
		s.mux.HandleFunc("/capture_image", captureHandler.CaptureImage)
		s.mux.HandleFunc("/save_image", captureHandler.SaveImage)
		s.mux.HandleFunc("/capture_video", captureHandler.CaptureVideo)
	}

	if s.config.Labels != nil {
		samples := api.NewSamplesHandler(s.config.Labels, s.config.Catalog)
		s.mux.HandleFunc("/api/signs", samples.Signs)
		s.mux.HandleFunc("/api/samples", samples.Samples)

		// Capture form at "/", assets under "/static/"
		form := web.NewHandler(s.config.Labels.Signs())
		s.mux.Handle("/", form)
	}

	if s.config.Dataset != nil {
		s.mux.Handle("/api/thumbnails/", api.NewThumbnailHandler(s.config.Dataset))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http.Addr = addr
	log.Printf("listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, closing
// event feed connections first. A later ListenAndServe returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.Events != nil {
		s.config.Events.Close()
	}
	return s.http.Shutdown(ctx)
}
