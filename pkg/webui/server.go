// Package webui provides the HTTP API for the compass buyer-journey
// service: stage catalog, buyer progression, completion criteria,
// artifacts, and agent command generation.
package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"compass/pkg/agentcmd"
	"compass/pkg/completion"
	"compass/pkg/config"
	"compass/pkg/journey"
	"compass/pkg/logx"
	"compass/pkg/metrics"
	"compass/pkg/persistence"
	"compass/pkg/progression"
	"compass/pkg/version"
)

// Server is the compass HTTP API server.
type Server struct {
	store        *persistence.Store
	catalog      *journey.Catalog
	tracker      *completion.Tracker
	engine       *progression.Engine
	router       *agentcmd.Router
	queryService *metrics.QueryService       // Optional, nil when Prometheus is not configured
	recorder     *metrics.PrometheusRecorder // Optional
	logger       *logx.Logger
}

// NewServer creates the API server over the wired journey components.
func NewServer(store *persistence.Store, catalog *journey.Catalog, tracker *completion.Tracker, engine *progression.Engine, router *agentcmd.Router) *Server {
	return &Server{
		store:   store,
		catalog: catalog,
		tracker: tracker,
		engine:  engine,
		router:  router,
		logger:  logx.NewLogger("webui"),
	}
}

// SetQueryService enables the journey metrics dashboard endpoint.
func (s *Server) SetQueryService(qs *metrics.QueryService) {
	s.queryService = qs
}

// SetRecorder enables criteria toggle counters.
func (s *Server) SetRecorder(rec *metrics.PrometheusRecorder) {
	s.recorder = rec
}

// requireAuth wraps an HTTP handler with Basic Authentication. Username
// is always "compass", password comes from the secrets file or the
// COMPASS_PASSWORD env var.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expectedPassword := config.GetAPIPassword()
		if expectedPassword == "" {
			// No password set - this should never happen as we generate one at startup
			s.logger.Error("API password not set - denying access")
			w.Header().Set("WWW-Authenticate", `Basic realm="Compass API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Compass API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if username != "compass" || password != expectedPassword {
			s.logger.Warn("Failed authentication attempt from %s (username: %s)", r.RemoteAddr, username)
			w.Header().Set("WWW-Authenticate", `Basic realm="Compass API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// RegisterRoutes sets up HTTP routes for the API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Journey endpoints - all protected by basic auth.
	mux.HandleFunc("/api/stages", s.requireAuth(s.handleStages))
	mux.HandleFunc("/api/buyers", s.requireAuth(s.handleBuyers))
	mux.HandleFunc("/api/buyers/", s.requireAuth(s.handleBuyer))
	mux.HandleFunc("/api/agent/command", s.requireAuth(s.handleAgentCommand))
	mux.HandleFunc("/api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("/api/metrics/journey", s.requireAuth(s.handleJourneyMetrics))

	// Unauthenticated operational endpoints.
	mux.HandleFunc("/api/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

// writeJSON sends a JSON response, logging encode failures.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP status codes and sends a JSON
// error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persistence.ErrBuyerNotFound),
		errors.Is(err, persistence.ErrArtifactNotFound),
		errors.Is(err, progression.ErrJumpNotFound):
		status = http.StatusNotFound
	case errors.Is(err, progression.ErrOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, progression.ErrCriteriaNotMet),
		errors.Is(err, journey.ErrStageNotConfigured):
		status = http.StatusConflict
	case errors.Is(err, progression.ErrPersistence):
		status = http.StatusInternalServerError
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth implements GET /api/healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleLogs implements GET /api/logs with optional component and since
// filters, served from the in-memory log buffer.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	component := query.Get("component")
	sinceStr := query.Get("since")

	var since time.Time
	if sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			s.logger.Warn("Invalid since parameter: %s", sinceStr)
			http.Error(w, "Invalid since parameter (use RFC3339)", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	logs := logx.GetRecentLogEntries(component, since)
	s.writeJSON(w, http.StatusOK, logs)

	s.logger.Debug("Served %d log entries (component=%q)", len(logs), component)
}

// handleJourneyMetrics implements GET /api/metrics/journey, querying
// Prometheus for aggregate transition counters.
func (s *Server) handleJourneyMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.queryService == nil {
		http.Error(w, "Metrics querying not configured", http.StatusServiceUnavailable)
		return
	}

	journeyMetrics, err := s.queryService.GetJourneyMetrics(r.Context())
	if err != nil {
		s.logger.Error("Failed to query journey metrics: %v", err)
		http.Error(w, "Failed to query metrics", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, journeyMetrics)
}
