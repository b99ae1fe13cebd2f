// Package server exposes the QA pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"

	"tourist-kgqa/internal/common/config"
	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/fallback"
	"tourist-kgqa/internal/pipeline"
)

// askSchema validates the question payload before it reaches the pipeline.
const askSchema = `{
	"type": "object",
	"required": ["question", "userId"],
	"properties": {
		"question": {"type": "string", "minLength": 1, "maxLength": 2000},
		"userId": {"type": "string", "minLength": 1, "maxLength": 128}
	},
	"additionalProperties": false
}`

// HealthChecker reports whether the graph backend is reachable.
type HealthChecker interface {
	IsConnected(ctx context.Context) bool
}

type askRequest struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	cfg      config.ServerConfig
	pipeline *pipeline.Pipeline
	results  fallback.ResultStore
	health   HealthChecker
	gatherer prometheus.Gatherer
	schema   *gojsonschema.Schema
	log      logger.Logger
	httpSrv  *http.Server
}

// New builds the server. gatherer carries the otel bridge's per-instance
// registry; nil means only the default registry is scraped.
func New(
	cfg config.ServerConfig,
	p *pipeline.Pipeline,
	results fallback.ResultStore,
	health HealthChecker,
	gatherer prometheus.Gatherer,
	log logger.Logger,
) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(askSchema))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		pipeline: p,
		results:  results,
		health:   health,
		gatherer: gatherer,
		schema:   schema,
		log:      log,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Routes builds the handler mux. Exported so tests can drive it through
// httptest without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/result/", s.handleResult)
	mux.HandleFunc("/healthz", s.handleHealth)
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if s.gatherer != nil {
		gatherers = append(gatherers, s.gatherer)
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", map[string]interface{}{"addr": s.cfg.Addr()})
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	body := json.RawMessage{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	validation, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil || !validation.Valid() {
		msg := "invalid request"
		if validation != nil && len(validation.Errors()) > 0 {
			msg = validation.Errors()[0].String()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	var req askRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	resp := s.pipeline.Ask(r.Context(), req.Question, req.UserID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	requestID := strings.TrimPrefix(r.URL.Path, "/result/")
	if requestID == "" || strings.Contains(requestID, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing request id"})
		return
	}

	result, err := s.results.Get(r.Context(), requestID)
	if err != nil {
		s.log.Error("failed to read fallback result", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "result lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	payload := map[string]string{"status": "ok"}
	if s.health != nil && !s.health.IsConnected(r.Context()) {
		status = http.StatusServiceUnavailable
		payload = map[string]string{"status": "degraded", "graph": "unreachable"}
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
