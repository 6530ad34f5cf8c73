package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/lint"
	"github.com/dontdude/ymlint/internal/metrics"
	"github.com/dontdude/ymlint/internal/platform/web"
)

// Server exposes lint submission and result streaming over HTTP.
type Server struct {
	queue    domain.LintQueue
	hub      *web.Hub
	limiter  *web.RateLimiter
	eligible lint.Eligibility
	maxBody  int64
}

func NewServer(queue domain.LintQueue, hub *web.Hub, limiter *web.RateLimiter, eligible lint.Eligibility, maxBody int64) *Server {
	return &Server{
		queue:    queue,
		hub:      hub,
		limiter:  limiter,
		eligible: eligible,
		maxBody:  maxBody,
	}
}

// Routes registers the API on a standard library mux, wrapped with CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// POST /api/lint -> Enqueues a lint job (rate limited)
	mux.HandleFunc("POST /api/lint", s.limiter.Middleware(s.handleSubmit))

	// GET /api/ws -> WebSocket upgrade, streams the job's result
	mux.HandleFunc("GET /api/ws", s.handleWS)

	mux.Handle("GET /metrics", metrics.Handler())

	return web.EnableCORS(mux)
}

type submitRequest struct {
	Filename string `json:"filename"`
	YML      string `json:"yml"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reject(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.reject(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.YML == "" {
		s.reject(w, http.StatusBadRequest, "yml is required")
		return
	}
	if !s.eligible.Eligible(req.Filename) {
		s.reject(w, http.StatusBadRequest, lint.ErrNotEligible.Error())
		return
	}

	job := domain.Job{
		ID:       uuid.New().String(),
		Filename: req.Filename,
		YML:      req.YML,
	}

	slog.Info("Received submission", "jobID", job.ID, "filename", job.Filename)
	if err := s.queue.Publish(r.Context(), job); err != nil {
		slog.Error("Failed to publish job", "jobID", job.ID, "error", err)
		metrics.IncreaseJobsTotalMetric(metrics.JobFailed)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}
	metrics.IncreaseJobsTotalMetric(metrics.JobQueued)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": "queued",
	})
}

func (s *Server) reject(w http.ResponseWriter, code int, msg string) {
	metrics.IncreaseJobsTotalMetric(metrics.JobRejected)
	writeJSON(w, code, map[string]string{"error": msg})
}

// WebSocket Upgrader (Gorilla)
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection to WebSocket and registers it with the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("Client connected via WebSocket", "jobID", jobID, "remoteAddr", conn.RemoteAddr())
	s.hub.Register(jobID, conn)

	defer func() {
		slog.Info("Client disconnected", "jobID", jobID)
		s.hub.Unregister(jobID, conn)
		conn.Close()
	}()

	// Keep the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
