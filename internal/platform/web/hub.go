package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/metrics"
)

// pendingTTL bounds how long a result waits for its client to connect.
const pendingTTL = 5 * time.Minute

// ResultConn is the write side of a client connection (a *websocket.Conn in production).
type ResultConn interface {
	WriteJSON(v interface{}) error
}

type pendingResult struct {
	result     domain.JobResult
	receivedAt time.Time
}

// Hub routes lint results to the client waiting on each job.
// A result that arrives before its client connects is held until it does.
type Hub struct {
	mu      sync.Mutex
	clients map[string]ResultConn
	pending map[string]pendingResult
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]ResultConn),
		pending: make(map[string]pendingResult),
		now:     time.Now,
	}
}

// Register attaches conn to jobID, flushing a held result if there is one.
func (h *Hub) Register(jobID string, conn ResultConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[jobID] = conn
	metrics.UpdateWebsocketClientsMetric(len(h.clients))

	if p, ok := h.pending[jobID]; ok {
		delete(h.pending, jobID)
		h.write(jobID, conn, p.result)
	}
}

// Unregister detaches conn, unless a newer connection has replaced it.
func (h *Hub) Unregister(jobID string, conn ResultConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[jobID] == conn {
		delete(h.clients, jobID)
		metrics.UpdateWebsocketClientsMetric(len(h.clients))
	}
}

// Deliver forwards result to its client, or holds it. It reports whether a client received it.
func (h *Hub) Deliver(result domain.JobResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.expire()
	conn, ok := h.clients[result.JobID]
	if !ok {
		h.pending[result.JobID] = pendingResult{result: result, receivedAt: h.now()}
		return false
	}
	return h.write(result.JobID, conn, result)
}

// Run delivers every result from results until the channel closes or ctx ends.
func (h *Hub) Run(ctx context.Context, results <-chan domain.JobResult) {
	slog.Info("Starting result broadcaster...")
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			h.Deliver(result)
		}
	}
}

func (h *Hub) write(jobID string, conn ResultConn, result domain.JobResult) bool {
	if err := conn.WriteJSON(result); err != nil {
		slog.Error("Failed to write to websocket", "jobID", jobID, "error", err)
		return false
	}
	return true
}

// expire drops held results nobody came for. Callers hold mu.
func (h *Hub) expire() {
	for id, p := range h.pending {
		if h.now().Sub(p.receivedAt) > pendingTTL {
			delete(h.pending, id)
		}
	}
}
