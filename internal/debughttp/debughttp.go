// Package debughttp is a small HTTP surface that runs alongside the RPC
// listener for health checks and basic liveness/stat reporting — the kind
// of plain-HTTP side channel an RPC-only server still needs for load
// balancers and operators, adapted from the gateway's own router setup.
package debughttp

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Stats is the set of counters the debug surface reports. The RPC server
// updates these atomically as connections and streams come and go.
type Stats struct {
	ConnectionsAccepted atomic.Int64
	ConnectionsActive   atomic.Int64
	StreamsHandled      atomic.Int64
}

// Handler is the debug HTTP surface: GET /health for liveness, GET /stats
// for the counters above.
type Handler struct {
	router chi.Router
	stats  *Stats
}

// New builds a Handler reporting from stats.
func New(stats *Stats) *Handler {
	h := &Handler{stats: stats}
	h.routes()
	return h
}

func (h *Handler) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/stats", h.handleStats)

	h.router = r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{
		"connections_accepted": h.stats.ConnectionsAccepted.Load(),
		"connections_active":   h.stats.ConnectionsActive.Load(),
		"streams_handled":      h.stats.StreamsHandled.Load(),
	})
}
