// Package api exposes the HTTP surface: the REST read endpoints, the
// WebSocket push endpoint, health and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"courtside/internal/broadcast"
	"courtside/internal/stats"
)

// Router dispatches API requests
type Router struct {
	mux       *http.ServeMux
	publisher *broadcast.Publisher
	agg       *stats.Aggregator
	hub       *broadcast.Hub
	log       zerolog.Logger
}

// NewRouter creates the router with all routes registered
func NewRouter(publisher *broadcast.Publisher, agg *stats.Aggregator, hub *broadcast.Hub, log zerolog.Logger) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		publisher: publisher,
		agg:       agg,
		hub:       hub,
		log:       log.With().Str("component", "api").Logger(),
	}

	r.mux.HandleFunc("GET /api/scores", r.handleScores)
	r.mux.HandleFunc("GET /api/scores/stats/today", r.handleStatsToday)
	r.mux.HandleFunc("GET /api/scores/stats/history", r.handleStatsHistory)
	r.mux.HandleFunc("GET /api/scores/stats/monthly", r.handleStatsMonthly)
	r.mux.HandleFunc("GET /api/scores/players/top", r.handleTopPlayers)
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	return r
}

// ServeHTTP applies CORS headers and dispatches to the mux
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	r.mux.ServeHTTP(w, req)
}
