package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Job API (Make.com and other automation clients)
	mux.HandleFunc("/scrape", s.app.JobHandler.ScrapeHandler)
	mux.HandleFunc("/status/", s.app.JobHandler.StatusHandler)
	mux.HandleFunc("/results/", s.app.JobHandler.ResultsHandler)

	// Health check for load balancers
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler", s.handleSchedulerRoute)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleSchedulerRoute routes GET (status) and POST (trigger now)
func (s *Server) handleSchedulerRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:  s.app.SchedulerHandler.StatusHandler,
		http.MethodPost: s.app.SchedulerHandler.TriggerHandler,
	})
}
