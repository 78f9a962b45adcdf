package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - service status
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// API routes - lead queue
	mux.HandleFunc("/api/leads", s.app.LeadHandler.LeadsHandler)       // GET (status), POST (ingest)
	mux.HandleFunc("/api/leads/", s.app.LeadHandler.LeadDetailHandler) // GET /{id}

	// API routes - accounts
	mux.HandleFunc("/api/accounts", s.app.AccountHandler.AccountsHandler) // GET (list), POST (register)

	// API routes - jobs and manual dispatch
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobDetailHandler) // GET /{id}
	mux.HandleFunc("/api/scrape", s.app.ScrapeHandler.TriggerHandler)

	return mux
}
