package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/scheduler"
)

// JobHandler exposes the in-memory job registry
type JobHandler struct {
	registry *scheduler.Registry
	logger   arbor.ILogger
}

func NewJobHandler(registry *scheduler.Registry, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListJobsHandler serves GET /api/jobs, newest first.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	jobs := h.registry.List()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// JobDetailHandler serves GET /api/jobs/{id}.
func (h *JobHandler) JobDetailHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "job id required")
		return
	}

	job := h.registry.Get(id)
	if job == nil {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
