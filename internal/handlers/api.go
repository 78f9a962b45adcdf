package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// APIHandler serves health and version endpoints
type APIHandler struct {
	config  *common.Config
	storage interfaces.StorageManager
	logger  arbor.ILogger
	started time.Time
}

func NewAPIHandler(config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:  config,
		storage: storage,
		logger:  logger,
		started: time.Now(),
	}
}

// HealthHandler reports service liveness and queue depth.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pending, err := h.storage.LeadStorage().PendingCount(r.Context())
	status := "healthy"
	if err != nil {
		h.logger.Warn().Err(err).Msg("Health probe could not reach storage")
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status,
		"version":       common.Version,
		"environment":   h.config.Environment,
		"uptime":        time.Since(h.started).Round(time.Second).String(),
		"pending_leads": pending,
	})
}

// VersionHandler reports the build version.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
	})
}
