package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// LeadHandler manages the lead queue over HTTP
type LeadHandler struct {
	leads    interfaces.LeadStorage
	profiles interfaces.ProfileStorage
	logger   arbor.ILogger
}

func NewLeadHandler(leads interfaces.LeadStorage, profiles interfaces.ProfileStorage, logger arbor.ILogger) *LeadHandler {
	return &LeadHandler{
		leads:    leads,
		profiles: profiles,
		logger:   logger,
	}
}

// createLeadsRequest is the bulk ingestion payload
type createLeadsRequest struct {
	OwnerID string   `json:"owner_id" validate:"required"`
	Tag     string   `json:"tag,omitempty"`
	URLs    []string `json:"urls" validate:"required,min=1,dive,url"`
}

// LeadsHandler dispatches /api/leads by method: POST ingests profile URLs,
// GET reports queue state.
func (h *LeadHandler) LeadsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createLeads(w, r)
	case http.MethodGet:
		h.queueStatus(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// createLeads ingests a batch of profile URLs. URLs that yield no usable
// identifier are rejected per-item rather than failing the batch; re-posting
// a known URL upserts and is not an error.
func (h *LeadHandler) createLeads(w http.ResponseWriter, r *http.Request) {
	var req createLeadsRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created := 0
	var rejected []string
	for _, rawURL := range req.URLs {
		id := models.LeadIDFromURL(rawURL)
		if id == "" {
			rejected = append(rejected, rawURL)
			continue
		}
		lead := &models.Lead{
			ID:         id,
			ProfileURL: rawURL,
			OwnerID:    req.OwnerID,
			Tag:        req.Tag,
			CreatedAt:  time.Now(),
		}
		if err := h.leads.SaveLead(r.Context(), lead); err != nil {
			h.logger.Error().Err(err).Str("lead_id", id).Msg("Failed to save lead")
			rejected = append(rejected, rawURL)
			continue
		}
		created++
	}

	h.logger.Info().
		Str("owner_id", req.OwnerID).
		Int("created", created).
		Int("rejected", len(rejected)).
		Msg("Lead batch ingested")

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"created":  created,
		"rejected": rejected,
	})
}

func (h *LeadHandler) queueStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := h.leads.PendingCount(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read lead queue")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
	})
}

// LeadDetailHandler serves /api/leads/{id}: the lead plus its extracted
// profile when one exists.
func (h *LeadHandler) LeadDetailHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/leads/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "lead id required")
		return
	}

	lead, err := h.leads.GetLead(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "lead not found")
		return
	}

	response := map[string]interface{}{"lead": lead}
	if profile, err := h.profiles.GetProfile(r.Context(), id); err == nil {
		response["profile"] = profile
	}
	WriteJSON(w, http.StatusOK, response)
}
