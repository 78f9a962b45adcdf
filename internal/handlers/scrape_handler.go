package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/scheduler"
)

// Dispatcher starts one scrape run; the scheduler service is the production
// implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, ownerID string, auto bool) (*models.Job, error)
}

// ScrapeHandler triggers manual scrape runs
type ScrapeHandler struct {
	dispatcher Dispatcher
	logger     arbor.ILogger
}

func NewScrapeHandler(dispatcher Dispatcher, logger arbor.ILogger) *ScrapeHandler {
	return &ScrapeHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type scrapeRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
}

// TriggerHandler serves POST /api/scrape. Manual runs go through the same
// gate as automatic ones, so a second trigger while a worker runs gets 409.
func (h *ScrapeHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	// The body is optional; an empty body targets the oldest pending owner.
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.dispatcher.Dispatch(r.Context(), req.OwnerID, false)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrWorkerBusy):
			WriteError(w, http.StatusConflict, "a scrape run is already in progress")
		case errors.Is(err, scheduler.ErrNothingToDo):
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error().Err(err).Msg("Manual scrape dispatch failed")
			WriteError(w, http.StatusInternalServerError, "failed to start scrape run")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}
