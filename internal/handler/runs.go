// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/middleware"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/pipeline"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

// EventReader reads the durable run event history.
type EventReader interface {
	GetRunEvents(ctx context.Context, userID, runID string, afterSequence uint64, limit int) ([]model.RunEvent, uint64, error)
}

// RunHandler handles campaign run endpoints.
type RunHandler struct {
	manager      *pipeline.Manager
	store        *store.Store
	events       EventReader // nil when NATS is unavailable
	maxLeadLimit int
	logger       *logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(manager *pipeline.Manager, st *store.Store, events EventReader, maxLeadLimit int, log *logger.Logger) *RunHandler {
	return &RunHandler{
		manager:      manager,
		store:        st,
		events:       events,
		maxLeadLimit: maxLeadLimit,
		logger:       log,
	}
}

// Start handles POST /api/v1/campaigns/runs
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req pipeline.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateCampaignName(req.CampaignName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateLeadLimit(req.Params.LeadLimit, h.maxLeadLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.manager.Start(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrMissingCampaignName), errors.Is(err, pipeline.ErrInvalidLeadLimit):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrInsufficientCredits):
			writeError(w, http.StatusPaymentRequired, "insufficient credits")
		case errors.Is(err, pipeline.ErrRunActive):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pipeline.ErrInactiveAccount):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Error("failed to start run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start run")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

// Get handles GET /api/v1/runs/{id}
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(runID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.manager.GetRun(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	// Progressive reveal: leads appear in the snapshot as they are accepted.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":   run,
		"leads": h.store.Leads(run.LeadIDs),
	})
}

// Events handles GET /api/v1/runs/{id}/events
func (h *RunHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	runID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(runID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event history unavailable")
		return
	}

	var after uint64
	if a := r.URL.Query().Get("after"); a != "" {
		parsed, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after sequence")
			return
		}
		after = parsed
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	events, lastSeq, err := h.events.GetRunEvents(ctx, userID, runID, after, limit)
	if err != nil {
		h.logger.Error("failed to fetch run events", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch run events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":        events,
		"last_sequence": lastSeq,
	})
}
