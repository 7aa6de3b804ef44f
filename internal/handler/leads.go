package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/middleware"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/service"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

// LeadHandler handles lead detail and on-demand action endpoints.
type LeadHandler struct {
	service *service.LeadService
	logger  *logger.Logger
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(svc *service.LeadService, log *logger.Logger) *LeadHandler {
	return &LeadHandler{service: svc, logger: log}
}

func (h *LeadHandler) leadID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// writeLeadError maps service errors to HTTP statuses.
func (h *LeadHandler) writeLeadError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusNotFound, "lead not found")
	case errors.Is(err, service.ErrNoSite):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoDraft):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoEmail):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("lead action failed", zap.String("action", action), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lead, err := h.service.Get(ctx, middleware.GetUserID(ctx), id, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "load lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Investigate handles POST /api/v1/leads/{id}/investigate
func (h *LeadHandler) Investigate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lead, err := h.service.Investigate(ctx, middleware.GetUserID(ctx), id, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "investigate storefront", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Proposal handles POST /api/v1/leads/{id}/proposal
func (h *LeadHandler) Proposal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lead, err := h.service.Proposal(ctx, middleware.GetUserID(ctx), id, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "generate proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Outreach handles POST /api/v1/leads/{id}/outreach
func (h *LeadHandler) Outreach(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lead, err := h.service.Outreach(ctx, middleware.GetUserID(ctx), id, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "generate outreach", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// SendDraft handles POST /api/v1/leads/{id}/outreach/send
func (h *LeadHandler) SendDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req struct {
		DraftID string           `json:"draft_id"`
		SMTP    model.SMTPConfig `json:"smtp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DraftID == "" {
		writeError(w, http.StatusBadRequest, "draft_id is required")
		return
	}
	if req.SMTP.Host == "" || req.SMTP.Port == 0 {
		writeError(w, http.StatusBadRequest, "smtp host and port are required")
		return
	}

	lead, err := h.service.SendDraft(ctx, middleware.GetUserID(ctx), id, req.DraftID, middleware.IsAdmin(ctx), req.SMTP)
	if err != nil {
		h.writeLeadError(w, "send outreach email", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// GenerateSite handles POST /api/v1/leads/{id}/site
func (h *LeadHandler) GenerateSite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lead, err := h.service.GenerateSite(ctx, middleware.GetUserID(ctx), id, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "generate website", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// RefineSite handles POST /api/v1/leads/{id}/site/refine
func (h *LeadHandler) RefineSite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateInstruction(req.Instruction); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.service.RefineSite(ctx, middleware.GetUserID(ctx), id, req.Instruction, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "refine website", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Chat handles POST /api/v1/leads/{id}/chat
func (h *LeadHandler) Chat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateQuestion(req.Question); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, lead, err := h.service.Chat(ctx, middleware.GetUserID(ctx), id, req.Question, middleware.IsAdmin(ctx))
	if err != nil {
		h.writeLeadError(w, "answer question", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"answer":       answer,
		"chat_history": lead.ChatHistory,
	})
}
