package handler

import (
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

// CampaignHandler handles campaign history endpoints. Campaigns missing
// from the store are lazily hydrated from the persisted copy, so history
// survives a restart.
type CampaignHandler struct {
	store     *store.Store
	campaigns service.CampaignLoader // nil when no database is configured
	logger    *logger.Logger
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(st *store.Store, campaigns service.CampaignLoader, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{store: st, campaigns: campaigns, logger: log}
}

// List handles GET /api/v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	summaries, err := h.store.ListCampaigns(userID)
	if err != nil {
		// An account with no campaigns yet is an empty list, not an error.
		summaries = []model.CampaignSummary{}
	}

	// After a restart the user's history order lists campaigns the store
	// has not seen yet; pull them back from the persisted copy.
	if h.campaigns != nil {
		if user, uerr := h.store.GetUser(userID); uerr == nil && len(summaries) < len(user.CampaignIDs) {
			persisted, perr := h.campaigns.FindByUser(r.Context(), userID)
			if perr != nil {
				h.logger.Warn("campaign hydration failed",
					zap.String("user_id", userID), zap.Error(perr))
			} else {
				for _, c := range persisted {
					if _, gerr := h.store.GetCampaign(c.ID); errors.Is(gerr, store.ErrNotFound) {
						h.store.RestoreCampaign(c)
					}
				}
				if refreshed, lerr := h.store.ListCampaigns(userID); lerr == nil {
					summaries = refreshed
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": summaries,
	})
}

// Get handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign := h.authorized(w, r)
	if campaign == nil {
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

// Leads handles GET /api/v1/campaigns/{id}/leads with optional name=,
// cae= and potential= filters. Filters are conjunctive.
func (h *CampaignHandler) Leads(w http.ResponseWriter, r *http.Request) {
	campaign := h.authorized(w, r)
	if campaign == nil {
		return
	}

	filter := model.LeadFilter{
		Name:      r.URL.Query().Get("name"),
		CAE:       r.URL.Query().Get("cae"),
		Potential: model.Potential(r.URL.Query().Get("potential")),
	}
	if filter.Potential != "" && !filter.Potential.Valid() {
		writeError(w, http.StatusBadRequest, "invalid potential filter")
		return
	}

	leads := h.store.FilterLeads(campaign.LeadIDs, filter)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": campaign.ID,
		"total":       len(campaign.LeadIDs),
		"leads":       leads,
	})
}

// authorized loads the campaign from the URL and enforces ownership. It
// writes the error response and returns nil when the caller may not see it.
func (h *CampaignHandler) authorized(w http.ResponseWriter, r *http.Request) *model.Campaign {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	campaign, err := h.store.GetCampaign(id)
	if errors.Is(err, store.ErrNotFound) && h.campaigns != nil {
		campaign, err = h.campaigns.FindByID(r.Context(), id)
		if err == nil {
			h.store.RestoreCampaign(campaign)
		}
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return nil
	}
	if campaign.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeError(w, http.StatusNotFound, "campaign not found")
		return nil
	}
	return campaign
}
