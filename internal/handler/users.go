package handler

import (
	"context"
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

// SMTPTester probes an SMTP configuration.
type SMTPTester interface {
	Test(ctx context.Context, cfg model.SMTPConfig, to string) *model.SMTPTestResult
}

// UserHandler handles account, plan and admin endpoints.
type UserHandler struct {
	service *service.UserService
	smtp    SMTPTester
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, smtp SMTPTester, log *logger.Logger) *UserHandler {
	return &UserHandler{service: svc, smtp: smtp, logger: log}
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.service.Get(ctx, middleware.GetUserID(ctx))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Plans handles GET /api/v1/plans
func (h *UserHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": h.service.Plans(r.Context()),
	})
}

// List handles GET /api/v1/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// Update handles PUT /api/v1/admin/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Credits != nil && *req.Credits < 0 {
		writeError(w, http.StatusBadRequest, "credits cannot be negative")
		return
	}
	if req.Status != nil && *req.Status != model.UserActive && *req.Status != model.UserInactive {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	user, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to update user", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// SavePlan handles POST /api/v1/admin/plans
func (h *UserHandler) SavePlan(w http.ResponseWriter, r *http.Request) {
	var plan model.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if plan.Name == "" {
		writeError(w, http.StatusBadRequest, "plan name is required")
		return
	}
	if plan.Credits < 0 {
		writeError(w, http.StatusBadRequest, "plan credits cannot be negative")
		return
	}

	saved := h.service.SavePlan(r.Context(), &plan)
	writeJSON(w, http.StatusOK, saved)
}

// DeletePlan handles DELETE /api/v1/admin/plans/{id}
func (h *UserHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePlan(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TestSMTP handles POST /api/v1/admin/smtp/test
func (h *UserHandler) TestSMTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config model.SMTPConfig `json:"config"`
		To     string           `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Config.Host == "" || req.Config.Port == 0 {
		writeError(w, http.StatusBadRequest, "smtp host and port are required")
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "recipient address is required")
		return
	}

	// The probe reports failure in the result body, not as an HTTP error.
	result := h.smtp.Test(r.Context(), req.Config, req.To)
	writeJSON(w, http.StatusOK, result)
}
