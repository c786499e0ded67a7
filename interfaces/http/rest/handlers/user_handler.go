package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/utils"
)

// UserHandler handles profile endpoints for the authenticated user
type UserHandler struct {
	users  *services.UserService
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, errors *apperrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, errors: errors, logger: logger}
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// GetProfile handles GET /users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	var req UpdateProfileRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

// DeleteAccount handles DELETE /users/me. It removes the user's sessions,
// elements and profile.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("User account deleted", zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// ElementsSummary handles GET /users/me/elements-summary
func (h *UserHandler) ElementsSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	summary, err := h.users.ElementsSummary(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, summary)
}
