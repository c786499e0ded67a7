package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/auth"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/utils"
)

const maxBodyBytes = 1 << 20

// AuthHandler handles registration and login
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenManager
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *services.UserService, tokens *auth.TokenManager, errors *apperrors.ErrorHandler, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, errors: errors, logger: logger}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID))
	common.RespondJSON(w, http.StatusCreated, TokenResponse{Token: token, ExpiresAt: expiresAt, UserID: user.ID})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt, UserID: user.ID})
}
