package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/services/analytics"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// InsightHandler exposes the analytics queries. Analytics never fail on
// insufficient data; an empty or null payload means there is nothing to
// report yet.
type InsightHandler struct {
	analytics *analytics.Service
	errors    *apperrors.ErrorHandler
	logger    *zap.Logger
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(analytics *analytics.Service, errors *apperrors.ErrorHandler, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{analytics: analytics, errors: errors, logger: logger}
}

// TurningPoint handles GET /insights/turning-point?emotion=<name>&threshold=<n>
func (h *InsightHandler) TurningPoint(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	emotion := r.URL.Query().Get("emotion")
	if emotion == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("emotion query parameter is required"))
		return
	}

	threshold := analytics.DefaultTurningPointThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			h.errors.Handle(w, r, apperrors.NewValidationError("threshold must be a positive number"))
			return
		}
		threshold = parsed
	}

	result, err := h.analytics.TurningPoint(r.Context(), userID, emotion, threshold)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Correlations handles GET /insights/correlations
func (h *InsightHandler) Correlations(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result, err := h.analytics.Correlations(r.Context(), userID, limit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Cascade handles GET /insights/cascade
func (h *InsightHandler) Cascade(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	result, err := h.analytics.InsightCascade(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Predictions handles GET /insights/predictions?steps=<n>
func (h *InsightHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	steps := 1
	if raw := r.URL.Query().Get("steps"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 10 {
			h.errors.Handle(w, r, apperrors.NewValidationError("steps must be an integer between 1 and 10"))
			return
		}
		steps = parsed
	}

	result, err := h.analytics.PredictFutureFocusSteps(r.Context(), userID, steps)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ChallengePersistence handles GET /insights/challenge-persistence
func (h *InsightHandler) ChallengePersistence(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	result, err := h.analytics.ChallengePersistence(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Snapshot handles GET /insights/snapshot
func (h *InsightHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	result, err := h.analytics.TherapistSnapshot(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
