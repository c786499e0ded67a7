package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// TopicHandler handles topic and taxonomy endpoints
type TopicHandler struct {
	topics *services.TopicService
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topics *services.TopicService, errors *apperrors.ErrorHandler, logger *zap.Logger) *TopicHandler {
	return &TopicHandler{topics: topics, errors: errors, logger: logger}
}

// ListTopics handles GET /topics, returning the caller's topics by usage
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	topics, err := h.topics.UserTopics(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, topics)
}

// ListTaxonomies handles GET /taxonomies
func (h *TopicHandler) ListTaxonomies(w http.ResponseWriter, r *http.Request) {
	taxonomies, err := h.topics.Taxonomies(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, taxonomies)
}

// GetClassification handles GET /topics/{topicName}/classification
func (h *TopicHandler) GetClassification(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "topicName")
	if topicName == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("topic name is required"))
		return
	}

	classification, err := h.topics.Classify(r.Context(), topicName, "")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, classification)
}
