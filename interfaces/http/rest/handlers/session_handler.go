package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/utils"
)

// ingestMaxBodyBytes allows for large transcript-derived batches.
const ingestMaxBodyBytes = 4 << 20

// SessionHandler handles session lifecycle and element ingestion endpoints
type SessionHandler struct {
	sequencer *services.SessionSequencer
	ingestion *services.IngestionService
	elements  ports.ElementRepository
	topics    ports.TopicRepository
	errors    *apperrors.ErrorHandler
	logger    *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sequencer *services.SessionSequencer,
	ingestion *services.IngestionService,
	elements ports.ElementRepository,
	topics ports.TopicRepository,
	errors *apperrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		sequencer: sequencer,
		ingestion: ingestion,
		elements:  elements,
		topics:    topics,
		errors:    errors,
		logger:    logger,
	}
}

// CreateSessionRequest represents the request body for creating a session
type CreateSessionRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	Transcript  string     `json:"transcript,omitempty"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	var req CreateSessionRequest
	if err := common.ParseJSONBody(r, &req, ingestMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	fields := graph.NewSessionFields{
		Title:       req.Title,
		Description: req.Description,
		Transcript:  req.Transcript,
	}
	if req.Date != nil {
		fields.Date = *req.Date
	}

	session, err := h.sequencer.CreateSession(r.Context(), userID, fields)
	if err != nil {
		// The session may exist even when chain linking failed; surface
		// it so the client does not re-create on retry.
		if session != nil {
			h.logger.Warn("Session created with degraded chain link",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			common.RespondJSON(w, http.StatusCreated, session)
			return
		}
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /sessions with pagination over the chain order
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	chain, err := h.sequencer.GetChain(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	params := common.ExtractPaginationParams(r)
	start, end := params.Bounds(len(chain))

	common.RespondWithMeta(w, http.StatusOK, chain[start:end], &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Pagination: common.BuildPaginationMeta(params.Page, params.PageSize, len(chain)),
	})
}

// GetChain handles GET /sessions/chain, returning all sessions in chain order
func (h *SessionHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}

	chain, err := h.sequencer.GetChain(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, chain)
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	detail, err := h.sequencer.GetSessionDetail(r.Context(), h.elements, h.topics, userID, sessionID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, detail)
}

// DeleteSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sequencer.DeleteSession(r.Context(), userID, sessionID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Session deleted",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// IngestElements handles POST /sessions/{sessionID}/elements. A partial
// failure responds 207 with the failed records listed; a full success 200.
func (h *SessionHandler) IngestElements(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("missing user context"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	reanalyze := r.URL.Query().Get("reanalyze") == "true"

	var batch services.ElementBatch
	if err := common.ParseJSONBody(r, &batch, ingestMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := h.ingestion.Ingest(r.Context(), userID, sessionID, batch, reanalyze); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"ingested":   batch.Size(),
	})
}
