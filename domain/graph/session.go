package graph

import (
	"strings"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// SessionStatus tracks the session's lifecycle from the caller's point of view.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionArchived   SessionStatus = "archived"
)

// AnalysisStatus tracks whether element ingestion has run for the session.
// It transitions pending -> completed (or failed) exactly once per ingestion.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Session is one coaching/therapy session. Sessions of a user form a singly
// linked temporal chain; at most one session per user carries IsLastSession.
type Session struct {
	ID                string         `json:"id"`
	OwnerID           string         `json:"owner_id"`
	Title             string         `json:"title"`
	Date              time.Time      `json:"date"`
	Description       string         `json:"description,omitempty"`
	Transcript        string         `json:"-"`
	Status            SessionStatus  `json:"status"`
	AnalysisStatus    AnalysisStatus `json:"analysis_status"`
	AnalysisTimestamp *time.Time     `json:"analysis_timestamp,omitempty"`
	IsLastSession     bool           `json:"is_last_session"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewSessionFields carries caller-supplied session attributes.
type NewSessionFields struct {
	Title       string
	Date        time.Time
	Description string
	Transcript  string
}

// NewSession creates a pending session owned by ownerID. The chain flags and
// links are the sequencer's responsibility, not the constructor's.
func NewSession(ownerID string, fields NewSessionFields) (*Session, error) {
	if ownerID == "" {
		return nil, errors.NewValidationError("owner id is required")
	}
	if strings.TrimSpace(fields.Title) == "" {
		return nil, errors.NewValidationError("session title is required")
	}
	now := time.Now().UTC()
	date := fields.Date
	if date.IsZero() {
		date = now
	}
	return &Session{
		ID:             NewSessionID(),
		OwnerID:        ownerID,
		Title:          strings.TrimSpace(fields.Title),
		Date:           date.UTC(),
		Description:    fields.Description,
		Transcript:     fields.Transcript,
		Status:         SessionPending,
		AnalysisStatus: AnalysisPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkAnalyzed records the outcome of one ingestion run.
func (s *Session) MarkAnalyzed(status AnalysisStatus, at time.Time) {
	t := at.UTC()
	s.AnalysisStatus = status
	s.AnalysisTimestamp = &t
	s.UpdatedAt = t
}
