package graph

import (
	"strings"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// ElementKind is one of the five typed records a session can produce.
type ElementKind string

const (
	KindEmotion    ElementKind = "emotion"
	KindBelief     ElementKind = "belief"
	KindInsight    ElementKind = "insight"
	KindChallenge  ElementKind = "challenge"
	KindActionItem ElementKind = "action_item"
)

// Kinds lists every element kind in ingestion order.
func Kinds() []ElementKind {
	return []ElementKind{KindEmotion, KindBelief, KindInsight, KindChallenge, KindActionItem}
}

// ParseElementKind accepts both the singular kind and the extractor's plural
// key ("emotions", "action_items", ...).
func ParseElementKind(s string) (ElementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emotion", "emotions":
		return KindEmotion, nil
	case "belief", "beliefs":
		return KindBelief, nil
	case "insight", "insights":
		return KindInsight, nil
	case "challenge", "challenges":
		return KindChallenge, nil
	case "action_item", "action_items", "actionitem":
		return KindActionItem, nil
	default:
		return "", errors.ErrUnknownElementKind(s)
	}
}

// IDPrefix returns the identifier prefix used for new elements of this kind.
func (k ElementKind) IDPrefix() string {
	switch k {
	case KindEmotion:
		return EmotionIDPrefix
	case KindBelief:
		return BeliefIDPrefix
	case KindInsight:
		return InsightIDPrefix
	case KindChallenge:
		return ChallengeIDPrefix
	case KindActionItem:
		return ActionIDPrefix
	default:
		return "X_"
	}
}

// ChallengeStatus values for Challenge elements.
const (
	ChallengeActive   = "active"
	ChallengeResolved = "resolved"
)

// ActionItem status values.
const (
	ActionNotStarted = "not_started"
	ActionInProgress = "in_progress"
	ActionCompleted  = "completed"
)

// ElementFields holds the kind-specific node attributes. Only the fields
// belonging to the element's kind are meaningful; the rest stay zero.
type ElementFields struct {
	Intensity   float64 `json:"intensity,omitempty"`   // Emotion
	Context     string  `json:"context,omitempty"`     // Emotion, Insight
	Description string  `json:"description,omitempty"` // Belief, ActionItem
	Impact      string  `json:"impact,omitempty"`      // Belief, Challenge
	Text        string  `json:"text,omitempty"`        // Insight
	Severity    string  `json:"severity,omitempty"`    // Challenge
	Status      string  `json:"status,omitempty"`      // Challenge, ActionItem
	Priority    string  `json:"priority,omitempty"`    // ActionItem
	DueDate     string  `json:"due_date,omitempty"`    // ActionItem
}

// Element is a typed node merged on (kind, name, owner). The same named
// element across two sessions of one user is one node with two occurrence
// edges, never two nodes.
type Element struct {
	ID        string        `json:"id"`
	Kind      ElementKind   `json:"kind"`
	Name      string        `json:"name"`
	OwnerID   string        `json:"owner_id"`
	Fields    ElementFields `json:"fields"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NormalizeName canonicalizes an element or topic name for merge identity.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(name)), " ")
}

// Occurrence is one session's instance of an element (a HAS_<KIND> edge),
// carrying per-occurrence attributes.
type Occurrence struct {
	SessionID  string      `json:"session_id"`
	ElementID  string      `json:"element_id"`
	OwnerID    string      `json:"owner_id"`
	Kind       ElementKind `json:"kind"`
	Name       string      `json:"name"`
	Intensity  float64     `json:"intensity,omitempty"`
	Valence    float64     `json:"valence,omitempty"`
	Context    string      `json:"context,omitempty"`
	Status     string      `json:"status,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	ModifiedBy string      `json:"modified_by,omitempty"`
}

// Clamp01 clamps a score into [0,1]. Every relevance and confidence value
// stored or returned goes through this.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
