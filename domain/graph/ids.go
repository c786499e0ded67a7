package graph

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes keep node identifiers self-describing in logs and store keys.
const (
	UserIDPrefix      = "U_"
	SessionIDPrefix   = "S_"
	EmotionIDPrefix   = "E_"
	BeliefIDPrefix    = "B_"
	InsightIDPrefix   = "I_"
	ChallengeIDPrefix = "C_"
	ActionIDPrefix    = "A_"
	TopicIDPrefix     = "T_"
)

// NewID generates a prefixed, process-wide-unique identifier.
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewUserID generates a user identifier
func NewUserID() string { return NewID(UserIDPrefix) }

// NewSessionID generates a session identifier
func NewSessionID() string { return NewID(SessionIDPrefix) }

// NewTopicID generates a topic identifier
func NewTopicID() string { return NewID(TopicIDPrefix) }
