// Package insights defines the result shapes of the longitudinal analytics
// pipelines. All pipelines are pure reads; "not enough data" is expressed as
// a nil result or empty slice, never an error.
package insights

import "time"

// SessionRef is a lightweight session reference used inside analytics results.
type SessionRef struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title,omitempty"`
	Date      time.Time `json:"date"`
}

// TurningPoint is the most recent session-to-session transition where a
// tracked emotion's intensity dropped by more than the threshold.
type TurningPoint struct {
	EmotionName       string       `json:"emotion_name"`
	PreviousIntensity float64      `json:"previous_intensity"`
	CurrentIntensity  float64      `json:"current_intensity"`
	Date              time.Time    `json:"date"`
	SessionID         string       `json:"session_id"`
	SessionsBefore    []SessionRef `json:"sessions_before"`
	SessionsAfter     []SessionRef `json:"sessions_after"`
	InsightID         string       `json:"insight_id,omitempty"`
	InsightName       string       `json:"insight_name,omitempty"`
}

// Correlation pairs an emotion with a topic that tends to co-occur with it.
type Correlation struct {
	Emotion               string  `json:"emotion"`
	Topic                 string  `json:"topic"`
	TogetherCount         int     `json:"together_count"`
	EmotionCount          int     `json:"emotion_count"`
	TopicCount            int     `json:"topic_count"`
	TotalSessions         int     `json:"total_sessions"`
	CorrelationPercentage float64 `json:"correlation_percentage"`
	Confidence            float64 `json:"confidence"`
}

// CascadeNode is one insight in the cascade graph.
type CascadeNode struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CascadeEdge connects two insights; strength is 1/distance in hops.
type CascadeEdge struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Distance int     `json:"distance"`
	Strength float64 `json:"strength"`
}

// CascadeGraph is the directed graph of a user's connected insights.
type CascadeGraph struct {
	RootID string        `json:"root_id"`
	Nodes  []CascadeNode `json:"nodes"`
	Edges  []CascadeEdge `json:"edges"`
}

// RelatedEmotion annotates a predicted topic with an emotion that historically
// co-occurs with it.
type RelatedEmotion struct {
	Name             string  `json:"name"`
	AverageIntensity float64 `json:"average_intensity"`
}

// TopicPrediction is one candidate next topic with its transition probability.
type TopicPrediction struct {
	Topic           string           `json:"topic"`
	Probability     float64          `json:"probability"`
	RelatedEmotions []RelatedEmotion `json:"related_emotions,omitempty"`
}

// Prediction is the future-focus forecast built from the first-order Markov
// transition matrix over consecutive sessions' topic sets.
type Prediction struct {
	Predictions     []TopicPrediction `json:"predictions"`
	SessionCount    int               `json:"session_count"`
	ConfidenceScore float64           `json:"confidence_score"`
}

// Badge names.
const (
	BadgeChallengeOvercome = "Challenge Overcome"
	BadgePersistentWorker  = "Persistent Worker"
)

// ChallengePersistence tracks a recurring challenge across sessions.
type ChallengePersistence struct {
	ChallengeID        string    `json:"challenge_id"`
	Name               string    `json:"name"`
	SessionCount       int       `json:"session_count"`
	FirstSeen          time.Time `json:"first_seen"`
	LastSeen           time.Time `json:"last_seen"`
	PersistenceDays    int       `json:"persistence_days"`
	CurrentStatus      string    `json:"current_status"`
	ProgressPercentage int       `json:"progress_percentage"`
	Badge              string    `json:"badge,omitempty"`
}

// EmotionShift is an emotion's intensity change across the snapshot window.
type EmotionShift struct {
	Name           string  `json:"name"`
	FirstIntensity float64 `json:"first_intensity"`
	LastIntensity  float64 `json:"last_intensity"`
	Change         float64 `json:"change"`
}

// Breakthrough pairs a challenge's first appearance with the earliest
// co-temporal insight.
type Breakthrough struct {
	ChallengeName string    `json:"challenge_name"`
	ChallengeDate time.Time `json:"challenge_date"`
	InsightName   string    `json:"insight_name,omitempty"`
	InsightDate   time.Time `json:"insight_date,omitempty"`
	DayGap        int       `json:"day_gap"`
}

// ValencePoint is one session's valence reading for a belief.
type ValencePoint struct {
	SessionID string    `json:"session_id"`
	Date      time.Time `json:"date"`
	Valence   float64   `json:"valence"`
}

// BeliefTrajectory is the ordered valence readings of one belief.
type BeliefTrajectory struct {
	Name   string         `json:"name"`
	Points []ValencePoint `json:"points"`
}

// ActionProgress summarizes action-item completion in the snapshot window.
type ActionProgress struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
	LongestStreak  int     `json:"longest_streak_days"`
}

// Snapshot is the therapist-facing aggregate over the most recent sessions.
type Snapshot struct {
	UserID             string             `json:"user_id"`
	SessionCount       int                `json:"session_count"`
	Window             []SessionRef       `json:"window"`
	EmotionShifts      []EmotionShift     `json:"emotion_shifts"`
	Breakthroughs      []Breakthrough     `json:"breakthroughs"`
	BeliefTrajectories []BeliefTrajectory `json:"belief_trajectories"`
	ActionProgress     ActionProgress     `json:"action_progress"`
	Forecast           []TopicPrediction  `json:"forecast"`
	Confidence         float64            `json:"confidence"`
	GeneratedAt        time.Time          `json:"generated_at"`
}
