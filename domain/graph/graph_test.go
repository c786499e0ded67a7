package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "work stress", NormalizeName("  work   stress  "))
	assert.Equal(t, "Anxiety", NormalizeName("Anxiety"))
	assert.Equal(t, "", NormalizeName("   "))
	assert.Equal(t, "a b c", NormalizeName("a\tb\nc"))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.4))
	assert.Equal(t, 0.0, Clamp01(0))
	assert.Equal(t, 0.5, Clamp01(0.5))
	assert.Equal(t, 1.0, Clamp01(1))
	assert.Equal(t, 1.0, Clamp01(1.7))
}

func TestParseElementKind(t *testing.T) {
	cases := map[string]ElementKind{
		"emotion":      KindEmotion,
		"Emotions":     KindEmotion,
		"beliefs":      KindBelief,
		"insight":      KindInsight,
		"challenges":   KindChallenge,
		"action_items": KindActionItem,
		" ACTION_ITEM": KindActionItem,
	}
	for input, want := range cases {
		got, err := ParseElementKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseElementKind("mood")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestKindIDPrefixesAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, kind := range Kinds() {
		prefix := kind.IDPrefix()
		assert.False(t, seen[prefix], "prefix %q reused", prefix)
		seen[prefix] = true
	}
}

func TestNewSessionDefaults(t *testing.T) {
	sess, err := NewSession("u1", NewSessionFields{Title: "  Week 4  "})
	require.NoError(t, err)

	assert.Equal(t, "Week 4", sess.Title)
	assert.Equal(t, "u1", sess.OwnerID)
	assert.Equal(t, SessionPending, sess.Status)
	assert.Equal(t, AnalysisPending, sess.AnalysisStatus)
	assert.Nil(t, sess.AnalysisTimestamp)
	assert.False(t, sess.IsLastSession)
	assert.False(t, sess.Date.IsZero(), "missing date falls back to now")
	assert.NotEmpty(t, sess.ID)
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession("", NewSessionFields{Title: "ok"})
	assert.True(t, errors.IsValidation(err))

	_, err = NewSession("u1", NewSessionFields{Title: "   "})
	assert.True(t, errors.IsValidation(err))
}

func TestMarkAnalyzed(t *testing.T) {
	sess, err := NewSession("u1", NewSessionFields{Title: "Week 1"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess.MarkAnalyzed(AnalysisCompleted, at)

	assert.Equal(t, AnalysisCompleted, sess.AnalysisStatus)
	require.NotNil(t, sess.AnalysisTimestamp)
	assert.Equal(t, at, *sess.AnalysisTimestamp)
	assert.Equal(t, at, sess.UpdatedAt)
}
