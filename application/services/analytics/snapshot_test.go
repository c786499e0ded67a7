package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

func snapshotFixture() *graphData {
	data := &graphData{}
	ids := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}
	for i, id := range ids {
		data.sessions = append(data.sessions, sessionAt(id, "u1", i))
	}
	date := func(id string) time.Time {
		for _, sess := range data.sessions {
			if sess.ID == id {
				return sess.Date
			}
		}
		return time.Time{}
	}

	// Anxiety falls across the window; the S1 reading is outside it.
	data.occurrences = append(data.occurrences,
		occurrence("S1", "E_anx", "u1", graph.KindEmotion, "anxiety", 9, date("S1")),
		occurrence("S3", "E_anx", "u1", graph.KindEmotion, "anxiety", 7, date("S3")),
		occurrence("S8", "E_anx", "u1", graph.KindEmotion, "anxiety", 3, date("S8")),
		// Single reading: not a shift.
		occurrence("S5", "E_joy", "u1", graph.KindEmotion, "joy", 6, date("S5")),
	)

	// Challenge surfaces in S4; the insight lands two weeks later in S6.
	data.occurrences = append(data.occurrences,
		occurrence("S4", "C_stuck", "u1", graph.KindChallenge, "feeling stuck", 0, date("S4")),
		occurrence("S6", "I_aha", "u1", graph.KindInsight, "name the fear", 0, date("S6")),
	)

	// Belief valence recovers between S3 and S7.
	belief := func(sessionID string, valence float64) graph.Occurrence {
		occ := occurrence(sessionID, "B_enough", "u1", graph.KindBelief, "i am not enough", 0, date(sessionID))
		occ.Valence = valence
		return occ
	}
	data.occurrences = append(data.occurrences, belief("S3", -0.8), belief("S7", 0.2))

	// Three action items, two completed on consecutive days.
	action := func(sessionID, elementID, status string, ts time.Time) graph.Occurrence {
		occ := occurrence(sessionID, elementID, "u1", graph.KindActionItem, elementID, 0, ts)
		occ.Status = status
		return occ
	}
	day1 := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	data.occurrences = append(data.occurrences,
		action("S7", "A_walk", graph.ActionCompleted, day1),
		action("S7", "A_journal", graph.ActionCompleted, day1.Add(24*time.Hour)),
		action("S8", "A_call", graph.ActionNotStarted, day1.Add(48*time.Hour)),
	)

	return data
}

func TestTherapistSnapshotWindow(t *testing.T) {
	svc := newTestService(snapshotFixture())

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 8, snap.SessionCount)
	require.Len(t, snap.Window, 6, "window covers the six most recent sessions")
	assert.Equal(t, "S3", snap.Window[0].SessionID)
	assert.Equal(t, "S8", snap.Window[5].SessionID)
	assert.InDelta(t, 0.8, snap.Confidence, 1e-9)
}

func TestTherapistSnapshotEmotionShifts(t *testing.T) {
	svc := newTestService(snapshotFixture())

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Len(t, snap.EmotionShifts, 1, "single-reading emotions are not shifts")
	shift := snap.EmotionShifts[0]
	assert.Equal(t, "anxiety", shift.Name)
	assert.Equal(t, 7.0, shift.FirstIntensity, "the out-of-window S1 reading is ignored")
	assert.Equal(t, 3.0, shift.LastIntensity)
	assert.InDelta(t, -4.0, shift.Change, 1e-9)
}

func TestTherapistSnapshotBreakthroughs(t *testing.T) {
	svc := newTestService(snapshotFixture())

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Len(t, snap.Breakthroughs, 1)
	b := snap.Breakthroughs[0]
	assert.Equal(t, "feeling stuck", b.ChallengeName)
	assert.Equal(t, "name the fear", b.InsightName)
	assert.Equal(t, 14, b.DayGap, "insight landed two weekly sessions later")
}

func TestTherapistSnapshotBeliefTrajectories(t *testing.T) {
	svc := newTestService(snapshotFixture())

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Len(t, snap.BeliefTrajectories, 1)
	trajectory := snap.BeliefTrajectories[0]
	assert.Equal(t, "i am not enough", trajectory.Name)
	require.Len(t, trajectory.Points, 2)
	assert.InDelta(t, -0.8, trajectory.Points[0].Valence, 1e-9)
	assert.InDelta(t, 0.2, trajectory.Points[1].Valence, 1e-9)
}

func TestTherapistSnapshotActionProgress(t *testing.T) {
	svc := newTestService(snapshotFixture())

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	progress := snap.ActionProgress
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 2, progress.Completed)
	assert.InDelta(t, 66.7, progress.CompletionRate, 1e-9)
	assert.Equal(t, 2, progress.LongestStreak)
}

func TestTherapistSnapshotNoSessions(t *testing.T) {
	svc := newTestService(&graphData{})

	snap, err := svc.TherapistSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, snap)
}
