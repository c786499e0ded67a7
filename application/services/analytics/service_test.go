package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/domain/insights"
)

func TestTurningPointPicksMostRecentDrop(t *testing.T) {
	data := &graphData{}
	intensities := []float64{8, 8, 5, 5, 2}
	ids := []string{"S1", "S2", "S3", "S4", "S5"}
	for i, id := range ids {
		sess := sessionAt(id, "u1", i)
		data.sessions = append(data.sessions, sess)
		data.occurrences = append(data.occurrences,
			occurrence(id, "E_anx", "u1", graph.KindEmotion, "anxiety", intensities[i], sess.Date))
	}
	// Insight recorded in the turning session attributes the improvement.
	data.occurrences = append(data.occurrences,
		occurrence("S5", "I_1", "u1", graph.KindInsight, "a realization", 0, data.sessions[4].Date))

	svc := newTestService(data)
	tp, err := svc.TurningPoint(context.Background(), "u1", "anxiety", 0)
	require.NoError(t, err)
	require.NotNil(t, tp)

	// Both 8->5 and 5->2 cross the default threshold; recency wins.
	assert.Equal(t, "S5", tp.SessionID)
	assert.Equal(t, 5.0, tp.PreviousIntensity)
	assert.Equal(t, 2.0, tp.CurrentIntensity)
	assert.Equal(t, "a realization", tp.InsightName)
	assert.Empty(t, tp.SessionsAfter)
	require.Len(t, tp.SessionsBefore, 4)
	assert.Equal(t, "S4", tp.SessionsBefore[0].SessionID, "neighbors come nearest first")
}

func TestTurningPointRespectsThreshold(t *testing.T) {
	data := &graphData{}
	for i, v := range []float64{8, 5, 2} {
		sess := sessionAt([]string{"S1", "S2", "S3"}[i], "u1", i)
		data.sessions = append(data.sessions, sess)
		data.occurrences = append(data.occurrences,
			occurrence(sess.ID, "E_anx", "u1", graph.KindEmotion, "anxiety", v, sess.Date))
	}

	svc := newTestService(data)
	tp, err := svc.TurningPoint(context.Background(), "u1", "anxiety", 4)
	require.NoError(t, err)
	assert.Nil(t, tp, "no drop exceeds a threshold of 4")
}

func TestTurningPointInsufficientData(t *testing.T) {
	data := &graphData{}
	sess := sessionAt("S1", "u1", 0)
	data.sessions = append(data.sessions, sess)
	data.occurrences = append(data.occurrences,
		occurrence("S1", "E_anx", "u1", graph.KindEmotion, "anxiety", 9, sess.Date))

	svc := newTestService(data)
	tp, err := svc.TurningPoint(context.Background(), "u1", "anxiety", 0)
	require.NoError(t, err)
	assert.Nil(t, tp, "a single reading is never a turning point")
}

func TestTurningPointMatchesEmotionCaseInsensitively(t *testing.T) {
	data := &graphData{}
	for i, v := range []float64{9, 3} {
		sess := sessionAt([]string{"S1", "S2"}[i], "u1", i)
		data.sessions = append(data.sessions, sess)
		data.occurrences = append(data.occurrences,
			occurrence(sess.ID, "E_anx", "u1", graph.KindEmotion, "Anxiety", v, sess.Date))
	}

	svc := newTestService(data)
	tp, err := svc.TurningPoint(context.Background(), "u1", "ANXIETY", 0)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Equal(t, "S2", tp.SessionID)
}

func correlationFixture() *graphData {
	data := &graphData{}
	for i, id := range []string{"S1", "S2", "S3", "S4"} {
		data.sessions = append(data.sessions, sessionAt(id, "u1", i))
	}

	// "work" reaches sessions S1 and S2 through element E_w.
	data.topicLinks = append(data.topicLinks,
		graph.TopicLink{ElementID: "E_w", OwnerID: "u1", TopicName: "work"})
	for _, id := range []string{"S1", "S2"} {
		data.occurrences = append(data.occurrences,
			occurrence(id, "E_w", "u1", graph.KindBelief, "i must provide", 0, time.Time{}))
	}

	// anxiety in 3 sessions, 2 overlapping work -> 66.7%.
	for _, id := range []string{"S1", "S2", "S3"} {
		data.occurrences = append(data.occurrences,
			occurrence(id, "E_anx", "u1", graph.KindEmotion, "anxiety", 7, time.Time{}))
	}
	// dread in 3 sessions, 1 overlapping work -> 33.3%, filtered.
	for _, id := range []string{"S2", "S3", "S4"} {
		data.occurrences = append(data.occurrences,
			occurrence(id, "E_dread", "u1", graph.KindEmotion, "dread", 5, time.Time{}))
	}
	return data
}

func TestCorrelationsFiltersBelowFiftyPercent(t *testing.T) {
	svc := newTestService(correlationFixture())

	out, err := svc.Correlations(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)

	c := out[0]
	assert.Equal(t, "anxiety", c.Emotion)
	assert.Equal(t, "work", c.Topic)
	assert.Equal(t, 2, c.TogetherCount)
	assert.Equal(t, 3, c.EmotionCount)
	assert.Equal(t, 4, c.TotalSessions)
	assert.InDelta(t, 66.7, c.CorrelationPercentage, 1e-9)
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)
}

func TestCorrelationsNoSessions(t *testing.T) {
	svc := newTestService(&graphData{})

	out, err := svc.Correlations(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func cascadeFixture() *graphData {
	data := &graphData{}
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"I1", "I2", "I3", "I4", "I5"} {
		data.elements = append(data.elements, &graph.Element{
			ID: id, Kind: graph.KindInsight, Name: "insight " + id, OwnerID: "u1",
			CreatedAt: base.AddDate(0, 0, i),
		})
	}
	for _, pair := range [][2]string{{"I1", "I2"}, {"I2", "I3"}, {"I3", "I4"}, {"I4", "I5"}} {
		data.insightLinks = append(data.insightLinks,
			graph.InsightLink{SourceID: pair[0], TargetID: pair[1], OwnerID: "u1"})
	}
	return data
}

func TestInsightCascadeThreeHopLimit(t *testing.T) {
	svc := newTestService(cascadeFixture())

	cascade, err := svc.InsightCascade(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cascade)

	assert.Equal(t, "I1", cascade.RootID)
	assert.Len(t, cascade.Nodes, 5)

	byPair := make(map[[2]string]insights.CascadeEdge)
	for _, e := range cascade.Edges {
		byPair[[2]string{e.SourceID, e.TargetID}] = e
	}

	direct := byPair[[2]string{"I1", "I2"}]
	assert.Equal(t, 1, direct.Distance)
	assert.Equal(t, 1.0, direct.Strength)

	threeHops := byPair[[2]string{"I1", "I4"}]
	assert.Equal(t, 3, threeHops.Distance)
	assert.InDelta(t, 1.0/3.0, threeHops.Strength, 1e-9)

	_, beyond := byPair[[2]string{"I1", "I5"}]
	assert.False(t, beyond, "four hops is past the traversal limit")
}

func TestInsightCascadeNoLinks(t *testing.T) {
	data := cascadeFixture()
	data.insightLinks = nil
	svc := newTestService(data)

	cascade, err := svc.InsightCascade(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cascade)
}

func TestInsightCascadeSkipsDanglingLinks(t *testing.T) {
	data := &graphData{}
	data.elements = append(data.elements, &graph.Element{
		ID: "I1", Kind: graph.KindInsight, Name: "lonely", OwnerID: "u1",
	})
	data.insightLinks = append(data.insightLinks,
		graph.InsightLink{SourceID: "I1", TargetID: "I_deleted", OwnerID: "u1"})
	svc := newTestService(data)

	cascade, err := svc.InsightCascade(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cascade, "links to missing insights do not count")
}

func TestChallengePersistenceBandsAndBadges(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	data := &graphData{}
	addChallenge := func(elementID, name string, sessionWeeks []int, lastSeen time.Time) {
		for i, week := range sessionWeeks {
			id := elementID + "-s" + string(rune('a'+i))
			data.sessions = append(data.sessions, sessionAt(id, "u1", week))
			ts := lastSeen.AddDate(0, 0, -7*(len(sessionWeeks)-1-i))
			data.occurrences = append(data.occurrences,
				occurrence(id, elementID, "u1", graph.KindChallenge, name, 0, ts))
		}
	}

	// Six sessions, gone quiet: overcome.
	addChallenge("C_over", "procrastination", []int{0, 1, 2, 3, 4, 5}, now.AddDate(0, 0, -60))
	// Five sessions, still active: persistent worker.
	addChallenge("C_work", "impostor feelings", []int{6, 7, 8, 9, 10}, now.AddDate(0, 0, -2))
	// Three sessions, still active: banded, no badge.
	addChallenge("C_mid", "conflict avoidance", []int{11, 12, 13}, now.AddDate(0, 0, -3))
	// One session: not persistent at all.
	addChallenge("C_one", "jet lag", []int{14}, now.AddDate(0, 0, -1))

	svc := newTestService(data)
	out, err := svc.challengePersistenceAt(context.Background(), "u1", now)
	require.NoError(t, err)
	require.Len(t, out, 3)

	overcome := out[0]
	assert.Equal(t, "procrastination", overcome.Name)
	assert.Equal(t, 6, overcome.SessionCount)
	assert.Equal(t, "inactive", overcome.CurrentStatus)
	assert.Equal(t, 25, overcome.ProgressPercentage)
	assert.Equal(t, insights.BadgeChallengeOvercome, overcome.Badge)

	worker := out[1]
	assert.Equal(t, "impostor feelings", worker.Name)
	assert.Equal(t, "active", worker.CurrentStatus)
	assert.Equal(t, 25, worker.ProgressPercentage)
	assert.Equal(t, insights.BadgePersistentWorker, worker.Badge)

	mid := out[2]
	assert.Equal(t, "conflict avoidance", mid.Name)
	assert.Equal(t, 50, mid.ProgressPercentage)
	assert.Empty(t, mid.Badge, "three active sessions earn no badge yet")
}

func TestProgressBand(t *testing.T) {
	assert.Equal(t, 75, progressBand(2))
	assert.Equal(t, 50, progressBand(3))
	assert.Equal(t, 50, progressBand(4))
	assert.Equal(t, 25, progressBand(5))
	assert.Equal(t, 25, progressBand(6))
	assert.Equal(t, 10, progressBand(7))
}

func TestBadgesAreMutuallyExclusive(t *testing.T) {
	// Six sessions AND inactive satisfies both badge conditions; only
	// "Challenge Overcome" may appear.
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	data := &graphData{}
	for i := 0; i < 6; i++ {
		id := "S" + string(rune('1'+i))
		data.sessions = append(data.sessions, sessionAt(id, "u1", i))
		data.occurrences = append(data.occurrences,
			occurrence(id, "C_big", "u1", graph.KindChallenge, "overthinking", 0, now.AddDate(0, 0, -90+i)))
	}

	svc := newTestService(data)
	out, err := svc.challengePersistenceAt(context.Background(), "u1", now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, insights.BadgeChallengeOvercome, out[0].Badge)
}
