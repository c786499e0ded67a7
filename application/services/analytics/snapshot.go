package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/domain/insights"
)

const (
	snapshotWindow       = 6
	snapshotEmotionLimit = 3
	snapshotBeliefLimit  = 5
	snapshotForecastSize = 3
)

// TherapistSnapshot aggregates the recent-window views a therapist scans
// before a session: emotion shifts, breakthrough timeline, belief valence
// trajectories, action-item progress and the topic forecast. Returns nil when
// the user has no sessions.
func (s *Service) TherapistSnapshot(ctx context.Context, userID string) (*insights.Snapshot, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(data.sessions) == 0 {
		return nil, nil
	}

	// The window is the most recent sessions, kept in date order.
	window := data.sessions
	if len(window) > snapshotWindow {
		window = window[len(window)-snapshotWindow:]
	}
	inWindow := make(map[string]*graph.Session, len(window))
	refs := make([]insights.SessionRef, 0, len(window))
	for _, sess := range window {
		inWindow[sess.ID] = sess
		refs = append(refs, sessionRef(sess))
	}

	var windowOccs []graph.Occurrence
	for _, occ := range data.occs {
		if inWindow[occ.SessionID] != nil {
			windowOccs = append(windowOccs, occ)
		}
	}
	// Session date order, so first/last readings line up with the window.
	idx := data.sessionIndex()
	sort.SliceStable(windowOccs, func(i, j int) bool {
		return idx[windowOccs[i].SessionID] < idx[windowOccs[j].SessionID]
	})

	snapshot := &insights.Snapshot{
		UserID:             userID,
		SessionCount:       len(data.sessions),
		Window:             refs,
		EmotionShifts:      emotionShifts(windowOccs),
		Breakthroughs:      breakthroughs(windowOccs, inWindow),
		BeliefTrajectories: beliefTrajectories(windowOccs, inWindow),
		ActionProgress:     actionProgress(windowOccs),
		Confidence:         confidenceFromSessions(len(data.sessions)),
		GeneratedAt:        time.Now().UTC(),
	}

	prediction, err := s.PredictFutureFocus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prediction != nil {
		forecast := prediction.Predictions
		if len(forecast) > snapshotForecastSize {
			forecast = forecast[:snapshotForecastSize]
		}
		snapshot.Forecast = forecast
	}

	return snapshot, nil
}

// emotionShifts picks the emotions with the largest absolute intensity change
// between their earliest and latest reading in the window.
func emotionShifts(occs []graph.Occurrence) []insights.EmotionShift {
	type span struct {
		first    float64
		last     float64
		readings int
	}
	byName := make(map[string]*span)
	for _, occ := range occs {
		if occ.Kind != graph.KindEmotion {
			continue
		}
		sp, ok := byName[occ.Name]
		if !ok {
			sp = &span{first: occ.Intensity}
			byName[occ.Name] = sp
		}
		sp.last = occ.Intensity
		sp.readings++
	}

	shifts := make([]insights.EmotionShift, 0, len(byName))
	for name, sp := range byName {
		if sp.readings < 2 {
			continue
		}
		shifts = append(shifts, insights.EmotionShift{
			Name:           name,
			FirstIntensity: sp.first,
			LastIntensity:  sp.last,
			Change:         math.Round((sp.last-sp.first)*10) / 10,
		})
	}
	sort.Slice(shifts, func(i, j int) bool {
		ci, cj := math.Abs(shifts[i].Change), math.Abs(shifts[j].Change)
		if ci != cj {
			return ci > cj
		}
		return shifts[i].Name < shifts[j].Name
	})
	if len(shifts) > snapshotEmotionLimit {
		shifts = shifts[:snapshotEmotionLimit]
	}
	return shifts
}

// breakthroughs pairs each challenge's first appearance with the earliest
// insight recorded on or after it, and the day gap between the two.
func breakthroughs(occs []graph.Occurrence, inWindow map[string]*graph.Session) []insights.Breakthrough {
	sessionDate := func(id string) time.Time { return inWindow[id].Date }

	challengeFirst := make(map[string]time.Time)
	challengeOrder := make([]string, 0)
	for _, occ := range occs {
		if occ.Kind != graph.KindChallenge {
			continue
		}
		if _, ok := challengeFirst[occ.Name]; !ok {
			challengeFirst[occ.Name] = sessionDate(occ.SessionID)
			challengeOrder = append(challengeOrder, occ.Name)
		}
	}

	type insightAt struct {
		name string
		date time.Time
	}
	var insightDates []insightAt
	for _, occ := range occs {
		if occ.Kind == graph.KindInsight {
			insightDates = append(insightDates, insightAt{name: occ.Name, date: sessionDate(occ.SessionID)})
		}
	}
	sort.Slice(insightDates, func(i, j int) bool { return insightDates[i].date.Before(insightDates[j].date) })

	out := make([]insights.Breakthrough, 0, len(challengeOrder))
	for _, name := range challengeOrder {
		first := challengeFirst[name]
		b := insights.Breakthrough{ChallengeName: name, ChallengeDate: first}
		for _, ins := range insightDates {
			if !ins.date.Before(first) {
				b.InsightName = ins.name
				b.InsightDate = ins.date
				b.DayGap = int(ins.date.Sub(first).Hours() / 24)
				break
			}
		}
		out = append(out, b)
	}
	return out
}

// beliefTrajectories returns the valence readings of the most recurrent
// beliefs, ordered by session date.
func beliefTrajectories(occs []graph.Occurrence, inWindow map[string]*graph.Session) []insights.BeliefTrajectory {
	byName := make(map[string][]insights.ValencePoint)
	for _, occ := range occs {
		if occ.Kind != graph.KindBelief {
			continue
		}
		byName[occ.Name] = append(byName[occ.Name], insights.ValencePoint{
			SessionID: occ.SessionID,
			Date:      inWindow[occ.SessionID].Date,
			Valence:   occ.Valence,
		})
	}

	out := make([]insights.BeliefTrajectory, 0, len(byName))
	for name, points := range byName {
		out = append(out, insights.BeliefTrajectory{Name: name, Points: points})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Points) != len(out[j].Points) {
			return len(out[i].Points) > len(out[j].Points)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > snapshotBeliefLimit {
		out = out[:snapshotBeliefLimit]
	}
	return out
}

// actionProgress computes the completion rate and the longest run of
// consecutive days with at least one completed action item.
func actionProgress(occs []graph.Occurrence) insights.ActionProgress {
	var progress insights.ActionProgress
	completedDays := make(map[string]bool)
	for _, occ := range occs {
		if occ.Kind != graph.KindActionItem {
			continue
		}
		progress.Total++
		if occ.Status == graph.ActionCompleted {
			progress.Completed++
			completedDays[occ.Timestamp.UTC().Format("2006-01-02")] = true
		}
	}
	if progress.Total > 0 {
		progress.CompletionRate = math.Round(float64(progress.Completed)/float64(progress.Total)*1000) / 10
	}

	days := make([]time.Time, 0, len(completedDays))
	for day := range completedDays {
		t, _ := time.Parse("2006-01-02", day)
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	streak, best := 0, 0
	for i, day := range days {
		if i > 0 && day.Sub(days[i-1]) == 24*time.Hour {
			streak++
		} else {
			streak = 1
		}
		if streak > best {
			best = streak
		}
	}
	progress.LongestStreak = best
	return progress
}
