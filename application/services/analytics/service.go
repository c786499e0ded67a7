// Package analytics implements the longitudinal analytics pipelines over a
// user's session graph. Every pipeline is a pure read: insufficient data
// yields a nil result or empty slice, and only store failures propagate.
package analytics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/domain/insights"
)

const (
	// DefaultTurningPointThreshold is the minimum intensity drop that counts.
	DefaultTurningPointThreshold = 1.0

	// Correlations below this percentage are noise and filtered out.
	minCorrelationPercentage = 50.0

	// Transition probabilities at or below this are not worth predicting.
	minPredictionProbability = 0.2

	// A challenge unseen for this long counts as inactive.
	challengeInactiveAfter = 30 * 24 * time.Hour

	neighborWindow   = 5
	correlationLimit = 5
	predictionLimit  = 5
	persistenceLimit = 10
)

// Service runs the analytics pipelines against the repository ports.
type Service struct {
	sessions ports.SessionRepository
	elements ports.ElementRepository
	topics   ports.TopicRepository
	logger   *zap.Logger
}

// NewService creates a new analytics service
func NewService(
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	topics ports.TopicRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		sessions: sessions,
		elements: elements,
		topics:   topics,
		logger:   logger,
	}
}

// userData is one user's graph neighborhood loaded with a fixed number of
// queries; the pipelines compute over it in memory.
type userData struct {
	sessions   []*graph.Session // date ascending
	occs       []graph.Occurrence
	topicLinks []graph.TopicLink
}

func (s *Service) load(ctx context.Context, userID string) (*userData, error) {
	sessions, err := s.sessions.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	occs, err := s.elements.OccurrencesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	links, err := s.topics.LinksByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &userData{sessions: sessions, occs: occs, topicLinks: links}, nil
}

// sessionIndex maps session id to its position in date order.
func (d *userData) sessionIndex() map[string]int {
	idx := make(map[string]int, len(d.sessions))
	for i, sess := range d.sessions {
		idx[sess.ID] = i
	}
	return idx
}

// topicsBySession computes each session's topic set: the union of topics
// linked from any element occurring in that session.
func (d *userData) topicsBySession() map[string]map[string]bool {
	byElement := make(map[string][]string)
	for _, link := range d.topicLinks {
		byElement[link.ElementID] = append(byElement[link.ElementID], link.TopicName)
	}

	out := make(map[string]map[string]bool)
	for _, occ := range d.occs {
		topics := byElement[occ.ElementID]
		if len(topics) == 0 {
			continue
		}
		set, ok := out[occ.SessionID]
		if !ok {
			set = make(map[string]bool)
			out[occ.SessionID] = set
		}
		for _, t := range topics {
			set[t] = true
		}
	}
	return out
}

func sessionRef(s *graph.Session) insights.SessionRef {
	return insights.SessionRef{SessionID: s.ID, Title: s.Title, Date: s.Date}
}

// TurningPoint finds the most recent session-to-session transition where the
// named emotion's intensity dropped by more than threshold. Ties break by
// recency, not magnitude. Returns nil with fewer than two occurrences or when
// no pair crosses the threshold.
func (s *Service) TurningPoint(ctx context.Context, userID, emotionName string, threshold float64) (*insights.TurningPoint, error) {
	if threshold <= 0 {
		threshold = DefaultTurningPointThreshold
	}
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// One intensity reading per session, in date order.
	intensity := make(map[string]float64)
	for _, occ := range data.occs {
		if occ.Kind == graph.KindEmotion && strings.EqualFold(occ.Name, emotionName) {
			intensity[occ.SessionID] = occ.Intensity
		}
	}

	type reading struct {
		session   *graph.Session
		intensity float64
	}
	series := make([]reading, 0, len(intensity))
	for _, sess := range data.sessions {
		if v, ok := intensity[sess.ID]; ok {
			series = append(series, reading{session: sess, intensity: v})
		}
	}
	if len(series) < 2 {
		return nil, nil
	}

	turn := -1
	for i := 1; i < len(series); i++ {
		if series[i].intensity < series[i-1].intensity-threshold {
			turn = i
		}
	}
	if turn < 0 {
		return nil, nil
	}

	cur := series[turn]
	result := &insights.TurningPoint{
		EmotionName:       emotionName,
		PreviousIntensity: series[turn-1].intensity,
		CurrentIntensity:  cur.intensity,
		Date:              cur.session.Date,
		SessionID:         cur.session.ID,
	}

	// Narrative context: up to 5 sessions on each side of the turn, by date.
	for i := len(data.sessions) - 1; i >= 0 && len(result.SessionsBefore) < neighborWindow; i-- {
		sess := data.sessions[i]
		if !sess.Date.After(cur.session.Date) && sess.ID != cur.session.ID {
			result.SessionsBefore = append(result.SessionsBefore, sessionRef(sess))
		}
	}
	for _, sess := range data.sessions {
		if sess.Date.After(cur.session.Date) {
			result.SessionsAfter = append(result.SessionsAfter, sessionRef(sess))
			if len(result.SessionsAfter) == neighborWindow {
				break
			}
		}
	}

	// An insight recorded in the turning session attributes the improvement.
	for _, occ := range data.occs {
		if occ.Kind == graph.KindInsight && occ.SessionID == cur.session.ID {
			result.InsightID = occ.ElementID
			result.InsightName = occ.Name
			break
		}
	}

	return result, nil
}

// Correlations finds (emotion, topic) pairs that co-occur across sessions.
// Pairs must co-occur at least once and reach 50% correlation to appear.
func (s *Service) Correlations(ctx context.Context, userID string, limit int) ([]insights.Correlation, error) {
	if limit <= 0 {
		limit = correlationLimit
	}
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := len(data.sessions)
	if total == 0 {
		return nil, nil
	}

	emotionSessions := make(map[string]map[string]bool)
	for _, occ := range data.occs {
		if occ.Kind != graph.KindEmotion {
			continue
		}
		set, ok := emotionSessions[occ.Name]
		if !ok {
			set = make(map[string]bool)
			emotionSessions[occ.Name] = set
		}
		set[occ.SessionID] = true
	}

	topicSessions := make(map[string]map[string]bool)
	for sessionID, topics := range data.topicsBySession() {
		for topic := range topics {
			set, ok := topicSessions[topic]
			if !ok {
				set = make(map[string]bool)
				topicSessions[topic] = set
			}
			set[sessionID] = true
		}
	}

	var out []insights.Correlation
	for emotion, eSessions := range emotionSessions {
		for topic, tSessions := range topicSessions {
			together := 0
			for id := range eSessions {
				if tSessions[id] {
					together++
				}
			}
			if together == 0 {
				continue
			}
			pct := float64(together) / float64(len(eSessions)) * 100
			pct = math.Round(math.Min(100, math.Max(0, pct))*10) / 10
			if pct < minCorrelationPercentage {
				continue
			}
			conf := math.Min(1.0, float64(together)/float64(max(1, total))*2)
			conf = math.Round(conf*100) / 100

			out = append(out, insights.Correlation{
				Emotion:               emotion,
				Topic:                 topic,
				TogetherCount:         together,
				EmotionCount:          len(eSessions),
				TopicCount:            len(tSessions),
				TotalSessions:         total,
				CorrelationPercentage: pct,
				Confidence:            conf,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CorrelationPercentage != out[j].CorrelationPercentage {
			return out[i].CorrelationPercentage > out[j].CorrelationPercentage
		}
		if out[i].Emotion != out[j].Emotion {
			return out[i].Emotion < out[j].Emotion
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InsightCascade builds the directed graph of a user's insights connected by
// the relates-to-insight linkage, following paths of up to 3 hops and scoring
// each connected pair with strength 1/distance. Returns nil when fewer than
// two insights are connected.
func (s *Service) InsightCascade(ctx context.Context, userID string) (*insights.CascadeGraph, error) {
	elems, err := s.elements.ListByOwner(ctx, userID, graph.KindInsight)
	if err != nil {
		return nil, err
	}
	links, err := s.elements.InsightLinks(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*graph.Element, len(elems))
	for _, e := range elems {
		byID[e.ID] = e
	}

	adjacency := make(map[string][]string)
	for _, link := range links {
		if byID[link.SourceID] == nil || byID[link.TargetID] == nil {
			continue
		}
		adjacency[link.SourceID] = append(adjacency[link.SourceID], link.TargetID)
	}

	// BFS from every node up to 3 hops; keep the shortest distance per pair.
	const maxHops = 3
	type pair struct{ src, dst string }
	distance := make(map[pair]int)
	for start := range adjacency {
		depth := map[string]int{start: 0}
		frontier := []string{start}
		for len(frontier) > 0 {
			var next []string
			for _, node := range frontier {
				if depth[node] == maxHops {
					continue
				}
				for _, neighbor := range adjacency[node] {
					if _, seen := depth[neighbor]; seen {
						continue
					}
					depth[neighbor] = depth[node] + 1
					next = append(next, neighbor)
					p := pair{src: start, dst: neighbor}
					if d, ok := distance[p]; !ok || depth[neighbor] < d {
						distance[p] = depth[neighbor]
					}
				}
			}
			frontier = next
		}
	}
	if len(distance) == 0 {
		return nil, nil
	}

	connected := make(map[string]bool)
	edges := make([]insights.CascadeEdge, 0, len(distance))
	for p, d := range distance {
		connected[p.src] = true
		connected[p.dst] = true
		edges = append(edges, insights.CascadeEdge{
			SourceID: p.src,
			TargetID: p.dst,
			Distance: d,
			Strength: 1 / float64(d),
		})
	}
	if len(connected) < 2 {
		return nil, nil
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})

	nodes := make([]insights.CascadeNode, 0, len(connected))
	outgoing := make(map[string]int)
	for _, e := range edges {
		if e.Distance == 1 {
			outgoing[e.SourceID]++
		}
	}
	for id := range connected {
		elem := byID[id]
		nodes = append(nodes, insights.CascadeNode{ID: id, Name: elem.Name, CreatedAt: elem.CreatedAt})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].CreatedAt.Before(nodes[j].CreatedAt) })

	root := nodes[0].ID
	best := 0
	for _, n := range nodes {
		if outgoing[n.ID] > best {
			best = outgoing[n.ID]
			root = n.ID
		}
	}

	return &insights.CascadeGraph{RootID: root, Nodes: nodes, Edges: edges}, nil
}

// ChallengePersistence tracks challenges recurring across at least two
// sessions, with a coarse progress banding and at most one badge each.
// Progress decreases as recurrence count grows: a challenge that keeps
// coming back scores lower than one mentioned only once or twice.
func (s *Service) ChallengePersistence(ctx context.Context, userID string) ([]insights.ChallengePersistence, error) {
	return s.challengePersistenceAt(ctx, userID, time.Now().UTC())
}

func (s *Service) challengePersistenceAt(ctx context.Context, userID string, now time.Time) ([]insights.ChallengePersistence, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	type track struct {
		name     string
		first    time.Time
		last     time.Time
		sessions map[string]bool
	}
	tracks := make(map[string]*track)
	for _, occ := range data.occs {
		if occ.Kind != graph.KindChallenge {
			continue
		}
		tr, ok := tracks[occ.ElementID]
		if !ok {
			tr = &track{name: occ.Name, first: occ.Timestamp, last: occ.Timestamp, sessions: make(map[string]bool)}
			tracks[occ.ElementID] = tr
		}
		tr.sessions[occ.SessionID] = true
		if occ.Timestamp.Before(tr.first) {
			tr.first = occ.Timestamp
		}
		if occ.Timestamp.After(tr.last) {
			tr.last = occ.Timestamp
		}
	}

	var out []insights.ChallengePersistence
	for id, tr := range tracks {
		count := len(tr.sessions)
		if count < 2 {
			continue
		}

		status := "inactive"
		if now.Sub(tr.last) < challengeInactiveAfter {
			status = "active"
		}

		cp := insights.ChallengePersistence{
			ChallengeID:        id,
			Name:               tr.name,
			SessionCount:       count,
			FirstSeen:          tr.first,
			LastSeen:           tr.last,
			PersistenceDays:    int(tr.last.Sub(tr.first).Hours() / 24),
			CurrentStatus:      status,
			ProgressPercentage: progressBand(count),
		}
		// First badge condition wins; never both.
		if count >= 3 && status == "inactive" {
			cp.Badge = insights.BadgeChallengeOvercome
		} else if count >= 5 {
			cp.Badge = insights.BadgePersistentWorker
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionCount != out[j].SessionCount {
			return out[i].SessionCount > out[j].SessionCount
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > persistenceLimit {
		out = out[:persistenceLimit]
	}
	return out, nil
}

func progressBand(sessionCount int) int {
	switch {
	case sessionCount <= 2:
		return 75
	case sessionCount <= 4:
		return 50
	case sessionCount <= 6:
		return 25
	default:
		return 10
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
