package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

// graphData feeds the read-only stubs below. The analytics pipelines only
// read; everything else is a no-op.
type graphData struct {
	sessions     []*graph.Session
	occurrences  []graph.Occurrence
	elements     []*graph.Element
	insightLinks []graph.InsightLink
	topicLinks   []graph.TopicLink
}

func newTestService(data *graphData) *Service {
	return NewService(
		&stubSessions{data: data},
		&stubElements{data: data},
		&stubTopics{data: data},
		zap.NewNop(),
	)
}

// sessionAt builds a session n weeks after the epoch date.
func sessionAt(id, owner string, week int) *graph.Session {
	date := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC).AddDate(0, 0, week*7)
	return &graph.Session{
		ID: id, OwnerID: owner, Title: "Session " + id, Date: date,
		Status: graph.SessionCompleted, AnalysisStatus: graph.AnalysisCompleted,
		CreatedAt: date, UpdatedAt: date,
	}
}

func occurrence(sessionID, elementID, owner string, kind graph.ElementKind, name string, intensity float64, ts time.Time) graph.Occurrence {
	return graph.Occurrence{
		SessionID: sessionID, ElementID: elementID, OwnerID: owner,
		Kind: kind, Name: name, Intensity: intensity, Timestamp: ts,
	}
}

type stubSessions struct{ data *graphData }

var _ ports.SessionRepository = (*stubSessions)(nil)

func (s *stubSessions) Create(context.Context, *graph.Session) error { return nil }
func (s *stubSessions) GetByID(context.Context, string) (*graph.Session, error) {
	return nil, nil
}
func (s *stubSessions) ListByOwner(_ context.Context, ownerID string) ([]*graph.Session, error) {
	var out []*graph.Session
	for _, sess := range s.data.sessions {
		if sess.OwnerID == ownerID {
			out = append(out, sess)
		}
	}
	return out, nil
}
func (s *stubSessions) LastSession(context.Context, string) (*graph.Session, error) {
	return nil, nil
}
func (s *stubSessions) ClearLastFlags(context.Context, string) error { return nil }
func (s *stubSessions) SetLastFlag(context.Context, string, string, bool) error {
	return nil
}
func (s *stubSessions) MarkAnalyzed(context.Context, string, string, graph.AnalysisStatus, time.Time) error {
	return nil
}
func (s *stubSessions) PutChainLink(context.Context, string, string, string) error { return nil }
func (s *stubSessions) DeleteChainLink(context.Context, string, string) error      { return nil }
func (s *stubSessions) ChainLinks(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (s *stubSessions) Delete(context.Context, string, string) error { return nil }

type stubElements struct{ data *graphData }

var _ ports.ElementRepository = (*stubElements)(nil)

func (s *stubElements) Upsert(context.Context, string, graph.ElementKind, string, graph.ElementFields) (string, error) {
	return "", nil
}
func (s *stubElements) GetByID(context.Context, string) (*graph.Element, error) { return nil, nil }
func (s *stubElements) ListByOwner(_ context.Context, ownerID string, kind graph.ElementKind) ([]*graph.Element, error) {
	var out []*graph.Element
	for _, elem := range s.data.elements {
		if elem.OwnerID == ownerID && (kind == "" || elem.Kind == kind) {
			out = append(out, elem)
		}
	}
	return out, nil
}
func (s *stubElements) AttachToSession(context.Context, graph.Occurrence) error { return nil }
func (s *stubElements) OccurrencesByOwner(_ context.Context, ownerID string) ([]graph.Occurrence, error) {
	var out []graph.Occurrence
	for _, occ := range s.data.occurrences {
		if occ.OwnerID == ownerID {
			out = append(out, occ)
		}
	}
	return out, nil
}
func (s *stubElements) OccurrencesBySession(context.Context, string) ([]graph.Occurrence, error) {
	return nil, nil
}
func (s *stubElements) DeleteByOwner(context.Context, string) error { return nil }
func (s *stubElements) SaveInsightLink(context.Context, graph.InsightLink) error {
	return nil
}
func (s *stubElements) InsightLinks(_ context.Context, ownerID string) ([]graph.InsightLink, error) {
	var out []graph.InsightLink
	for _, link := range s.data.insightLinks {
		if link.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	return out, nil
}

type stubTopics struct{ data *graphData }

var _ ports.TopicRepository = (*stubTopics)(nil)

func (s *stubTopics) Merge(context.Context, string) (*graph.Topic, error) { return nil, nil }
func (s *stubTopics) Link(context.Context, graph.TopicLink) error         { return nil }
func (s *stubTopics) LinksByOwner(_ context.Context, ownerID string) ([]graph.TopicLink, error) {
	var out []graph.TopicLink
	for _, link := range s.data.topicLinks {
		if link.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	return out, nil
}
func (s *stubTopics) LinksByElement(context.Context, string) ([]graph.TopicLink, error) {
	return nil, nil
}
func (s *stubTopics) ListTaxonomies(context.Context) ([]graph.Taxonomy, error) { return nil, nil }
func (s *stubTopics) Classify(context.Context, graph.Classification) error    { return nil }
func (s *stubTopics) Classification(context.Context, string) (*graph.Classification, error) {
	return nil, nil
}
