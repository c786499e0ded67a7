package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// memStore is the shared state behind the in-memory repository fakes.
type memStore struct {
	mu sync.Mutex

	sessions        map[string]*graph.Session
	chainLinks      map[string]map[string]string // owner -> src -> dst
	elements        map[string]*graph.Element
	occurrences     []graph.Occurrence
	insightLinks    []graph.InsightLink
	topics          map[string]*graph.Topic
	topicLinks      []graph.TopicLink
	taxonomies      []graph.Taxonomy
	classifications map[string]*graph.Classification

	taxonomyReads int
}

func newMemStore() *memStore {
	return &memStore{
		sessions:        make(map[string]*graph.Session),
		chainLinks:      make(map[string]map[string]string),
		elements:        make(map[string]*graph.Element),
		topics:          make(map[string]*graph.Topic),
		classifications: make(map[string]*graph.Classification),
	}
}

// memSessions implements ports.SessionRepository.
type memSessions struct{ s *memStore }

var _ ports.SessionRepository = (*memSessions)(nil)

func (m *memSessions) Create(_ context.Context, session *graph.Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *session
	m.s.sessions[session.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, sessionID string) (*graph.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound(sessionID)
	}
	cp := *sess
	return &cp, nil
}

func (m *memSessions) ListByOwner(_ context.Context, ownerID string) ([]*graph.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*graph.Session
	for _, sess := range m.s.sessions {
		if sess.OwnerID == ownerID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memSessions) LastSession(_ context.Context, ownerID string) (*graph.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, sess := range m.s.sessions {
		if sess.OwnerID == ownerID && sess.IsLastSession {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) ClearLastFlags(_ context.Context, ownerID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, sess := range m.s.sessions {
		if sess.OwnerID == ownerID {
			sess.IsLastSession = false
		}
	}
	return nil
}

func (m *memSessions) SetLastFlag(_ context.Context, ownerID, sessionID string, last bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return errors.ErrSessionNotFound(sessionID)
	}
	sess.IsLastSession = last
	return nil
}

func (m *memSessions) MarkAnalyzed(_ context.Context, ownerID, sessionID string, status graph.AnalysisStatus, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return errors.ErrSessionNotFound(sessionID)
	}
	sess.MarkAnalyzed(status, at)
	return nil
}

func (m *memSessions) PutChainLink(_ context.Context, ownerID, src, dst string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	links, ok := m.s.chainLinks[ownerID]
	if !ok {
		links = make(map[string]string)
		m.s.chainLinks[ownerID] = links
	}
	links[src] = dst
	return nil
}

func (m *memSessions) DeleteChainLink(_ context.Context, ownerID, src string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.chainLinks[ownerID], src)
	return nil
}

func (m *memSessions) ChainLinks(_ context.Context, ownerID string) (map[string]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[string]string, len(m.s.chainLinks[ownerID]))
	for src, dst := range m.s.chainLinks[ownerID] {
		out[src] = dst
	}
	return out, nil
}

func (m *memSessions) Delete(_ context.Context, ownerID, sessionID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return errors.ErrSessionNotFound(sessionID)
	}
	delete(m.s.sessions, sessionID)
	delete(m.s.chainLinks[ownerID], sessionID)
	kept := m.s.occurrences[:0]
	for _, occ := range m.s.occurrences {
		if occ.SessionID != sessionID {
			kept = append(kept, occ)
		}
	}
	m.s.occurrences = kept
	return nil
}

// memElements implements ports.ElementRepository. failUpsert names an element
// whose Upsert fails, simulating a store rejection mid-batch.
type memElements struct {
	s          *memStore
	failUpsert string
	upsertErr  error
}

var _ ports.ElementRepository = (*memElements)(nil)

func (m *memElements) Upsert(_ context.Context, ownerID string, kind graph.ElementKind, name string, fields graph.ElementFields) (string, error) {
	name = graph.NormalizeName(name)
	if name == "" {
		return "", errors.ErrEmptyElementName()
	}
	if m.failUpsert != "" && strings.EqualFold(name, m.failUpsert) {
		if m.upsertErr != nil {
			return "", m.upsertErr
		}
		return "", errors.NewInternalError("upsert rejected")
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now().UTC()
	for _, elem := range m.s.elements {
		if elem.OwnerID == ownerID && elem.Kind == kind && strings.EqualFold(elem.Name, name) {
			elem.Fields = fields
			elem.UpdatedAt = now
			return elem.ID, nil
		}
	}
	id := fmt.Sprintf("%s%d", kind.IDPrefix(), len(m.s.elements)+1)
	m.s.elements[id] = &graph.Element{
		ID: id, Kind: kind, Name: name, OwnerID: ownerID,
		Fields: fields, CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (m *memElements) GetByID(_ context.Context, elementID string) (*graph.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	elem, ok := m.s.elements[elementID]
	if !ok {
		return nil, errors.ErrElementNotFound(elementID)
	}
	cp := *elem
	return &cp, nil
}

func (m *memElements) ListByOwner(_ context.Context, ownerID string, kind graph.ElementKind) ([]*graph.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*graph.Element
	for _, elem := range m.s.elements {
		if elem.OwnerID != ownerID {
			continue
		}
		if kind != "" && elem.Kind != kind {
			continue
		}
		cp := *elem
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memElements) AttachToSession(_ context.Context, occ graph.Occurrence) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.sessions[occ.SessionID]; !ok {
		return errors.ErrSessionNotFound(occ.SessionID)
	}
	m.s.occurrences = append(m.s.occurrences, occ)
	return nil
}

func (m *memElements) OccurrencesByOwner(_ context.Context, ownerID string) ([]graph.Occurrence, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []graph.Occurrence
	for _, occ := range m.s.occurrences {
		if occ.OwnerID == ownerID {
			out = append(out, occ)
		}
	}
	return out, nil
}

func (m *memElements) OccurrencesBySession(_ context.Context, sessionID string) ([]graph.Occurrence, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []graph.Occurrence
	for _, occ := range m.s.occurrences {
		if occ.SessionID == sessionID {
			out = append(out, occ)
		}
	}
	return out, nil
}

func (m *memElements) DeleteByOwner(_ context.Context, ownerID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, elem := range m.s.elements {
		if elem.OwnerID == ownerID {
			delete(m.s.elements, id)
		}
	}
	return nil
}

func (m *memElements) SaveInsightLink(_ context.Context, link graph.InsightLink) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.insightLinks {
		if existing.SourceID == link.SourceID && existing.TargetID == link.TargetID {
			return nil
		}
	}
	link.CreatedAt = time.Now().UTC()
	m.s.insightLinks = append(m.s.insightLinks, link)
	return nil
}

func (m *memElements) InsightLinks(_ context.Context, ownerID string) ([]graph.InsightLink, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []graph.InsightLink
	for _, link := range m.s.insightLinks {
		if link.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	return out, nil
}

// memTopics implements ports.TopicRepository.
type memTopics struct{ s *memStore }

var _ ports.TopicRepository = (*memTopics)(nil)

func (m *memTopics) Merge(_ context.Context, name string) (*graph.Topic, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := strings.ToLower(name)
	if topic, ok := m.s.topics[key]; ok {
		cp := *topic
		return &cp, nil
	}
	topic := &graph.Topic{
		ID:        fmt.Sprintf("T_%d", len(m.s.topics)+1),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	m.s.topics[key] = topic
	cp := *topic
	return &cp, nil
}

func (m *memTopics) Link(_ context.Context, link graph.TopicLink) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.topicLinks {
		if existing.ElementID == link.ElementID && existing.TopicName == link.TopicName {
			return nil
		}
	}
	m.s.topicLinks = append(m.s.topicLinks, link)
	return nil
}

func (m *memTopics) LinksByOwner(_ context.Context, ownerID string) ([]graph.TopicLink, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []graph.TopicLink
	for _, link := range m.s.topicLinks {
		if link.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (m *memTopics) LinksByElement(_ context.Context, elementID string) ([]graph.TopicLink, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []graph.TopicLink
	for _, link := range m.s.topicLinks {
		if link.ElementID == elementID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (m *memTopics) ListTaxonomies(_ context.Context) ([]graph.Taxonomy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.taxonomyReads++
	out := make([]graph.Taxonomy, len(m.s.taxonomies))
	copy(out, m.s.taxonomies)
	return out, nil
}

func (m *memTopics) Classify(_ context.Context, c graph.Classification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := c
	m.s.classifications[strings.ToLower(c.TopicName)] = &cp
	return nil
}

func (m *memTopics) Classification(_ context.Context, topicName string) (*graph.Classification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.classifications[strings.ToLower(topicName)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// memLocker hands out the lock immediately; tests are single-threaded.
type memLocker struct{ acquired int }

var _ ports.OwnerLocker = (*memLocker)(nil)

func (m *memLocker) Acquire(context.Context, string, time.Duration, time.Duration) (ports.ReleaseFunc, error) {
	m.acquired++
	return func(context.Context) error { return nil }, nil
}

// memCache implements ports.Cache without TTL handling.
type memCache struct {
	mu   sync.Mutex
	data map[string]interface{}
	sets int
	hits int
}

var _ ports.Cache = (*memCache)(nil)

func newMemCache() *memCache { return &memCache{data: make(map[string]interface{})} }

func (c *memCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]interface{})
	return nil
}
