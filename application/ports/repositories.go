package ports

import (
	"context"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

// UserRepository defines the interface for user persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type UserRepository interface {
	// Create persists a new user; fails with a conflict if the email is taken
	Create(ctx context.Context, user *graph.User) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, userID string) (*graph.User, error)

	// GetByEmail retrieves a user via the email lookup entry
	GetByEmail(ctx context.Context, email string) (*graph.User, error)

	// Update persists profile changes
	Update(ctx context.Context, user *graph.User) error

	// UpdateLastLogin records a successful login
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// Delete removes the user profile and email lookup. Owned sessions,
	// occurrences and elements are removed by the caller's cascade.
	Delete(ctx context.Context, userID string) error
}

// SessionRepository defines the interface for session nodes and the
// NEXT_SESSION chain edges.
type SessionRepository interface {
	// Create persists a new session node
	Create(ctx context.Context, session *graph.Session) error

	// GetByID retrieves a session by id regardless of owner
	GetByID(ctx context.Context, sessionID string) (*graph.Session, error)

	// ListByOwner retrieves all of a user's sessions, created_at ascending
	ListByOwner(ctx context.Context, ownerID string) ([]*graph.Session, error)

	// LastSession returns the owner's session flagged is_last_session, or nil
	LastSession(ctx context.Context, ownerID string) (*graph.Session, error)

	// ClearLastFlags unsets is_last_session on every session of the owner
	ClearLastFlags(ctx context.Context, ownerID string) error

	// SetLastFlag sets is_last_session on one session
	SetLastFlag(ctx context.Context, ownerID, sessionID string, last bool) error

	// MarkAnalyzed records an ingestion outcome on the session node
	MarkAnalyzed(ctx context.Context, ownerID, sessionID string, status graph.AnalysisStatus, at time.Time) error

	// PutChainLink stores the NEXT_SESSION edge src -> dst. The key shape
	// allows at most one outgoing edge per session.
	PutChainLink(ctx context.Context, ownerID, srcSessionID, dstSessionID string) error

	// DeleteChainLink removes the outgoing NEXT_SESSION edge of src
	DeleteChainLink(ctx context.Context, ownerID, srcSessionID string) error

	// ChainLinks returns every NEXT_SESSION edge of the owner as src -> dst
	ChainLinks(ctx context.Context, ownerID string) (map[string]string, error)

	// Delete removes the session node, its outgoing chain edge and its
	// occurrence partition. Elements and topics are left intact.
	Delete(ctx context.Context, ownerID, sessionID string) error
}

// ElementRepository defines the interface for element nodes, occurrence edges
// and insight links.
type ElementRepository interface {
	// Upsert merges on (kind, normalized name, owner). On create it assigns
	// the id and created_at; on every call it refreshes updated_at and the
	// kind-specific fields. Returns the element id. Must be atomic under
	// concurrent calls for the same identity.
	Upsert(ctx context.Context, ownerID string, kind graph.ElementKind, name string, fields graph.ElementFields) (string, error)

	// GetByID retrieves an element via the id lookup index
	GetByID(ctx context.Context, elementID string) (*graph.Element, error)

	// ListByOwner retrieves all of a user's elements, optionally filtered by kind
	ListByOwner(ctx context.Context, ownerID string, kind graph.ElementKind) ([]*graph.Element, error)

	// AttachToSession writes the HAS_<KIND> occurrence edge. Fails with
	// NotFound if the session does not exist.
	AttachToSession(ctx context.Context, occ graph.Occurrence) error

	// OccurrencesByOwner returns every occurrence edge of a user's sessions
	OccurrencesByOwner(ctx context.Context, ownerID string) ([]graph.Occurrence, error)

	// OccurrencesBySession returns the occurrence edges of one session
	OccurrencesBySession(ctx context.Context, sessionID string) ([]graph.Occurrence, error)

	// DeleteByOwner removes every element node of a user together with its
	// topic links and insight links. Used only by the user deletion cascade.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// SaveInsightLink merges a RELATES_TO_INSIGHT edge
	SaveInsightLink(ctx context.Context, link graph.InsightLink) error

	// InsightLinks returns every RELATES_TO_INSIGHT edge of a user
	InsightLinks(ctx context.Context, ownerID string) ([]graph.InsightLink, error)
}

// TopicRepository defines the interface for topics, taxonomy entries and the
// edges touching them.
type TopicRepository interface {
	// Merge creates the topic by normalized name if absent and returns it.
	// Must be safe under concurrent creation of the same name.
	Merge(ctx context.Context, name string) (*graph.Topic, error)

	// Link merges the RELATED_TO edge element -> topic; idempotent
	Link(ctx context.Context, link graph.TopicLink) error

	// LinksByOwner returns every RELATED_TO edge of a user
	LinksByOwner(ctx context.Context, ownerID string) ([]graph.TopicLink, error)

	// LinksByElement returns the RELATED_TO edges of one element
	LinksByElement(ctx context.Context, elementID string) ([]graph.TopicLink, error)

	// ListTaxonomies returns every taxonomy entry
	ListTaxonomies(ctx context.Context) ([]graph.Taxonomy, error)

	// Classify merges the CLASSIFIED_AS edge for a topic
	Classify(ctx context.Context, c graph.Classification) error

	// Classification returns the topic's CLASSIFIED_AS edge, or nil
	Classification(ctx context.Context, topicName string) (*graph.Classification, error)
}

// ReleaseFunc releases an acquired lock. Safe to call once.
type ReleaseFunc func(ctx context.Context) error

// OwnerLocker serializes chain-mutating operations per owner. Only
// create_session racing on the is_last_session flag needs it; analytics and
// ingestion run lock-free.
type OwnerLocker interface {
	// Acquire blocks until the owner lock is held or the timeout elapses
	Acquire(ctx context.Context, ownerID string, ttl, timeout time.Duration) (ReleaseFunc, error)
}
