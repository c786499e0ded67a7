package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// Chain lock parameters. Only create/delete contend, and only per owner, so
// short leases are enough.
const (
	chainLockTTL     = 10 * time.Second
	chainLockTimeout = 5 * time.Second
)

// SessionSequencer maintains the per-user temporal session chain: the
// is_last_session flag and the NEXT_SESSION links, independent of any stored
// timestamp.
type SessionSequencer struct {
	sessions ports.SessionRepository
	locker   ports.OwnerLocker
	logger   *zap.Logger
}

// NewSessionSequencer creates a new session sequencer
func NewSessionSequencer(sessions ports.SessionRepository, locker ports.OwnerLocker, logger *zap.Logger) *SessionSequencer {
	return &SessionSequencer{
		sessions: sessions,
		locker:   locker,
		logger:   logger,
	}
}

// CreateSession appends a new session to the owner's chain:
// read the current tail, clear every last flag, create the new session as the
// tail, then link tail -> new. The steps run under a per-owner advisory lock
// so two concurrent creates cannot interleave on the last flag.
//
// If the final link write fails the created session is still returned along
// with the error: it exists but is unlinked, which is a recoverable state,
// not corruption.
func (s *SessionSequencer) CreateSession(ctx context.Context, ownerID string, fields graph.NewSessionFields) (*graph.Session, error) {
	session, err := graph.NewSession(ownerID, fields)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, ownerID, chainLockTTL, chainLockTimeout)
	if err != nil {
		return nil, errors.ErrSessionLockTimeout(ownerID).WithCause(err)
	}
	defer func() {
		if rerr := release(ctx); rerr != nil {
			s.logger.Warn("Failed to release chain lock",
				zap.String("owner_id", ownerID),
				zap.Error(rerr),
			)
		}
	}()

	prev, err := s.sessions.LastSession(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// Clearing every flag before setting the new one keeps the invariant
	// even if a prior write left a stray flag behind.
	if err := s.sessions.ClearLastFlags(ctx, ownerID); err != nil {
		return nil, err
	}

	session.IsLastSession = true
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if prev != nil {
		if err := s.sessions.PutChainLink(ctx, ownerID, prev.ID, session.ID); err != nil {
			s.logger.Error("Session created but chain link failed",
				zap.String("owner_id", ownerID),
				zap.String("session_id", session.ID),
				zap.String("prev_session_id", prev.ID),
				zap.Error(err),
			)
			return session, errors.Wrap(err, "session created but not linked")
		}
	}

	s.logger.Info("Session created",
		zap.String("owner_id", ownerID),
		zap.String("session_id", session.ID),
		zap.Bool("linked", prev != nil),
	)
	return session, nil
}

// DeleteSession removes a session and re-links its chain neighbors. Element
// and topic nodes referenced by the session survive as a historical ledger;
// only the occurrence edges go away with the session.
func (s *SessionSequencer) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	release, err := s.locker.Acquire(ctx, ownerID, chainLockTTL, chainLockTimeout)
	if err != nil {
		return errors.ErrSessionLockTimeout(ownerID).WithCause(err)
	}
	defer func() {
		if rerr := release(ctx); rerr != nil {
			s.logger.Warn("Failed to release chain lock",
				zap.String("owner_id", ownerID),
				zap.Error(rerr),
			)
		}
	}()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return errors.ErrSessionNotFound(sessionID)
	}

	links, err := s.sessions.ChainLinks(ctx, ownerID)
	if err != nil {
		return err
	}

	var prevID string
	for src, dst := range links {
		if dst == sessionID {
			prevID = src
			break
		}
	}
	nextID := links[sessionID]

	switch {
	case prevID != "" && nextID != "":
		// Middle of the chain: prev -> next
		if err := s.sessions.PutChainLink(ctx, ownerID, prevID, nextID); err != nil {
			return err
		}
	case prevID != "":
		// Tail: the predecessor becomes the new tail
		if err := s.sessions.DeleteChainLink(ctx, ownerID, prevID); err != nil {
			return err
		}
		if err := s.sessions.SetLastFlag(ctx, ownerID, prevID, true); err != nil {
			return err
		}
	}

	if err := s.sessions.Delete(ctx, ownerID, sessionID); err != nil {
		return err
	}

	s.logger.Info("Session deleted",
		zap.String("owner_id", ownerID),
		zap.String("session_id", sessionID),
		zap.String("relinked_prev", prevID),
		zap.String("relinked_next", nextID),
	)
	return nil
}

// GetChain returns the owner's sessions in chain order, oldest first. It
// starts from the session with no incoming NEXT_SESSION link and follows the
// links. Sessions the traversal cannot reach (inconsistent data) are appended
// in created_at order so the result always covers every session.
func (s *SessionSequencer) GetChain(ctx context.Context, ownerID string) ([]*graph.Session, error) {
	sessions, err := s.sessions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	links, err := s.sessions.ChainLinks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*graph.Session, len(sessions))
	hasIncoming := make(map[string]bool, len(links))
	for _, sess := range sessions {
		byID[sess.ID] = sess
	}
	for _, dst := range links {
		hasIncoming[dst] = true
	}

	var head *graph.Session
	for _, sess := range sessions {
		if !hasIncoming[sess.ID] {
			if head == nil || sess.CreatedAt.Before(head.CreatedAt) {
				head = sess
			}
		}
	}

	ordered := make([]*graph.Session, 0, len(sessions))
	visited := make(map[string]bool, len(sessions))
	for cur := head; cur != nil && !visited[cur.ID]; {
		ordered = append(ordered, cur)
		visited[cur.ID] = true
		next, ok := links[cur.ID]
		if !ok {
			break
		}
		cur = byID[next]
	}

	if len(ordered) < len(sessions) {
		s.logger.Warn("Session chain incomplete, falling back to created_at order for the remainder",
			zap.String("owner_id", ownerID),
			zap.Int("chained", len(ordered)),
			zap.Int("total", len(sessions)),
		)
		rest := make([]*graph.Session, 0, len(sessions)-len(ordered))
		for _, sess := range sessions {
			if !visited[sess.ID] {
				rest = append(rest, sess)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].CreatedAt.Before(rest[j].CreatedAt) })
		ordered = append(ordered, rest...)
	}

	return ordered, nil
}

// SessionDetail is a session with its occurrences, topics and chain neighbors.
type SessionDetail struct {
	Session       *graph.Session        `json:"session"`
	Occurrences   []graph.Occurrence    `json:"occurrences"`
	Elements      []*graph.Element      `json:"elements"`
	Topics        map[string][]string   `json:"topics"` // element id -> topic names
	PrevSessionID string                `json:"prev_session_id,omitempty"`
	NextSessionID string                `json:"next_session_id,omitempty"`
}

// GetSessionDetail reads one session with everything attached to it.
func (s *SessionSequencer) GetSessionDetail(ctx context.Context, elements ports.ElementRepository, topics ports.TopicRepository, ownerID, sessionID string) (*SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, errors.ErrSessionNotFound(sessionID)
	}

	occs, err := elements.OccurrencesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	detail := &SessionDetail{
		Session:     session,
		Occurrences: occs,
		Topics:      make(map[string][]string),
	}

	seen := make(map[string]bool, len(occs))
	for _, occ := range occs {
		if seen[occ.ElementID] {
			continue
		}
		seen[occ.ElementID] = true

		elem, err := elements.GetByID(ctx, occ.ElementID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		detail.Elements = append(detail.Elements, elem)

		links, err := topics.LinksByElement(ctx, occ.ElementID)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			detail.Topics[occ.ElementID] = append(detail.Topics[occ.ElementID], link.TopicName)
		}
	}

	links, err := s.sessions.ChainLinks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	detail.NextSessionID = links[sessionID]
	for src, dst := range links {
		if dst == sessionID {
			detail.PrevSessionID = src
			break
		}
	}

	return detail, nil
}
