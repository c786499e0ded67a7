package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// UserService owns user lifecycle: registration, profile reads/updates,
// login bookkeeping and the full deletion cascade.
type UserService struct {
	users     ports.UserRepository
	sessions  ports.SessionRepository
	elements  ports.ElementRepository
	sequencer *SessionSequencer
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	sequencer *SessionSequencer,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		sessions:  sessions,
		elements:  elements,
		sequencer: sequencer,
		logger:    logger,
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*graph.User, error) {
	if len(password) < 8 {
		return nil, errors.NewValidationError("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user, err := graph.NewUser(email, string(hash), name)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate checks credentials and records the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*graph.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, errors.NewForbiddenError("account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errors.NewUnauthorizedError("invalid credentials")
	}

	now := time.Now().UTC()
	user.TouchLogin(now)
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// Get reads a user by id.
func (s *UserService) Get(ctx context.Context, userID string) (*graph.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile updates the mutable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (*graph.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the user and everything they own: every session (with its
// occurrence edges and chain links), every element, then the profile itself.
// Topic nodes are global and survive.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	sessions, err := s.sessions.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.sessions.Delete(ctx, userID, sess.ID); err != nil {
			return errors.Wrapf(err, "cascade delete of session %s failed", sess.ID)
		}
	}

	if err := s.elements.DeleteByOwner(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("User deleted with cascade",
		zap.String("user_id", userID),
		zap.Int("sessions_removed", len(sessions)),
	)
	return nil
}

// ElementKindSummary counts a user's elements of one kind.
type ElementKindSummary struct {
	Kind  graph.ElementKind `json:"kind"`
	Count int               `json:"count"`
}

// ElementsSummary returns per-kind element counts for a user.
func (s *UserService) ElementsSummary(ctx context.Context, userID string) ([]ElementKindSummary, error) {
	out := make([]ElementKindSummary, 0, len(graph.Kinds()))
	for _, kind := range graph.Kinds() {
		elems, err := s.elements.ListByOwner(ctx, userID, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, ElementKindSummary{Kind: kind, Count: len(elems)})
	}
	return out, nil
}
