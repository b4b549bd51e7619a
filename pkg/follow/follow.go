// Package follow tracks which tipsters a user follows. Following is free
// and carries no entitlement; it feeds personalized feeds and the
// follower counts shown on tipster profiles.
package follow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/offer"
)

var (
	ErrSelfFollow       = errors.New("follow: tipsters cannot follow themselves")
	ErrAlreadyFollowing = errors.New("follow: already following this tipster")
	ErrNotFollowing     = errors.New("follow: not following this tipster")
)

// Follow is one user-to-tipster follow edge.
type Follow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TipsterID uuid.UUID
	CreatedAt time.Time
}

// Store persists follow edges. At most one edge exists per
// (user, tipster) pair.
type Store interface {
	Create(ctx context.Context, f *Follow) error
	// Delete removes the edge and returns ErrNotFollowing when none exists.
	Delete(ctx context.Context, userID, tipsterID uuid.UUID) error
	Exists(ctx context.Context, userID, tipsterID uuid.UUID) (bool, error)
	TipsterIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error)
}

// Service guards follow operations with tipster existence and
// self-follow checks.
type Service struct {
	store    Store
	tipsters offer.TipsterDirectory
	log      *slog.Logger
}

// NewService wires the follow service. Panics on nil dependencies to
// fail fast during initialization.
func NewService(store Store, tipsters offer.TipsterDirectory, log *slog.Logger) *Service {
	if store == nil {
		panic("follow: Store is required")
	}
	if tipsters == nil {
		panic("follow: TipsterDirectory is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, tipsters: tipsters, log: log}
}

// Follow records the user following the tipster.
func (s *Service) Follow(ctx context.Context, userID, tipsterID uuid.UUID) error {
	owner, err := s.tipsters.OwnerUserID(ctx, tipsterID)
	if err != nil {
		return err
	}
	if owner == userID {
		return ErrSelfFollow
	}

	following, err := s.store.Exists(ctx, userID, tipsterID)
	if err != nil {
		return err
	}
	if following {
		return ErrAlreadyFollowing
	}

	if err := s.store.Create(ctx, &Follow{
		ID:        uuid.New(),
		UserID:    userID,
		TipsterID: tipsterID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "tipster followed",
		slog.String("user_id", userID.String()),
		slog.String("tipster_id", tipsterID.String()))
	return nil
}

// Unfollow removes the user's follow of the tipster.
func (s *Service) Unfollow(ctx context.Context, userID, tipsterID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, tipsterID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "tipster unfollowed",
		slog.String("user_id", userID.String()),
		slog.String("tipster_id", tipsterID.String()))
	return nil
}

// Following lists the tipster IDs the user follows.
func (s *Service) Following(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.TipsterIDsByUser(ctx, userID)
}

// IsFollowing reports whether the user follows the tipster.
func (s *Service) IsFollowing(ctx context.Context, userID, tipsterID uuid.UUID) (bool, error) {
	return s.store.Exists(ctx, userID, tipsterID)
}

// FollowerCount returns the tipster's follower count.
func (s *Service) FollowerCount(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	return s.store.CountByTipster(ctx, tipsterID)
}
