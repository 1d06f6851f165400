package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type FollowService struct {
	store repository.Store
}

func NewFollowService(store repository.Store) *FollowService {
	return &FollowService{store: store}
}

// Follow adds who -> target. Following someone twice is a no-op; created
// reports whether a new edge was written.
func (s *FollowService) Follow(ctx context.Context, who models.Identity, targetID uint) (created bool, err error) {
	if err := requireUser(who); err != nil {
		return false, err
	}
	if who.UserID == targetID {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	ctx, span := observability.StartSpan(ctx, "FollowService.Follow",
		attribute.Int64("user.id", int64(who.UserID)), attribute.Int64("target.id", int64(targetID)))
	defer func() { observability.EndSpan(span, err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := tx.Users().Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewNotFoundError("User", targetID)
		}
		created, err = tx.Follows().Create(ctx, who.UserID, targetID)
		return err
	})
	if err != nil {
		return false, err
	}

	if created {
		observability.FollowActionsTotal.WithLabelValues("follow").Inc()
		refreshStats(ctx, who.UserID, targetID)
	}
	return created, nil
}

// Unfollow removes who -> target. A missing edge is not an error.
func (s *FollowService) Unfollow(ctx context.Context, who models.Identity, targetID uint) error {
	if err := requireUser(who); err != nil {
		return err
	}
	removed, err := s.store.Follows().Delete(ctx, who.UserID, targetID)
	if err != nil {
		return err
	}
	if removed {
		observability.FollowActionsTotal.WithLabelValues("unfollow").Inc()
		refreshStats(ctx, who.UserID, targetID)
	}
	return nil
}

// IsFollowing reports whether a follows b.
func (s *FollowService) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.store.Follows().Exists(ctx, a, b)
}

// IsFollowedBy reports whether b follows a.
func (s *FollowService) IsFollowedBy(ctx context.Context, a, b uint) (bool, error) {
	return s.store.Follows().Exists(ctx, b, a)
}

func (s *FollowService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Follows().Following(ctx, userID, limit, offset)
}

func (s *FollowService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Follows().Followers(ctx, userID, limit, offset)
}

// FollowerIDs lists everyone following userID, for event fan-out.
func (s *FollowService) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.store.Follows().FollowerIDs(ctx, userID)
}

func (s *FollowService) ensureUser(ctx context.Context, userID uint) error {
	ok, err := s.store.Users().Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}
