package service

import (
	"context"

	"warbler/internal/featureflags"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type LikeService struct {
	store repository.Store
	flags *featureflags.Manager
}

func NewLikeService(store repository.Store, flags *featureflags.Manager) *LikeService {
	return &LikeService{store: store, flags: flags}
}

// ToggleLike flips the caller's like on a message and returns the new state.
// Applying it twice restores the original state.
func (s *LikeService) ToggleLike(ctx context.Context, who models.Identity, messageID uint) (state models.LikeState, err error) {
	if err := requireUser(who); err != nil {
		return "", err
	}
	ctx, span := observability.StartSpan(ctx, "LikeService.ToggleLike",
		attribute.Int64("user.id", int64(who.UserID)), attribute.Int64("message.id", int64(messageID)))
	defer func() { observability.EndSpan(span, err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.OwnedBy(who.UserID) && s.flags.Enabled(featureflags.RejectSelfLike, who.UserID) {
			return models.NewValidationError("You cannot like your own message")
		}

		removed, err := tx.Likes().Delete(ctx, who.UserID, messageID)
		if err != nil {
			return err
		}
		if removed {
			state = models.LikeStateUnliked
			return nil
		}
		if _, err := tx.Likes().Insert(ctx, who.UserID, messageID); err != nil {
			return err
		}
		state = models.LikeStateLiked
		return nil
	})
	if err != nil {
		return "", err
	}

	observability.LikeTogglesTotal.WithLabelValues(string(state)).Inc()
	refreshStats(ctx, who.UserID)
	span.SetAttributes(attribute.String("like.state", string(state)))
	return state, nil
}

// Unlike removes the caller's like if present. It always ends Unliked.
func (s *LikeService) Unlike(ctx context.Context, who models.Identity, messageID uint) (models.LikeState, error) {
	if err := requireUser(who); err != nil {
		return "", err
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Messages().GetByID(ctx, messageID); err != nil {
			return err
		}
		removed, err := tx.Likes().Delete(ctx, who.UserID, messageID)
		if err != nil {
			return err
		}
		if removed {
			observability.LikeTogglesTotal.WithLabelValues(string(models.LikeStateUnliked)).Inc()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	refreshStats(ctx, who.UserID)
	return models.LikeStateUnliked, nil
}

// ListLikedBy returns the messages userID liked, most recent like first.
func (s *LikeService) ListLikedBy(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	ok, err := s.store.Users().Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", userID)
	}
	return s.store.Likes().ListLikedBy(ctx, userID, limit)
}

// LikedMessageIDs filters messageIDs down to those userID has liked.
func (s *LikeService) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	return s.store.Likes().LikedMessageIDs(ctx, userID, messageIDs)
}
