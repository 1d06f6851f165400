package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type TimelineService struct {
	store repository.Store
	limit int
}

// Timeline is a page of messages plus the ones the viewer has liked.
type Timeline struct {
	Messages        []models.Message `json:"messages"`
	LikedMessageIDs []uint           `json:"liked_message_ids"`
}

// NewTimelineService caps every timeline at limit messages.
func NewTimelineService(store repository.Store, limit int) *TimelineService {
	if limit <= 0 {
		limit = 100
	}
	return &TimelineService{store: store, limit: limit}
}

// Limit is the configured timeline cap.
func (s *TimelineService) Limit() int { return s.limit }

// HomeTimeline lists messages by the users viewer follows, newest first. The
// anonymous viewer gets an empty timeline.
func (s *TimelineService) HomeTimeline(ctx context.Context, viewer models.Identity, limit int) (tl *Timeline, err error) {
	tl = &Timeline{Messages: []models.Message{}, LikedMessageIDs: []uint{}}
	if viewer.IsAnonymous() {
		return tl, nil
	}
	ctx, span := observability.StartSpan(ctx, "TimelineService.HomeTimeline", attribute.Int64("user.id", int64(viewer.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	msgs, err := s.store.Messages().HomeTimeline(ctx, viewer.UserID, capLimit(limit, s.limit))
	if err != nil {
		return nil, err
	}
	liked, err := s.store.Likes().LikedMessageIDs(ctx, viewer.UserID, messageIDs(msgs))
	if err != nil {
		return nil, err
	}

	if msgs != nil {
		tl.Messages = msgs
	}
	if liked != nil {
		tl.LikedMessageIDs = liked
	}
	observability.TimelineSize.WithLabelValues("home").Observe(float64(len(tl.Messages)))
	return tl, nil
}

// UserTimeline lists one user's messages, newest first, for any viewer.
func (s *TimelineService) UserTimeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	ok, err := s.store.Users().Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", userID)
	}
	msgs, err := s.store.Messages().ListByUser(ctx, userID, capLimit(limit, s.limit))
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	observability.TimelineSize.WithLabelValues("user").Observe(float64(len(msgs)))
	return msgs, nil
}
