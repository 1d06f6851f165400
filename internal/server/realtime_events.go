package server

import (
	"context"
	"log/slog"

	"warbler/internal/featureflags"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
)

// publishEvent delivers ev to every user in userIDs. With Redis the event goes
// through pub/sub so every instance sees it; the local subscriber hands it to
// this hub. Without Redis only local connections receive it. Failures are
// logged and never fail the request that caused them.
func (s *Server) publishEvent(ctx context.Context, actorID uint, userIDs []uint, ev notifications.Event) {
	if len(userIDs) == 0 || !s.featureFlags.Enabled(featureflags.RealtimeEvents, actorID) {
		return
	}
	message, err := ev.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(ev.Type).Inc()

	if s.notifier.Enabled() {
		if err := s.notifier.PublishUsers(context.WithoutCancel(ctx), userIDs, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("type", ev.Type), slog.String("error", err.Error()))
		}
		return
	}
	for _, id := range userIDs {
		s.hub.Broadcast(id, message)
	}
}

func (s *Server) publishNewFollower(ctx context.Context, followerID, followedID uint) {
	follower, err := s.users.GetUser(ctx, followerID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "new_follower event skipped", slog.String("error", err.Error()))
		return
	}
	s.publishEvent(ctx, followerID, []uint{followedID}, notifications.Event{
		Type:    notifications.EventNewFollower,
		Payload: map[string]any{"follower": follower.Summary()},
	})
}

func (s *Server) publishMessagePosted(ctx context.Context, msg *models.Message) {
	followers, err := s.follows.FollowerIDs(ctx, msg.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "message_posted event skipped", slog.String("error", err.Error()))
		return
	}
	s.publishEvent(ctx, msg.UserID, followers, notifications.Event{
		Type: notifications.EventMessagePosted,
		Payload: map[string]any{
			"id":        msg.ID,
			"text":      msg.Text,
			"timestamp": msg.Timestamp,
			"user":      msg.User.Summary(),
		},
	})
}

// publishMessageLiked tells the author; liking your own message is silent.
func (s *Server) publishMessageLiked(ctx context.Context, likerID, messageID uint) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "message_liked event skipped", slog.String("error", err.Error()))
		return
	}
	if msg.OwnedBy(likerID) {
		return
	}
	liker, err := s.users.GetUser(ctx, likerID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "message_liked event skipped", slog.String("error", err.Error()))
		return
	}
	s.publishEvent(ctx, likerID, []uint{msg.UserID}, notifications.Event{
		Type: notifications.EventMessageLiked,
		Payload: map[string]any{
			"message_id": msg.ID,
			"liker":      liker.Summary(),
		},
	})
}
