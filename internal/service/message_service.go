package service

import (
	"context"
	"strings"
	"time"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type MessageService struct {
	store  repository.Store
	maxLen int
	now    func() time.Time
}

// MessageOption customises a MessageService.
type MessageOption func(*MessageService)

// WithClock overrides the clock used to stamp new messages.
func WithClock(now func() time.Time) MessageOption {
	return func(s *MessageService) { s.now = now }
}

func NewMessageService(store repository.Store, maxLen int, opts ...MessageOption) *MessageService {
	if maxLen <= 0 {
		maxLen = models.DefaultMessageMaxLength
	}
	s := &MessageService{store: store, maxLen: maxLen, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLength is the longest accepted message, in characters.
func (s *MessageService) MaxLength() int { return s.maxLen }

// Post stores a new message by the caller, stamped with the service clock in UTC.
func (s *MessageService) Post(ctx context.Context, who models.Identity, text string) (msg *models.Message, err error) {
	if err := requireUser(who); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if err := validation.ValidateMessageText(text, s.maxLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ctx, span := observability.StartSpan(ctx, "MessageService.Post", attribute.Int64("user.id", int64(who.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		author, err := tx.Users().GetByID(ctx, who.UserID)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return models.NewUnauthorizedError("Account no longer exists")
			}
			return err
		}

		msg = &models.Message{
			Text:      text,
			Timestamp: s.now().UTC(),
			UserID:    who.UserID,
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		msg.User = author
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.MessageActionsTotal.WithLabelValues("posted").Inc()
	refreshStats(ctx, who.UserID)
	return msg, nil
}

// Get returns a message with its author.
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.store.Messages().GetByID(ctx, id)
}

// Delete removes the caller's own message along with its likes. Everyone who
// liked it has their cached like count dropped.
func (s *MessageService) Delete(ctx context.Context, who models.Identity, id uint) (err error) {
	if err := requireUser(who); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, "MessageService.Delete",
		attribute.Int64("user.id", int64(who.UserID)), attribute.Int64("message.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	var likers []uint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !msg.OwnedBy(who.UserID) {
			return models.NewUnauthorizedError("You can only delete your own messages")
		}
		if likers, err = tx.Likes().LikerIDs(ctx, id); err != nil {
			return err
		}
		if err := tx.Likes().DeleteForMessage(ctx, id); err != nil {
			return err
		}
		return tx.Messages().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	observability.MessageActionsTotal.WithLabelValues("deleted").Inc()
	refreshStats(ctx, append(likers, who.UserID)...)
	return nil
}
