package service

import (
	"context"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/credential"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type UserService struct {
	store         repository.Store
	hasher        credential.Hasher
	sessions      SessionRevoker
	timelineLimit int
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

type UpdateProfileInput struct {
	Username        string
	Email           string
	ImageURL        string
	HeaderImageURL  string
	Bio             string
	Location        string
	ConfirmPassword string
}

// Profile is a user's public page.
type Profile struct {
	User            *models.User        `json:"user"`
	Messages        []models.Message    `json:"messages"`
	Stats           models.ProfileStats `json:"stats"`
	IsFollowing     bool                `json:"is_following"`
	IsSelf          bool                `json:"is_self"`
	LikedMessageIDs []uint              `json:"liked_message_ids"`
}

func NewUserService(store repository.Store, hasher credential.Hasher, sessions SessionRevoker, timelineLimit int) *UserService {
	if timelineLimit <= 0 {
		timelineLimit = 100
	}
	return &UserService{store: store, hasher: hasher, sessions: sessions, timelineLimit: timelineLimit}
}

// Signup creates an account. Username and email collisions surface as
// DuplicateCredential straight from the unique indexes.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Signup")
	defer func() { observability.EndSpan(span, err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ImageURL:     in.ImageURL,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	observability.SignupsTotal.Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	return user, nil
}

// Authenticate returns the user only when the password matches. Unknown
// usernames and wrong passwords both yield (nil, nil).
func (s *UserService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Authenticate")
	defer func() { observability.EndSpan(span, err) }()

	user, err = s.store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		credential.Burn(password)
		observability.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		observability.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.store.Users().List(ctx, query, limit, offset)
}

// Profile assembles the public profile of id as seen by viewer.
func (s *UserService) Profile(ctx context.Context, id uint, viewer models.Identity) (*Profile, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages().ListByUser(ctx, id, s.timelineLimit)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Users().Stats(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: user, Messages: msgs, Stats: *stats, LikedMessageIDs: []uint{}}
	if viewer.IsAnonymous() {
		return p, nil
	}

	p.IsSelf = viewer.UserID == id
	if !p.IsSelf {
		if p.IsFollowing, err = s.store.Follows().Exists(ctx, viewer.UserID, id); err != nil {
			return nil, err
		}
	}
	ids, err := s.store.Likes().LikedMessageIDs(ctx, viewer.UserID, messageIDs(msgs))
	if err != nil {
		return nil, err
	}
	if ids != nil {
		p.LikedMessageIDs = ids
	}
	return p, nil
}

// UpdateProfile rewrites the editable fields after re-checking the current
// password. Empty image fields reset to the defaults.
func (s *UserService) UpdateProfile(ctx context.Context, who models.Identity, in UpdateProfileInput) (user *models.User, err error) {
	if err := requireUser(who); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "UserService.UpdateProfile", attribute.Int64("user.id", int64(who.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	for _, u := range []string{in.ImageURL, in.HeaderImageURL} {
		if err := validation.ValidateImageURL(u); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if err := validation.ValidateProfileText(in.Bio, in.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.Users().GetWithCredentials(ctx, who.UserID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(in.ConfirmPassword, current.PasswordHash) {
			return models.NewInvalidCredentialError()
		}

		current.Username = in.Username
		current.Email = in.Email
		current.ImageURL = in.ImageURL
		current.HeaderImageURL = in.HeaderImageURL
		current.Bio = in.Bio
		current.Location = in.Location
		if err := tx.Users().UpdateProfile(ctx, current); err != nil {
			return err
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateUser(ctx, who.UserID)
	return user, nil
}

// DeleteAccount removes the caller and everything hanging off the account in
// one transaction, then ends all of their sessions. Users on the other end of
// a removed follow or like get their cached counters dropped too.
func (s *UserService) DeleteAccount(ctx context.Context, who models.Identity) (err error) {
	if err := requireUser(who); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, "UserService.DeleteAccount", attribute.Int64("user.id", int64(who.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	var touched []uint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		neighbors, err := tx.Follows().NeighborIDs(ctx, who.UserID)
		if err != nil {
			return err
		}
		likers, err := tx.Likes().LikerIDsOnMessagesOf(ctx, who.UserID)
		if err != nil {
			return err
		}
		touched = append(neighbors, likers...)

		if err := tx.Likes().DeleteOnMessagesOf(ctx, who.UserID); err != nil {
			return err
		}
		if err := tx.Likes().DeleteByUser(ctx, who.UserID); err != nil {
			return err
		}
		if err := tx.Follows().DeleteAllFor(ctx, who.UserID); err != nil {
			return err
		}
		if err := tx.Messages().DeleteByUser(ctx, who.UserID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, who.UserID)
	})
	if err != nil {
		return err
	}

	cache.InvalidateUser(ctx, who.UserID)
	refreshStats(ctx, touched...)
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, who.UserID); err != nil {
			logFailure(ctx, "revoke sessions after account deletion", err)
		}
	}
	return nil
}

func messageIDs(msgs []models.Message) []uint {
	ids := make([]uint, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
