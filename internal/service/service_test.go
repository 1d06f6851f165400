package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"warbler/internal/cache"
	"warbler/internal/credential"
	"warbler/internal/featureflags"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type revokeRecorder struct {
	revoked []uint
}

func (r *revokeRecorder) RevokeAll(_ context.Context, userID uint) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

type fixture struct {
	store     repository.Store
	users     *UserService
	follows   *FollowService
	messages  *MessageService
	likes     *LikeService
	timelines *TimelineService
	sessions  *revokeRecorder
	clock     time.Time
}

func newFixture(t *testing.T, flags string) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewStore(testutil.NewTestDB(t)),
		sessions: &revokeRecorder{},
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.users = NewUserService(f.store, credential.NewHasher(bcrypt.MinCost), f.sessions, 100)
	f.follows = NewFollowService(f.store)
	f.messages = NewMessageService(f.store, 140, WithClock(func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}))
	f.likes = NewLikeService(f.store, featureflags.NewManager(flags))
	f.timelines = NewTimelineService(f.store, 100)
	return f
}

// useCache points the package-level cache at a throwaway miniredis so stats
// reads go through the cache-aside path.
func useCache(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
}

func (f *fixture) stats(t *testing.T, who models.Identity) models.ProfileStats {
	t.Helper()
	p, err := f.users.Profile(context.Background(), who.UserID, who)
	require.NoError(t, err)
	return p.Stats
}

func (f *fixture) signup(t *testing.T, name string) models.Identity {
	t.Helper()
	u, err := f.users.Signup(context.Background(), SignupInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)
	return models.IdentityFor(u.ID)
}

func (f *fixture) post(t *testing.T, who models.Identity, text string) *models.Message {
	t.Helper()
	msg, err := f.messages.Post(context.Background(), who, text)
	require.NoError(t, err)
	return msg
}

func TestSignupAndAuthenticate(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	u, err := f.users.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "hunter22", u.PasswordHash)
	assert.Equal(t, models.DefaultImageURL, u.ImageURL)

	got, err := f.users.Authenticate(ctx, "alice", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	got, err = f.users.Authenticate(ctx, "alice", "wrong-password")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.users.Authenticate(ctx, "nobody", "hunter22")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSignup_Rejections(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.signup(t, "alice")

	tests := []struct {
		name  string
		in    SignupInput
		code  string
		field string
	}{
		{"missing fields", SignupInput{Username: "bob"}, models.CodeValidation, ""},
		{"short password", SignupInput{Username: "bob", Email: "bob@example.com", Password: "abc"}, models.CodeValidation, ""},
		{"bad email", SignupInput{Username: "bob", Email: "bob", Password: "password"}, models.CodeValidation, ""},
		{"bad image url", SignupInput{Username: "bob", Email: "bob@example.com", Password: "password", ImageURL: "ftp://x"}, models.CodeValidation, ""},
		{"taken username", SignupInput{Username: "alice", Email: "other@example.com", Password: "password"}, models.CodeDuplicateCredential, "username"},
		{"taken email", SignupInput{Username: "bob", Email: "alice@example.com", Password: "password"}, models.CodeDuplicateCredential, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Signup(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, models.ErrorCode(err))
			if tt.field != "" {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.field, appErr.Field)
			}
		})
	}

	users, err := f.users.ListUsers(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestPost(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		_, err := f.messages.Post(ctx, models.Anonymous, "hello")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("length bound counts characters", func(t *testing.T) {
		_, err := f.messages.Post(ctx, alice, strings.Repeat("é", 140))
		assert.NoError(t, err)

		_, err = f.messages.Post(ctx, alice, strings.Repeat("a", 141))
		assert.ErrorIs(t, err, models.ErrValidation)

		_, err = f.messages.Post(ctx, alice, "   ")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("stamps UTC time and author", func(t *testing.T) {
		msg := f.post(t, alice, "hello world")
		assert.Equal(t, time.UTC, msg.Timestamp.Location())
		require.NotNil(t, msg.User)
		assert.Equal(t, "alice", msg.User.Username)
	})

	msgs, err := f.timelines.UserTimeline(ctx, alice.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	msg := f.post(t, alice, "mine")
	_, err := f.likes.ToggleLike(ctx, bob, msg.ID)
	require.NoError(t, err)

	err = f.messages.Delete(ctx, bob, msg.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = f.messages.Delete(ctx, alice, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, f.messages.Delete(ctx, alice, msg.ID))
	_, err = f.messages.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	liked, err := f.likes.ListLikedBy(ctx, bob.UserID, 10)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestFollow(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	_, err := f.follows.Follow(ctx, alice, alice.UserID)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.follows.Follow(ctx, alice, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.follows.Follow(ctx, models.Anonymous, bob.UserID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	created, err := f.follows.Follow(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.follows.Follow(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.False(t, created)

	ok, err := f.follows.IsFollowing(ctx, alice.UserID, bob.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.follows.IsFollowedBy(ctx, bob.UserID, alice.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.follows.IsFollowing(ctx, bob.UserID, alice.UserID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := f.follows.Followers(ctx, bob.UserID, 10, 0)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	ids, err := f.follows.FollowerIDs(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.UserID}, ids)

	require.NoError(t, f.follows.Unfollow(ctx, alice, bob.UserID))
	require.NoError(t, f.follows.Unfollow(ctx, alice, bob.UserID))

	following, err := f.follows.Following(ctx, alice.UserID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, following)

	_, err = f.follows.Following(ctx, 9999, 10, 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	msg := f.post(t, alice, "like me")

	state, err := f.likes.ToggleLike(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeStateLiked, state)

	state, err = f.likes.ToggleLike(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeStateUnliked, state)

	liked, err := f.likes.ListLikedBy(ctx, bob.UserID, 10)
	require.NoError(t, err)
	assert.Empty(t, liked)

	_, err = f.likes.ToggleLike(ctx, bob, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.likes.ToggleLike(ctx, models.Anonymous, msg.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	state, err = f.likes.ToggleLike(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeStateLiked, state, "self likes are allowed by default")

	state, err = f.likes.Unlike(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeStateUnliked, state)
	state, err = f.likes.Unlike(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeStateUnliked, state)
}

func TestToggleLike_RejectSelfLikeFlag(t *testing.T) {
	f := newFixture(t, featureflags.RejectSelfLike+"=on")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	msg := f.post(t, alice, "no narcissism")

	_, err := f.likes.ToggleLike(ctx, alice, msg.ID)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestHomeTimeline(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	carol := f.signup(t, "carol")

	_, err := f.follows.Follow(ctx, alice, bob.UserID)
	require.NoError(t, err)

	first := f.post(t, bob, "first")
	f.post(t, carol, "not followed")
	second := f.post(t, bob, "second")
	f.post(t, alice, "own message")

	_, err = f.likes.ToggleLike(ctx, alice, first.ID)
	require.NoError(t, err)

	tl, err := f.timelines.HomeTimeline(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, tl.Messages, 2)
	assert.Equal(t, second.ID, tl.Messages[0].ID)
	assert.Equal(t, first.ID, tl.Messages[1].ID)
	assert.Equal(t, []uint{first.ID}, tl.LikedMessageIDs)

	tl, err = f.timelines.HomeTimeline(ctx, alice, 1)
	require.NoError(t, err)
	assert.Len(t, tl.Messages, 1)

	tl, err = f.timelines.HomeTimeline(ctx, models.Anonymous, 0)
	require.NoError(t, err)
	assert.NotNil(t, tl.Messages)
	assert.Empty(t, tl.Messages)
}

func TestTimelineCap(t *testing.T) {
	f := newFixture(t, "")
	f.timelines = NewTimelineService(f.store, 3)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	for i := 0; i < 5; i++ {
		f.post(t, alice, fmt.Sprintf("message %d", i))
	}

	msgs, err := f.timelines.UserTimeline(ctx, alice.UserID, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 4", msgs[0].Text)

	_, err = f.timelines.UserTimeline(ctx, 9999, 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	msg := f.post(t, alice, "hi")
	_, err := f.follows.Follow(ctx, bob, alice.UserID)
	require.NoError(t, err)
	_, err = f.likes.ToggleLike(ctx, bob, msg.ID)
	require.NoError(t, err)

	p, err := f.users.Profile(ctx, alice.UserID, bob)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.User.Username)
	assert.Len(t, p.Messages, 1)
	assert.Equal(t, int64(1), p.Stats.Messages)
	assert.Equal(t, int64(1), p.Stats.Followers)
	assert.True(t, p.IsFollowing)
	assert.False(t, p.IsSelf)
	assert.Equal(t, []uint{msg.ID}, p.LikedMessageIDs)

	p, err = f.users.Profile(ctx, alice.UserID, models.Anonymous)
	require.NoError(t, err)
	assert.False(t, p.IsFollowing)
	assert.Empty(t, p.LikedMessageIDs)

	_, err = f.users.Profile(ctx, 9999, bob)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	f.signup(t, "bob")

	in := UpdateProfileInput{
		Username:        "alicia",
		Email:           "alicia@example.com",
		Bio:             "tweeting",
		Location:        "Lisbon",
		ConfirmPassword: "password",
	}

	t.Run("wrong password", func(t *testing.T) {
		bad := in
		bad.ConfirmPassword = "nope"
		_, err := f.users.UpdateProfile(ctx, alice, bad)
		assert.ErrorIs(t, err, models.ErrInvalidCredential)
	})

	t.Run("username collision", func(t *testing.T) {
		clash := in
		clash.Username = "bob"
		_, err := f.users.UpdateProfile(ctx, alice, clash)
		assert.ErrorIs(t, err, models.ErrDuplicateCredential)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, models.Anonymous, in)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("success resets empty images", func(t *testing.T) {
		u, err := f.users.UpdateProfile(ctx, alice, in)
		require.NoError(t, err)
		assert.Equal(t, "alicia", u.Username)
		assert.Equal(t, models.DefaultImageURL, u.ImageURL)
		assert.Equal(t, models.DefaultHeaderImageURL, u.HeaderImageURL)

		got, err := f.users.Authenticate(ctx, "alicia", "password")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Lisbon", got.Location)
	})
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	aliceMsg := f.post(t, alice, "going away")
	bobMsg := f.post(t, bob, "staying")
	_, err := f.follows.Follow(ctx, alice, bob.UserID)
	require.NoError(t, err)
	_, err = f.follows.Follow(ctx, bob, alice.UserID)
	require.NoError(t, err)
	_, err = f.likes.ToggleLike(ctx, bob, aliceMsg.ID)
	require.NoError(t, err)
	_, err = f.likes.ToggleLike(ctx, alice, bobMsg.ID)
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteAccount(ctx, alice))
	assert.Equal(t, []uint{alice.UserID}, f.sessions.revoked)

	_, err = f.users.GetUser(ctx, alice.UserID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	followers, err := f.follows.Followers(ctx, bob.UserID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, followers)

	liked, err := f.likes.ListLikedBy(ctx, bob.UserID, 10)
	require.NoError(t, err)
	assert.Empty(t, liked)

	following, err := f.follows.Following(ctx, bob.UserID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, following)

	p, err := f.users.Profile(ctx, bob.UserID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Stats.Likes)
	assert.Equal(t, int64(1), p.Stats.Messages)
	assert.Equal(t, int64(0), p.Stats.Following)
	assert.Equal(t, int64(0), p.Stats.Followers)

	err = f.users.DeleteAccount(ctx, models.Anonymous)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDeleteAccount_DropsCounterpartStats(t *testing.T) {
	useCache(t)
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	carol := f.signup(t, "carol")

	aliceMsg := f.post(t, alice, "going away")
	_, err := f.follows.Follow(ctx, bob, alice.UserID)
	require.NoError(t, err)
	_, err = f.follows.Follow(ctx, alice, bob.UserID)
	require.NoError(t, err)
	_, err = f.likes.ToggleLike(ctx, carol, aliceMsg.ID)
	require.NoError(t, err)

	bobBefore := f.stats(t, bob)
	assert.Equal(t, int64(1), bobBefore.Following)
	assert.Equal(t, int64(1), bobBefore.Followers)
	assert.Equal(t, int64(1), f.stats(t, carol).Likes)

	require.NoError(t, f.users.DeleteAccount(ctx, alice))

	bobAfter := f.stats(t, bob)
	assert.Equal(t, int64(0), bobAfter.Following)
	assert.Equal(t, int64(0), bobAfter.Followers)
	assert.Equal(t, int64(0), f.stats(t, carol).Likes)
}

func TestDeleteMessage_DropsLikerStats(t *testing.T) {
	useCache(t)
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	msg := f.post(t, alice, "short lived")
	_, err := f.likes.ToggleLike(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.stats(t, bob).Likes)
	assert.Equal(t, int64(1), f.stats(t, alice).Messages)

	require.NoError(t, f.messages.Delete(ctx, alice, msg.ID))

	assert.Equal(t, int64(0), f.stats(t, bob).Likes)
	assert.Equal(t, int64(0), f.stats(t, alice).Messages)
}
