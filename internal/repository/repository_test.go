package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	return NewStore(db), db
}

func mustCreateUser(t *testing.T, s Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func mustPost(t *testing.T, s Store, userID uint, text string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{UserID: userID, Text: text, Timestamp: at.UTC()}
	require.NoError(t, s.Messages().Create(context.Background(), m))
	return m
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.DefaultImageURL, u.ImageURL)
	assert.Equal(t, models.DefaultHeaderImageURL, u.HeaderImageURL)

	byName, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	missing, err := s.Users().GetByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	byEmail, err := s.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().GetByID(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_DuplicateCredential(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "alice")

	tests := []struct {
		name  string
		user  models.User
		field string
	}{
		{"same username", models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}, "username"},
		{"same email", models.User{Username: "other", Email: "alice@example.com", PasswordHash: "x"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := s.Users().Create(ctx, &u)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrDuplicateCredential)

			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "bob")

	alice.Bio = "hello"
	alice.ImageURL = ""
	alice.Location = "Lisbon"
	require.NoError(t, s.Users().UpdateProfile(ctx, alice))

	got, err := s.Users().GetWithCredentials(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, "Lisbon", got.Location)
	assert.Equal(t, models.DefaultImageURL, got.ImageURL)

	alice.Username = "bob"
	err = s.Users().UpdateProfile(ctx, alice)
	assert.ErrorIs(t, err, models.ErrDuplicateCredential)
}

func TestUserRepository_ListSearch(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"Alice", "malik", "bob", "al_x"} {
		mustCreateUser(t, s, name)
	}

	all, err := s.Users().List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	found, err := s.Users().List(ctx, "ALI", 10, 0)
	require.NoError(t, err)
	var names []string
	for _, u := range found {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"Alice", "malik"}, names)

	underscore, err := s.Users().List(ctx, "l_", 10, 0)
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "al_x", underscore[0].Username)
}

func TestFollowRepository(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a := mustCreateUser(t, s, "a")
	b := mustCreateUser(t, s, "b")
	c := mustCreateUser(t, s, "c")

	created, err := s.Follows().Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Follows().Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate edge must be a no-op")

	_, err = s.Follows().Create(ctx, c.ID, b.ID)
	require.NoError(t, err)

	ok, err := s.Follows().Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Follows().Exists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := s.Follows().Followers(ctx, b.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := s.Follows().Following(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	ids, err := s.Follows().FollowerIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, c.ID}, ids)

	_, err = s.Follows().Create(ctx, b.ID, a.ID)
	require.NoError(t, err)
	neighbors, err := s.Follows().NeighborIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, c.ID}, neighbors, "mutual edge counted once")

	removed, err := s.Follows().Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Follows().Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMessageRepository_TimelineOrderingAndLimit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	viewer := mustCreateUser(t, s, "viewer")
	followed := mustCreateUser(t, s, "followed")
	stranger := mustCreateUser(t, s, "stranger")
	_, err := s.Follows().Create(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustPost(t, s, followed.ID, fmt.Sprintf("f%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	// Same timestamp as f4; the later insert has the higher id and comes first.
	tie := mustPost(t, s, followed.ID, "tie", base.Add(4*time.Minute))
	mustPost(t, s, stranger.ID, "noise", base.Add(time.Hour))
	mustPost(t, s, viewer.ID, "own", base.Add(time.Hour))

	msgs, err := s.Messages().HomeTimeline(ctx, viewer.ID, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, tie.ID, msgs[0].ID)
	assert.Equal(t, "f4", msgs[1].Text)
	assert.Equal(t, "f0", msgs[5].Text)
	for _, m := range msgs {
		assert.Equal(t, followed.ID, m.UserID)
		require.NotNil(t, m.User)
		assert.Equal(t, "followed", m.User.Username)
	}
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp))
	}

	capped, err := s.Messages().HomeTimeline(ctx, viewer.ID, 3)
	require.NoError(t, err)
	assert.Len(t, capped, 3)

	own, err := s.Messages().ListByUser(ctx, viewer.ID, 100)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "own", own[0].Text)

	empty, err := s.Messages().HomeTimeline(ctx, stranger.ID, 100)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLikeRepository(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	author := mustCreateUser(t, s, "author")
	fan := mustCreateUser(t, s, "fan")
	m1 := mustPost(t, s, author.ID, "one", time.Now())
	m2 := mustPost(t, s, author.ID, "two", time.Now())

	inserted, err := s.Likes().Insert(ctx, fan.ID, m1.ID)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.Likes().Insert(ctx, fan.ID, m1.ID)
	require.NoError(t, err)
	assert.False(t, inserted)
	_, err = s.Likes().Insert(ctx, fan.ID, m2.ID)
	require.NoError(t, err)

	liked, err := s.Likes().ListLikedBy(ctx, fan.ID, 0)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, m2.ID, liked[0].ID)
	assert.NotNil(t, liked[0].User)

	ids, err := s.Likes().LikedMessageIDs(ctx, fan.ID, []uint{m1.ID, m2.ID, 999})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{m1.ID, m2.ID}, ids)

	none, err := s.Likes().LikedMessageIDs(ctx, fan.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	likers, err := s.Likes().LikerIDs(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fan.ID}, likers)
	likers, err = s.Likes().LikerIDsOnMessagesOf(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fan.ID}, likers, "one entry per liker across messages")

	removed, err := s.Likes().Delete(ctx, fan.ID, m1.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, s.Likes().DeleteOnMessagesOf(ctx, author.ID))
	ok, err := s.Likes().Exists(ctx, fan.ID, m2.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepository_Stats(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a := mustCreateUser(t, s, "a")
	b := mustCreateUser(t, s, "b")
	_, err := s.Follows().Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	m := mustPost(t, s, b.ID, "hi", time.Now())
	_, err = s.Likes().Insert(ctx, a.ID, m.ID)
	require.NoError(t, err)

	stats, err := s.Users().Stats(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfileStats{Messages: 0, Following: 1, Followers: 0, Likes: 1}, *stats)

	stats, err = s.Users().Stats(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfileStats{Messages: 1, Following: 0, Followers: 1, Likes: 0}, *stats)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx Store) error {
		u := &models.User{Username: "ghost", Email: "ghost@example.com", PasswordHash: "x"}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "ghost").Count(&n).Error)
	assert.Zero(t, n)
}
