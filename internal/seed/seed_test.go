package seed

import (
	"context"
	"testing"
	"unicode/utf8"

	"warbler/internal/credential"
	"warbler/internal/models"
	"warbler/internal/testutil"
	"warbler/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Users = 6
	opts.MessagesPerUser = 3
	opts.FollowsPerUser = 2
	opts.LikesPerUser = 4
	opts.RandomSeed = 42
	opts.Hasher = credential.NewHasher(bcrypt.MinCost)
	return opts
}

func TestSeed_PopulatesGraph(t *testing.T) {
	db := testutil.NewTestDB(t)

	sum, err := Seed(context.Background(), db, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Users)
	assert.Equal(t, 18, sum.Messages)

	var users, follows, msgs, likes int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.NoError(t, db.Model(&models.Message{}).Count(&msgs).Error)
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	assert.Equal(t, int64(6), users)
	assert.Equal(t, int64(12), follows)
	assert.Equal(t, int64(18), msgs)
	assert.Equal(t, int64(sum.Likes), likes)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = followed_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	var u models.User
	require.NoError(t, db.First(&u).Error)
	assert.True(t, credential.Verify(DefaultPassword, u.PasswordHash))
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := Seed(ctx, db, testOptions())
	require.NoError(t, err)
	_, err = Seed(ctx, db, testOptions())
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(6), users)
}

func TestFactory_GeneratesValidEntities(t *testing.T) {
	opts := testOptions()
	opts.MessageLimit = 40
	f := NewFactory(nil, opts, "hash")

	for i := 0; i < 20; i++ {
		u := f.BuildUser()
		assert.NoError(t, validation.ValidateUsername(u.Username), u.Username)
		assert.NoError(t, validation.ValidateEmail(u.Email), u.Email)

		m := f.BuildMessage(&models.User{ID: 1})
		assert.LessOrEqual(t, utf8.RuneCountInString(m.Text), 40)
		assert.NotEmpty(t, m.Text)
		assert.False(t, m.Timestamp.After(f.now))
	}
}
