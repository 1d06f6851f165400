package bootstrap

import (
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedEmptyDevDB(t *testing.T) {
	t.Run("skips outside development", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		require.NoError(t, seedEmptyDevDB(&config.Config{Env: "production"}, db))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("leaves populated databases alone", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		require.NoError(t, db.Create(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}).Error)
		require.NoError(t, seedEmptyDevDB(&config.Config{Env: "development"}, db))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})
}

func TestInitRuntime_SQLiteWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		Env:           "test",
		DBDriver:      "sqlite",
		DBSQLitePath:  t.TempDir() + "/warbler.db",
		RedisURL:      "127.0.0.1:1",
		SessionSecret: "test-secret-key-12345678901234567890123456789012",
	}

	rt, err := InitRuntime(cfg, Options{ApplySchema: true})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Redis)
	require.NotNil(t, rt.Sessions)
	assert.True(t, rt.DB.Migrator().HasTable(&models.Message{}))
}
