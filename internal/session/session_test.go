package session

import (
	"context"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRedisManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(NewRedisStore(rdb), testSecret, time.Hour), mr
}

func storesUnderTest(t *testing.T) map[string]*Manager {
	redisManager, _ := newRedisManager(t)
	return map[string]*Manager{
		"redis":  redisManager,
		"memory": NewManager(NewMemoryStore(), testSecret, time.Hour),
	}
}

func TestManager_LoginResolveLogout(t *testing.T) {
	for name, m := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			token, expiresAt, err := m.Login(ctx, 42)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

			id, err := m.Resolve(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, uint(42), id.UserID)
			assert.NotEmpty(t, id.SessionID)

			require.NoError(t, m.Logout(ctx, token))
			id, err = m.Resolve(ctx, token)
			require.NoError(t, err)
			assert.True(t, id.IsAnonymous())

			// Logout is idempotent.
			assert.NoError(t, m.Logout(ctx, token))
			assert.NoError(t, m.Logout(ctx, ""))
			assert.NoError(t, m.Logout(ctx, "garbage"))
		})
	}
}

func TestManager_RevokeAll(t *testing.T) {
	for name, m := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t1, _, err := m.Login(ctx, 7)
			require.NoError(t, err)
			t2, _, err := m.Login(ctx, 7)
			require.NoError(t, err)
			other, _, err := m.Login(ctx, 8)
			require.NoError(t, err)

			require.NoError(t, m.RevokeAll(ctx, 7))

			for _, tok := range []string{t1, t2} {
				id, err := m.Resolve(ctx, tok)
				require.NoError(t, err)
				assert.True(t, id.IsAnonymous())
			}
			id, err := m.Resolve(ctx, other)
			require.NoError(t, err)
			assert.Equal(t, uint(8), id.UserID)
		})
	}
}

func TestManager_RejectsBadTokens(t *testing.T) {
	m := NewManager(NewMemoryStore(), testSecret, time.Hour)
	ctx := context.Background()
	token, _, err := m.Login(ctx, 1)
	require.NoError(t, err)

	forger := NewManager(NewMemoryStore(), "some-other-secret-of-enough-length", time.Hour)
	forged, _, err := forger.Login(ctx, 1)
	require.NoError(t, err)

	// Valid signature and live record, but the subject names someone else.
	swapped, err := m.sign(mustSID(t, m, token), 2, time.Now().Add(time.Hour))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":          "",
		"malformed":      "not.a.jwt",
		"tampered":       token + "x",
		"wrong secret":   forged,
		"subject swap":   swapped,
		"unknown record": mustSign(t, m, "no-such-session", 1),
	} {
		t.Run(name, func(t *testing.T) {
			id, err := m.Resolve(ctx, tok)
			require.NoError(t, err)
			assert.Equal(t, models.Anonymous, id)
		})
	}
}

func TestManager_ExpiredToken(t *testing.T) {
	c := &clock{t: time.Now()}
	store := NewMemoryStore()
	store.now = c.now
	m := NewManager(store, testSecret, time.Hour)
	m.now = c.now

	ctx := context.Background()
	token, _, err := m.Login(ctx, 3)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	id, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
	assert.NoError(t, m.Logout(ctx, token))
}

func TestRedisStore_TTL(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()
	token, _, err := m.Login(ctx, 5)
	require.NoError(t, err)

	sid := mustSID(t, m, token)
	assert.True(t, mr.Exists("session:"+sid))
	assert.Equal(t, time.Hour, mr.TTL("session:"+sid))
	ok, err := mr.SIsMember("user_sessions:5", sid)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	_, found, err := m.store.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManager_StoreOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	m := NewManager(NewRedisStore(rdb), testSecret, time.Hour)

	token, _, err := m.Login(context.Background(), 9)
	require.NoError(t, err)

	mr.SetError("LOADING")
	id, err := m.Resolve(context.Background(), token)
	assert.Error(t, err)
	assert.True(t, id.IsAnonymous())
}

func TestManager_LoginRequiresUser(t *testing.T) {
	m := NewManager(NewMemoryStore(), testSecret, 0)
	assert.Equal(t, 7*24*time.Hour, m.TTL())
	_, _, err := m.Login(context.Background(), 0)
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	_, isMemory := NewStore(nil).(*MemoryStore)
	assert.True(t, isMemory)

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = rdb.Close() }()
	_, isRedis := NewStore(rdb).(*RedisStore)
	assert.True(t, isRedis)
}

func mustSID(t *testing.T, m *Manager, token string) string {
	t.Helper()
	claims, err := m.parse(token, true)
	require.NoError(t, err)
	return claims.ID
}

func mustSign(t *testing.T, m *Manager, sid string, userID uint) string {
	t.Helper()
	tok, err := m.sign(sid, userID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return tok
}
