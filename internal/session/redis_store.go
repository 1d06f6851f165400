package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:%s"
	userSetPrefix    = "user_sessions:%d"
)

func sessionKey(sid string) string  { return fmt.Sprintf(sessionKeyPrefix, sid) }
func userSetKey(userID uint) string { return fmt.Sprintf(userSetPrefix, userID) }

// RedisStore keeps each session under session:<sid> with a TTL and indexes
// the ids per user for revoke-all.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewStore picks Redis when a client is available and the in-process store
// otherwise.
func NewStore(rdb *redis.Client) Store {
	if rdb == nil {
		return NewMemoryStore()
	}
	return NewRedisStore(rdb)
}

func (s *RedisStore) Save(ctx context.Context, sid string, userID uint, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(sid), userID, ttl)
		p.SAdd(ctx, userSetKey(userID), sid)
		p.Expire(ctx, userSetKey(userID), ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Lookup(ctx context.Context, sid string) (uint, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	uid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(uid), true, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	uid, ok, err := s.Lookup(ctx, sid)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return err
	}
	if ok {
		return s.rdb.SRem(ctx, userSetKey(uid), sid).Err()
	}
	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context, userID uint) error {
	sids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, sessionKey(sid))
	}
	keys = append(keys, userSetKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}
