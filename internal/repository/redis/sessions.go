package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore maps opaque bearer tokens to user ids with a TTL.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Put(ctx context.Context, token string, userID int64) error {
	return s.rdb.Set(ctx, KeySession(token), strconv.FormatInt(userID, 10), s.ttl).Err()
}

// Get resolves a token to a user id, refreshing the TTL on hit.
func (s *SessionStore) Get(ctx context.Context, token string) (int64, bool, error) {
	v, err := s.rdb.GetEx(ctx, KeySession(token), s.ttl).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}

	return id, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, KeySession(token)).Err()
}
