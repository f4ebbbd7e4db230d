package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions as JSON values under
// "session_user:<id>" with a TTL matching the session expiry.
type RedisSessionStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisSessionStore(rdb redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, now: time.Now}
}

func (r *RedisSessionStore) Save(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return apperr.Validation("expires_at", "session already expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, ttl).Err(); err != nil {
		return apperr.Transient("save session", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (Session, error) {
	val, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, apperr.NotFound("session", id)
		}
		return Session{}, apperr.Transient("get session", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return apperr.Transient("delete session", err)
	}
	return nil
}

func (r *RedisSessionStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
