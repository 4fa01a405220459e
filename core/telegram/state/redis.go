package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists sessions as JSON strings. A positive expire lets Redis
// drop sessions that have not been touched for that long, unless they carry
// preferences: those keys never expire.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	expire time.Duration
}

// NewRedisStore builds a store writing keys under prefix.
func NewRedisStore(rdb *redis.Client, prefix string, expire time.Duration) *RedisStore {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "estatebot:fsm"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, expire: expire}
}

func (r *RedisStore) key(k Key) string {
	return fmt.Sprintf("%s:%d:%d", r.prefix, k.UserID, k.ChatID)
}

func (r *RedisStore) Load(ctx context.Context, key Key) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	s := NewSession()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s.Clone(), nil
}

func (r *RedisStore) Save(ctx context.Context, key Key, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	expire := r.expire
	if len(s.Prefs) > 0 {
		expire = 0
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, expire).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
