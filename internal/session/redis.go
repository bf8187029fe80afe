package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// RedisStore はセッションを Redis に保存します。有効期限は Redis の TTL に任せます。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Create はセッションを発行して保存します。
func (s *RedisStore) Create(ctx context.Context, username string) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	sess, err := newSession(username, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	// トークン衝突は事実上起きないが、既存キーは上書きしない
	ok, err := s.rdb.SetNX(ctx, sessionKey(sess.Token), payload, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("session token collision")
	}
	return sess, nil
}

// Resolve はトークンからセッションを取得します。
func (s *RedisStore) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Destroy はセッションを削除します。
func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}
