package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore はプロセス内メモリにセッションを保持します。再起動で消えます。
type MemoryStore struct {
	ttl      time.Duration
	lock     sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]Session),
	}
}

// Create はセッションを発行して保存します。期限切れのセッションはこのタイミングで掃除します。
func (s *MemoryStore) Create(_ context.Context, username string) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	sess, err := newSession(username, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := time.Now()
	for token, existing := range s.sessions {
		if existing.Expired(now) {
			delete(s.sessions, token)
		}
	}
	s.sessions[sess.Token] = *sess
	return sess, nil
}

// Resolve はトークンからセッションを取得します。
func (s *MemoryStore) Resolve(_ context.Context, token string) (*Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Expired(time.Now()) {
		delete(s.sessions, token)
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Destroy はセッションを削除します。
func (s *MemoryStore) Destroy(_ context.Context, token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.sessions, token)
	return nil
}

// Len は保持しているセッション数を返します。
func (s *MemoryStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sessions)
}
