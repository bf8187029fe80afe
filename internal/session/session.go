// Package session はログインセッションの発行・解決・破棄を提供します。
//
// クライアントに渡すのは推測不能な不透明トークンのみで、トークンとユーザー名の対応は
// サーバー側のストア（Redis またはメモリ）に保存します。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound はトークンに対応するセッションが存在しない（期限切れを含む）場合に返されます。
var ErrNotFound = errors.New("session not found")

const tokenBytes = 32

// Session はログインセッションを表します。
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired は now 時点で期限切れかどうかを返します。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store はセッションの保存先です。
type Store interface {
	// Create は username に紐づく新しいセッションを発行します。
	Create(ctx context.Context, username string) (*Session, error)
	// Resolve はトークンからセッションを取得します。存在しなければ ErrNotFound を返します。
	Resolve(ctx context.Context, token string) (*Session, error)
	// Destroy はセッションを破棄します。存在しないトークンでもエラーにはなりません。
	Destroy(ctx context.Context, token string) error
}

func newSession(username string, ttl time.Duration) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
