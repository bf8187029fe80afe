// Package auth はログイン・ログアウトとルートの認可を提供します。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/session-gate/internal/session"
	"github.com/yourusername/session-gate/internal/users"
)

const (
	// SessionCookieName はセッショントークンを運ぶクッキーの名前です。
	SessionCookieName = "gate_session"
	sessionKeyToken   = "session_token"

	// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
	ContextUserKey = "auth.user"

	loginPath = "/login"
	homePath  = "/"
)

// Verifier は資格情報の検証とユーザーの参照を行います。users.Service が実装します。
type Verifier interface {
	Verify(ctx context.Context, username, password string) (*users.User, error)
	FindByUsername(ctx context.Context, username string) (*users.User, error)
}

// Options はセッションクッキーの設定です。
type Options struct {
	MaxAge time.Duration
	Secure bool
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users    Verifier
	sessions session.Store
	opts     Options
	logger   *slog.Logger
}

// NewManager は認証マネージャーを作成します。
func NewManager(verifier Verifier, store session.Store, opts Options, logger *slog.Logger) (*Manager, error) {
	if verifier == nil {
		return nil, errors.New("verifier is nil")
	}
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 12 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		users:    verifier,
		sessions: store,
		opts:     opts,
		logger:   logger,
	}, nil
}

// CookieOptions はセッションクッキーの属性を返します。スクリプトからは読めない HttpOnly クッキーです。
func (m *Manager) CookieOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(m.opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// UserFromContext は RequirePage/RequireAPI が設定したユーザーを返します。
func UserFromContext(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*users.User)
	return user, ok && user != nil
}

// clearCookie はクライアント側のセッション参照を消します。保存に失敗しても期限切れクッキーを返します。
func (m *Manager) clearCookie(c *gin.Context, store sessions.Session) {
	store.Clear()
	opts := m.CookieOptions()
	opts.MaxAge = -1
	store.Options(opts)
	if err := store.Save(); err != nil {
		m.logger.WarnContext(c.Request.Context(), "failed to clear session cookie", slog.Any("error", err))
		c.SetSameSite(opts.SameSite)
		c.SetCookie(SessionCookieName, "", -1, opts.Path, "", opts.Secure, true)
	}
}

func tokenFrom(store sessions.Session) string {
	token, _ := store.Get(sessionKeyToken).(string)
	return token
}
