package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/session-gate/internal/session"
	"github.com/yourusername/session-gate/internal/users"
)

var errUnauthenticated = errors.New("unauthenticated")

// RequirePage はページ用の認可ミドルウェアです。未ログインなら /login へリダイレクトします。
func (m *Manager) RequirePage() gin.HandlerFunc {
	return m.requireLogin(func(c *gin.Context) {
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
	})
}

// RequireAPI はデータ用の認可ミドルウェアです。未ログインなら 401 を返します。
func (m *Manager) RequireAPI() gin.HandlerFunc {
	return m.requireLogin(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ログインが必要です",
		})
	})
}

func (m *Manager) requireLogin(deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.authenticate(c)
		if err != nil {
			if errors.Is(err, errUnauthenticated) {
				deny(c)
				return
			}
			m.logger.ErrorContext(c.Request.Context(), "failed to authenticate request", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "セッションの確認に失敗しました",
			})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// authenticate はクッキーのトークンからユーザーを解決します。
// トークンが無効な場合や参照先のユーザーが消えている場合は errUnauthenticated を返します。
func (m *Manager) authenticate(c *gin.Context) (*users.User, error) {
	ctx := c.Request.Context()
	store := sessions.Default(c)

	token := tokenFrom(store)
	if token == "" {
		return nil, errUnauthenticated
	}

	sess, err := m.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			m.clearCookie(c, store)
			return nil, errUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	user, err := m.users.FindByUsername(ctx, sess.Username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.logger.WarnContext(ctx, "session references missing user", slog.String("username", sess.Username))
			if err := m.sessions.Destroy(ctx, token); err != nil {
				m.logger.WarnContext(ctx, "failed to destroy stale session", slog.Any("error", err))
			}
			m.clearCookie(c, store)
			return nil, errUnauthenticated
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
