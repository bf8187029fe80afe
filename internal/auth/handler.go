package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/session-gate/internal/users"
)

// ログイン画面に表示するメッセージ。失敗理由は区別しない。
const (
	invalidCredentialsMessage = "Invalid username or password"
	loginUnavailableMessage   = "Login failed, please try again"
)

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login は POST /login のハンドラーです。フォームと JSON の両方を受け付けます。
func (m *Manager) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectToLogin(c, invalidCredentialsMessage)
		return
	}

	user, err := m.users.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			m.logger.InfoContext(ctx, "login rejected", slog.String("username", req.Username))
			redirectToLogin(c, invalidCredentialsMessage)
			return
		}
		m.logger.ErrorContext(ctx, "failed to verify credentials",
			slog.String("username", req.Username),
			slog.Any("error", err),
		)
		redirectToLogin(c, loginUnavailableMessage)
		return
	}

	store := sessions.Default(c)
	if previous := tokenFrom(store); previous != "" {
		if err := m.sessions.Destroy(ctx, previous); err != nil {
			m.logger.WarnContext(ctx, "failed to destroy previous session", slog.Any("error", err))
		}
	}

	sess, err := m.sessions.Create(ctx, user.Username)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to create session",
			slog.String("username", user.Username),
			slog.Any("error", err),
		)
		redirectToLogin(c, loginUnavailableMessage)
		return
	}

	store.Clear()
	store.Options(m.CookieOptions())
	store.Set(sessionKeyToken, sess.Token)
	if err := store.Save(); err != nil {
		m.logger.ErrorContext(ctx, "failed to save session cookie", slog.Any("error", err))
		_ = m.sessions.Destroy(ctx, sess.Token)
		redirectToLogin(c, loginUnavailableMessage)
		return
	}

	m.logger.InfoContext(ctx, "login succeeded", slog.String("username", user.Username))
	c.Redirect(http.StatusFound, homePath)
}

// Logout は GET /logout のハンドラーです。サーバー側のセッションを破棄し、
// 結果に関係なくクッキーを消してから後続のハンドラー（ログアウト画面）に進みます。
func (m *Manager) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	store := sessions.Default(c)

	if token := tokenFrom(store); token != "" {
		if err := m.sessions.Destroy(ctx, token); err != nil {
			m.logger.WarnContext(ctx, "failed to destroy session", slog.Any("error", err))
		}
	}
	m.clearCookie(c, store)
	c.Next()
}

// CurrentUser は GET /user のハンドラーです。
func (m *Manager) CurrentUser(c *gin.Context) {
	user, ok := UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ログインが必要です",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func redirectToLogin(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, loginPath+"?info="+url.QueryEscape(message))
}
