package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/session-gate/internal/auth"
	"github.com/yourusername/session-gate/internal/config"
	"github.com/yourusername/session-gate/internal/logging"
	"github.com/yourusername/session-gate/internal/pages"
	"github.com/yourusername/session-gate/internal/seed"
	"github.com/yourusername/session-gate/internal/session"
	"github.com/yourusername/session-gate/internal/storage"
	"github.com/yourusername/session-gate/internal/users"
)

// app は起動時に組み立てる依存関係をまとめたものです。
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *storage.DB
	redis    *redis.Client
	users    *users.Service
	sessions session.Store
}

// openApp はユーザーストアとセッションストアに接続します。どちらかに接続できなければエラーを返します。
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a, err := openStoreOnly(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.openSessions(ctx); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

// openStoreOnly はユーザーストアだけに接続します。CLI のサブコマンド用です。
func openStoreOnly(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := storage.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, cfg.StoreConnectTimeout(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}
	svc, err := users.NewService(users.NewSQLRepository(db))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "user store ready", slog.String("driver", string(db.Dialect())))
	return &app{cfg: cfg, logger: logger, db: db, users: svc}, nil
}

func (a *app) openSessions(ctx context.Context) error {
	switch a.cfg.SessionStore {
	case config.SessionStoreRedis:
		opt, err := redis.ParseURL(a.cfg.SessionRedisURL)
		if err != nil {
			return fmt.Errorf("invalid SESSION_REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreConnectTimeout())
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("failed to connect to session redis: %w", err)
		}
		a.redis = rdb
		a.sessions = session.NewRedisStore(rdb, a.cfg.SessionMaxAge())
	default:
		a.sessions = session.NewMemoryStore(a.cfg.SessionMaxAge())
	}
	a.logger.InfoContext(ctx, "session store ready", slog.String("kind", a.cfg.SessionStore))
	return nil
}

func (a *app) seed(ctx context.Context) error {
	return seed.NewSeeder(a.users, nil, a.logger).Run(ctx)
}

// Close は開いている接続をすべて閉じます。
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// router はミドルウェアとルーティングを設定した gin エンジンを返します。
func (a *app) router() (*gin.Engine, error) {
	if a.sessions == nil {
		return nil, errors.New("session store is not initialized")
	}

	p, err := pages.New()
	if err != nil {
		return nil, err
	}

	secure := a.cfg.GinMode == gin.ReleaseMode
	authManager, err := auth.NewManager(a.users, a.sessions, auth.Options{
		MaxAge: a.cfg.SessionMaxAge(),
		Secure: secure,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	key, err := a.cookieKey()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(a.logger))

	// クッキーには署名付きのトークンだけを載せる
	store := cookie.NewStore(key)
	store.Options(authManager.CookieOptions())
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	if origins := a.cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/health", handleHealth)

	router.GET("/login", p.Serve(pages.Login))
	router.POST("/login", authManager.Login)
	router.GET("/logout", authManager.Logout, p.Serve(pages.Logout))

	router.GET("/", authManager.RequirePage(), p.Serve(pages.Index))
	router.GET("/private", authManager.RequirePage(), p.Serve(pages.Private))
	router.GET("/user", authManager.RequireAPI(), authManager.CurrentUser)

	router.NoRoute(p.Static())
	return router, nil
}

// cookieKey はクッキー署名鍵を返します。未設定なら起動ごとにランダムな鍵を生成します（再起動でログアウトされます）。
func (a *app) cookieKey() ([]byte, error) {
	if a.cfg.SessionSecret != "" {
		return []byte(a.cfg.SessionSecret), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate cookie key: %w", err)
	}
	a.logger.Warn("SESSION_SECRET is not set, using a random per-process key")
	return key, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "session-gate",
	})
}
