// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストアのドライバー名です。
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// セッションストアの種別です。
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string // HTTPサーバーのポート番号
	GinMode  string // Ginの実行モード (debug, release, test)
	LogLevel string // ログレベル (debug, info, warn, error)

	// セッション設定
	SessionSecret     string // セッションクッキー署名用の秘密鍵
	SessionStore      string // セッションの保存先 (memory, redis)
	SessionRedisURL   string // セッション用Redis接続URL
	SessionMaxAgeMins int    // セッションの有効期限（分）

	// ストア設定
	StoreDriver            string // ユーザーストアのドライバー (sqlite, postgres)
	StoreDSN               string // ユーザーストアの接続先
	StoreConnectTimeoutSec int    // 起動時の接続タイムアウト（秒）

	// 起動時処理
	SeedDemoUsers bool // ストアが空のときにデモユーザーを登録するか

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:     getEnv("PORT", "3000"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionRedisURL:   getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),
		SessionMaxAgeMins: getEnvAsInt("SESSION_MAX_AGE_MINUTES", 720), // 12時間

		StoreDriver:            strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite)),
		StoreDSN:               getEnv("STORE_DSN", "data/session-gate.db"),
		StoreConnectTimeoutSec: getEnvAsInt("STORE_CONNECT_TIMEOUT_SECONDS", 5),

		SeedDemoUsers: getEnvAsBool("SEED_DEMO_USERS", true),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}

	switch c.StoreDriver {
	case StoreDriverSQLite, StoreDriverPostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is required")
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	if c.SessionMaxAgeMins <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_MINUTES must be positive")
	}

	// ローカル開発では署名鍵は任意（起動ごとに生成する）
	// 本番環境では必須とする
	if c.GinMode == "release" && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in release mode")
	}

	return nil
}

// SessionMaxAge はセッションの有効期限を返します。
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeMins) * time.Minute
}

// StoreConnectTimeout は起動時のストア接続タイムアウトを返します。
func (c *Config) StoreConnectTimeout() time.Duration {
	if c.StoreConnectTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.StoreConnectTimeoutSec) * time.Second
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
