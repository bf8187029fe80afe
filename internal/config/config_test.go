package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GIN_MODE", "LOG_LEVEL", "SESSION_SECRET", "SESSION_STORE", "SESSION_REDIS_URL",
		"SESSION_MAX_AGE_MINUTES", "STORE_DRIVER", "STORE_DSN", "STORE_CONNECT_TIMEOUT_SECONDS",
		"SEED_DEMO_USERS", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.StoreDriver != StoreDriverSQLite {
		t.Fatalf("unexpected store driver: %s", cfg.StoreDriver)
	}
	if cfg.SessionStore != SessionStoreMemory {
		t.Fatalf("unexpected session store: %s", cfg.SessionStore)
	}
	if !cfg.SeedDemoUsers {
		t.Fatal("expected demo seeding to be enabled by default")
	}
	if cfg.SessionMaxAge() != 12*time.Hour {
		t.Fatalf("unexpected session max age: %s", cfg.SessionMaxAge())
	}
	if cfg.StoreConnectTimeout() != 5*time.Second {
		t.Fatalf("unexpected connect timeout: %s", cfg.StoreConnectTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("STORE_DSN", "postgres://gate@localhost/gate")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SEED_DEMO_USERS", "false")
	t.Setenv("SESSION_MAX_AGE_MINUTES", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8081" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("unexpected store driver: %s", cfg.StoreDriver)
	}
	if cfg.SessionStore != SessionStoreRedis {
		t.Fatalf("unexpected session store: %s", cfg.SessionStore)
	}
	if cfg.SeedDemoUsers {
		t.Fatal("expected demo seeding to be disabled")
	}
	if cfg.SessionMaxAge() != 30*time.Minute {
		t.Fatalf("unexpected session max age: %s", cfg.SessionMaxAge())
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "http://a.example" || origins[1] != "http://b.example" {
		t.Fatalf("unexpected origins: %#v", origins)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "3000",
			GinMode:           "debug",
			SessionStore:      SessionStoreMemory,
			SessionMaxAgeMins: 60,
			StoreDriver:       StoreDriverSQLite,
			StoreDSN:          ":memory:",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.StoreDSN = "" }, wantErr: true},
		{name: "unknown session store", mutate: func(c *Config) { c.SessionStore = "file" }, wantErr: true},
		{name: "redis without url", mutate: func(c *Config) {
			c.SessionStore = SessionStoreRedis
			c.SessionRedisURL = ""
		}, wantErr: true},
		{name: "non-positive max age", mutate: func(c *Config) { c.SessionMaxAgeMins = 0 }, wantErr: true},
		{name: "release without secret", mutate: func(c *Config) { c.GinMode = "release" }, wantErr: true},
		{name: "release with secret", mutate: func(c *Config) {
			c.GinMode = "release"
			c.SessionSecret = "s3cret"
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
