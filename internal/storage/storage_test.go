package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", ":memory:", time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, DialectSQLite, db.Dialect())

	var count int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Zero(t, count)
}

func TestOpenSQLiteFileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gate.db")

	db, err := Open(context.Background(), "SQLite", path, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// マイグレーション済みのDBを開き直しても失敗しない
	db, err = Open(context.Background(), "sqlite", path, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongodb", "mongodb://127.0.0.1:27017/MyDatabase", time.Second, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t,
		"SELECT id FROM users WHERE username = $1 AND id = $2",
		pg.Rebind("SELECT id FROM users WHERE username = ? AND id = ?"),
	)

	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t,
		"SELECT id FROM users WHERE username = ?",
		lite.Rebind("SELECT id FROM users WHERE username = ?"),
	)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", ":memory:", time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	insert := `INSERT INTO users (id, username, password_hash, password_salt, created_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	_, err = db.ExecContext(context.Background(), insert, "a", "paul", []byte{1}, []byte{2}, now)
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), insert, "b", "paul", []byte{1}, []byte{2}, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
