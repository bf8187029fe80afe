// Package storage はユーザーストア用のデータベース接続とマイグレーションを提供します。
//
// SQLite（既定）と PostgreSQL の2種類に対応し、どちらも database/sql 経由で扱います。
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" ドライバーの登録
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect は接続先データベースの方言を表します。
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnsupportedDriver は未対応のドライバー名が指定された場合に返されます。
var ErrUnsupportedDriver = errors.New("unsupported store driver")

// DB は方言情報付きのデータベースハンドルです。
type DB struct {
	*sql.DB
	dialect Dialect
}

// Dialect は接続先の方言を返します。
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Rebind は "?" プレースホルダーを方言に合わせて書き換えます。
func (d *DB) Rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open はユーザーストアへ接続し、疎通確認とマイグレーションを行います。
// 接続確認は timeout で打ち切られ、確認できない場合はエラーを返します。
func Open(ctx context.Context, driver, dsn string, timeout time.Duration, logger *slog.Logger) (*DB, error) {
	var (
		dialect    Dialect
		driverName string
	)
	switch Dialect(strings.ToLower(driver)) {
	case DialectSQLite:
		dialect, driverName = DialectSQLite, "sqlite"
		var err error
		if dsn, err = prepareSQLite(dsn); err != nil {
			return nil, err
		}
	case DialectPostgres:
		dialect, driverName = DialectPostgres, "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	handle, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handle: %w", err)
	}
	if dialect == DialectSQLite {
		// :memory: は接続ごとに別DBになるため単一接続に固定する
		handle.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", dialect, err)
	}

	db := &DB{DB: handle, dialect: dialect}
	if err := db.migrate(ctx, logger); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate(ctx context.Context, logger *slog.Logger) error {
	var (
		gooseDialect goose.Dialect
		dir          string
	)
	switch d.dialect {
	case DialectPostgres:
		gooseDialect, dir = goose.DialectPostgres, "migrations/postgres"
	default:
		gooseDialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	provider, err := goose.NewProvider(gooseDialect, d.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate %s store: %w", d.dialect, err)
	}
	if logger != nil {
		for _, r := range results {
			logger.InfoContext(ctx, "applied migration",
				slog.String("dialect", string(d.dialect)),
				slog.String("source", r.Source.Path),
				slog.Duration("duration", r.Duration),
			)
		}
	}
	return nil
}

func prepareSQLite(dsn string) (string, error) {
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "file:")
	if path != ":memory:" && path != "" {
		if _, err := os.Stat(path); err != nil {
			const userOnlyDirPerms = 0o700
			if err := os.MkdirAll(filepath.Dir(path), userOnlyDirPerms); err != nil {
				return "", fmt.Errorf("failed to create db parent directory: %w", err)
			}
		}
	}

	if strings.ContainsRune(dsn, '?') {
		dsn += "&"
	} else {
		dsn += "?"
	}
	return dsn + "_time_format=sqlite&_pragma=busy_timeout(5000)", nil
}

// IsUniqueViolation は一意制約違反のエラーかどうかを判定します。
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
