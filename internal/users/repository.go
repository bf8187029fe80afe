package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourusername/session-gate/internal/storage"
)

// Repository はユーザーの永続化を担います。
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// SQLRepository は storage.DB 上の Repository 実装です。SQLite と PostgreSQL の両方で動きます。
type SQLRepository struct {
	db *storage.DB
}

// NewSQLRepository は SQLRepository を作成します。
func NewSQLRepository(db *storage.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create はユーザーを保存します。ユーザー名が重複している場合は ErrAlreadyExists を返します。
func (r *SQLRepository) Create(ctx context.Context, user *User) error {
	query := r.db.Rebind(
		`INSERT INTO users (id, username, password_hash, password_salt, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.PasswordSalt, user.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByUsername はユーザー名でユーザーを取得します。存在しない場合は ErrNotFound を返します。
func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := r.db.Rebind(
		`SELECT id, username, password_hash, password_salt, created_at
		 FROM users
		 WHERE username = ?`,
	)

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.PasswordSalt, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Count は登録済みユーザー数を返します。
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
