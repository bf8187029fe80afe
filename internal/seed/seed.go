// Package seed はストアが空のときにデモ用アカウントを登録します。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourusername/session-gate/internal/users"
)

// Account はデモ用アカウントです。
type Account struct {
	Username string
	Password string
}

// DemoAccounts は初回起動時に登録されるアカウントです。
// パスワードがユーザー名と同じなのはデモ用途のためで、本番では無効化すること。
var DemoAccounts = []Account{
	{Username: "paul", Password: "paul"},
	{Username: "joy", Password: "joy"},
	{Username: "ray", Password: "ray"},
}

// Registrar はユーザー登録の窓口です。users.Service が実装します。
type Registrar interface {
	Register(ctx context.Context, username, password string) (*users.User, error)
	Count(ctx context.Context) (int, error)
}

// Seeder はデモアカウントの登録を行います。
type Seeder struct {
	users    Registrar
	accounts []Account
	logger   *slog.Logger
}

// NewSeeder は Seeder を作成します。accounts が nil の場合は DemoAccounts を使います。
func NewSeeder(registrar Registrar, accounts []Account, logger *slog.Logger) *Seeder {
	if accounts == nil {
		accounts = DemoAccounts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		users:    registrar,
		accounts: accounts,
		logger:   logger,
	}
}

// Run はストアにユーザーが1人もいない場合だけアカウントを登録します。
// 1件の登録に失敗しても残りの登録は続け、失敗はまとめて返します。
func (s *Seeder) Run(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "users already exist, seeding skipped", slog.Int("count", count))
		return nil
	}

	var errs []error
	for _, account := range s.accounts {
		if _, err := s.users.Register(ctx, account.Username, account.Password); err != nil {
			s.logger.ErrorContext(ctx, "failed to register demo user",
				slog.String("username", account.Username),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("register %s: %w", account.Username, err))
			continue
		}
		s.logger.InfoContext(ctx, "registered demo user", slog.String("username", account.Username))
	}
	return errors.Join(errs...)
}
