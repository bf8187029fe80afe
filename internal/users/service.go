package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxUsernameLen = 64

// Service はユーザー登録と資格情報の検証を提供します。
type Service struct {
	repo Repository
	// 存在しないユーザーでもハッシュ計算を行い、応答時間からユーザーの有無を推測させない
	dummySalt []byte
	dummyHash []byte
}

// NewService は Service を作成します。
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &Service{
		repo:      repo,
		dummySalt: salt,
		dummyHash: HashPassword("", salt),
	}, nil
}

// Register は新しいユーザーを登録します。シードや CLI からの登録もここを通ります。
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: HashPassword(password, salt),
		PasswordSalt: salt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Verify はユーザー名とパスワードを検証し、一致すればユーザーを返します。
// 不一致とユーザー不在はどちらも ErrInvalidCredentials になります。
func (s *Service) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ComparePassword(password, s.dummySalt, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !ComparePassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを取得します。
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Count は登録済みユーザー数を返します。
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case len(username) > maxUsernameLen:
		return fmt.Errorf("%w: username must be at most %d bytes", ErrInvalidInput, maxUsernameLen)
	case strings.TrimSpace(username) != username:
		return fmt.Errorf("%w: username must not have surrounding whitespace", ErrInvalidInput)
	}
	return nil
}
