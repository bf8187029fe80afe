// Package users はユーザーの登録と資格情報の検証を提供します。
package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound はユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists は同じユーザー名が登録済みの場合に返されます。
	ErrAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合に返されます。
	// 「存在しないユーザー」と「パスワード誤り」を区別しません。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidInput は登録内容が不正な場合に返されます。
	ErrInvalidInput = errors.New("invalid input")
)

// User はユーザーストアに保存されるユーザーです。
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	PasswordSalt []byte
	CreatedAt    time.Time
}

// PublicUser はクライアントへ返すユーザー情報です。ハッシュやソルトは含みません。
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public は公開用の表現を返します。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
