// Package logging はアプリケーション全体で使う構造化ロガーを提供します。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// New は標準エラー出力に書き込むロガーを作成します。
// 端末上ではテキスト形式、それ以外では JSON 形式で出力します。
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewWithWriter は出力先と形式を指定してロガーを作成します。
func NewWithWriter(w io.Writer, level string, text bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel はログレベル文字列を slog.Level に変換します。未知の値は Info 扱いです。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
