package main

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// prompt は端末ならプロンプトを表示して1行読み込みます。mask が true なら入力を表示しません。
func prompt(message string, mask bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if _, err := os.Stderr.WriteString(message); err != nil {
			return nil, err
		}
		if mask {
			line, err := term.ReadPassword(fd)
			_, _ = os.Stderr.WriteString("\n")
			return line, err
		}
	}
	return readLine(os.Stdin)
}

// readLine は改行までを読み込みます。末尾の \r は取り除きます。
func readLine(r io.Reader) ([]byte, error) {
	var (
		buf [1]byte
		ret []byte
	)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			switch buf[0] {
			case '\n':
				return ret, nil
			case '\r':
			default:
				ret = append(ret, buf[0])
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(ret) > 0 {
				return ret, nil
			}
			return ret, err
		}
	}
}
