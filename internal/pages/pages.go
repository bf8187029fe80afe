// Package pages は埋め込み済みの HTML ページと静的アセットを配信します。
package pages

import (
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

//go:embed web
var webFS embed.FS

// ページ名です。
const (
	Login   = "login"
	Index   = "index"
	Private = "private"
	Logout  = "logout"
)

type page struct {
	contentType string
	body        []byte
}

// Pages は HTML ページと静的アセットを保持します。
type Pages struct {
	pages  map[string]page
	static fs.FS
}

// New は埋め込みファイルから Pages を作成します。
func New() (*Pages, error) {
	root, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	return Load(root)
}

// Load は fsys の pages/ と static/ から Pages を作成します。
func Load(fsys fs.FS) (*Pages, error) {
	p := &Pages{pages: make(map[string]page)}
	for _, name := range []string{Login, Index, Private, Logout} {
		body, err := fs.ReadFile(fsys, "pages/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to load page %s: %w", name, err)
		}
		p.pages[name] = page{
			contentType: mimetype.Detect(body).String(),
			body:        body,
		}
	}

	static, err := fs.Sub(fsys, "static")
	if err != nil {
		return nil, err
	}
	p.static = static
	return p, nil
}

// Serve は name のページを返すハンドラーです。
func (p *Pages) Serve(name string) gin.HandlerFunc {
	pg, ok := p.pages[name]
	return func(c *gin.Context) {
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "ページが見つかりません",
			})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, pg.contentType, pg.body)
	}
}

// Static はルート直下の静的アセットを公開するハンドラーです。NoRoute に登録します。
func (p *Pages) Static() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
		if name == "" {
			notFound(c)
			return
		}

		// 存在しないパスもディレクトリも 404 として扱う
		body, err := fs.ReadFile(p.static, name)
		if err != nil {
			notFound(c)
			return
		}
		c.Data(http.StatusOK, contentTypeOf(name, body), body)
	}
}

func contentTypeOf(name string, body []byte) string {
	// CSS や JS は中身から判定できないため拡張子を優先する
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(body).String()
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "NOT_FOUND",
		"message": "リソースが見つかりません",
	})
}
