// Package render はHTMLテンプレートの描画を提供する。
//
// テンプレートはバイナリに埋め込み、起動時にページごとのテンプレートセット
// （layout + partials + ページ本体）として一度だけ解析する。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/yatube/internal/model"
)

//go:embed templates
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsGlob = "templates/partials/*.html"
)

// View は全ページ共通のテンプレートデータ。
// Dataにはページ固有の値を入れる。
type View struct {
	Title     string
	User      *model.User // 未ログインならnil
	CSRFToken string
	Data      any
}

// ErrorPage はエラーページ（core/403, 404, 500）のデータ。
type ErrorPage struct {
	Path    string
	Message string
}

// Renderer は解析済みのテンプレートを保持する。並行利用して安全。
type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// New はテンプレートを解析してRendererを生成する。
// mediaURLはアップロード画像の相対パスを配信URLに変換する関数。
func New(mediaURL func(string) string) (*Renderer, error) {
	funcs := template.FuncMap{
		"mediaURL": mediaURL,
		"date": func(t time.Time) string {
			return t.Format("2006年1月2日 15:04")
		},
	}

	partials, err := template.New("partials").Funcs(funcs).ParseFS(templateFS, partialsGlob)
	if err != nil {
		return nil, fmt.Errorf("部分テンプレートの解析に失敗しました: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template), partials: partials}
	err = fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || strings.HasPrefix(p, "templates/partials/") || path.Ext(p) != ".html" {
			return nil
		}
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, partialsGlob, p)
		if err != nil {
			return fmt.Errorf("テンプレート %s の解析に失敗しました: %w", p, err)
		}
		r.pages[strings.TrimPrefix(p, "templates/")] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Page はページを描画してレスポンスに書き込む。
// 描画はバッファ上で完了させ、失敗時は何も書き込まずにエラーを返す。
func (r *Renderer) Page(w http.ResponseWriter, status int, name string, view View) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("テンプレート %s が見つかりません", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, path.Base(layoutFile), view); err != nil {
		return fmt.Errorf("テンプレート %s の描画に失敗しました: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Fragment は部分テンプレートを描画してバイト列で返す。
// トップページのキャッシュに載せる断片の生成に使う。
func (r *Renderer) Fragment(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.partials.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("部分テンプレート %s の描画に失敗しました: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Has は指定したページテンプレートが存在するかを返す。
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
