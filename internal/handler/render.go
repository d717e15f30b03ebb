package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageMeta は全ページ共通の描画データ。
type pageMeta struct {
	Title     string
	Refresh   bool
	CSRFToken string
}

// Renderer は埋め込みテンプレートからHTMLページを描画する。
type Renderer struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// NewRenderer は埋め込みテンプレートをパースしてRendererを生成する。
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, logger: logger}, nil
}

// MustNewRenderer はNewRendererのパニック版。テンプレートは埋め込みのため起動時にのみ失敗しうる。
func MustNewRenderer(logger *slog.Logger) *Renderer {
	r, err := NewRenderer(logger)
	if err != nil {
		panic(err)
	}
	return r
}

// Render はテンプレートnameをバッファに描画してから書き出す。
// 描画に失敗した場合は部分的なHTMLを返さず500にする。
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		rd.logger.Error("テンプレートの描画に失敗しました",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
