package handler

import (
	"net/http"

	"github.com/hitoshi/albumdeck/internal/middleware"
	"github.com/hitoshi/albumdeck/internal/session"
)

// ViewReleaser はセッションのリストビューを解放する。
type ViewReleaser interface {
	Release(sessionID string)
}

// PageHandler はランディングページとホームページのHTTPハンドラー。
type PageHandler struct {
	renderer *Renderer
	views    ViewReleaser
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer *Renderer, views ViewReleaser) *PageHandler {
	return &PageHandler{renderer: renderer, views: views}
}

type homePage struct {
	pageMeta
	Email string
}

// Landing はログインへのリンクを持つ案内ページを表示する。
// GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "landing", &pageMeta{Title: "Welcome"})
}

// Home は認証済みユーザーのナビゲーションページを表示する。
// リストビューから離れたため、セッションのビューをアンマウントする。
// GET /home
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if sid := session.SessionIDFromContext(r.Context()); sid != "" && h.views != nil {
		h.views.Release(sid)
	}

	page := &homePage{
		pageMeta: pageMeta{Title: "Home", CSRFToken: middleware.CSRFTokenFromContext(r.Context())},
	}
	if ident := session.IdentityFromContext(r.Context()); ident != nil {
		page.Email = ident.Email
	}
	h.renderer.Render(w, http.StatusOK, "home", page)
}
