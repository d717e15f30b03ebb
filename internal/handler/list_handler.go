package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/albumdeck/internal/listview"
	"github.com/hitoshi/albumdeck/internal/model"
	"github.com/hitoshi/albumdeck/internal/session"
)

// ListHandlerConfig はリストページの設定。
type ListHandlerConfig struct {
	UsersPageSize  int
	AlbumsPageSize int
	PhotosPageSize int
	// RenderWait はフェッチ完了を待ってから描画する最大時間。
	// 超えた場合はローディング表示を返し、ページの自動再読み込みに任せる。
	RenderWait time.Duration
}

// ListHandler はユーザー、アルバム、写真の一覧ページのHTTPハンドラー。
type ListHandler struct {
	source   listview.Source
	registry *listview.Registry
	renderer *Renderer
	config   ListHandlerConfig
	logger   *slog.Logger
}

// NewListHandler はListHandlerを生成する。
func NewListHandler(source listview.Source, registry *listview.Registry, renderer *Renderer, config ListHandlerConfig, logger *slog.Logger) *ListHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListHandler{
		source:   source,
		registry: registry,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

// listPage はリストページの描画データ。
type listPage[T any] struct {
	pageMeta
	Snapshot    listview.Snapshot[T]
	Path        string
	Placeholder string
	AlbumID     int
}

// Ready はリストを描画できる状態かどうかを返す。
func (p *listPage[T]) Ready() bool {
	return !p.Snapshot.Loading && p.Snapshot.Error == ""
}

// Users はユーザー一覧を表示する。
// GET /users?q=...&nav=next|prev
func (h *ListHandler) Users(w http.ResponseWriter, r *http.Request) {
	v := listview.Acquire(r.Context(), h.registry, session.SessionIDFromContext(r.Context()), "users",
		func() *listview.View[model.User] {
			return listview.NewUsersView(h.source, h.config.UsersPageSize, h.logger)
		})
	serveList(h, w, r, v, &listPage[model.User]{
		pageMeta:    pageMeta{Title: "Users"},
		Path:        "/users",
		Placeholder: "Search users by name, email or ID...",
	}, "users")
}

// Albums はアルバム一覧を表示する。
// GET /albums?q=...&nav=next|prev
func (h *ListHandler) Albums(w http.ResponseWriter, r *http.Request) {
	v := listview.Acquire(r.Context(), h.registry, session.SessionIDFromContext(r.Context()), "albums",
		func() *listview.View[model.Album] {
			return listview.NewAlbumsView(h.source, h.config.AlbumsPageSize, h.logger)
		})
	serveList(h, w, r, v, &listPage[model.Album]{
		pageMeta:    pageMeta{Title: "Albums"},
		Path:        "/albums",
		Placeholder: "Search albums by title or ID...",
	}, "albums")
}

// Photos は写真一覧を表示する。URLにアルバムIDがある場合はそのアルバムの写真に絞る。
// GET /photos, GET /photos/{albumId}
func (h *ListHandler) Photos(w http.ResponseWriter, r *http.Request) {
	albumID := 0
	path := "/photos"
	key := "photos"
	if raw := chi.URLParam(r, "albumId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}
		albumID = id
		path = "/photos/" + strconv.Itoa(id)
		key = "photos:" + strconv.Itoa(id)
	}

	v := listview.Acquire(r.Context(), h.registry, session.SessionIDFromContext(r.Context()), key,
		func() *listview.View[model.Photo] {
			return listview.NewPhotosView(h.source, h.config.PhotosPageSize, albumID, h.logger)
		})
	serveList(h, w, r, v, &listPage[model.Photo]{
		pageMeta:    pageMeta{Title: "Photos"},
		Path:        path,
		Placeholder: "Search photos by title or ID...",
		AlbumID:     albumID,
	}, "photos")
}

// serveList は検索語とページ送りを適用してから一覧を描画する。
// q または nav を受け取った場合は状態を更新して素のパスへリダイレクトし、
// 再読み込みで同じ操作が繰り返されないようにする。
func serveList[T any](h *ListHandler, w http.ResponseWriter, r *http.Request, v *listview.View[T], page *listPage[T], name string) {
	query := r.URL.Query()
	if query.Has("q") || query.Has("nav") {
		if query.Has("q") {
			v.SetQuery(strings.TrimSpace(query.Get("q")))
		}
		switch query.Get("nav") {
		case "next":
			v.Next()
		case "prev":
			v.Prev()
		}
		http.Redirect(w, r, page.Path, http.StatusSeeOther)
		return
	}

	if h.config.RenderWait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.config.RenderWait)
		_ = v.Wait(ctx)
		cancel()
	}

	page.Snapshot = v.Snapshot()
	page.Refresh = page.Snapshot.Loading
	h.renderer.Render(w, http.StatusOK, name, page)
}
