package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/albumdeck/internal/listview"
	"github.com/hitoshi/albumdeck/internal/middleware"
	"github.com/hitoshi/albumdeck/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Renderer *Renderer

	// ミドルウェア依存
	Gate        *session.Gate
	RateLimiter *middleware.RateLimiter
	CSRF        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// リストビュー
	Source     listview.Source
	Registry   *listview.Registry
	ListConfig ListHandlerConfig

	// 運用エンドポイント
	Health  http.Handler
	Metrics http.Handler
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → SecurityHeaders → CSRF → Gate
//
// /health と /metrics はCSRFとゲートの外に配置する。
// 認証が必要なルートはさらに RequireAuth → RateLimit(General) を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = MustNewRenderer(logger)
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	if deps.Health != nil {
		r.Method(http.MethodGet, "/health", deps.Health)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	authHandler := NewAuthHandler(deps.AuthService, renderer, deps.AuthConfig, logger)
	pageHandler := NewPageHandler(renderer, deps.Registry)
	listHandler := NewListHandler(deps.Source, deps.Registry, renderer, deps.ListConfig, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.Gate.Middleware)

		// --- 認証不要のルート ---
		r.Get("/", pageHandler.Landing)
		r.Get("/login", authHandler.LoginPage)
		r.Get("/register", authHandler.RegisterPage)
		r.Post("/logout", authHandler.Logout)

		// 認証フォーム送信（クライアントIP単位のレート制限）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.CredentialMiddleware())
			r.Post("/login", authHandler.Login)
			r.Post("/login/reset", authHandler.ResetPassword)
			r.Post("/register", authHandler.Register)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: RequireAuth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(deps.Gate.RequireAuth)
			r.Use(deps.RateLimiter.GeneralMiddleware(identityKey))

			r.Get("/home", pageHandler.Home)
			r.Get("/users", listHandler.Users)
			r.Get("/albums", listHandler.Albums)
			r.Get("/photos", listHandler.Photos)
			r.Get("/photos/{albumId}", listHandler.Photos)
		})
	})

	return r
}

// identityKey は認証済みユーザーのIDをレート制限のキーにする。
func identityKey(r *http.Request) (string, bool) {
	ident := session.IdentityFromContext(r.Context())
	if ident == nil {
		return "", false
	}
	return ident.UserID, true
}
