// Package session はセッションゲートを提供する。
// セッション変更通知を購読し、最初の通知が届くまで描画を保留する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/albumdeck/internal/auth"
	"github.com/hitoshi/albumdeck/internal/middleware"
	"github.com/hitoshi/albumdeck/internal/model"
)

// CookieName はセッションIDを保持するCookieの名前。
const CookieName = "session_id"

// LoginPath は未認証時のリダイレクト先。
const LoginPath = "/login"

// IdentityService はゲートが必要とする認証サービスの操作。
type IdentityService interface {
	SubscribeSessionChanges(ctx context.Context, fn auth.SessionListener) (func(), error)
	CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error)
}

// DefaultCacheTTL はキャッシュしたIdentityをセッションストアで再確認するまでの時間。
const DefaultCacheTTL = 30 * time.Second

// cachedIdentity はキャッシュしたIdentityと最後にストアで確認した時刻。
type cachedIdentity struct {
	identity  *model.Identity
	checkedAt time.Time
}

// Gate はリクエストごとに訪問者のIdentityを解決する。
//
// 変更通知は同一プロセス内のサインアウトしか届かないため、
// キャッシュはcacheTTLごとにセッションストアで再確認する。
// 複数レプリカで共有ストアを使う場合も、他レプリカでのサインアウトはcacheTTL以内に反映される。
type Gate struct {
	svc      IdentityService
	logger   *slog.Logger
	now      func() time.Time
	cacheTTL time.Duration

	mu          sync.RWMutex
	ready       bool
	identities  map[string]cachedIdentity // key: セッションID
	unsubscribe func()
	closed      bool
}

// GateOption はGateのオプション。
type GateOption func(*Gate)

// WithCacheTTL はキャッシュの再確認間隔を設定する。0以下の場合は毎リクエストでストアを確認する。
func WithCacheTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		g.cacheTTL = ttl
	}
}

// NewGate はGateを生成する。Startを呼ぶまでゲートは準備完了にならない。
func NewGate(svc IdentityService, logger *slog.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		svc:        svc,
		logger:     logger,
		now:        time.Now,
		cacheTTL:   DefaultCacheTTL,
		identities: make(map[string]cachedIdentity),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start はセッション変更通知を購読する。
func (g *Gate) Start(ctx context.Context) error {
	unsubscribe, err := g.svc.SubscribeSessionChanges(ctx, g.handleSessionEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe session changes: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		unsubscribe()
		return nil
	}
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	g.unsubscribe = unsubscribe
	return nil
}

func (g *Gate) handleSessionEvent(ev auth.SessionEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready {
		g.ready = true
		g.logger.Info("セッションゲートの準備が完了しました", slog.String("reason", string(ev.Reason)))
	}
	if ev.SessionID == "" {
		return
	}
	if ev.Identity == nil {
		delete(g.identities, ev.SessionID)
		return
	}
	g.identities[ev.SessionID] = cachedIdentity{identity: ev.Identity, checkedAt: g.now()}
}

// Ready は最初のセッション通知を受け取ったかどうかを返す。
func (g *Gate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// Close は購読を解除する。2回目以降は何もしない。
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// Middleware はCookieのセッションIDからIdentityを解決し、コンテキストに注入する。
// 最初のセッション通知が届くまでは503 Service Unavailableを返す。
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Ready() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := g.resolve(r.Context(), cookie.Value)
		if err != nil {
			g.logger.Error("failed to resolve session",
				slog.String("error", err.Error()),
			)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if ident == nil {
			next.ServeHTTP(w, r)
			return
		}

		middleware.SetUserID(r.Context(), ident.UserID)
		ctx := ContextWithIdentity(r.Context(), cookie.Value, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve はキャッシュ、次にセッションストアの順でIdentityを引く。
// 期限切れのキャッシュは破棄し、cacheTTLを過ぎたキャッシュはストアで再確認する。
func (g *Gate) resolve(ctx context.Context, sessionID string) (*model.Identity, error) {
	now := g.now()

	g.mu.RLock()
	cached, ok := g.identities[sessionID]
	g.mu.RUnlock()

	if ok {
		if cached.identity.Expired(now) {
			g.forget(sessionID)
			return nil, nil
		}
		if now.Sub(cached.checkedAt) < g.cacheTTL {
			return cached.identity, nil
		}
	}

	ident, err := g.svc.CurrentIdentity(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		if ok {
			g.logger.Info("ストアにないセッションのキャッシュを破棄しました")
			g.forget(sessionID)
		}
		return nil, nil
	}

	g.mu.Lock()
	g.identities[sessionID] = cachedIdentity{identity: ident, checkedAt: now}
	g.mu.Unlock()
	return ident, nil
}

func (g *Gate) forget(sessionID string) {
	g.mu.Lock()
	delete(g.identities, sessionID)
	g.mu.Unlock()
}

// RequireAuth はIdentityのないリクエストを/loginへリダイレクトする。
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CachedSessions はキャッシュ中のセッション数を返す。
func (g *Gate) CachedSessions() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.identities)
}
