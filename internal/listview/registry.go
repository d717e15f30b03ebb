package listview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/albumdeck/internal/auth"
	"github.com/hitoshi/albumdeck/internal/metrics"
)

// Mountable はレジストリが管理するビューのライフサイクル操作。
type Mountable interface {
	ID() string
	Mount(ctx context.Context)
	Unmount()
}

// SessionSource はセッション変更通知の購読元。
type SessionSource interface {
	SubscribeSessionChanges(ctx context.Context, fn auth.SessionListener) (func(), error)
}

type registryEntry struct {
	key  string
	view Mountable
}

// Registry はセッションごとにマウント中のビューを1つだけ保持する。
// 別のキーのビューを要求された場合は古いビューをアンマウントして差し替える。
type Registry struct {
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu          sync.Mutex
	views       map[string]registryEntry // key: セッションID
	unsubscribe func()
	closed      bool
}

// NewRegistry はRegistryを生成する。
func NewRegistry(logger *slog.Logger, collector metrics.MetricsCollector) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Registry{
		logger:  logger,
		metrics: collector,
		views:   make(map[string]registryEntry),
	}
}

// Start はセッション変更通知を購読する。
// Identityがnilの通知を受けると、そのセッションのビューを解放する。
func (r *Registry) Start(ctx context.Context, src SessionSource) error {
	unsubscribe, err := src.SubscribeSessionChanges(ctx, r.handleSessionEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe session changes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		unsubscribe()
		return nil
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.unsubscribe = unsubscribe
	return nil
}

func (r *Registry) handleSessionEvent(ev auth.SessionEvent) {
	if ev.Identity != nil || ev.SessionID == "" {
		return
	}
	r.Release(ev.SessionID)
}

// Acquire はセッションのビューを返す。
// 同じキーのビューがマウント中ならそれを返し、そうでなければcreateで生成してマウントする。
func Acquire[T any](ctx context.Context, r *Registry, sessionID, key string, create func() *View[T]) *View[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.views[sessionID]; ok {
		if v, same := entry.view.(*View[T]); same && entry.key == key {
			return v
		}
		entry.view.Unmount()
		r.logger.Debug("ビューを差し替えました",
			slog.String("from", entry.key),
			slog.String("to", key),
		)
	}

	v := create()
	v.Mount(ctx)
	r.views[sessionID] = registryEntry{key: key, view: v}
	r.metrics.SetMountedViews(len(r.views))
	return v
}

// Release はセッションのビューをアンマウントして破棄する。
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.views[sessionID]
	if !ok {
		return
	}
	entry.view.Unmount()
	delete(r.views, sessionID)
	r.metrics.SetMountedViews(len(r.views))
}

// Len はマウント中のビュー数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close は購読を解除し、すべてのビューをアンマウントする。2回目以降は何もしない。
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	for id, entry := range r.views {
		entry.view.Unmount()
		delete(r.views, id)
	}
	r.metrics.SetMountedViews(0)
}
