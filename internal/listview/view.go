// Package listview はリモートコレクションを1回だけ取得し、
// 検索とページングを行うリストビューを提供する。
package listview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/albumdeck/internal/model"
)

// FetchFunc はコレクション全件を取得する。
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// View はセッションごとのリストビューの状態を保持する。
//
// マウント時に1回だけフェッチを開始し、完了までloadingはtrueのまま。
// 完了後にloadingがtrueに戻ることはない。アンマウント後に届いた結果は破棄する。
type View[T any] struct {
	id       string
	resource model.Resource
	pageSize int
	fetch    FetchFunc[T]
	match    MatchFunc[T]
	logger   *slog.Logger

	mu      sync.Mutex
	items   []T
	loading bool
	err     string
	page    int
	query   string
	mounted bool
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewView はViewを生成する。マウントするまでフェッチは行わない。
func NewView[T any](resource model.Resource, pageSize int, fetch FetchFunc[T], match MatchFunc[T], logger *slog.Logger) *View[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &View[T]{
		id:       uuid.New().String(),
		resource: resource,
		pageSize: pageSize,
		fetch:    fetch,
		match:    match,
		logger:   logger,
		page:     1,
		loading:  true,
		done:     make(chan struct{}),
	}
}

// ID はビューインスタンスの識別子を返す。
func (v *View[T]) ID() string { return v.id }

// Resource はビューが扱うリソース種別を返す。
func (v *View[T]) Resource() model.Resource { return v.resource }

// Mount はフェッチを開始する。フェッチはリクエストのキャンセルから切り離して実行する。
// 2回目以降の呼び出しは何もしない。
func (v *View[T]) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return
	}
	v.started = true
	v.mounted = true
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.cancel = cancel
	v.mu.Unlock()

	go v.run(fetchCtx)
}

func (v *View[T]) run(ctx context.Context) {
	defer close(v.done)

	items, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		v.logger.Debug("アンマウント後のフェッチ結果を破棄しました",
			slog.String("view_id", v.id),
			slog.String("resource", string(v.resource)),
		)
		return
	}
	v.cancel()

	v.loading = false
	if err != nil {
		v.err = v.resource.FetchErrorMessage()
		var ff *model.FetchFailure
		if errors.As(err, &ff) {
			v.err = ff.UserMessage()
		}
		v.logger.Warn("リストの取得に失敗しました",
			slog.String("view_id", v.id),
			slog.String("resource", string(v.resource)),
			slog.String("error", err.Error()),
		)
		return
	}
	v.items = items
}

// Unmount は実行中のフェッチをキャンセルし、以降の結果を破棄する。
func (v *View[T]) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	v.mounted = false
	v.cancel()
}

// Mounted はビューがマウント中かどうかを返す。
func (v *View[T]) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Wait はフェッチが完了するかctxが終了するまで待つ。
// マウントされていない場合は即座に戻る。
func (v *View[T]) Wait(ctx context.Context) error {
	v.mu.Lock()
	started := v.started
	v.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetQuery は検索語を設定し、1ページ目に戻す。
func (v *View[T]) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
	v.page = 1
}

// Next は次のページへ進む。最終ページでは何もしない。
func (v *View[T]) Next() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page < v.totalPagesLocked() {
		v.page++
	}
}

// Prev は前のページへ戻る。1ページ目では何もしない。
func (v *View[T]) Prev() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page > 1 {
		v.page--
	}
}

func (v *View[T]) totalPagesLocked() int {
	if v.loading || v.err != "" {
		return 0
	}
	return TotalPages(len(Filter(v.items, v.query, v.match)), v.pageSize)
}

// Snapshot は描画用の状態を返す。
type Snapshot[T any] struct {
	Resource      model.Resource
	Loading       bool
	Error         string
	Query         string
	Items         []T
	Page          int
	TotalPages    int
	FilteredCount int
	HasPrev       bool
	HasNext       bool
}

// Empty は取得済みで該当データがない場合にtrueを返す。
func (s Snapshot[T]) Empty() bool {
	return !s.Loading && s.Error == "" && s.FilteredCount == 0
}

// ShowPagination はページ送りを表示するかどうかを返す。
func (s Snapshot[T]) ShowPagination() bool {
	return !s.Loading && s.Error == "" && s.TotalPages > 0
}

// LoadingMessage はフェッチ中の文言を返す。
func (s Snapshot[T]) LoadingMessage() string { return s.Resource.LoadingMessage() }

// EmptyMessage は該当データなしの文言を返す。
func (s Snapshot[T]) EmptyMessage() string { return s.Resource.EmptyMessage() }

// Snapshot は現在の状態をコピーして返す。
// フェッチ中とエラー時はItemsとページ情報を含めない。
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot[T]{
		Resource: v.resource,
		Loading:  v.loading,
		Error:    v.err,
		Query:    v.query,
		Page:     v.page,
	}
	if v.loading || v.err != "" {
		return s
	}

	filtered := Filter(v.items, v.query, v.match)
	s.FilteredCount = len(filtered)
	s.TotalPages = TotalPages(len(filtered), v.pageSize)
	s.Items = append([]T(nil), Paginate(filtered, v.page, v.pageSize)...)
	s.HasPrev = v.page > 1
	s.HasNext = v.page < s.TotalPages
	return s
}
