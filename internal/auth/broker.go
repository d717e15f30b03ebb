package auth

import (
	"sort"
	"sync"

	"github.com/hitoshi/albumdeck/internal/model"
)

// EventReason はセッション変更通知の種別。
type EventReason string

const (
	// ReasonReady は購読開始時に1回だけ届く初回通知。
	ReasonReady EventReason = "ready"
	// ReasonSignedIn はサインインまたは登録によるセッション作成。
	ReasonSignedIn EventReason = "signed_in"
	// ReasonSignedOut はサインアウトによるセッション破棄。
	ReasonSignedOut EventReason = "signed_out"
	// ReasonExpired は期限切れによるセッション破棄。
	ReasonExpired EventReason = "expired"
)

// SessionEvent はセッション変更通知。
// Identityがnilの場合、SessionIDのセッションは無効になったことを表す。
type SessionEvent struct {
	SessionID string
	Identity  *model.Identity
	Reason    EventReason
}

// SessionListener はセッション変更通知を受け取るコールバック。
type SessionListener func(SessionEvent)

// Broker はセッション変更通知を購読者に配信する。
type Broker struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]SessionListener
}

// NewBroker はBrokerを生成する。
func NewBroker() *Broker {
	return &Broker{listeners: make(map[uint64]SessionListener)}
}

// Subscribe はリスナーを登録し、登録解除関数を返す。
// 登録解除関数は何度呼んでも1回だけ作用する。
func (b *Broker) Subscribe(fn SessionListener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish は登録順にリスナーへ通知する。リスナーはロック外で同期的に呼ばれる。
func (b *Broker) Publish(ev SessionEvent) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]SessionListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SubscriberCount は現在の購読者数を返す。
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
