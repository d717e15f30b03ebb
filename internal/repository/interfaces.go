// Package repository はセッションデータの永続化を提供する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/albumdeck/internal/model"
)

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。見つからない場合や期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除したセッションIDを返す。
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
	// Ping はストアが応答可能かを確認する。
	Ping(ctx context.Context) error
}
