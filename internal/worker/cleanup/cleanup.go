// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 削除したセッションごとに期限切れ通知が発行され、
// セッションゲートとビューレジストリがそのセッションの状態を破棄する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionExpirer は期限切れセッションを削除して通知する操作。
// auth.Serviceが実装する。
type SessionExpirer interface {
	ExpireSessions(ctx context.Context, now time.Time) (int, error)
}

// SessionExpiryJob は期限切れセッションの定期削除ジョブ。
type SessionExpiryJob struct {
	expirer SessionExpirer
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionExpiryJob は新しいSessionExpiryJobを生成する。
func NewSessionExpiryJob(expirer SessionExpirer, logger *slog.Logger) *SessionExpiryJob {
	return &SessionExpiryJob{
		expirer: expirer,
		logger:  logger,
		now:     time.Now,
	}
}

// Run は現在時刻で期限切れのセッションを1回削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.expirer.ExpireSessions(ctx, j.now())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if deleted > 0 {
		j.logger.Info("期限切れセッションを削除しました",
			slog.Int("deleted_count", deleted),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
		)
	}
	return nil
}

// DefaultInterval はintervalに正の値が渡されなかった場合の実行間隔。
const DefaultInterval = time.Minute

// Start はintervalごとにRunを実行する。ctxがキャンセルされるまで戻らない。
// intervalが0以下の場合はDefaultIntervalを使う。
func (j *SessionExpiryJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
