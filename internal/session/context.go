package session

import (
	"context"

	"github.com/hitoshi/albumdeck/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityContextKey  = contextKey("identity")
	sessionIDContextKey = contextKey("session_id")
)

// IdentityFromContext はゲートが解決したIdentityを返す。未認証の場合はnil。
func IdentityFromContext(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(identityContextKey).(*model.Identity)
	return ident
}

// SessionIDFromContext はゲートが解決したセッションIDを返す。未認証の場合は空文字列。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithIdentity はコンテキストにセッションIDとIdentityを注入する。
// テストやゲート以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, sessionID string, ident *model.Identity) context.Context {
	ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	return context.WithValue(ctx, identityContextKey, ident)
}
