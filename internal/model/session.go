// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はIdPによって認証されたユーザーの識別情報を表す。
// セッションゲートがリクエストコンテキストに注入する。
type Identity struct {
	UserID    string // IdP側のローカルID（FirebaseのlocalId等）
	Email     string
	ExpiresAt time.Time
}

// Expired は指定時刻の時点でIdentityが期限切れかどうかを返す。
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// Session はユーザーのログインセッションを表す。
// IdPへのサインイン成功時に作成され、サインアウトまたは期限切れで破棄される。
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Identity はセッションに紐づくIdentityを返す。
func (s *Session) Identity() *Identity {
	return &Identity{
		UserID:    s.UserID,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt,
	}
}
