package model

import (
	"errors"
	"fmt"
)

// PasswordMismatchMessage は登録フォームでパスワードと確認用パスワードが一致しない場合の文言。
const PasswordMismatchMessage = "Passwords do not match!"

// PasswordResetSentMessage はパスワードリセットメール送信成功時の文言。
const PasswordResetSentMessage = "Password reset email sent! Check your inbox."

// FetchFailure はリモートコレクションの取得失敗を表す。
// 原因（HTTPステータス、ネットワークエラー、デコード失敗）は区別せず、
// ユーザーにはリソースごとの固定文言のみを表示する。
type FetchFailure struct {
	Resource Resource
	Cause    error
}

// Error はerrorインターフェースを実装する。
func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Cause)
}

// Unwrap は原因エラーを返す。
func (e *FetchFailure) Unwrap() error {
	return e.Cause
}

// UserMessage は画面に表示する固定文言を返す。
func (e *FetchFailure) UserMessage() string {
	return e.Resource.FetchErrorMessage()
}

// AuthFailure はIdPが認証情報やリセット要求を拒否したことを表す。
// Messageはプロバイダーが返した文言そのままで、正規化しない。
type AuthFailure struct {
	Operation string // "signIn", "register", "sendPasswordReset"
	Message   string
}

// Error はerrorインターフェースを実装する。
func (e *AuthFailure) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Message)
}

// ValidationFailure は送信前のクライアント側検証エラーを表す。
type ValidationFailure struct {
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationFailure) Error() string {
	return e.Message
}

// NewPasswordMismatchError はパスワード不一致エラーを生成する。
func NewPasswordMismatchError() *ValidationFailure {
	return &ValidationFailure{Message: PasswordMismatchMessage}
}

// AuthMessage はエラーからユーザーに表示する認証エラー文言を取り出す。
// AuthFailureまたはValidationFailureでない場合はfalseを返す。
func AuthMessage(err error) (string, bool) {
	var authErr *AuthFailure
	if errors.As(err, &authErr) {
		return authErr.Message, true
	}
	var valErr *ValidationFailure
	if errors.As(err, &valErr) {
		return valErr.Message, true
	}
	return "", false
}
