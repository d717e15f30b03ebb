package auth

import "context"

// Operation はIdPへの操作名。メトリクスとAuthFailureのラベルに使う。
const (
	OperationSignIn            = "signIn"
	OperationRegister          = "register"
	OperationSendPasswordReset = "sendPasswordReset"
)

// ProviderIdentity はIdPが認証したユーザー情報を表す。
type ProviderIdentity struct {
	LocalID string
	Email   string
}

// IdentityProvider は外部IdPのインターフェース。
// 認証情報の検証とアカウント管理はすべてIdPに委譲する。
// 拒否された場合は*model.AuthFailureを返し、文言はIdPのものをそのまま使う。
type IdentityProvider interface {
	// SignIn はメールアドレスとパスワードで認証する。
	SignIn(ctx context.Context, email, password string) (*ProviderIdentity, error)
	// Register は新しいアカウントを作成する。
	Register(ctx context.Context, email, password string) (*ProviderIdentity, error)
	// SendPasswordReset はパスワードリセットメールを送信する。
	SendPasswordReset(ctx context.Context, email string) error
}
