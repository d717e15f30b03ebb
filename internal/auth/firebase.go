package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/albumdeck/internal/model"
)

const (
	defaultFirebaseEndpoint = "https://identitytoolkit.googleapis.com"
	defaultFirebaseTimeout  = 10 * time.Second
	maxFirebaseResponseSize = 1 << 20
)

// FirebaseConfig はFirebase Authenticationプロバイダーの設定。
type FirebaseConfig struct {
	APIKey string

	// テスト用にオーバーライド可能なエンドポイント
	Endpoint string
	Timeout  time.Duration
}

// FirebaseProvider はFirebase Authentication REST APIによる認証を提供する。
type FirebaseProvider struct {
	config     FirebaseConfig
	httpClient *http.Client
}

// NewFirebaseProvider はFirebaseProviderを生成する。
func NewFirebaseProvider(config FirebaseConfig) *FirebaseProvider {
	if config.Endpoint == "" {
		config.Endpoint = defaultFirebaseEndpoint
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")
	if config.Timeout <= 0 {
		config.Timeout = defaultFirebaseTimeout
	}
	return &FirebaseProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// firebaseCredentialRequest はsignInWithPassword / signUpのリクエストボディ。
type firebaseCredentialRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// firebaseOobRequest はsendOobCodeのリクエストボディ。
type firebaseOobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

// firebaseAccountResponse はsignInWithPassword / signUpのレスポンス。
type firebaseAccountResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

// firebaseErrorResponse はエラー時のレスポンス。
type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn はaccounts:signInWithPasswordでメールアドレスとパスワードを検証する。
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*ProviderIdentity, error) {
	var resp firebaseAccountResponse
	err := p.call(ctx, OperationSignIn, "accounts:signInWithPassword", firebaseCredentialRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.identity(email)
}

// Register はaccounts:signUpでアカウントを作成する。
func (p *FirebaseProvider) Register(ctx context.Context, email, password string) (*ProviderIdentity, error) {
	var resp firebaseAccountResponse
	err := p.call(ctx, OperationRegister, "accounts:signUp", firebaseCredentialRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.identity(email)
}

// SendPasswordReset はaccounts:sendOobCodeでパスワードリセットメールを送信する。
func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	return p.call(ctx, OperationSendPasswordReset, "accounts:sendOobCode", firebaseOobRequest{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}, nil)
}

// call はIdentity Toolkit v1のメソッドを呼び出す。
// 4xx/5xxのエラーレスポンスはerror.messageをそのまま持つAuthFailureに変換する。
func (p *FirebaseProvider) call(ctx context.Context, operation, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	reqURL := p.config.Endpoint + "/v1/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	// APIキーはURLに載せずヘッダーで渡す（エラーログにURLが出るため）
	req.Header.Set("X-Goog-Api-Key", p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxFirebaseResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp firebaseErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error.Message == "" {
			return fmt.Errorf("%s failed with status %d", operation, resp.StatusCode)
		}
		return &model.AuthFailure{Operation: operation, Message: errResp.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	return nil
}

// identity はレスポンスをProviderIdentityに変換する。
func (r *firebaseAccountResponse) identity(requestedEmail string) (*ProviderIdentity, error) {
	if r.LocalID == "" {
		return nil, fmt.Errorf("empty localId in response")
	}
	email := r.Email
	if email == "" {
		email = requestedEmail
	}
	return &ProviderIdentity{LocalID: r.LocalID, Email: email}, nil
}

// compile-time interface check
var _ IdentityProvider = (*FirebaseProvider)(nil)
