package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/albumdeck/internal/model"
)

// minPasswordLength はFirebaseと同じ最小パスワード長。
const minPasswordLength = 6

// hashCost はbcryptのコスト。テストではMinCostに差し替える。
var hashCost = bcrypt.DefaultCost

// MemoryProvider はプロセス内でアカウントを保持するIdP。
// ローカル開発用で、エラー文言はFirebaseのエラーコードに揃える。
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]memoryAccount // key: 小文字化したemail
	resets   []string
}

type memoryAccount struct {
	localID      string
	email        string
	passwordHash []byte
}

// NewMemoryProvider はemail -> passwordのアカウントを登録済みのMemoryProviderを生成する。
func NewMemoryProvider(accounts map[string]string) (*MemoryProvider, error) {
	p := &MemoryProvider{accounts: make(map[string]memoryAccount)}
	for email, password := range accounts {
		if _, err := p.Register(context.Background(), email, password); err != nil {
			return nil, fmt.Errorf("failed to seed account %s: %w", email, err)
		}
	}
	return p, nil
}

// SignIn は登録済みアカウントのパスワードを検証する。
func (p *MemoryProvider) SignIn(ctx context.Context, email, password string) (*ProviderIdentity, error) {
	if err := validateEmail(OperationSignIn, email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, reject(OperationSignIn, "MISSING_PASSWORD")
	}

	p.mu.RLock()
	acct, ok := p.accounts[normalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return nil, reject(OperationSignIn, "EMAIL_NOT_FOUND")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, reject(OperationSignIn, "INVALID_PASSWORD")
	}
	return &ProviderIdentity{LocalID: acct.localID, Email: acct.email}, nil
}

// Register はアカウントを作成する。
func (p *MemoryProvider) Register(ctx context.Context, email, password string) (*ProviderIdentity, error) {
	if err := validateEmail(OperationRegister, email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, reject(OperationRegister, "MISSING_PASSWORD")
	}
	if len(password) < minPasswordLength {
		return nil, reject(OperationRegister, "WEAK_PASSWORD : Password should be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	key := normalizeEmail(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[key]; exists {
		return nil, reject(OperationRegister, "EMAIL_EXISTS")
	}
	acct := memoryAccount{
		localID:      uuid.New().String(),
		email:        strings.TrimSpace(email),
		passwordHash: hash,
	}
	p.accounts[key] = acct

	return &ProviderIdentity{LocalID: acct.localID, Email: acct.email}, nil
}

// SendPasswordReset はリセット要求を記録する。メールは送信しない。
func (p *MemoryProvider) SendPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(OperationSendPasswordReset, email); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[normalizeEmail(email)]
	if !ok {
		return reject(OperationSendPasswordReset, "EMAIL_NOT_FOUND")
	}
	p.resets = append(p.resets, acct.email)
	return nil
}

// ResetRequests はこれまでに受け付けたリセット要求のメールアドレスを返す。
func (p *MemoryProvider) ResetRequests() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.resets))
	copy(out, p.resets)
	return out
}

func validateEmail(operation, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return reject(operation, "MISSING_EMAIL")
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return reject(operation, "INVALID_EMAIL")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func reject(operation, message string) error {
	return &model.AuthFailure{Operation: operation, Message: message}
}

// compile-time interface check
var _ IdentityProvider = (*MemoryProvider)(nil)
