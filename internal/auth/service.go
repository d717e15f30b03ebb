// Package auth はIdPへの認証委譲、セッション発行、セッション変更通知を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/albumdeck/internal/metrics"
	"github.com/hitoshi/albumdeck/internal/model"
	"github.com/hitoshi/albumdeck/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider    IdentityProvider
	sessionRepo repository.SessionRepository
	broker      *Broker
	metrics     metrics.MetricsCollector
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。brokerとcollectorはnilでもよい。
func NewService(
	provider IdentityProvider,
	sessionRepo repository.SessionRepository,
	broker *Broker,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if broker == nil {
		broker = NewBroker()
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		provider:    provider,
		sessionRepo: sessionRepo,
		broker:      broker,
		metrics:     collector,
		config:      config,
		now:         time.Now,
	}
}

// SignIn はIdPで認証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	ident, err := s.provider.SignIn(ctx, email, password)
	s.recordAttempt(OperationSignIn, err)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	session, err := s.createSession(ctx, ident)
	if err != nil {
		return nil, err
	}

	slog.Info("user signed in", slog.String("user_id", session.UserID))
	return session, nil
}

// Register はIdPにアカウントを作成し、そのままサインインしたセッションを発行する。
func (s *Service) Register(ctx context.Context, email, password string) (*model.Session, error) {
	ident, err := s.provider.Register(ctx, email, password)
	s.recordAttempt(OperationRegister, err)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	session, err := s.createSession(ctx, ident)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", slog.String("user_id", session.UserID))
	return session, nil
}

// SendPasswordReset はIdPにパスワードリセットメールの送信を依頼する。
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	err := s.provider.SendPasswordReset(ctx, email)
	s.recordAttempt(OperationSendPasswordReset, err)
	if err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	return nil
}

// SignOut はセッションを破棄し、購読者にnilのIdentityを通知する。
// セッションIDが空の場合は何もしない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.publish(SessionEvent{SessionID: sessionID, Reason: ReasonSignedOut})
	slog.Info("user signed out")
	return nil
}

// CurrentIdentity はセッションIDに対応する有効なIdentityを返す。
// セッションが存在しないか期限切れの場合はnilを返す。
func (s *Service) CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	ident := session.Identity()
	if ident.Expired(s.now()) {
		return nil, nil
	}
	return ident, nil
}

// ExpireSessions は期限切れセッションを削除し、セッションごとに期限切れを通知する。
// 削除した件数を返す。
func (s *Service) ExpireSessions(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	for _, id := range ids {
		s.publish(SessionEvent{SessionID: id, Reason: ReasonExpired})
	}
	return len(ids), nil
}

// SubscribeSessionChanges はセッション変更通知を購読する。
// 登録後にセッションストアの疎通を確認し、fnにReasonReadyの初回通知を同期的に届ける。
// 戻り値の関数で購読を解除する。
func (s *Service) SubscribeSessionChanges(ctx context.Context, fn SessionListener) (func(), error) {
	unsubscribe := s.broker.Subscribe(fn)

	if err := s.sessionRepo.Ping(ctx); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("session store is not reachable: %w", err)
	}

	fn(SessionEvent{Reason: ReasonReady})
	return unsubscribe, nil
}

// createSession はセッションを作成・永続化し、サインインを通知する。
func (s *Service) createSession(ctx context.Context, ident *ProviderIdentity) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    ident.LocalID,
		Email:     ident.Email,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.publish(SessionEvent{SessionID: session.ID, Identity: session.Identity(), Reason: ReasonSignedIn})
	return session, nil
}

func (s *Service) publish(ev SessionEvent) {
	s.metrics.RecordSessionEvent(string(ev.Reason))
	s.broker.Publish(ev)
}

func (s *Service) recordAttempt(operation string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordAuthAttempt(operation, outcome)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
