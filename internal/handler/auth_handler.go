// Package handler はHTMLページを返すHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/albumdeck/internal/middleware"
	"github.com/hitoshi/albumdeck/internal/model"
	"github.com/hitoshi/albumdeck/internal/session"
)

// genericAuthError はIdPに到達できないなど、ユーザーに詳細を見せない失敗時の文言。
const genericAuthError = "Something went wrong. Please try again."

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, email, password string) (*model.Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン、登録、パスワードリセット、ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *Renderer
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer *Renderer, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

type loginPage struct {
	pageMeta
	Form         *model.FormState
	ResetForm    *model.FormState
	Email        string
	ResetEmail   string
	ShowPassword bool
	ResetVisible bool
	Notice       string
}

type registerPage struct {
	pageMeta
	Form  *model.FormState
	Email string
}

func (h *AuthHandler) newLoginPage(r *http.Request) *loginPage {
	return &loginPage{
		pageMeta:  pageMeta{Title: "Login", CSRFToken: middleware.CSRFTokenFromContext(r.Context())},
		Form:      model.NewFormState(),
		ResetForm: model.NewFormState(),
	}
}

// LoginPage はログインフォームを表示する。
// GET /login?show_password=1&reset=1
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := h.newLoginPage(r)
	page.ShowPassword = r.URL.Query().Get("show_password") == "1"
	page.ResetVisible = r.URL.Query().Get("reset") == "1"
	h.renderer.Render(w, http.StatusOK, "login", page)
}

// Login はメールアドレスとパスワードでサインインする。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	page := h.newLoginPage(r)
	page.Email = strings.TrimSpace(r.PostFormValue("email"))
	page.ShowPassword = r.PostFormValue("show_password") == "1"
	password := r.PostFormValue("password")

	page.Form.Submit()
	sess, err := h.service.SignIn(r.Context(), page.Email, password)
	if err != nil {
		page.Form.Fail(h.failureMessage(err, "signIn"))
		h.renderer.Render(w, failureStatus(err), "login", page)
		return
	}
	page.Form.Succeed("")

	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// ResetPassword はパスワードリセットメールを送信する。
// 成功時はサブフォームを閉じて通知を表示し、失敗時はサブフォームにエラーを表示する。
// POST /login/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	page := h.newLoginPage(r)
	page.ResetEmail = strings.TrimSpace(r.PostFormValue("reset_email"))

	page.ResetForm.Submit()
	if err := h.service.SendPasswordReset(r.Context(), page.ResetEmail); err != nil {
		page.ResetForm.Fail(h.failureMessage(err, "sendPasswordReset"))
		page.ResetVisible = true
		h.renderer.Render(w, failureStatus(err), "login", page)
		return
	}

	page.ResetForm.Succeed(model.PasswordResetSentMessage)
	page.Notice = page.ResetForm.Notice
	page.ResetEmail = ""
	h.renderer.Render(w, http.StatusOK, "login", page)
}

// RegisterPage は登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	page := &registerPage{
		pageMeta: pageMeta{Title: "Register", CSRFToken: middleware.CSRFTokenFromContext(r.Context())},
		Form:     model.NewFormState(),
	}
	h.renderer.Render(w, http.StatusOK, "register", page)
}

// Register はアカウントを作成してサインインする。
// パスワードと確認用パスワードが一致しない場合はIdPを呼ばない。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	page := &registerPage{
		pageMeta: pageMeta{Title: "Register", CSRFToken: middleware.CSRFTokenFromContext(r.Context())},
		Form:     model.NewFormState(),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")

	if password != confirm {
		mismatch := model.NewPasswordMismatchError()
		page.Form.Reject(mismatch.Message)
		h.renderer.Render(w, failureStatus(mismatch), "register", page)
		return
	}

	page.Form.Submit()
	sess, err := h.service.Register(r.Context(), page.Email, password)
	if err != nil {
		page.Form.Fail(h.failureMessage(err, "register"))
		h.renderer.Render(w, failureStatus(err), "register", page)
		return
	}
	page.Form.Succeed("")

	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Logout はセッションを破棄して/loginへリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			// サインアウトに失敗してもCookieはクリアする
			h.logger.Error("failed to sign out", slog.String("error", signOutErr.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// failureMessage はフォームに表示する文言を返す。
// IdPの拒否と検証エラーは文言をそのまま使い、それ以外は汎用文言にしてログに残す。
func (h *AuthHandler) failureMessage(err error, operation string) string {
	if msg, ok := model.AuthMessage(err); ok {
		return msg
	}
	h.logger.Error("identity provider request failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return genericAuthError
}

func failureStatus(err error) int {
	var valErr *model.ValidationFailure
	if errors.As(err, &valErr) {
		return http.StatusUnprocessableEntity
	}
	var authErr *model.AuthFailure
	if errors.As(err, &authErr) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
