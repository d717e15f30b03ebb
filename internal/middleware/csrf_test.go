package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfHandler(gotToken *string) http.Handler {
	mw := NewCSRFMiddleware(CSRFConfig{})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotToken != nil {
			*gotToken = CSRFTokenFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_GET_IssuesCookieAndExposesToken(t *testing.T) {
	var token string
	w := httptest.NewRecorder()
	csrfHandler(&token).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected csrf_token cookie")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes: HttpOnly=%v SameSite=%v", cookie.HttpOnly, cookie.SameSite)
	}
	if token == "" || token != cookie.Value {
		t.Errorf("context token = %q, cookie = %q", token, cookie.Value)
	}
}

func TestCSRFMiddleware_GET_ReusesExistingCookie(t *testing.T) {
	var token string
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()

	csrfHandler(&token).ServeHTTP(w, req)

	if token != "existing" {
		t.Errorf("token = %q, want existing", token)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("should not reissue the cookie")
	}
}

func TestCSRFMiddleware_POST_FormFieldMatches_PassesThrough(t *testing.T) {
	form := url.Values{CSRFFormField: {"tok"}, "email": {"a@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	w := httptest.NewRecorder()

	csrfHandler(nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCSRFMiddleware_POST_HeaderMatches_PassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set(csrfHeaderName, "tok")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	w := httptest.NewRecorder()

	csrfHandler(nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCSRFMiddleware_POST_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		formToken string
	}{
		{"missing cookie", "", "tok"},
		{"missing submitted token", "tok", ""},
		{"mismatch", "tok", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.formToken != "" {
				form.Set(CSRFFormField, tt.formToken)
			}
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			csrfHandler(nil).ServeHTTP(w, req)

			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}
