package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func buildTestComponents(t *testing.T) *Components {
	t.Helper()
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init がエラーを返した: %v", err)
	}

	comps, err := Build(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}
	t.Cleanup(comps.Close)
	return comps
}

func TestBuild_MemoryStack_ServesPages(t *testing.T) {
	comps := buildTestComponents(t)

	if !comps.Gate.Ready() {
		t.Fatal("gate should be ready after Build")
	}

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/", http.StatusOK},
		{"/login", http.StatusOK},
		{"/register", http.StatusOK},
		{"/home", http.StatusFound},
		{"/users", http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			comps.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestBuild_MetricsEndpoint(t *testing.T) {
	comps := buildTestComponents(t)

	w := httptest.NewRecorder()
	comps.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "albumdeck_mounted_views") {
		t.Error("/metrics should expose albumdeck_mounted_views")
	}
}

func TestBuild_SeedsDevAccounts(t *testing.T) {
	comps := buildTestComponents(t)

	sess, err := comps.Service.SignIn(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn がエラーを返した: %v", err)
	}
	if sess.ID == "" {
		t.Error("session id should be issued")
	}
}

func TestBuild_RejectsUnsafePlaceholderURL(t *testing.T) {
	setTestEnv(t)
	t.Setenv("PLACEHOLDER_BASE_URL", "http://127.0.0.1:9000")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init がエラーを返した: %v", err)
	}

	if _, err := Build(context.Background(), cfg, slog.Default(), prometheus.NewRegistry()); err == nil {
		t.Fatal("Build should reject a loopback placeholder URL when the safe client is enabled")
	}
}

func TestComponents_CloseIsIdempotent(t *testing.T) {
	comps := buildTestComponents(t)
	comps.Close()
	comps.Close()
}
