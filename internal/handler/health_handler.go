package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Pinger はセッションストアの疎通確認。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler は /health を処理する。
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: store, logger: logger}
}

// ServeHTTP はセッションストアに到達できれば200、できなければ503を返す。
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
