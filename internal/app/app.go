package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/albumdeck/internal/auth"
	"github.com/hitoshi/albumdeck/internal/config"
	"github.com/hitoshi/albumdeck/internal/database"
	"github.com/hitoshi/albumdeck/internal/handler"
	"github.com/hitoshi/albumdeck/internal/listview"
	"github.com/hitoshi/albumdeck/internal/logger"
	"github.com/hitoshi/albumdeck/internal/metrics"
	"github.com/hitoshi/albumdeck/internal/middleware"
	"github.com/hitoshi/albumdeck/internal/placeholder"
	"github.com/hitoshi/albumdeck/internal/repository"
	"github.com/hitoshi/albumdeck/internal/security"
	"github.com/hitoshi/albumdeck/internal/session"
	"github.com/hitoshi/albumdeck/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("identity_provider", cfg.IdentityProvider),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// Components はserveモードで組み立てた依存関係を保持する。
type Components struct {
	Router   http.Handler
	Service  *auth.Service
	Gate     *session.Gate
	Registry *listview.Registry
	Limiter  *middleware.RateLimiter
	Expiry   *cleanup.SessionExpiryJob

	db *sql.DB
}

// Close は購読、バックグラウンドゴルーチン、DB接続を解放する。
func (c *Components) Close() {
	if c.Gate != nil {
		c.Gate.Close()
	}
	if c.Registry != nil {
		c.Registry.Close()
	}
	if c.Limiter != nil {
		c.Limiter.Stop()
	}
	if c.db != nil {
		c.db.Close()
	}
}

// Build は設定から全依存関係をワイヤリングする。
// ゲートとビューレジストリはここでセッション変更通知の購読を開始する。
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (*Components, error) {
	comps := &Components{}
	ok := false
	defer func() {
		if !ok {
			comps.Close()
		}
	}()

	// 1. メトリクス
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(reg)

	// 2. セッションストア
	sessionRepo, db, err := newSessionRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	comps.db = db

	// 3. IdPと認証サービス
	provider, err := newIdentityProvider(cfg)
	if err != nil {
		return nil, err
	}
	authService := auth.NewService(provider, sessionRepo, auth.NewBroker(), collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	comps.Service = authService

	// 4. セッションゲートとビューレジストリ
	comps.Gate = session.NewGate(authService, log, session.WithCacheTTL(cfg.SessionCacheTTL))
	if err := comps.Gate.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start session gate: %w", err)
	}
	comps.Registry = listview.NewRegistry(log, collector)
	if err := comps.Registry.Start(ctx, authService); err != nil {
		return nil, fmt.Errorf("failed to start view registry: %w", err)
	}

	// 5. プレースホルダーAPIクライアント
	httpClient, err := newPlaceholderHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	source := placeholder.NewClient(httpClient, log, cfg.PlaceholderBaseURL,
		placeholder.WithSanitizer(security.NewTextSanitizer()),
		placeholder.WithMetrics(collector),
		placeholder.WithMaxResponseSize(cfg.PlaceholderMaxSize),
	)

	// 6. ルーター
	comps.Limiter = middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCredential),
	)
	renderer, err := handler.NewRenderer(log)
	if err != nil {
		return nil, err
	}

	comps.Router = handler.NewRouter(&handler.RouterDeps{
		Logger:      log,
		Renderer:    renderer,
		Gate:        comps.Gate,
		RateLimiter: comps.Limiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		Source:   source,
		Registry: comps.Registry,
		ListConfig: handler.ListHandlerConfig{
			UsersPageSize:  cfg.UsersPageSize,
			AlbumsPageSize: cfg.AlbumsPageSize,
			PhotosPageSize: cfg.PhotosPageSize,
			RenderWait:     cfg.ViewRenderWait,
		},
		Health:  handler.NewHealthHandler(sessionRepo, log),
		Metrics: metrics.Handler(reg),
	})

	// 7. 期限切れセッションの削除ジョブ
	comps.Expiry = cleanup.NewSessionExpiryJob(authService, log)

	ok = true
	return comps, nil
}

// newSessionRepository はDATABASE_URLが設定されていればPostgreSQL、なければインメモリのストアを返す。
func newSessionRepository(ctx context.Context, cfg *config.Config) (repository.SessionRepository, *sql.DB, error) {
	if !cfg.UsesDatabase() {
		slog.Warn("DATABASE_URL is not set; sessions are kept in memory")
		return repository.NewMemorySessionRepo(), nil, nil
	}

	db, err := database.OpenAndPing(ctx, cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("database connection established")
	return repository.NewPostgresSessionRepo(db), db, nil
}

// newIdentityProvider は設定されたIdPを生成する。
func newIdentityProvider(cfg *config.Config) (auth.IdentityProvider, error) {
	switch cfg.IdentityProvider {
	case config.ProviderMemory:
		p, err := auth.NewMemoryProvider(cfg.DevAccounts)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory identity provider: %w", err)
		}
		slog.Warn("using in-memory identity provider", slog.Int("accounts", len(cfg.DevAccounts)))
		return p, nil
	default:
		return auth.NewFirebaseProvider(auth.FirebaseConfig{
			APIKey:   cfg.FirebaseAPIKey,
			Endpoint: cfg.FirebaseEndpoint,
		}), nil
	}
}

// newPlaceholderHTTPClient はプレースホルダーAPI用のHTTPクライアントを生成する。
// セーフクライアントが有効な場合はベースURLも静的検証する。
func newPlaceholderHTTPClient(cfg *config.Config) (*http.Client, error) {
	if !cfg.PlaceholderSafeClient {
		return &http.Client{Timeout: cfg.PlaceholderTimeout}, nil
	}
	if err := security.ValidateBaseURL(cfg.PlaceholderBaseURL); err != nil {
		return nil, fmt.Errorf("invalid PLACEHOLDER_BASE_URL: %w", err)
	}
	return security.NewSafeClient(cfg.PlaceholderTimeout), nil
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされる（SIGINTまたはSIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	comps, err := Build(ctx, cfg, slog.Default(), reg)
	if err != nil {
		return err
	}
	defer comps.Close()

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	go comps.Expiry.Start(jobCtx, cfg.SessionCleanupInterval)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      comps.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はセッションストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsesDatabase() {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
