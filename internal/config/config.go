package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// IdentityProvider の種別。
const (
	ProviderFirebase = "firebase"
	ProviderMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database（空の場合はインメモリのセッションストアを使用する）
	DatabaseURL string

	// Identity provider
	IdentityProvider string
	FirebaseAPIKey   string
	FirebaseEndpoint string
	DevAccounts      map[string]string // email -> password（memoryプロバイダー用）

	// Placeholder API
	PlaceholderBaseURL    string
	PlaceholderTimeout    time.Duration
	PlaceholderMaxSize    int64
	PlaceholderSafeClient bool

	// List views
	UsersPageSize  int
	AlbumsPageSize int
	PhotosPageSize int
	ViewRenderWait time.Duration

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	SessionCacheTTL        time.Duration // 0の場合は毎リクエストでストアを確認する

	// Rate Limit（req/min）
	RateLimitGeneral    int
	RateLimitCredential int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.IdentityProvider = getEnvString("IDENTITY_PROVIDER", ProviderFirebase)
	switch cfg.IdentityProvider {
	case ProviderFirebase:
		cfg.FirebaseAPIKey = os.Getenv("FIREBASE_API_KEY")
		if cfg.FirebaseAPIKey == "" {
			missing = append(missing, "FIREBASE_API_KEY")
		}
	case ProviderMemory:
	default:
		return nil, fmt.Errorf("unsupported IDENTITY_PROVIDER: %q (allowed: %s, %s)",
			cfg.IdentityProvider, ProviderFirebase, ProviderMemory)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	devAccounts, err := parseDevAccounts(os.Getenv("DEV_ACCOUNTS"))
	if err != nil {
		return nil, err
	}
	cfg.DevAccounts = devAccounts

	// Optional fields with defaults
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.FirebaseEndpoint = getEnvString("FIREBASE_ENDPOINT", "")
	cfg.PlaceholderBaseURL = strings.TrimRight(getEnvString("PLACEHOLDER_BASE_URL", "https://jsonplaceholder.typicode.com"), "/")
	cfg.PlaceholderTimeout = getEnvDuration("PLACEHOLDER_TIMEOUT", 10*time.Second)
	cfg.PlaceholderMaxSize = getEnvInt64("PLACEHOLDER_MAX_SIZE", 20<<20)
	cfg.PlaceholderSafeClient = getEnvBool("PLACEHOLDER_SAFE_CLIENT", true)
	cfg.UsersPageSize = getEnvInt("USERS_PAGE_SIZE", 10)
	cfg.AlbumsPageSize = getEnvInt("ALBUMS_PAGE_SIZE", 10)
	cfg.PhotosPageSize = getEnvInt("PHOTOS_PAGE_SIZE", 4)
	cfg.ViewRenderWait = getEnvDuration("VIEW_RENDER_WAIT", 2*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 3600)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Minute)
	if cfg.SessionCleanupInterval <= 0 {
		cfg.SessionCleanupInterval = time.Minute
	}
	cfg.SessionCacheTTL = getEnvDuration("SESSION_CACHE_TTL", 30*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCredential = getEnvInt("RATE_LIMIT_CREDENTIAL", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// UsesDatabase はPostgreSQLのセッションストアを使用するかどうかを返す。
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// parseDevAccounts は "email:password,email:password" 形式の文字列をパースする。
func parseDevAccounts(raw string) (map[string]string, error) {
	accounts := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return accounts, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		email, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid DEV_ACCOUNTS entry: %q (expected email:password)", pair)
		}
		accounts[email] = password
	}
	return accounts, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
