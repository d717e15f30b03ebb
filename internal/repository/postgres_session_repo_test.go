package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/hitoshi/albumdeck/internal/model"
)

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// openTestDB はTEST_DATABASE_URLのDBに接続し、sessionsテーブルを用意する。
// 未設定または接続不可の場合はスキップする。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);
		TRUNCATE sessions;
	`)
	if err != nil {
		t.Fatalf("sessionsテーブルの準備に失敗: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresSessionRepo_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	live := &model.Session{ID: "live", UserID: "uid-1", Email: "a@example.com", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	expired := &model.Session{ID: "expired", UserID: "uid-2", Email: "b@example.com", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}

	if err := repo.Create(ctx, live); err != nil {
		t.Fatalf("Create(live) error = %v", err)
	}
	if err := repo.Create(ctx, expired); err != nil {
		t.Fatalf("Create(expired) error = %v", err)
	}

	got, err := repo.FindByID(ctx, "live")
	if err != nil || got == nil {
		t.Fatalf("FindByID(live) = %v, %v", got, err)
	}
	if got.Email != "a@example.com" {
		t.Errorf("Email = %q", got.Email)
	}

	got, err = repo.FindByID(ctx, "expired")
	if err != nil {
		t.Fatalf("FindByID(expired) error = %v", err)
	}
	if got != nil {
		t.Error("expired session should not be returned")
	}

	ids, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "expired" {
		t.Errorf("DeleteExpired() = %v, want [expired]", ids)
	}

	if err := repo.DeleteByID(ctx, "live"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if got, _ := repo.FindByID(ctx, "live"); got != nil {
		t.Error("session should be deleted")
	}
}
