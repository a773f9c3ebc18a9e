package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/model"
)

// setupRepoDB はマイグレーション適用済みのテスト用DBを返す。
// TEST_DATABASE_URL が未設定、またはDBに接続できない場合はスキップする。
func setupRepoDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL, database.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE users, communities CASCADE`); err != nil {
		t.Fatalf("テーブルの初期化に失敗: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *sql.DB, username string) *model.User {
	t.Helper()
	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewPostgresUserRepo(db).Create(context.Background(), user); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return user
}

func createTestCommunity(t *testing.T, db *sql.DB, slug string) *model.Community {
	t.Helper()
	c := &model.Community{
		ID:        uuid.New().String(),
		Title:     "Community " + slug,
		Slug:      slug,
		CreatedAt: time.Now(),
	}
	if err := NewPostgresCommunityRepo(db).Create(context.Background(), c); err != nil {
		t.Fatalf("コミュニティ作成に失敗: %v", err)
	}
	return c
}

// createTestArticle は作成日時を指定して投稿を作成する。
func createTestArticle(t *testing.T, db *sql.DB, author *model.User, community *model.Community, createdAt time.Time) *model.Article {
	t.Helper()
	a := &model.Article{
		ID:        uuid.New().String(),
		Text:      "text " + createdAt.Format(time.RFC3339Nano),
		AuthorID:  author.ID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if community != nil {
		a.CommunityID = &community.ID
	}
	if err := NewPostgresArticleRepo(db).Create(context.Background(), a); err != nil {
		t.Fatalf("投稿作成に失敗: %v", err)
	}
	return a
}
