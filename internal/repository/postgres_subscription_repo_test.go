package repository

import (
	"context"
	"testing"
)

func TestPostgresSubscriptionRepo_ImplementsInterface(t *testing.T) {
	var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
}

// 自分自身への購読は件数を変えずnilを返す。
func TestPostgresSubscriptionRepo_Create_SelfIsNoOp(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSubscriptionRepo(db)
	ctx := context.Background()
	leo := createTestUser(t, db, "leo")

	sub, err := repo.Create(ctx, leo.ID, leo.ID)
	if err != nil {
		t.Fatalf("自己購読でエラーを返すべきではない: %v", err)
	}
	if sub != nil {
		t.Errorf("自己購読はnilを返すべき: %+v", sub)
	}

	count, err := repo.CountByTarget(ctx, leo.ID)
	if err != nil {
		t.Fatalf("CountByTarget: %v", err)
	}
	if count != 0 {
		t.Errorf("購読者数 = %d, want 0", count)
	}
}

// 重複した購読は既存のレコードを返し、件数を変えない。
func TestPostgresSubscriptionRepo_Create_DuplicateReturnsExisting(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSubscriptionRepo(db)
	ctx := context.Background()
	reader := createTestUser(t, db, "reader")
	author := createTestUser(t, db, "author")

	first, err := repo.Create(ctx, reader.ID, author.ID)
	if err != nil || first == nil {
		t.Fatalf("Create: %+v, %v", first, err)
	}
	second, err := repo.Create(ctx, reader.ID, author.ID)
	if err != nil {
		t.Fatalf("重複購読でエラーを返すべきではない: %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Errorf("既存の購読を返すべき: first=%+v second=%+v", first, second)
	}

	count, err := repo.CountByTarget(ctx, author.ID)
	if err != nil {
		t.Fatalf("CountByTarget: %v", err)
	}
	if count != 1 {
		t.Errorf("購読者数 = %d, want 1", count)
	}
}

func TestPostgresSubscriptionRepo_DeleteAndExists(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSubscriptionRepo(db)
	ctx := context.Background()
	reader := createTestUser(t, db, "reader")
	author := createTestUser(t, db, "author")

	// 存在しない購読の削除は何もしない
	if err := repo.Delete(ctx, reader.ID, author.ID); err != nil {
		t.Fatalf("存在しない購読の削除でエラー: %v", err)
	}

	if _, err := repo.Create(ctx, reader.ID, author.ID); err != nil {
		t.Fatalf("Create: %v", err)
	}
	exists, err := repo.Exists(ctx, reader.ID, author.ID)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}
	// 逆方向は別の購読
	exists, err = repo.Exists(ctx, author.ID, reader.ID)
	if err != nil || exists {
		t.Errorf("逆方向の購読が存在すると判定されました: %v, %v", exists, err)
	}

	if err := repo.Delete(ctx, reader.ID, author.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, _ = repo.Exists(ctx, reader.ID, author.ID)
	if exists {
		t.Error("削除後も購読が存在します")
	}
}
