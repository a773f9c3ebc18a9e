package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatube/internal/model"
)

func TestPostgresArticleRepo_ImplementsInterface(t *testing.T) {
	var _ ArticleRepository = (*PostgresArticleRepo)(nil)
	var _ CommentRepository = (*PostgresCommentRepo)(nil)
	var _ CommunityRepository = (*PostgresCommunityRepo)(nil)
}

func TestArticleWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   model.ArticleFilter
		wantSQL  string
		wantArgs int
	}{
		{"全件", model.ArticleFilter{}, "", 0},
		{"コミュニティ", model.ArticleFilter{CommunityID: "c"}, " WHERE a.community_id = $1", 1},
		{"著者", model.ArticleFilter{AuthorID: "a"}, " WHERE a.author_id = $1", 1},
		{
			"購読者",
			model.ArticleFilter{SubscriberID: "s"},
			" WHERE a.author_id IN (SELECT target_id FROM subscriptions WHERE subscriber_id = $1)",
			1,
		},
		{
			"複合",
			model.ArticleFilter{CommunityID: "c", AuthorID: "a"},
			" WHERE a.community_id = $1 AND a.author_id = $2",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := articleWhere(tt.filter)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestPostgresArticleRepo_FindByID_WithRefs(t *testing.T) {
	db := setupRepoDB(t)
	author := createTestUser(t, db, "leo")
	community := createTestCommunity(t, db, "cats")
	a := createTestArticle(t, db, author, community, time.Now())

	got, err := NewPostgresArticleRepo(db).FindByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got == nil {
		t.Fatal("投稿が取得できません")
	}
	if got.AuthorUsername != "leo" {
		t.Errorf("AuthorUsername = %q, want leo", got.AuthorUsername)
	}
	if !got.HasCommunity() || got.CommunitySlug != "cats" {
		t.Errorf("CommunitySlug = %q, want cats", got.CommunitySlug)
	}
	if got.CommunityID == nil || *got.CommunityID != community.ID {
		t.Errorf("CommunityID = %v, want %s", got.CommunityID, community.ID)
	}
}

func TestPostgresArticleRepo_FindByID_NotFoundReturnsNil(t *testing.T) {
	db := setupRepoDB(t)

	got, err := NewPostgresArticleRepo(db).FindByID(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("存在しない投稿はnilであるべき: %+v", got)
	}
}

// 全体・コミュニティ・著者の各フィードが作成日時の降順で並ぶことを検証する。
func TestPostgresArticleRepo_List_OrderedNewestFirst(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresArticleRepo(db)
	ctx := context.Background()

	leo := createTestUser(t, db, "leo")
	mia := createTestUser(t, db, "mia")
	cats := createTestCommunity(t, db, "cats")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	createTestArticle(t, db, leo, cats, base.Add(1*time.Hour))
	createTestArticle(t, db, mia, cats, base.Add(3*time.Hour))
	createTestArticle(t, db, leo, nil, base.Add(2*time.Hour))
	createTestArticle(t, db, mia, nil, base)

	filters := map[string]model.ArticleFilter{
		"global":    {},
		"community": {CommunityID: cats.ID},
		"author":    {AuthorID: leo.ID},
	}
	wantCounts := map[string]int{"global": 4, "community": 2, "author": 2}

	for name, filter := range filters {
		t.Run(name, func(t *testing.T) {
			articles, err := repo.List(ctx, filter, 10, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(articles) != wantCounts[name] {
				t.Fatalf("件数 = %d, want %d", len(articles), wantCounts[name])
			}
			for i := 1; i < len(articles); i++ {
				if !articles[i-1].CreatedAt.After(articles[i].CreatedAt) {
					t.Errorf("並び順が不正: [%d]=%v, [%d]=%v", i-1, articles[i-1].CreatedAt, i, articles[i].CreatedAt)
				}
			}

			count, err := repo.Count(ctx, filter)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if count != wantCounts[name] {
				t.Errorf("Count = %d, want %d", count, wantCounts[name])
			}
		})
	}
}

func TestPostgresArticleRepo_List_LimitOffset(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresArticleRepo(db)
	leo := createTestUser(t, db, "leo")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		createTestArticle(t, db, leo, nil, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := repo.List(context.Background(), model.ArticleFilter{}, 2, 4)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("件数 = %d, want 1", len(page))
	}
	if !page[0].CreatedAt.Equal(base) {
		t.Errorf("最後のページは最も古い投稿であるべき: %v", page[0].CreatedAt)
	}
}

func TestPostgresArticleRepo_List_SubscriberFilter(t *testing.T) {
	db := setupRepoDB(t)
	ctx := context.Background()
	reader := createTestUser(t, db, "reader")
	followed := createTestUser(t, db, "followed")
	other := createTestUser(t, db, "other")

	createTestArticle(t, db, followed, nil, time.Now())
	createTestArticle(t, db, other, nil, time.Now())
	if _, err := NewPostgresSubscriptionRepo(db).Create(ctx, reader.ID, followed.ID); err != nil {
		t.Fatalf("購読作成に失敗: %v", err)
	}

	articles, err := NewPostgresArticleRepo(db).List(ctx, model.ArticleFilter{SubscriberID: reader.ID}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(articles) != 1 || articles[0].AuthorID != followed.ID {
		t.Errorf("購読中の著者の投稿のみ返すべき: %+v", articles)
	}
}

func TestPostgresArticleRepo_Update_KeepsAuthorAndCreatedAt(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresArticleRepo(db)
	ctx := context.Background()
	leo := createTestUser(t, db, "leo")
	cats := createTestCommunity(t, db, "cats")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := createTestArticle(t, db, leo, cats, created)

	a.Text = "edited"
	a.CommunityID = nil
	a.UpdatedAt = time.Now()
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.FindByID(ctx, a.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID: %v, %+v", err, got)
	}
	if got.Text != "edited" {
		t.Errorf("Text = %q, want edited", got.Text)
	}
	if got.CommunityID != nil {
		t.Errorf("CommunityID = %v, want nil", *got.CommunityID)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt が変更されています: %v", got.CreatedAt)
	}
}

// コミュニティを削除しても投稿は残り、community_idがNULLになる。
func TestPostgresArticleRepo_CommunityDeleteSetsNull(t *testing.T) {
	db := setupRepoDB(t)
	ctx := context.Background()
	leo := createTestUser(t, db, "leo")
	cats := createTestCommunity(t, db, "cats")
	a := createTestArticle(t, db, leo, cats, time.Now())

	if _, err := db.Exec(`DELETE FROM communities WHERE id = $1`, cats.ID); err != nil {
		t.Fatalf("コミュニティ削除に失敗: %v", err)
	}

	got, err := NewPostgresArticleRepo(db).FindByID(ctx, a.ID)
	if err != nil || got == nil {
		t.Fatalf("コミュニティ削除後に投稿が取得できません: %v", err)
	}
	if got.CommunityID != nil || got.HasCommunity() {
		t.Errorf("community_id がNULLになっていません: %+v", got)
	}
}

func TestPostgresCommentRepo_ListByArticle_OldestFirst(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresCommentRepo(db)
	ctx := context.Background()
	leo := createTestUser(t, db, "leo")
	a := createTestArticle(t, db, leo, nil, time.Now())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"second", "first"} {
		if err := repo.Create(ctx, &model.Comment{
			ID: uuid.New().String(), ArticleID: a.ID, AuthorID: leo.ID, Text: text,
			CreatedAt: base.Add(time.Duration(1-i) * time.Minute),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	comments, err := repo.ListByArticle(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListByArticle: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Text != "second" {
		t.Fatalf("コメントの並び順が不正: %+v", comments)
	}
	if comments[0].AuthorUsername != "leo" {
		t.Errorf("AuthorUsername = %q, want leo", comments[0].AuthorUsername)
	}
}

func TestPostgresCommunityRepo_FindBySlugAndDuplicate(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresCommunityRepo(db)
	ctx := context.Background()
	cats := createTestCommunity(t, db, "cats")

	got, err := repo.FindBySlug(ctx, "cats")
	if err != nil || got == nil || got.ID != cats.ID {
		t.Fatalf("FindBySlug = %+v, %v", got, err)
	}

	missing, err := repo.FindBySlug(ctx, "dogs")
	if err != nil || missing != nil {
		t.Errorf("存在しないslugはnil,nilであるべき: %+v, %v", missing, err)
	}

	err = repo.Create(ctx, &model.Community{ID: uuid.New().String(), Title: "Cats 2", Slug: "cats", CreatedAt: time.Now()})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	all, err := repo.List(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("List = %d件, %v", len(all), err)
	}
}
