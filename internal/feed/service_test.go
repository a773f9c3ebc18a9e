package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository/repotest"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestService(store *repotest.Store, pageSize int) *Service {
	return NewService(store.Articles(), store.Communities(), store.Users(), store.Subscriptions(), pageSize)
}

func assertNewestFirst(t *testing.T, articles []*model.ArticleWithRefs) {
	t.Helper()
	for i := 1; i < len(articles); i++ {
		if !articles[i-1].CreatedAt.After(articles[i].CreatedAt) {
			t.Errorf("並び順が不正: [%d]=%v, [%d]=%v", i-1, articles[i-1].CreatedAt, i, articles[i].CreatedAt)
		}
	}
}

func TestIndex_PaginatesNewestFirst(t *testing.T) {
	store := repotest.NewStore()
	leo := store.SeedUser("leo", "x")
	for i := 0; i < 13; i++ {
		store.SeedArticle(leo, nil, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
	}
	svc := newTestService(store, 10)

	first, err := svc.Index(context.Background(), "")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(first.Articles) != 10 {
		t.Fatalf("1ページ目の件数 = %d, want 10", len(first.Articles))
	}
	if first.Articles[0].Text != "post 12" {
		t.Errorf("先頭は最新の投稿であるべき: %q", first.Articles[0].Text)
	}
	assertNewestFirst(t, first.Articles)
	if first.Page.NumPages != 2 || first.Page.Number != 1 {
		t.Errorf("Page = %+v", first.Page)
	}

	// 範囲外のページは最終ページに丸める
	last, err := svc.Index(context.Background(), "42")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if last.Page.Number != 2 || len(last.Articles) != 3 {
		t.Errorf("最終ページ: number=%d len=%d", last.Page.Number, len(last.Articles))
	}
}

func TestCommunity(t *testing.T) {
	store := repotest.NewStore()
	leo := store.SeedUser("leo", "x")
	cats := store.SeedCommunity("cats", "Cats")
	store.SeedArticle(leo, cats, "cat 1", base)
	store.SeedArticle(leo, nil, "no group", base.Add(time.Minute))
	store.SeedArticle(leo, cats, "cat 2", base.Add(2*time.Minute))
	svc := newTestService(store, 10)

	cf, err := svc.Community(context.Background(), "cats", "1")
	if err != nil {
		t.Fatalf("Community: %v", err)
	}
	if cf.Community.ID != cats.ID {
		t.Errorf("Community = %+v", cf.Community)
	}
	if len(cf.Articles) != 2 || cf.Articles[0].Text != "cat 2" {
		t.Errorf("コミュニティの投稿のみ新しい順に返すべき: %+v", cf.Articles)
	}
}

func TestCommunity_NotFound(t *testing.T) {
	svc := newTestService(repotest.NewStore(), 10)

	_, err := svc.Community(context.Background(), "missing", "")
	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeCommunityNotFound {
		t.Errorf("err = %v, want COMMUNITY_NOT_FOUND", err)
	}
}

func TestProfile_SubscriberCountAndFollowing(t *testing.T) {
	store := repotest.NewStore()
	author := store.SeedUser("author", "x")
	fan1 := store.SeedUser("fan1", "x")
	fan2 := store.SeedUser("fan2", "x")
	stranger := store.SeedUser("stranger", "x")
	store.SeedArticle(author, nil, "a1", base)
	store.SeedArticle(stranger, nil, "s1", base)
	ctx := context.Background()
	store.Subscriptions().Create(ctx, fan1.ID, author.ID)
	store.Subscriptions().Create(ctx, fan2.ID, author.ID)
	svc := newTestService(store, 10)

	pf, err := svc.Profile(ctx, "author", "", fan1.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if pf.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", pf.SubscriberCount)
	}
	if !pf.Following {
		t.Error("fan1 は購読中と判定されるべき")
	}
	if len(pf.Articles) != 1 || pf.Articles[0].AuthorID != author.ID {
		t.Errorf("著者の投稿のみ返すべき: %+v", pf.Articles)
	}

	anon, err := svc.Profile(ctx, "author", "", "")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if anon.Following {
		t.Error("未ログインの閲覧者は購読中と判定されないべき")
	}
}

func TestProfile_NotFound(t *testing.T) {
	svc := newTestService(repotest.NewStore(), 10)

	_, err := svc.Profile(context.Background(), "ghost", "", "")
	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("err = %v, want USER_NOT_FOUND", err)
	}
}

func TestFollowing_OnlySubscribedAuthors(t *testing.T) {
	store := repotest.NewStore()
	reader := store.SeedUser("reader", "x")
	followed := store.SeedUser("followed", "x")
	other := store.SeedUser("other", "x")
	store.SeedArticle(followed, nil, "f1", base)
	store.SeedArticle(followed, nil, "f2", base.Add(time.Minute))
	store.SeedArticle(other, nil, "o1", base.Add(2*time.Minute))
	store.Subscriptions().Create(context.Background(), reader.ID, followed.ID)
	svc := newTestService(store, 10)

	listing, err := svc.Following(context.Background(), reader.ID, "")
	if err != nil {
		t.Fatalf("Following: %v", err)
	}
	if len(listing.Articles) != 2 {
		t.Fatalf("件数 = %d, want 2", len(listing.Articles))
	}
	for _, a := range listing.Articles {
		if a.AuthorID != followed.ID {
			t.Errorf("購読していない著者の投稿が含まれています: %+v", a)
		}
	}
	assertNewestFirst(t, listing.Articles)
}

func TestFollowing_NoSubscriptionsIsEmptySinglePage(t *testing.T) {
	store := repotest.NewStore()
	reader := store.SeedUser("reader", "x")
	svc := newTestService(store, 10)

	listing, err := svc.Following(context.Background(), reader.ID, "3")
	if err != nil {
		t.Fatalf("Following: %v", err)
	}
	if len(listing.Articles) != 0 || listing.Page.Number != 1 || listing.Page.NumPages != 1 {
		t.Errorf("listing = %+v", listing)
	}
}
