package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/feed"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
)

// indexCacheKeyPrefix はトップページの一覧断片のキャッシュキー。ページ番号を後ろに付ける。
const indexCacheKeyPrefix = "index_page:"

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	Index(ctx context.Context, rawPage string) (*feed.Listing, error)
	Community(ctx context.Context, slug, rawPage string) (*feed.CommunityFeed, error)
	Profile(ctx context.Context, username, rawPage, viewerID string) (*feed.ProfileFeed, error)
	Following(ctx context.Context, userID, rawPage string) (*feed.Listing, error)
}

// FragmentRenderer は部分テンプレートを描画する。render.Rendererが実装する。
type FragmentRenderer interface {
	Fragment(name string, data any) ([]byte, error)
}

// FeedHandler は投稿一覧ページのHTTPハンドラー。
type FeedHandler struct {
	service   FeedServiceInterface
	cache     cache.PageCache
	fragments FragmentRenderer
	pages     *Pages
	metrics   metrics.MetricsCollector
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(
	service FeedServiceInterface,
	pageCache cache.PageCache,
	fragments FragmentRenderer,
	pages *Pages,
	collector metrics.MetricsCollector,
) *FeedHandler {
	return &FeedHandler{
		service:   service,
		cache:     pageCache,
		fragments: fragments,
		pages:     pages,
		metrics:   collector,
	}
}

type indexView struct {
	ArticleList template.HTML
}

type communityView struct {
	Feed *feed.CommunityFeed
}

type profileView struct {
	Feed      *feed.ProfileFeed
	IsSelf    bool
	CanFollow bool
}

type followView struct {
	Feed *feed.Listing
}

// Index はトップページ（全投稿の一覧）を表示する。
// GET /
//
// 投稿一覧の断片はページ番号ごとにキャッシュし、TTLが切れるか管理操作で消去されるまで再利用する。
// ナビゲーションはログイン状態で変わるため、キャッシュには含めない。
func (h *FeedHandler) Index(w http.ResponseWriter, r *http.Request) {
	rawPage := r.URL.Query().Get("page")
	key := indexCacheKeyPrefix + strconv.Itoa(requestedPage(rawPage))

	fragment, hit, err := h.cache.Get(r.Context(), key)
	if err != nil {
		// キャッシュ障害ではDBから描画を続ける
		slog.Warn("ページキャッシュの取得に失敗しました", slog.String("error", err.Error()))
	}
	h.metrics.RecordPageCache(hit)

	if !hit {
		listing, err := h.service.Index(r.Context(), rawPage)
		if err != nil {
			h.pages.handleServiceError(w, r, err)
			return
		}
		fragment, err = h.fragments.Fragment("article_list", listing)
		if err != nil {
			h.pages.handleServiceError(w, r, err)
			return
		}
		// 範囲外のページ番号は最終ページとして描画されるため、実際のページ番号で保存する
		storeKey := indexCacheKeyPrefix + strconv.Itoa(listing.Page.Number)
		if err := h.cache.Set(r.Context(), storeKey, fragment); err != nil {
			slog.Warn("ページキャッシュの保存に失敗しました", slog.String("error", err.Error()))
		}
	}

	h.pages.Render(w, r, http.StatusOK, "posts/index.html", "最新の投稿",
		indexView{ArticleList: template.HTML(fragment)})
}

// Community はコミュニティの投稿一覧を表示する。
// GET /group/{slug}/
func (h *FeedHandler) Community(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Community(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get("page"))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "posts/group_list.html", f.Community.Title, communityView{Feed: f})
}

// Profile は著者の投稿一覧と購読者数を表示する。
// GET /profile/{username}/
func (h *FeedHandler) Profile(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.UserFromContext(r.Context())
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}

	f, err := h.service.Profile(r.Context(), chi.URLParam(r, "username"), r.URL.Query().Get("page"), viewerID)
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	isSelf := viewer != nil && viewer.ID == f.Author.ID
	h.pages.Render(w, r, http.StatusOK, "posts/profile.html", f.Author.Username, profileView{
		Feed:      f,
		IsSelf:    isSelf,
		CanFollow: viewer != nil && !isSelf,
	})
}

// Following は購読している著者の投稿一覧を表示する。
// GET /follow/
func (h *FeedHandler) Following(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	listing, err := h.service.Following(r.Context(), userID, r.URL.Query().Get("page"))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "posts/follow.html", "購読中", followView{Feed: listing})
}

// requestedPage はキャッシュキー用にページ番号を正規化する。不正な値は1とする。
func requestedPage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
