package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
)

// followingPath は購読フィードのパス。フォロー操作の後はここへリダイレクトする。
const followingPath = "/follow/"

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	Follow(ctx context.Context, subscriberID, username string) error
	Unfollow(ctx context.Context, subscriberID, username string) error
}

// SubscriptionHandler は著者のフォロー・フォロー解除のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
	pages   *Pages
	metrics metrics.MetricsCollector
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface, pages *Pages, collector metrics.MetricsCollector) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, pages: pages, metrics: collector}
}

// Follow は著者を購読する。自分自身や購読済みの著者では何もしない。
// GET /profile/{username}/follow/
func (h *SubscriptionHandler) Follow(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.service.Follow(r.Context(), user.ID, chi.URLParam(r, "username")); err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordSubscriptionChange("follow")
	http.Redirect(w, r, followingPath, http.StatusFound)
}

// Unfollow は著者の購読を解除する。購読していなければ何もしない。
// GET /profile/{username}/unfollow/
func (h *SubscriptionHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.service.Unfollow(r.Context(), user.ID, chi.URLParam(r, "username")); err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordSubscriptionChange("unfollow")
	http.Redirect(w, r, followingPath, http.StatusFound)
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
