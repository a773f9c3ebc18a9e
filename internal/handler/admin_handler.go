package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/yatube/internal/cache"
)

// HealthChecker はDB接続の疎通確認を行う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// AdminHandler は運用向けエンドポイントのHTTPハンドラー。
type AdminHandler struct {
	cache cache.PageCache
	db    HealthChecker
	token string
	pages *Pages
}

// NewAdminHandler はAdminHandlerを生成する。tokenが空の場合は管理エンドポイントを無効にする。
func NewAdminHandler(pageCache cache.PageCache, db HealthChecker, token string, pages *Pages) *AdminHandler {
	return &AdminHandler{cache: pageCache, db: db, token: token, pages: pages}
}

// ClearCache はページキャッシュを全消去する。
// POST /admin/cache/clear/
//
// Authorization: Bearer <ADMIN_TOKEN> が必要。トークン未設定時は404を返す。
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		h.pages.NotFound(w, r)
		return
	}
	if !h.authorized(r) {
		slog.Warn("管理エンドポイントへの不正なアクセス", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusForbidden, map[string]string{"status": "forbidden"})
		return
	}

	if err := h.cache.Clear(r.Context()); err != nil {
		slog.Error("ページキャッシュの消去に失敗しました", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	slog.Info("ページキャッシュを消去しました")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Health はDB接続を確認して稼働状態を返す。
// GET /health
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("ヘルスチェックに失敗しました", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// mediaFileServer はアップロード画像を配信する。ディレクトリ一覧は404にする。
func mediaFileServer(prefix, root string, notFound http.HandlerFunc) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
