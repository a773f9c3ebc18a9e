// Package handler はHTTPハンドラーを提供する。
//
// 各ハンドラーはサービス層を呼び出し、結果をテンプレートで描画するかリダイレクトする。
// サービス層のエラーはhandleServiceErrorでエラーページに変換する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/render"
)

// Pages はテンプレート描画とエラーページの共通処理。
type Pages struct {
	renderer *render.Renderer
}

// NewPages はPagesを生成する。
func NewPages(renderer *render.Renderer) *Pages {
	return &Pages{renderer: renderer}
}

// Render はログインユーザーとCSRFトークンを添えてページを描画する。
// 描画に失敗した場合はログに残し、素の500を返す。
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	view := render.View{
		Title:     title,
		User:      middleware.UserFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Data:      data,
	}
	if err := p.renderer.Page(w, status, name, view); err != nil {
		slog.Error("ページの描画に失敗しました",
			slog.String("template", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Static は固定ページを描画するハンドラーを返す。
func (p *Pages) Static(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Render(w, r, http.StatusOK, name, title, nil)
	}
}

// NotFound は404ページを描画する。
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusNotFound, "core/404.html", "ページが見つかりません",
		render.ErrorPage{Path: r.URL.Path})
}

// Forbidden は403ページを描画する。
func (p *Pages) Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	p.Render(w, r, http.StatusForbidden, "core/403.html", "アクセスが拒否されました",
		render.ErrorPage{Path: r.URL.Path, Message: message})
}

// CSRFFailure はCSRF検証失敗時の403ページを描画する。
func (p *Pages) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	p.Forbidden(w, r, "フォームの有効期限が切れたか、不正な送信です。ページを再読み込みしてから送信してください。")
}

// InternalError は500ページを描画する。
func (p *Pages) InternalError(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusInternalServerError, "core/500.html", "サーバーエラー",
		render.ErrorPage{Path: r.URL.Path})
}

// handleServiceError はサービス層から返されたエラーをエラーページに変換する。
// AppError以外のエラーはログに残し、500ページを返す。
func (p *Pages) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		switch mapAppErrorToHTTPStatus(appErr) {
		case http.StatusNotFound:
			p.NotFound(w, r)
		case http.StatusForbidden:
			p.Forbidden(w, r, appErr.Message)
		default:
			p.Render(w, r, http.StatusBadRequest, "core/400.html", "リクエストが正しくありません",
				render.ErrorPage{Path: r.URL.Path, Message: appErr.Message})
		}
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.InternalError(w, r)
}

// mapAppErrorToHTTPStatus はAppErrorコードからHTTPステータスコードにマッピングする。
func mapAppErrorToHTTPStatus(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeArticleNotFound, model.ErrCodeCommunityNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeNotArticleOwner, model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// isAppErrorCode はエラーが指定コードのAppErrorかを返す。
func isAppErrorCode(err error, code string) bool {
	var appErr *model.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
