package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatube/internal/article"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/validation"
)

// ArticleServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	Get(ctx context.Context, articleID string) (*article.Detail, error)
	GetForEdit(ctx context.Context, articleID, editorID string) (*model.ArticleWithRefs, error)
	Communities(ctx context.Context) ([]*model.Community, error)
	Create(ctx context.Context, authorID string, in article.Input) (*model.Article, error)
	Update(ctx context.Context, articleID, editorID string, in article.Input) (*model.Article, error)
	AddComment(ctx context.Context, articleID, authorID, text string) (*model.Comment, error)
}

// ArticleHandler は投稿の詳細・作成・編集とコメント投稿のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	pages   *Pages
	metrics metrics.MetricsCollector
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, pages *Pages, collector metrics.MetricsCollector) *ArticleHandler {
	return &ArticleHandler{service: service, pages: pages, metrics: collector}
}

type detailView struct {
	Detail  *article.Detail
	IsOwner bool
}

type articleFormView struct {
	IsEdit       bool
	ArticleID    string
	Form         validation.ArticleForm
	Communities  []*model.Community
	CurrentImage string
	Errors       validation.Errors
}

// Detail は投稿の詳細ページを表示する。
// GET /posts/{id}/
func (h *ArticleHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	h.pages.Render(w, r, http.StatusOK, "posts/post_detail.html", "投稿", detailView{
		Detail:  detail,
		IsOwner: user != nil && user.ID == detail.Article.AuthorID,
	})
}

// Create は新規投稿フォームを表示し、送信された投稿を保存する。
// GET, POST /create/
//
// 著者は常にログイン中のユーザーになる。保存後は著者のプロフィールへリダイレクトする。
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	view := &articleFormView{}

	if r.Method != http.MethodPost {
		h.renderForm(w, r, view)
		return
	}

	in, cleanup, ok := h.bindForm(r, view)
	defer cleanup()
	if !ok {
		h.renderForm(w, r, view)
		return
	}

	if _, err := h.service.Create(r.Context(), user.ID, in); err != nil {
		if h.addFieldError(view, err) {
			h.renderForm(w, r, view)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordArticleCreated()
	http.Redirect(w, r, profilePath(user.Username), http.StatusFound)
}

// Edit は投稿の編集フォームを表示し、送信された変更を保存する。
// GET, POST /posts/{id}/edit/
//
// 著者以外のアクセスはエラーにせず詳細ページへリダイレクトする。
func (h *ArticleHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	articleID := chi.URLParam(r, "id")

	current, err := h.service.GetForEdit(r.Context(), articleID, user.ID)
	if err != nil {
		h.handleEditError(w, r, articleID, err)
		return
	}

	view := &articleFormView{
		IsEdit:       true,
		ArticleID:    current.ID,
		CurrentImage: current.Image,
	}

	if r.Method != http.MethodPost {
		view.Form = validation.ArticleForm{Text: current.Text}
		if current.CommunityID != nil {
			view.Form.CommunityID = *current.CommunityID
		}
		h.renderForm(w, r, view)
		return
	}

	in, cleanup, ok := h.bindForm(r, view)
	defer cleanup()
	if !ok {
		h.renderForm(w, r, view)
		return
	}

	if _, err := h.service.Update(r.Context(), articleID, user.ID, in); err != nil {
		if h.addFieldError(view, err) {
			h.renderForm(w, r, view)
			return
		}
		h.handleEditError(w, r, articleID, err)
		return
	}

	http.Redirect(w, r, articlePath(articleID), http.StatusFound)
}

// AddComment は投稿にコメントを追加し、詳細ページへリダイレクトする。
// POST /posts/{id}/comment/
//
// 入力に不備がある場合は保存せずに詳細ページへ戻す。
func (h *ArticleHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	articleID := chi.URLParam(r, "id")

	if _, err := h.service.AddComment(r.Context(), articleID, user.ID, r.PostFormValue("text")); err != nil {
		var fieldErr *validation.FieldError
		if errors.As(err, &fieldErr) {
			http.Redirect(w, r, articlePath(articleID), http.StatusFound)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordCommentCreated()
	http.Redirect(w, r, articlePath(articleID), http.StatusFound)
}

// bindForm はリクエストからフォームを読み取り検証する。
// 戻り値のcleanupはアップロードファイルを閉じる。常に呼び出すこと。
func (h *ArticleHandler) bindForm(r *http.Request, view *articleFormView) (article.Input, func(), bool) {
	cleanup := func() {}

	view.Form = validation.ArticleForm{
		Text:        r.PostFormValue("text"),
		CommunityID: r.PostFormValue("community"),
		ClearImage:  r.PostFormValue("image-clear") != "",
	}
	errs := validation.Validate(&view.Form)
	if errs == nil {
		errs = validation.Errors{}
	}

	in := article.Input{
		Text:        view.Form.Text,
		CommunityID: view.Form.CommunityID,
		ClearImage:  view.Form.ClearImage,
	}

	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		in.Image = file
		cleanup = func() { file.Close() }
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		errs.Add("image", "画像を読み込めませんでした。ファイルサイズを確認してください。")
	}

	view.Errors = errs
	return in, cleanup, !errs.Any()
}

// addFieldError はサービス層の入力エラーをフォームのエラーとして追加する。
// 入力エラーでなければfalseを返す。
func (h *ArticleHandler) addFieldError(view *articleFormView, err error) bool {
	var fieldErr *validation.FieldError
	if !errors.As(err, &fieldErr) {
		return false
	}
	if view.Errors == nil {
		view.Errors = validation.Errors{}
	}
	view.Errors.Add(fieldErr.Field, fieldErr.Message)
	return true
}

func (h *ArticleHandler) renderForm(w http.ResponseWriter, r *http.Request, view *articleFormView) {
	communities, err := h.service.Communities(r.Context())
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	view.Communities = communities

	title := "新規投稿"
	if view.IsEdit {
		title = "投稿を編集"
	}
	// 検証エラーでもフォームの再表示は200で返す
	h.pages.Render(w, r, http.StatusOK, "posts/create_post.html", title, view)
}

// handleEditError は編集時のエラーを処理する。著者以外は詳細ページへリダイレクトする。
func (h *ArticleHandler) handleEditError(w http.ResponseWriter, r *http.Request, articleID string, err error) {
	if isAppErrorCode(err, model.ErrCodeNotArticleOwner) {
		http.Redirect(w, r, articlePath(articleID), http.StatusFound)
		return
	}
	h.pages.handleServiceError(w, r, err)
}

func articlePath(articleID string) string {
	return "/posts/" + articleID + "/"
}
