package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/yatube/internal/auth"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error)
	Login(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// UserServiceInterface は退会処理に必要なサービスインターフェース。
type UserServiceInterface interface {
	Withdraw(ctx context.Context, userID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン・ログアウト・退会のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	users   UserServiceInterface
	pages   *Pages
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users UserServiceInterface, pages *Pages, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		pages:   pages,
		config:  config,
	}
}

type loginView struct {
	Username string
	Next     string
	Errors   validation.Errors
}

type signupView struct {
	Form   validation.SignupForm
	Errors validation.Errors
}

// Login はログインフォームを表示し、認証に成功したらセッションを発行する。
// GET, POST /auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, "users/login.html", "ログイン",
			loginView{Next: safeNext(r.URL.Query().Get("next"))})
		return
	}

	form := validation.LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	view := loginView{Username: form.Username, Next: safeNext(r.PostFormValue("next"))}

	if view.Errors = validation.Validate(&form); view.Errors.Any() {
		h.pages.Render(w, r, http.StatusOK, "users/login.html", "ログイン", view)
		return
	}

	_, session, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		if isAppErrorCode(err, model.ErrCodeInvalidCredentials) {
			view.Errors = validation.Errors{}
			view.Errors.Add("form", model.NewInvalidCredentialsError().Message)
			h.pages.Render(w, r, http.StatusOK, "users/login.html", "ログイン", view)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	target := view.Next
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Signup はユーザー登録フォームを表示し、登録後はそのままログイン状態にする。
// GET, POST /auth/signup/
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, "users/signup.html", "ユーザー登録", signupView{})
		return
	}

	view := signupView{Form: validation.SignupForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}}
	view.Form.Normalize()

	if view.Errors = validation.Validate(&view.Form); view.Errors.Any() {
		h.renderSignup(w, r, view)
		return
	}

	_, session, err := h.service.Signup(r.Context(), auth.SignupInput{
		Username: view.Form.Username,
		Email:    view.Form.Email,
		Password: view.Form.Password,
	})
	if err != nil {
		if isAppErrorCode(err, model.ErrCodeUsernameTaken) {
			view.Errors = validation.Errors{}
			view.Errors.Add("username", "このユーザー名は既に使用されています。")
			h.renderSignup(w, r, view)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout はセッションを破棄してトップページへリダイレクトする。
// POST /auth/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			h.pages.handleServiceError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Withdraw は退会の確認ページを表示し、確定したらアカウントを削除する。
// 投稿・コメント・購読はデータベースの外部キーでまとめて削除される。
// GET, POST /auth/withdraw/
func (h *AuthHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, "users/withdraw.html", "退会", nil)
		return
	}

	user := middleware.UserFromContext(r.Context())
	if err := h.users.Withdraw(r.Context(), user.ID); err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	slog.Info("ユーザーが退会しました", slog.String("user_id", user.ID))
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) renderSignup(w http.ResponseWriter, r *http.Request, view signupView) {
	// パスワードは再表示しない
	view.Form.Password = ""
	view.Form.PasswordConfirm = ""
	h.pages.Render(w, r, http.StatusOK, "users/signup.html", "ユーザー登録", view)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext はログイン後のリダイレクト先として安全なサイト内パスだけを返す。
// 外部URLやスキーム相対URLは空文字にする。
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}
