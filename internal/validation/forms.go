package validation

import "strings"

// ArticleForm は投稿作成・編集フォーム。画像はmediaパッケージで別途検証する。
type ArticleForm struct {
	Text        string `form:"text" validate:"required,max=10000"`
	CommunityID string `form:"community" validate:"omitempty,uuid"`
	ClearImage  bool   `form:"image-clear"`
}

// CommentForm はコメント投稿フォーム。
type CommentForm struct {
	Text string `form:"text" validate:"required,max=2000"`
}

// SignupForm はユーザー登録フォーム。
type SignupForm struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,max=254,email"`
	Password        string `form:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

// LoginForm はログインフォーム。
type LoginForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required,max=128"`
}

// CommunityForm はコミュニティ作成の入力。管理コマンドから使う。
type CommunityForm struct {
	Slug        string `form:"slug" validate:"required,max=50,slug"`
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
}

// Normalize は前後の空白を取り除く。パスワードは入力のまま扱う。
func (f *SignupForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// Normalize は前後の空白を取り除く。
func (f *CommunityForm) Normalize() {
	f.Slug = strings.TrimSpace(f.Slug)
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
}
