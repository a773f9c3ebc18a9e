// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は画面に表示するエラー情報を表す。
// エラーページに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleNotFound    = "ARTICLE_NOT_FOUND"
	ErrCodeCommunityNotFound  = "COMMUNITY_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeNotArticleOwner    = "NOT_ARTICLE_OWNER"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeCommunityExists    = "COMMUNITY_EXISTS"
	ErrCodeForbidden          = "FORBIDDEN"
)

// NewArticleNotFoundError は投稿未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *AppError {
	return &AppError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", articleID),
		Category: "content",
		Action:   "投稿のURLを確認してください。",
	}
}

// NewCommunityNotFoundError はコミュニティ未検出エラーを生成する。
func NewCommunityNotFoundError(slug string) *AppError {
	return &AppError{
		Code:     ErrCodeCommunityNotFound,
		Message:  fmt.Sprintf("指定されたコミュニティが見つかりません: %s", slug),
		Category: "content",
		Action:   "コミュニティのURLを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(username string) *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", username),
		Category: "content",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewNotArticleOwnerError は投稿の著者以外が編集しようとした場合のエラーを生成する。
// ハンドラーはこのエラーを受け取ると詳細ページへリダイレクトする。
func NewNotArticleOwnerError(articleID string) *AppError {
	return &AppError{
		Code:     ErrCodeNotArticleOwner,
		Message:  fmt.Sprintf("この投稿を編集する権限がありません: %s", articleID),
		Category: "auth",
		Action:   "自分の投稿のみ編集できます。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー名とパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUsernameTakenError は既に使われているユーザー名で登録しようとした場合のエラーを生成する。
func NewUsernameTakenError(username string) *AppError {
	return &AppError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewCommunityExistsError はslugが重複するコミュニティを作成しようとした場合のエラーを生成する。
func NewCommunityExistsError(slug string) *AppError {
	return &AppError{
		Code:     ErrCodeCommunityExists,
		Message:  fmt.Sprintf("このslugのコミュニティは既に存在します: %s", slug),
		Category: "validation",
		Action:   "別のslugを指定してください。",
	}
}

// NewForbiddenError は操作が許可されていない場合のエラーを生成する。
func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeForbidden,
		Message:  reason,
		Category: "auth",
		Action:   "ページを再読み込みしてから、もう一度お試しください。",
	}
}
