// Package validation はフォーム入力の検証を提供する。
//
// go-playground/validator/v10 のシングルトンインスタンスで構造体タグを検証し、
// 結果をフィールド名（フォームのname属性）ごとのエラーメッセージとして返す。
// テンプレートはErrorsを受け取り、各入力欄の下にメッセージを表示する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Errors はフィールド名ごとのエラーメッセージ。
// ゼロ値（nil）はエラーなしを表す。
type Errors map[string][]string

// Add はフィールドにエラーメッセージを追加する。
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has はフィールドにエラーがあるかを返す。
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Get はフィールドのエラーメッセージを返す。
func (e Errors) Get(field string) []string {
	return e[field]
}

// Any はいずれかのフィールドにエラーがあるかを返す。
func (e Errors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// GetValidator はシングルトンのvalidatorを返す。
// フィールド名にはformタグの値を使う。
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		// 登録は初期化時のみなのでエラーは起こらない
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})

	return validate
}

// Validate は構造体タグに従ってフォームを検証する。
// 問題がなければnilを返す。
func Validate(form any) Errors {
	err := GetValidator().Struct(form)
	if err == nil {
		return nil
	}

	result := Errors{}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.Add("__all__", err.Error())
		return result
	}
	for _, fe := range fieldErrs {
		result.Add(fe.Field(), translate(fe))
	}
	return result
}

var messages = map[string]string{
	"required": "この項目は必須です。",
	"email":    "有効なメールアドレスを入力してください。",
	"uuid":     "正しく選択してください。",
	"username": "英数字と @/./+/-/_ のみ使用できます。",
	"slug":     "英数字とハイフン、アンダースコアのみ使用できます。",
	"eqfield":  "パスワードが一致しません。",
}

func translate(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s 文字以下で入力してください。", fe.Param())
	case "min":
		return fmt.Sprintf("%s 文字以上で入力してください。", fe.Param())
	default:
		return fmt.Sprintf("入力値が不正です（%s）。", fe.Tag())
	}
}

// FieldError はサービス層で検出した特定フィールドの入力エラー。
// 存在しないコミュニティの指定など、構造体タグでは表現できない検証に使う。
type FieldError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// NewFieldError はFieldErrorを生成する。
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}
