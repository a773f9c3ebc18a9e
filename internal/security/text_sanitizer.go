// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は投稿・コメント本文に含まれるHTMLマークアップを除去し、
// プレーンテキストとして保存できる形に正規化する。
// 出力時のエスケープはテンプレート側で行うため、ここでは実体参照を元の文字に戻す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力テキストの正規化インターフェース。
type TextSanitizer interface {
	// Clean はマークアップを除去し、改行コードを\nに統一して前後の空白を取り除く。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyを使うTextSanitizerの実装。
// Policyはゴルーチンセーフなので共有してよい。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はマークアップを除去したプレーンテキストを返す。
func (s *textSanitizer) Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = s.policy.Sanitize(text)
	// StrictPolicyは&や<をエスケープして返すので元に戻す
	text = html.UnescapeString(text)
	return strings.TrimSpace(text)
}

var _ TextSanitizer = (*textSanitizer)(nil)
