// Package security はユーザー入力の無害化機能を提供する。
//
// TextSanitizerService はタスク名などのプレーンテキスト入力から
// HTMLタグを除去し、ストアドXSSのリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyを使用し、全てのタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
// タスク名の保存前に使用される。
type TextSanitizerService interface {
	// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// 除去後の実体参照はデコードされる（"&amp;" → "&"）。
	// 前後の空白は取り除かれる。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
func (s *textSanitizer) SanitizeText(input string) string {
	stripped := s.policy.Sanitize(input)
	// bluemondayは残存テキストを実体参照にエスケープするため、
	// プレーンテキストとして保存する前にデコードして戻す。
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
