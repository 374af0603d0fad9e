package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はフィード説明文のプレーンテキスト化インターフェース。
// 採点はタイトルと説明文の部分文字列照合で行うため、
// HTMLタグや実体参照が残っているとキーワード判定を阻害する。
type TextSanitizerService interface {
	// PlainText はHTMLタグを全て除去し、実体参照を展開した
	// プレーンテキストを返す。空文字列には空文字列を返す。冪等。
	PlainText(raw string) string
}

var spaceRunRe = regexp.MustCompile(`\s+`)

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// PlainText はHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはテキストを実体参照にエスケープして返すため、
// 適用後にアンエスケープして元の文字に戻し、連続空白を1つに圧縮する。
func (s *textSanitizer) PlainText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	unescaped := html.UnescapeString(stripped)
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(unescaped, " "))
}

var _ TextSanitizerService = (*textSanitizer)(nil)
