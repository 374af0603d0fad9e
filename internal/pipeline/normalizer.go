package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/harenews/internal/model"
)

// TextSanitizer は説明文をプレーンテキスト化するインターフェース。
type TextSanitizer interface {
	// PlainText はHTMLタグと実体参照を除去したテキストを返す。
	PlainText(raw string) string
}

// Normalizer は取得元固有のRawItemを正規化済みCandidateに変換する。
// 変換は必ず成功する。欠落フィールドは空文字列または取得時刻で補完する。
type Normalizer struct {
	defaultCategory model.Category
	sanitizer       TextSanitizer
	now             func() time.Time
	newID           func() string
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewNormalizer(defaultCategory model.Category, sanitizer TextSanitizer, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		defaultCategory: defaultCategory,
		sanitizer:       sanitizer,
		now:             now,
		newID:           func() string { return uuid.New().String() },
	}
}

// Normalize はRawItemをCandidateに変換する。
// 公開日時が欠落している場合は取得時刻で補完し、
// カテゴリが未設定の場合はデフォルトタグを付与する。
// スコアはこの時点では未定義（0）であり、Scorerが設定する。
func (n *Normalizer) Normalize(raw model.RawItem, meta model.SourceMeta) model.Candidate {
	// 検索APIは記事ごとに実際の媒体名を返すため、信頼ソース判定に使えるよう優先する
	sourceName := meta.Name
	if trimmed := strings.TrimSpace(raw.SourceName); trimmed != "" {
		sourceName = trimmed
	}

	c := model.Candidate{
		ID:          n.newID(),
		Title:       strings.TrimSpace(raw.Title),
		Link:        strings.TrimSpace(raw.Link),
		Description: strings.TrimSpace(raw.Description),
		SourceName:  sourceName,
		Category:    meta.Category,
	}

	if n.sanitizer != nil {
		c.Description = n.sanitizer.PlainText(c.Description)
	}

	if raw.PublishedAt != nil {
		c.PublishedAt = *raw.PublishedAt
	} else {
		c.PublishedAt = n.now()
	}

	if c.Category == "" {
		c.Category = n.defaultCategory
	}
	if c.Category == "" {
		c.Category = model.CategoryGeneral
	}

	return c
}
