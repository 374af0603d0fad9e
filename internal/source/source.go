// Package source は記事候補の取得元を提供する。
// RSS/Atomフィード（rss.go）と検索API（newsapi.go）の2種類の取得元を含む。
// 各取得元はフェッチ失敗時にエラーを返すだけで、リトライや状態管理は行わない。
// 失敗した取得元を0件として扱う判断はパイプライン側の責務。
package source

import (
	"context"

	"github.com/hitoshi/harenews/internal/model"
)

// userAgent は全取得元で使用するUser-Agentヘッダ。
const userAgent = "Harenews/1.0 News Pipeline"

// Source は1取得元からRawItemを取得するインターフェース。
type Source interface {
	// Meta は取得元の表示名と設定カテゴリを返す。
	Meta() model.SourceMeta
	// Fetch は取得元からRawItemを取得する。
	// コンテキストのタイムアウト・キャンセルを尊重する。
	Fetch(ctx context.Context) ([]model.RawItem, error)
}

// SSRFValidator はフェッチ前のURL検証インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
}
