// Package model はドメインモデルを定義する。
package model

import "time"

// Category は記事の話題タグを表す。
type Category string

const (
	// CategoryScience は科学・研究系の記事タグ。
	CategoryScience Category = "science"
	// CategoryEnvironment は環境・自然系の記事タグ。
	CategoryEnvironment Category = "environment"
	// CategoryCommunity は地域・コミュニティ系の記事タグ。
	CategoryCommunity Category = "community"
	// CategoryHealth は健康・医療系の記事タグ。
	CategoryHealth Category = "health"
	// CategoryTechnology は技術系の記事タグ。
	CategoryTechnology Category = "technology"
	// CategoryGeneral は分類不明な記事に付与するデフォルトタグ。
	CategoryGeneral Category = "general"
)

// validCategories は設定ファイルで指定可能なタグの集合。
var validCategories = map[Category]struct{}{
	CategoryScience:     {},
	CategoryEnvironment: {},
	CategoryCommunity:   {},
	CategoryHealth:      {},
	CategoryTechnology:  {},
	CategoryGeneral:     {},
}

// ParseCategory は文字列をCategoryに変換する。
// 未知の値はCategoryGeneralにフォールバックする。
func ParseCategory(s string) Category {
	c := Category(s)
	if _, ok := validCategories[c]; ok {
		return c
	}
	return CategoryGeneral
}

// RawItem はフィードや検索APIが返す取得元固有の生データを表す。
// パイプラインはNormalizerを通してCandidateに変換してから扱う。
type RawItem struct {
	Title       string
	Link        string
	Description string // 未サニタイズ
	Author      string
	SourceName  string // 記事単位の媒体名。検索APIのみ設定し、空なら取得元名を使う
	PublishedAt *time.Time
}

// SourceMeta は取得元の表示名と設定されたカテゴリを表す。
type SourceMeta struct {
	Name     string
	Category Category
}

// Candidate はパイプラインが扱う正規化済みの記事候補を表す。
// 1回のパイプライン実行ごとに生成され、キュレーションへの引き渡し後は破棄される。
type Candidate struct {
	ID          string
	Title       string
	Link        string
	Description string // サニタイズ済みプレーンテキスト
	PublishedAt time.Time
	SourceName  string
	Category    Category
	Score       int // Scorerが1回だけ設定する
}

// ArchiveEntry は公開済み記事の履歴レコードを表す。
// パイプラインのコアはこれを読み取り専用として扱い、
// 追記はキュレーションの承認フローだけが行う。
type ArchiveEntry struct {
	Headline      string // リライト後の見出し
	OriginalTitle string // 取得時の元タイトル（旧データでは空）
	SourceURL     string
	PublishedAt   time.Time
}

// PendingStatus はレビュー待ち記事の状態を表す。
type PendingStatus string

const (
	// PendingStatusPending はレビュー待ちの状態。
	PendingStatusPending PendingStatus = "pending"
	// PendingStatusApproved は承認済みの状態。
	PendingStatusApproved PendingStatus = "approved"
	// PendingStatusDenied は却下された状態。
	PendingStatusDenied PendingStatus = "denied"
)

// PendingArticle はリライト済みでレビュー待ちの記事を表す。
type PendingArticle struct {
	ID               string
	Candidate        Candidate
	RewrittenTitle   string
	RewrittenSummary string
	Confidence       string // verified / plausible / unverified
	ImageURL         string
	Status           PendingStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
