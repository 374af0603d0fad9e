package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Sources は取得元・キーワードリスト・判定パラメータを保持する。
// YAMLファイルから読み込み、未指定の項目には組み込みデフォルトを適用する。
// パイプラインには不変の値として渡される。
type Sources struct {
	DefaultCategory string         `yaml:"default_category"`
	Feeds           []FeedSource   `yaml:"feeds"`
	Queries         []QuerySource  `yaml:"queries"`
	Scoring         ScoringConfig  `yaml:"scoring"`
	Dedupe          DedupeConfig   `yaml:"dedupe"`
	ArchiveMatch    ArchiveConfig  `yaml:"archive_match"`
	Selector        SelectorConfig `yaml:"selector"`
	FallbackImages  FallbackImages `yaml:"fallback_images"`
}

// FeedSource はRSS/Atomフィード1件の定義。
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// QuerySource は検索API1クエリ分の定義。
type QuerySource struct {
	Query    string `yaml:"query"`
	Category string `yaml:"category"`
}

// ScoringConfig はポジティビティ採点のキーワードと定数。
type ScoringConfig struct {
	PositiveKeywords []string `yaml:"positive_keywords"`
	NegativeKeywords []string `yaml:"negative_keywords"`
	TrustedSources   []string `yaml:"trusted_sources"`
	PositivePoint    int      `yaml:"positive_point"`
	NegativePenalty  int      `yaml:"negative_penalty"`
	TrustBonus       int      `yaml:"trust_bonus"`
}

// DedupeConfig はバッチ内重複排除のパラメータ。
type DedupeConfig struct {
	TitlePrefixLength int `yaml:"title_prefix_length"`
}

// ArchiveConfig はアーカイブ照合のパラメータ。
type ArchiveConfig struct {
	TitlePrefixLength   int     `yaml:"title_prefix_length"`
	SignificantWordLen  int     `yaml:"significant_word_length"`
	MinSignificantWords int     `yaml:"min_significant_words"`
	OverlapThreshold    float64 `yaml:"overlap_threshold"`
}

// SelectorConfig は選抜段のパラメータ。
type SelectorConfig struct {
	MaxCandidates int `yaml:"max_candidates"`
}

// FallbackImages はカテゴリ別の代替画像URLプール。
type FallbackImages map[string][]string

// defaultSources は組み込みデフォルト設定を返す。
// キーワードリストは英語ニュース向けの初期セット。
func defaultSources() Sources {
	return Sources{
		DefaultCategory: "general",
		Scoring: ScoringConfig{
			PositiveKeywords: []string{
				"recovery", "breakthrough", "rescued", "thriving", "record high",
				"donated", "volunteers", "restored", "cured", "celebrates",
				"milestone", "success", "revived", "protected", "wins",
			},
			NegativeKeywords: []string{
				"death", "killed", "war", "crisis", "disaster",
				"collapse", "fraud", "attack", "lawsuit", "scandal",
			},
			TrustedSources:  []string{"Good News Network", "Positive News"},
			PositivePoint:   2,
			NegativePenalty: 10,
			TrustBonus:      5,
		},
		Dedupe: DedupeConfig{
			TitlePrefixLength: 50,
		},
		ArchiveMatch: ArchiveConfig{
			TitlePrefixLength:   80,
			SignificantWordLen:  3,
			MinSignificantWords: 4,
			OverlapThreshold:    0.7,
		},
		Selector: SelectorConfig{
			MaxCandidates: 100,
		},
	}
}

// LoadSources はYAMLファイルからSourcesを読み込む。
// ファイルが存在しない場合は警告を出して組み込みデフォルトを返す。
// パース失敗は設定ミスとみなしエラーを返す。
func LoadSources(path string) (*Sources, error) {
	cfg := defaultSources()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("取得元設定ファイルが見つからないためデフォルト設定を使用します",
				slog.String("path", path),
			)
			return &cfg, nil
		}
		return nil, fmt.Errorf("取得元設定ファイルの読み込みに失敗: %w", err)
	}

	var fileCfg Sources
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return nil, fmt.Errorf("取得元設定ファイルのパースに失敗: %w", err)
	}

	mergeSources(&cfg, fileCfg)
	return &cfg, nil
}

// mergeSources はファイル設定をデフォルトに上書きマージする。
// スライスは空でない場合のみ置き換える。
func mergeSources(base *Sources, override Sources) {
	if override.DefaultCategory != "" {
		base.DefaultCategory = override.DefaultCategory
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Queries) > 0 {
		base.Queries = override.Queries
	}

	if len(override.Scoring.PositiveKeywords) > 0 {
		base.Scoring.PositiveKeywords = override.Scoring.PositiveKeywords
	}
	if len(override.Scoring.NegativeKeywords) > 0 {
		base.Scoring.NegativeKeywords = override.Scoring.NegativeKeywords
	}
	if len(override.Scoring.TrustedSources) > 0 {
		base.Scoring.TrustedSources = override.Scoring.TrustedSources
	}
	if override.Scoring.PositivePoint > 0 {
		base.Scoring.PositivePoint = override.Scoring.PositivePoint
	}
	if override.Scoring.NegativePenalty > 0 {
		base.Scoring.NegativePenalty = override.Scoring.NegativePenalty
	}
	if override.Scoring.TrustBonus > 0 {
		base.Scoring.TrustBonus = override.Scoring.TrustBonus
	}

	if override.Dedupe.TitlePrefixLength > 0 {
		base.Dedupe.TitlePrefixLength = override.Dedupe.TitlePrefixLength
	}

	if override.ArchiveMatch.TitlePrefixLength > 0 {
		base.ArchiveMatch.TitlePrefixLength = override.ArchiveMatch.TitlePrefixLength
	}
	if override.ArchiveMatch.SignificantWordLen > 0 {
		base.ArchiveMatch.SignificantWordLen = override.ArchiveMatch.SignificantWordLen
	}
	if override.ArchiveMatch.MinSignificantWords > 0 {
		base.ArchiveMatch.MinSignificantWords = override.ArchiveMatch.MinSignificantWords
	}
	if override.ArchiveMatch.OverlapThreshold > 0 {
		base.ArchiveMatch.OverlapThreshold = override.ArchiveMatch.OverlapThreshold
	}

	if override.Selector.MaxCandidates > 0 {
		base.Selector.MaxCandidates = override.Selector.MaxCandidates
	}

	if len(override.FallbackImages) > 0 {
		base.FallbackImages = override.FallbackImages
	}
}
