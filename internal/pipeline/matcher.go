package pipeline

import (
	"regexp"
	"strings"

	"github.com/hitoshi/harenews/internal/model"
)

// MatcherConfig はアーカイブ照合の不変設定。
type MatcherConfig struct {
	TitlePrefixLength   int     // 正規化タイトルの切り詰め長
	SignificantWordLen  int     // この長さを超える単語だけを照合対象とする
	MinSignificantWords int     // 両タイトルがこの語数に満たない場合はファジー照合しない
	OverlapThreshold    float64 // 一致語数 / min(語数) がこの値以上なら重複
}

// MatchKind はアーカイブ照合の一致種別を表す。
type MatchKind string

const (
	// MatchNone は未公開（一致なし）。
	MatchNone MatchKind = "none"
	// MatchURL は取得元URLの完全一致。
	MatchURL MatchKind = "url"
	// MatchTitle は正規化タイトルの完全一致。
	MatchTitle MatchKind = "title"
	// MatchFuzzy は単語重なり率によるファジー一致。
	MatchFuzzy MatchKind = "fuzzy"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ArchiveIndex は公開済み記事集合に対する照合用インデックス。
// パイプライン実行ごとに全ArchiveEntryから1回だけ構築する。
// リライト後の見出しに加え、元タイトルが記録されている場合はそれも索引する。
type ArchiveIndex struct {
	cfg      MatcherConfig
	urls     map[string]struct{}
	titles   map[string]struct{}
	wordSets []map[string]struct{} // ファジー照合用、正規化タイトルごとの有意単語集合
}

// NewArchiveIndex はArchiveEntry集合から照合インデックスを構築する。
func NewArchiveIndex(entries []model.ArchiveEntry, cfg MatcherConfig) *ArchiveIndex {
	ix := &ArchiveIndex{
		cfg:    cfg,
		urls:   make(map[string]struct{}, len(entries)),
		titles: make(map[string]struct{}, len(entries)),
	}

	for _, e := range entries {
		if e.SourceURL != "" {
			ix.urls[e.SourceURL] = struct{}{}
		}
		ix.indexTitle(e.Headline)
		ix.indexTitle(e.OriginalTitle)
	}

	return ix
}

// indexTitle は1タイトルを完全一致用・ファジー照合用の両索引に追加する。
func (ix *ArchiveIndex) indexTitle(title string) {
	norm := normalizeTitle(title, ix.cfg.TitlePrefixLength)
	if norm == "" {
		return
	}
	ix.titles[norm] = struct{}{}
	ix.wordSets = append(ix.wordSets, significantWords(norm, ix.cfg.SignificantWordLen))
}

// Match は候補がアーカイブ内のいずれかの記事と一致するかを判定し、
// 一致種別を返す。判定は次の順で行い、最初の一致で確定する:
//
//  1. 取得元URLの完全一致
//  2. 正規化タイトルの完全一致
//  3. 単語重なり率によるファジー一致（全アーカイブタイトルを走査）
func (ix *ArchiveIndex) Match(c model.Candidate) MatchKind {
	if c.Link != "" {
		if _, ok := ix.urls[c.Link]; ok {
			return MatchURL
		}
	}

	norm := normalizeTitle(c.Title, ix.cfg.TitlePrefixLength)
	if norm == "" {
		return MatchNone
	}
	if _, ok := ix.titles[norm]; ok {
		return MatchTitle
	}

	candWords := significantWords(norm, ix.cfg.SignificantWordLen)
	if len(candWords) < ix.cfg.MinSignificantWords {
		return MatchNone
	}

	for _, archWords := range ix.wordSets {
		if len(archWords) < ix.cfg.MinSignificantWords {
			continue
		}

		matches := 0
		for w := range candWords {
			if _, ok := archWords[w]; ok {
				matches++
			}
		}

		denom := len(candWords)
		if len(archWords) < denom {
			denom = len(archWords)
		}
		if float64(matches)/float64(denom) >= ix.cfg.OverlapThreshold {
			return MatchFuzzy
		}
	}

	return MatchNone
}

// IsPublished は候補が公開済みかを返す。
func (ix *ArchiveIndex) IsPublished(c model.Candidate) bool {
	return ix.Match(c) != MatchNone
}

// normalizeTitle はアーカイブ照合用にタイトルを正規化する。
// 小文字化 → 英数字と空白以外を除去 → 連続空白を1つに圧縮 → 前後trim →
// 先頭prefixLen文字に切り詰め。
func normalizeTitle(title string, prefixLen int) string {
	s := strings.ToLower(title)
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if prefixLen > 0 && len(s) > prefixLen {
		s = strings.TrimSpace(s[:prefixLen])
	}
	return s
}

// significantWords は正規化済みタイトルから有意単語の集合を抽出する。
// minLenを超える長さの単語だけが対象となる。
func significantWords(normTitle string, minLen int) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normTitle) {
		if len(w) > minLen {
			words[w] = struct{}{}
		}
	}
	return words
}
