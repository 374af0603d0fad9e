// Package pipeline は記事候補の取り込み・重複排除パイプラインを提供する。
// 正規化、ポジティビティ採点、バッチ内重複排除、アーカイブ照合、選抜の
// 各段と、それらを束ねる実行制御を含む。
package pipeline

import (
	"strings"

	"github.com/hitoshi/harenews/internal/model"
)

// ScorerConfig はポジティビティ採点の不変設定。
// キーワードリストと定数を構築時に1回だけ受け取り、以後変更しない。
type ScorerConfig struct {
	PositiveKeywords []string
	NegativeKeywords []string
	TrustedSources   []string
	PositivePoint    int // キーワード1種ごとの加点
	NegativePenalty  int // キーワード1種ごとの減点
	TrustBonus       int // 信頼ソースへの加点
}

// Scorer は候補のポジティビティスコアを計算する。
// 同一入力に対して常に同一スコアを返す純粋な判定器。
type Scorer struct {
	positive []string // 小文字化済み
	negative []string // 小文字化済み
	trusted  map[string]struct{}
	cfg      ScorerConfig
}

// NewScorer はScorerの新しいインスタンスを生成する。
// キーワードは構築時に小文字へ畳み込み、空文字列は無視する。
func NewScorer(cfg ScorerConfig) *Scorer {
	s := &Scorer{
		positive: foldKeywords(cfg.PositiveKeywords),
		negative: foldKeywords(cfg.NegativeKeywords),
		trusted:  make(map[string]struct{}, len(cfg.TrustedSources)),
		cfg:      cfg,
	}
	for _, name := range cfg.TrustedSources {
		if name == "" {
			continue
		}
		s.trusted[name] = struct{}{}
	}
	return s
}

// Score は候補のポジティビティスコアを計算する。
// タイトルと本文を連結・小文字化したテキストに対し、
// 含まれるネガティブキーワード1種ごとに減点、ポジティブキーワード1種ごとに加点し、
// 取得元が信頼ソースの場合はボーナスを加える。出現回数は数えない。
// 結果は負になり得る。
func (s *Scorer) Score(c model.Candidate) int {
	text := strings.ToLower(c.Title + " " + c.Description)

	score := 0
	for _, kw := range s.negative {
		if strings.Contains(text, kw) {
			score -= s.cfg.NegativePenalty
		}
	}
	for _, kw := range s.positive {
		if strings.Contains(text, kw) {
			score += s.cfg.PositivePoint
		}
	}
	if s.IsTrusted(c.SourceName) {
		score += s.cfg.TrustBonus
	}

	return score
}

// Qualifies は候補がパイプラインを通過できるかを判定する。
// スコアが正、または取得元が信頼ソースの場合に通過する。
// 信頼ソースはスコアが0以下でも通過できる（明示的なオーバーライド）。
func (s *Scorer) Qualifies(score int, sourceName string) bool {
	if score > 0 {
		return true
	}
	return s.IsTrusted(sourceName)
}

// IsTrusted は取得元名が信頼ソース集合に含まれるかを返す。
func (s *Scorer) IsTrusted(sourceName string) bool {
	_, ok := s.trusted[sourceName]
	return ok
}

// foldKeywords はキーワードリストを小文字に畳み込み、空要素を除去する。
func foldKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
