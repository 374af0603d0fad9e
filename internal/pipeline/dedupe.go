package pipeline

import (
	"strings"

	"github.com/hitoshi/harenews/internal/model"
)

// DedupeBatch は同一バッチ内の重複候補を除去する。
// キーは小文字化したタイトルの先頭prefixLenルーンで、
// 同一キーの候補は入力順で最初の1件だけが残る（順序は保持される）。
// 複数フィードが同じ配信記事を載せた場合のほぼ同一見出しを対象とした
// 粗い判定であり、意味的な重複は検出しない。
// prefixLenが0以下の場合はタイトル全体をキーとする。
func DedupeBatch(candidates []model.Candidate, prefixLen int) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := batchKey(c.Title, prefixLen)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}

// batchKey はバッチ内重複判定のキーを生成する。
func batchKey(title string, prefixLen int) string {
	folded := strings.ToLower(title)
	if prefixLen <= 0 {
		return folded
	}
	runes := []rune(folded)
	if len(runes) > prefixLen {
		runes = runes[:prefixLen]
	}
	return string(runes)
}
