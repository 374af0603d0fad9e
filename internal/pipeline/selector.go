package pipeline

import (
	"sort"

	"github.com/hitoshi/harenews/internal/model"
)

// Select は候補をスコア降順に安定ソートし、先頭maxCount件に切り詰める。
// 同点の候補は入力順を維持する。上流の並びは取得元の信頼順を反映しているため、
// 安定ソートは仕様上の要件であって最適化ではない。
// maxCountが0以下の場合は切り詰めを行わない。
func Select(candidates []model.Candidate, maxCount int) []model.Candidate {
	out := make([]model.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}

	return out
}
