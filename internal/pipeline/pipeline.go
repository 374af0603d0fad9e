package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// CandidateSource は1取得元からRawItemを取得するインターフェース。
type CandidateSource interface {
	// Meta は取得元の表示名と設定カテゴリを返す。
	Meta() model.SourceMeta
	// Fetch は取得元からRawItemを取得する。
	Fetch(ctx context.Context) ([]model.RawItem, error)
}

// ArchiveLoader は公開済み記事の全履歴を読み込むインターフェース。
type ArchiveLoader interface {
	LoadAll(ctx context.Context) ([]model.ArchiveEntry, error)
}

// RunMetrics はパイプライン実行のメトリクス収集インターフェース。
type RunMetrics interface {
	RecordSourceResult(sourceName string, ok bool, items int)
	RecordStageCount(stage string, count int)
	RecordArchiveDrop(kind string)
	RecordRunDuration(d time.Duration)
}

// Options はPipelineの実行パラメータ。
type Options struct {
	DedupePrefixLength int           // バッチ内重複排除のタイトルprefix長
	MaxCandidates      int           // 選抜段の上限件数
	SourceTimeout      time.Duration // 取得元ごとのフェッチタイムアウト
	MaxConcurrent      int           // 取得元フェッチの最大並列数
}

// Pipeline は取り込み・重複排除パイプラインの実行制御を行う。
// 各取得元をsemaphoreパターンで並列フェッチし、
// 正規化 → 採点 → バッチ内重複排除 → アーカイブ照合 → 選抜の順に候補を絞り込む。
// 取得元単位の失敗は非致命として扱い、残りの取得元だけで処理を継続する。
type Pipeline struct {
	sources    []CandidateSource
	normalizer *Normalizer
	scorer     *Scorer
	matcherCfg MatcherConfig
	archive    ArchiveLoader
	metrics    RunMetrics
	logger     *slog.Logger
	opts       Options
}

// New はPipelineの新しいインスタンスを生成する。
// metricsはnilを許容する。MaxConcurrentが0以下の場合はデフォルト値4を使用する。
func New(
	sources []CandidateSource,
	normalizer *Normalizer,
	scorer *Scorer,
	matcherCfg MatcherConfig,
	archive ArchiveLoader,
	metrics RunMetrics,
	logger *slog.Logger,
	opts Options,
) *Pipeline {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 15 * time.Second
	}
	return &Pipeline{
		sources:    sources,
		normalizer: normalizer,
		scorer:     scorer,
		matcherCfg: matcherCfg,
		archive:    archive,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
	}
}

// Run はパイプラインを1回実行し、選抜済みの候補リストを返す。
// 戻り値の順序はスコア降順（同点は取得元の設定順）で、キュレーション段が消費する。
func (p *Pipeline) Run(ctx context.Context) ([]model.Candidate, error) {
	start := time.Now()

	// アーカイブは実行ごとに1回だけ読み込む。
	// 読み込み失敗は空アーカイブとして扱い、履歴照合を事実上スキップする。
	entries, err := p.archive.LoadAll(ctx)
	if err != nil {
		p.logger.Warn("アーカイブの読み込みに失敗したため空アーカイブとして継続します",
			slog.String("error", err.Error()),
		)
		entries = nil
	}

	fetched := p.fetchAll(ctx)
	p.recordStage("qualified", len(fetched))

	deduped := DedupeBatch(fetched, p.opts.DedupePrefixLength)
	p.recordStage("batch_deduped", len(deduped))

	index := NewArchiveIndex(entries, p.matcherCfg)
	fresh := make([]model.Candidate, 0, len(deduped))
	for _, c := range deduped {
		kind := index.Match(c)
		if kind != MatchNone {
			if p.metrics != nil {
				p.metrics.RecordArchiveDrop(string(kind))
			}
			p.logger.Debug("公開済み記事を除外しました",
				slog.String("title", c.Title),
				slog.String("match_kind", string(kind)),
			)
			continue
		}
		fresh = append(fresh, c)
	}
	p.recordStage("unpublished", len(fresh))

	selected := Select(fresh, p.opts.MaxCandidates)
	p.recordStage("selected", len(selected))

	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordRunDuration(duration)
	}

	p.logger.Info("パイプライン実行が完了しました",
		slog.Int("archive_entries", len(entries)),
		slog.Int("qualified", len(fetched)),
		slog.Int("batch_deduped", len(deduped)),
		slog.Int("unpublished", len(fresh)),
		slog.Int("selected", len(selected)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return selected, nil
}

// fetchAll は全取得元を並列にフェッチし、正規化・採点済みの候補を
// 取得元の設定順で連結して返す。失敗した取得元は0件として扱う。
func (p *Pipeline) fetchAll(ctx context.Context) []model.Candidate {
	results := make([][]model.Candidate, len(p.sources))

	sem := make(chan struct{}, p.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i, src := range p.sources {
		wg.Add(1)
		go func(idx int, src CandidateSource) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = p.fetchOne(ctx, src)
		}(i, src)
	}

	wg.Wait()

	var all []model.Candidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// fetchOne は1取得元をフェッチし、採点ゲートを通過した候補だけを返す。
func (p *Pipeline) fetchOne(ctx context.Context, src CandidateSource) []model.Candidate {
	meta := src.Meta()

	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.SourceTimeout)
	defer cancel()

	items, err := src.Fetch(fetchCtx)
	if err != nil {
		p.logger.Error("取得元のフェッチに失敗しました",
			slog.String("source", meta.Name),
			slog.String("error", err.Error()),
		)
		if p.metrics != nil {
			p.metrics.RecordSourceResult(meta.Name, false, 0)
		}
		return nil
	}

	qualified := make([]model.Candidate, 0, len(items))
	for _, raw := range items {
		c := p.normalizer.Normalize(raw, meta)
		c.Score = p.scorer.Score(c)
		if !p.scorer.Qualifies(c.Score, c.SourceName) {
			continue
		}
		qualified = append(qualified, c)
	}

	if p.metrics != nil {
		p.metrics.RecordSourceResult(meta.Name, true, len(items))
	}

	p.logger.Info("取得元のフェッチが完了しました",
		slog.String("source", meta.Name),
		slog.Int("items", len(items)),
		slog.Int("qualified", len(qualified)),
	)

	return qualified
}

func (p *Pipeline) recordStage(stage string, count int) {
	if p.metrics != nil {
		p.metrics.RecordStageCount(stage, count)
	}
}
