// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はパイプライン実行のPrometheusメトリクスを収集する。
type Collector struct {
	sourceFetch    *prometheus.CounterVec
	sourceItems    *prometheus.CounterVec
	stageCount     *prometheus.GaugeVec
	archiveDrops   *prometheus.CounterVec
	rewriteResults *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sourceFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harenews_source_fetch_total",
			Help: "取得元ごとのフェッチ試行数（結果別）",
		}, []string{"source", "result"}),
		sourceItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harenews_source_items_total",
			Help: "取得元ごとに取得した記事の合計数",
		}, []string{"source"}),
		stageCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harenews_pipeline_stage_candidates",
			Help: "直近のパイプライン実行における各段階の候補数",
		}, []string{"stage"}),
		archiveDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harenews_archive_drop_total",
			Help: "公開済み判定で除外された候補数（一致種別ごと）",
		}, []string{"kind"}),
		rewriteResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harenews_rewrite_total",
			Help: "リライト処理の結果数（成功/失敗別）",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harenews_pipeline_run_duration_seconds",
			Help:    "パイプライン1回の実行時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sourceFetch,
		c.sourceItems,
		c.stageCount,
		c.archiveDrops,
		c.rewriteResults,
		c.runDuration,
	)

	return c
}

// RecordSourceResult は取得元1件のフェッチ結果と取得件数を記録する。
func (c *Collector) RecordSourceResult(sourceName string, ok bool, items int) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.sourceFetch.WithLabelValues(sourceName, result).Inc()
	c.sourceItems.WithLabelValues(sourceName).Add(float64(items))
}

// RecordStageCount はパイプライン各段階の候補数を記録する。
func (c *Collector) RecordStageCount(stage string, count int) {
	c.stageCount.WithLabelValues(stage).Set(float64(count))
}

// RecordArchiveDrop は公開済み判定による除外を一致種別付きで記録する。
func (c *Collector) RecordArchiveDrop(kind string) {
	c.archiveDrops.WithLabelValues(kind).Inc()
}

// RecordRewriteResult はリライト処理の成否を記録する。
func (c *Collector) RecordRewriteResult(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.rewriteResults.WithLabelValues(result).Inc()
}

// RecordRunDuration はパイプライン1回の実行時間を記録する。
func (c *Collector) RecordRunDuration(d time.Duration) {
	c.runDuration.Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
