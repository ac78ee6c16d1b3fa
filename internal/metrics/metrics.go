// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordTaskOperation(operation string)
	RecordSuggestLatency(duration time.Duration)
	RecordSuggestFallback()
	RecordSuggestUpstreamFailure()
	RecordSessionsCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus             *prometheus.CounterVec
	taskOperations         *prometheus.CounterVec
	suggestLatency         prometheus.Histogram
	suggestFallback        prometheus.Counter
	suggestUpstreamFailure prometheus.Counter
	sessionsCleaned        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		taskOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoman_task_operations_total",
			Help: "タスク操作種別ごとの成功数",
		}, []string{"operation"}),
		suggestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "todoman_suggest_latency_seconds",
			Help:    "AI提案リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		suggestFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoman_suggest_fallback_total",
			Help: "AI応答のパースに失敗しフォールバック文言を返した回数",
		}),
		suggestUpstreamFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoman_suggest_upstream_fail_total",
			Help: "AI提案の上流API呼び出し失敗の合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoman_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.taskOperations,
		c.suggestLatency,
		c.suggestFallback,
		c.suggestUpstreamFailure,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTaskOperation はタスク操作の成功を記録する。
// operationは"create", "update", "delete", "list"のいずれか。
func (c *Collector) RecordTaskOperation(operation string) {
	c.taskOperations.WithLabelValues(operation).Inc()
}

// RecordSuggestLatency はAI提案リクエストのレイテンシを記録する。
func (c *Collector) RecordSuggestLatency(duration time.Duration) {
	c.suggestLatency.Observe(duration.Seconds())
}

// RecordSuggestFallback はフォールバック文言を返したことを記録する。
func (c *Collector) RecordSuggestFallback() {
	c.suggestFallback.Inc()
}

// RecordSuggestUpstreamFailure は上流API呼び出しの失敗を記録する。
func (c *Collector) RecordSuggestUpstreamFailure() {
	c.suggestUpstreamFailure.Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
