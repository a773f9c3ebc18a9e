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
// ミドルウェア、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordPageCache(hit bool)
	RecordArticleCreated()
	RecordCommentCreated()
	RecordSubscriptionChange(action string)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	pageCache       *prometheus.CounterVec
	articlesCreated prometheus.Counter
	commentsCreated prometheus.Counter
	subscriptions   *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yatube_http_request_duration_seconds",
			Help:    "リクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		pageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_page_cache_requests_total",
			Help: "ページキャッシュの参照数（hit / miss）",
		}, []string{"result"}),
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_articles_created_total",
			Help: "作成された投稿の合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_subscription_changes_total",
			Help: "フォロー・フォロー解除の操作数",
		}, []string{"action"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.pageCache,
		c.articlesCreated,
		c.commentsCreated,
		c.subscriptions,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPageCache はページキャッシュのヒット・ミスを記録する。
func (c *Collector) RecordPageCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.pageCache.WithLabelValues(result).Inc()
}

// RecordArticleCreated は投稿の作成を記録する。
func (c *Collector) RecordArticleCreated() {
	c.articlesCreated.Inc()
}

// RecordCommentCreated はコメントの作成を記録する。
func (c *Collector) RecordCommentCreated() {
	c.commentsCreated.Inc()
}

// RecordSubscriptionChange はフォロー（follow）・フォロー解除（unfollow）を記録する。
func (c *Collector) RecordSubscriptionChange(action string) {
	c.subscriptions.WithLabelValues(action).Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordPageCache(bool)               {}
func (NopCollector) RecordArticleCreated()              {}
func (NopCollector) RecordCommentCreated()              {}
func (NopCollector) RecordSubscriptionChange(string)    {}
func (NopCollector) RecordSessionsCleaned(int64)        {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
