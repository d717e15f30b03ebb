// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// フェッチ・認証結果のラベル値。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// プレースホルダークライアント、認証サービス、ビューレジストリから利用する。
type MetricsCollector interface {
	RecordRemoteFetch(resource, outcome string, duration time.Duration)
	RecordAuthAttempt(operation, outcome string)
	RecordSessionEvent(kind string)
	SetMountedViews(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	remoteFetch   *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	authAttempts  *prometheus.CounterVec
	sessionEvents *prometheus.CounterVec
	mountedViews  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remoteFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "albumdeck_remote_fetch_total",
			Help: "リモートコレクション取得の合計数",
		}, []string{"resource", "outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "albumdeck_remote_fetch_latency_seconds",
			Help:    "リモートコレクション取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "albumdeck_auth_attempts_total",
			Help: "IdPへの認証操作の合計数",
		}, []string{"operation", "outcome"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "albumdeck_session_events_total",
			Help: "セッション変更通知の合計数",
		}, []string{"kind"}),
		mountedViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "albumdeck_mounted_views",
			Help: "現在マウントされているリストビュー数",
		}),
	}

	reg.MustRegister(
		c.remoteFetch,
		c.fetchLatency,
		c.authAttempts,
		c.sessionEvents,
		c.mountedViews,
	)

	return c
}

// RecordRemoteFetch はリモート取得の結果とレイテンシを記録する。
func (c *Collector) RecordRemoteFetch(resource, outcome string, duration time.Duration) {
	c.remoteFetch.WithLabelValues(resource, outcome).Inc()
	c.fetchLatency.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordAuthAttempt は認証操作の結果を記録する。
func (c *Collector) RecordAuthAttempt(operation, outcome string) {
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordSessionEvent はセッション変更通知を記録する。
func (c *Collector) RecordSessionEvent(kind string) {
	c.sessionEvents.WithLabelValues(kind).Inc()
}

// SetMountedViews はマウント中のビュー数を記録する。
func (c *Collector) SetMountedViews(count int) {
	c.mountedViews.Set(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordRemoteFetch(string, string, time.Duration) {}
func (NopCollector) RecordAuthAttempt(string, string)                {}
func (NopCollector) RecordSessionEvent(string)                       {}
func (NopCollector) SetMountedViews(int)                             {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
