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
// サービス層と定期検証ジョブから利用する。
type MetricsCollector interface {
	RecordReportSubmitted(status string, official bool)
	RecordFlagCreated()
	RecordUserBanned()
	RecordGeocodeResult(found bool)
	RecordGeocodeLatency(duration time.Duration)
	RecordBulletinScan(matched bool)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reportsSubmitted *prometheus.CounterVec
	flagsCreated     prometheus.Counter
	usersBanned      prometheus.Counter
	geocodeResults   *prometheus.CounterVec
	geocodeLatency   prometheus.Histogram
	bulletinScans    *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ubalerta_reports_submitted_total",
			Help: "投稿されたアラートの合計数",
		}, []string{"status", "official"}),
		flagsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ubalerta_flags_created_total",
			Help: "作成された旗（虚偽申告）の合計数",
		}),
		usersBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ubalerta_users_banned_total",
			Help: "閾値超過で自動BANされたユーザーの合計数",
		}),
		geocodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ubalerta_geocode_results_total",
			Help: "ジオコーディングの結果数（found/fallback別）",
		}, []string{"result"}),
		geocodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ubalerta_geocode_latency_seconds",
			Help:    "ジオコーディングのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		bulletinScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ubalerta_bulletin_scans_total",
			Help: "公報スキャンの実行数（matched/unmatched別）",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ubalerta_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.reportsSubmitted,
		c.flagsCreated,
		c.usersBanned,
		c.geocodeResults,
		c.geocodeLatency,
		c.bulletinScans,
		c.httpStatus,
	)

	return c
}

// RecordReportSubmitted はアラート投稿を記録する。
func (c *Collector) RecordReportSubmitted(status string, official bool) {
	c.reportsSubmitted.WithLabelValues(status, strconv.FormatBool(official)).Inc()
}

// RecordFlagCreated は旗の作成を記録する。
func (c *Collector) RecordFlagCreated() {
	c.flagsCreated.Inc()
}

// RecordUserBanned は自動BANの発動を記録する。
func (c *Collector) RecordUserBanned() {
	c.usersBanned.Inc()
}

// RecordGeocodeResult はジオコーディングの成否を記録する。
func (c *Collector) RecordGeocodeResult(found bool) {
	result := "fallback"
	if found {
		result = "found"
	}
	c.geocodeResults.WithLabelValues(result).Inc()
}

// RecordGeocodeLatency はジオコーディングのレイテンシを記録する。
func (c *Collector) RecordGeocodeLatency(duration time.Duration) {
	c.geocodeLatency.Observe(duration.Seconds())
}

// RecordBulletinScan は公報スキャンの実行を記録する。
func (c *Collector) RecordBulletinScan(matched bool) {
	result := "unmatched"
	if matched {
		result = "matched"
	}
	c.bulletinScans.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NoopCollector は何も記録しないMetricsCollector実装。テストで使用する。
type NoopCollector struct{}

func (NoopCollector) RecordReportSubmitted(status string, official bool) {}
func (NoopCollector) RecordFlagCreated()                                {}
func (NoopCollector) RecordUserBanned()                                 {}
func (NoopCollector) RecordGeocodeResult(found bool)                    {}
func (NoopCollector) RecordGeocodeLatency(duration time.Duration)       {}
func (NoopCollector) RecordBulletinScan(matched bool)                   {}
func (NoopCollector) RecordHTTPStatus(statusCode int)                   {}

// compile-time interface checks
var _ MetricsCollector = (*Collector)(nil)
var _ MetricsCollector = NoopCollector{}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
