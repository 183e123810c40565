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
	RecordReservationCreated()
	RecordReservationRejected(reason string)
	RecordSpaceCreated()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reservationsCreated  prometheus.Counter
	reservationsRejected *prometheus.CounterVec
	spacesCreated        prometheus.Counter
	httpStatus           *prometheus.CounterVec
	requestLatency       prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rezerveme_reservations_created_total",
			Help: "作成された予約の合計数",
		}),
		reservationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rezerveme_reservations_rejected_total",
			Help: "拒否された予約の理由別合計数",
		}, []string{"reason"}),
		spacesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rezerveme_spaces_created_total",
			Help: "作成されたスペースの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rezerveme_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rezerveme_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.reservationsCreated,
		c.reservationsRejected,
		c.spacesCreated,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordReservationCreated は予約作成の成功を記録する。
func (c *Collector) RecordReservationCreated() {
	c.reservationsCreated.Inc()
}

// RecordReservationRejected は予約作成の拒否を理由付きで記録する。
// 理由は "capacity"、"unknown_space"、"invalid_date" のいずれか。
func (c *Collector) RecordReservationRejected(reason string) {
	c.reservationsRejected.WithLabelValues(reason).Inc()
}

// RecordSpaceCreated はスペース作成の成功を記録する。
func (c *Collector) RecordSpaceCreated() {
	c.spacesCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

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
