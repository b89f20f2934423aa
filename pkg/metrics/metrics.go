package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ── HTTP ──

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_http_requests_total",
			Help: "HTTP 请求总数",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendar_http_request_duration_seconds",
			Help:    "HTTP 请求耗时（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ── 审批 ──

	approvalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_approval_transitions_total",
			Help: "事件审批状态迁移次数",
		},
		[]string{"to"},
	)

	// ── 展开 ──

	seriesExpanded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_series_expanded_total",
			Help: "范围查询中展开的重复系列数量",
		},
	)

	seriesTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_series_truncated_total",
			Help: "因超过实例上限被截断的系列数量",
		},
	)
)

// RecordHTTPRequest 记录一次 HTTP 请求，状态码按 2xx/4xx 等分组
func RecordHTTPRequest(method, route string, statusCode int, durationSeconds float64) {
	status := "unknown"
	if statusCode >= 100 && statusCode < 600 {
		status = strconv.Itoa(statusCode/100) + "xx"
	}

	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordApprovalTransition 记录事件状态迁移（pending_approval / confirmed / rejected）
func RecordApprovalTransition(to string) {
	approvalTransitions.WithLabelValues(to).Inc()
}

// RecordSeriesExpansion 记录一次系列展开
func RecordSeriesExpansion(truncated bool) {
	seriesExpanded.Inc()
	if truncated {
		seriesTruncated.Inc()
	}
}

// RegisterDBStats 注册 database/sql 连接池指标；重复注册视为成功
func RegisterDBStats(db *sql.DB, dbName string) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, dbName))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
