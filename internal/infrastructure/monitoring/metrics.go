package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 額度判定結果標籤
const (
	OutcomeAllowed     = "allowed"
	OutcomeExhausted   = "exhausted"
	OutcomeUnavailable = "unavailable"
)

// Metrics Prometheus 指標集合，nil 時所有方法皆為 no-op
type Metrics struct {
	registry *prometheus.Registry

	quotaDecisions  *prometheus.CounterVec
	storeRetries    prometheus.Counter
	storeFailures   prometheus.Counter
	compareTotal    *prometheus.CounterVec
	compareDuration prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics 創建並註冊指標
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota check-and-increment decisions by outcome",
		}, []string{"outcome"}),
		storeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_store_retries_total",
			Help:      "Retried quota store operations",
		}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_store_failures_total",
			Help:      "Quota store operations that failed after all retries",
		}),
		compareTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_compare_total",
			Help:      "Recipe comparisons by result",
		}, []string{"result"}),
		compareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recipe_compare_duration_seconds",
			Help:      "Recipe comparison duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.quotaDecisions,
		m.storeRetries,
		m.storeFailures,
		m.compareTotal,
		m.compareDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry 返回底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler /metrics 處理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuotaDecision 記錄額度判定
func (m *Metrics) ObserveQuotaDecision(outcome string) {
	if m == nil {
		return
	}
	m.quotaDecisions.WithLabelValues(outcome).Inc()
}

// IncStoreRetry 記錄一次儲存重試
func (m *Metrics) IncStoreRetry() {
	if m == nil {
		return
	}
	m.storeRetries.Inc()
}

// IncStoreFailure 記錄一次最終失敗
func (m *Metrics) IncStoreFailure() {
	if m == nil {
		return
	}
	m.storeFailures.Inc()
}

// ObserveCompare 記錄一次食譜比對
func (m *Metrics) ObserveCompare(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.compareTotal.WithLabelValues(result).Inc()
	m.compareDuration.Observe(d.Seconds())
}

// ObserveHTTP 記錄一次 HTTP 請求
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
