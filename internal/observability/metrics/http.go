package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 持有服务的全部 Prometheus 指标。每个实例使用独立的 Registry，
// 测试中可以重复创建而不会发生重复注册。
type Collector struct {
	registry  *prometheus.Registry
	namespace string

	requests   *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	importRows *prometheus.CounterVec
}

// New 创建指标收集器。namespace 为空时使用 taskhub。
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = "taskhub"
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"route", "method", "code"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Total number of HTTP requests that resulted in a server error.",
		}, []string{"route", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Rows processed by the import pipeline, by format and outcome.",
		}, []string{"format", "outcome"}),
	}
	c.namespace = namespace
	c.registry.MustRegister(
		c.requests,
		c.errors,
		c.duration,
		c.importRows,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func (c *Collector) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	if status >= http.StatusInternalServerError {
		c.errors.WithLabelValues(route, method).Inc()
	}
	c.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveImport 统计一次导入中成功与失败的行数。
func (c *Collector) ObserveImport(format string, imported, failed int) {
	if c == nil {
		return
	}
	c.importRows.WithLabelValues(format, "imported").Add(float64(imported))
	c.importRows.WithLabelValues(format, "failed").Add(float64(failed))
}

// RegisterTaskCount 注册一个在抓取时读取当前任务数量的 gauge。
func (c *Collector) RegisterTaskCount(count func() int) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "tasks",
		Help:      "Number of tasks currently held in the store.",
	}, func() float64 {
		return float64(count())
	})
	return c.registry.Register(gauge)
}

// Handler exposes the metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
