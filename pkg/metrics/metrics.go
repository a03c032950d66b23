// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、用量估算、网关与上传相关指标.
//
// Example:
//
//	import "github.com/yeisme/drivemini/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.UsageCacheTotal.WithLabelValues("hit").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/drivemini/pkg/configs"
)

const namespace = "drivemini"

// HTTP 指标.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)
)

// 业务指标.
var (
	// UsageCacheTotal 用量快照缓存访问结果，result 取 hit、miss、shared.
	UsageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_cache_total",
			Help:      "Usage snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	// EstimateDuration 一次完整估算的耗时.
	EstimateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "usage_walk_duration_seconds",
			Help:      "Duration of a full usage estimation walk",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// EstimateSkipped 估算中被跳过的项目，reason 取 metadata、listing.
	EstimateSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_skipped_items_total",
			Help:      "Objects or folders skipped during estimation",
		},
		[]string{"reason"},
	)

	// UsagePercent 最近一次快照的使用率.
	UsagePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "usage_percent",
			Help:      "Percent used in the most recent usage snapshot",
		},
	)

	// GatewayCalls 存储网关调用计数.
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Storage gateway calls by operation and result",
		},
		[]string{"op", "result"},
	)

	// UploadFiles 上传文件计数，result 取 done、error、rejected.
	UploadFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_files_total",
			Help:      "Uploaded files by result",
		},
		[]string{"result"},
	)

	// UploadBytes 已写入对象存储的字节数.
	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written to object storage by uploads",
		},
	)
)

var (
	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

func init() {
	registry.MustRegister(
		UsageCacheTotal,
		EstimateDuration,
		EstimateSkipped,
		UsagePercent,
		GatewayCalls,
		UploadFiles,
		UploadBytes,
	)
}

// InitMetrics 初始化Metrics，重复调用只生效一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	initOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(RequestCounter, RequestDuration, ActiveConnections)
	})

	return nil
}

// StartMetricsServer 在给定 engine 上挂载指标路由（默认 /metrics）以及可选的 pprof.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	debugEngine.GET(path, gin.WrapH(Handler()))

	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// Handler 返回注册表的 HTTP 处理器.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// NewCounter 创建新的计数器指标.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
	registry.MustRegister(counter)

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
	registry.MustRegister(gauge)

	return gauge
}
