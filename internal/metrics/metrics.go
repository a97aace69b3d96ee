package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_http_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	InsertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_inserts_total",
		Help: "Point inserts by tree and result (accepted/rejected)",
	}, []string{"tree", "result"})
	RemovesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_removes_total",
		Help: "Point removals by tree and result (removed/missing)",
	}, []string{"tree", "result"})
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_queries_total",
		Help: "Range queries by tree",
	}, []string{"tree"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spatial_query_duration_ms",
		Help:    "Range query duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
	}, []string{"tree"})
	QueryResultPoints = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spatial_query_result_points",
		Help:    "Number of points returned per range query",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	}, []string{"tree"})
	TreePoints = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spatial_tree_points",
		Help: "Points currently stored per tree",
	}, []string{"tree"})
	TreeNodes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spatial_tree_nodes",
		Help: "Nodes currently allocated per tree",
	}, []string{"tree"})
	OverflowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_depth_overflow_total",
		Help: "Inserts retained at max depth beyond node capacity",
	}, []string{"tree"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cache_hits_total",
		Help: "Query cache hits by layer (lru/redis)",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatial_cache_misses_total",
		Help: "Query cache misses across all layers",
	})
	SeedPointsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_seed_points_total",
		Help: "Points loaded from the seed store at startup",
	}, []string{"tree"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(InsertsTotal)
	prometheus.MustRegister(RemovesTotal)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(QueryResultPoints)
	prometheus.MustRegister(TreePoints)
	prometheus.MustRegister(TreeNodes)
	prometheus.MustRegister(OverflowTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(SeedPointsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }

// ForgetTree：删除树后清理按树维度的序列，避免残留过期标签
func ForgetTree(name string) {
	for _, v := range []*prometheus.CounterVec{InsertsTotal, RemovesTotal} {
		v.DeletePartialMatch(prometheus.Labels{"tree": name})
	}
	QueriesTotal.DeleteLabelValues(name)
	OverflowTotal.DeleteLabelValues(name)
	SeedPointsTotal.DeleteLabelValues(name)
	QueryDurationMs.DeleteLabelValues(name)
	QueryResultPoints.DeleteLabelValues(name)
	TreePoints.DeleteLabelValues(name)
	TreeNodes.DeleteLabelValues(name)
}
