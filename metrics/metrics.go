// Package metrics 定义核心组件的 Prometheus 指标。
//
// 所有方法对 nil *Metrics 安全：未配置指标时组件照常工作。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "knnkit"

type Metrics struct {
	SimilarityRows           *prometheus.CounterVec
	NeighborhoodBuildSeconds *prometheus.HistogramVec
	NeighborhoodEntities     *prometheus.GaugeVec
	RecommendRequests        *prometheus.CounterVec
	RecommendDuration        *prometheus.HistogramVec
	RecommendEmpty           *prometheus.CounterVec
	RerankPicks              *prometheus.CounterVec
	RecallSourceFailures     *prometheus.CounterVec
}

// New 在 reg 上注册指标；reg 为 nil 时指标不注册（仅在进程内计数）。
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SimilarityRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_rows_total",
			Help:      "Number of similarity rows computed via the inverted index",
		}, []string{"kind"}),
		NeighborhoodBuildSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "neighborhood_build_seconds",
			Help:      "Time spent materialising a cached neighborhood",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"mode"}),
		NeighborhoodEntities: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "neighborhood_entities",
			Help:      "Entities covered by the last materialised neighborhood",
		}, []string{"mode"}),
		RecommendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation queries served",
		}, []string{"recommender"}),
		RecommendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Recommendation query latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"recommender"}),
		RecommendEmpty: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_empty_total",
			Help:      "Queries that produced an empty ranked list",
		}, []string{"recommender"}),
		RerankPicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_picks_total",
			Help:      "Greedy rerank selections",
		}, []string{"strategy"}),
		RecallSourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_source_failures_total",
			Help:      "Fan-out recall sources that failed or timed out",
		}, []string{"source"}),
	}
}

func (m *Metrics) SimilarityRow(kind string) {
	if m == nil {
		return
	}
	m.SimilarityRows.WithLabelValues(kind).Inc()
}

func (m *Metrics) NeighborhoodBuilt(mode string, entities int, took time.Duration) {
	if m == nil {
		return
	}
	m.NeighborhoodBuildSeconds.WithLabelValues(mode).Observe(took.Seconds())
	m.NeighborhoodEntities.WithLabelValues(mode).Set(float64(entities))
}

func (m *Metrics) Recommended(recommender string, results int, took time.Duration) {
	if m == nil {
		return
	}
	m.RecommendRequests.WithLabelValues(recommender).Inc()
	m.RecommendDuration.WithLabelValues(recommender).Observe(took.Seconds())
	if results == 0 {
		m.RecommendEmpty.WithLabelValues(recommender).Inc()
	}
}

func (m *Metrics) Reranked(strategy string, picks int) {
	if m == nil {
		return
	}
	m.RerankPicks.WithLabelValues(strategy).Add(float64(picks))
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.RecallSourceFailures.WithLabelValues(source).Inc()
}
