// Package metrics はルーティングエンジンのPrometheusメトリクスを提供する。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder はルーティング結果と生成サービス呼び出しの計測器
//
// nilのRecorderに対する呼び出しは何もしない。
type Recorder struct {
	registry    *prometheus.Registry
	routes      *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	genLatency  prometheus.Histogram
	classifiers *prometheus.CounterVec
}

// NewRecorder は専用レジストリを持つRecorderを作成
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hybridbot",
			Subsystem: "router",
			Name:      "messages_total",
			Help:      "Messages handled, by route.",
		}, []string{"route"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hybridbot",
			Subsystem: "fallback",
			Name:      "outcomes_total",
			Help:      "Generation service calls, by outcome.",
		}, []string{"outcome"}),
		genLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hybridbot",
			Subsystem: "fallback",
			Name:      "latency_seconds",
			Help:      "Generation service call latency.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 45},
		}),
		classifiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hybridbot",
			Subsystem: "classifier",
			Name:      "assignments_total",
			Help:      "Cluster assignments, by cluster.",
		}, []string{"cluster"}),
	}

	r.registry.MustRegister(r.routes, r.fallbacks, r.genLatency, r.classifiers)
	return r
}

// Registry はメトリクス公開用のレジストリを返す
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRoute は経路を1件記録
func (r *Recorder) ObserveRoute(route string) {
	if r == nil {
		return
	}
	r.routes.WithLabelValues(route).Inc()
}

// ObserveCluster はクラスタ割り当てを1件記録
func (r *Recorder) ObserveCluster(cluster string) {
	if r == nil {
		return
	}
	r.classifiers.WithLabelValues(cluster).Inc()
}

// ObserveGeneration は生成サービス呼び出しの結果と所要時間を記録
func (r *Recorder) ObserveGeneration(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(outcome).Inc()
	r.genLatency.Observe(elapsed.Seconds())
}
