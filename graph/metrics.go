package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus metrics for graph execution.
//
// Metrics exposed (all namespaced with "masf_"):
//
//  1. node_executions_total (counter): node activations.
//     Labels: node (path), status (success, error, closed).
//  2. node_latency_ms (histogram): forward duration in milliseconds.
//     Labels: node.
//  3. scheduler_passes (histogram): scheduling passes per composite invocation.
//     Labels: graph.
//  4. scheduler_exhausted_total (counter): invocations that stopped without
//     reaching their exit. Labels: graph, reason (pass_cap, stall).
//  5. loop_iterations (histogram): controller activations per loop invocation.
//     Labels: loop.
//  6. edge_transfers_total (counter): messages sent along edges. Labels: edge.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	g := graph.NewGraph(graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Safe for concurrent use.
type PrometheusMetrics struct {
	executions *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	passes     *prometheus.HistogramVec
	exhausted  *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	transfers  *prometheus.CounterVec
	registry   prometheus.Registerer
	mu         sync.RWMutex
	enabled    bool
}

// NewPrometheusMetrics creates and registers the execution metrics with
// registry. A nil registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.executions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "masf",
		Name:      "node_executions_total",
		Help:      "Node activations by outcome",
	}, []string{"node", "status"})

	pm.latency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "masf",
		Name:      "node_latency_ms",
		Help:      "Node forward duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"node"})

	pm.passes = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "masf",
		Name:      "scheduler_passes",
		Help:      "Scheduling passes per composite invocation",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"graph"})

	pm.exhausted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "masf",
		Name:      "scheduler_exhausted_total",
		Help:      "Composite invocations that stopped before reaching their exit",
	}, []string{"graph", "reason"})

	pm.iterations = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "masf",
		Name:      "loop_iterations",
		Help:      "Controller activations per loop invocation",
		Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100},
	}, []string{"loop"})

	pm.transfers = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "masf",
		Name:      "edge_transfers_total",
		Help:      "Messages sent along edges",
	}, []string{"edge"})

	return pm
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordNode records one activation of node with its outcome and forward
// duration. Skipped activations carry status "closed" and no latency.
func (pm *PrometheusMetrics) RecordNode(node, status string, latency time.Duration) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.executions.WithLabelValues(node, status).Inc()
	if status != "closed" {
		pm.latency.WithLabelValues(node).Observe(float64(latency.Milliseconds()))
	}
}

// ObservePasses records how many scheduling passes a composite invocation took.
func (pm *PrometheusMetrics) ObservePasses(graph string, passes int) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.passes.WithLabelValues(graph).Observe(float64(passes))
}

// IncrementExhausted counts an invocation that hit the pass cap or stalled.
func (pm *PrometheusMetrics) IncrementExhausted(graph, reason string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.exhausted.WithLabelValues(graph, reason).Inc()
}

// ObserveIterations records the controller activations of a loop invocation.
func (pm *PrometheusMetrics) ObserveIterations(loop string, iterations int) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.iterations.WithLabelValues(loop).Observe(float64(iterations))
}

// IncrementTransfers counts a message sent along edge.
func (pm *PrometheusMetrics) IncrementTransfers(edge string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.transfers.WithLabelValues(edge).Inc()
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
