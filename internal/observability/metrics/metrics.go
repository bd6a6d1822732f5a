package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pathlab"

// ChatMetrics exposes counters/histograms for chat turns and the
// collaborators they call. It satisfies the observer interfaces of the
// agent, llm, labapi and session packages.
type ChatMetrics struct {
	turnsTotal      *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	llmTotal        *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	sessionsEvicted prometheus.Counter
	sessionsActive  prometheus.Gauge
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by routed intent and outcome",
		}, []string{"intent", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one chat turn",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"intent"}),
		llmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Language model calls by model, kind and status",
		}, []string{"model", "kind", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_latency_seconds",
			Help:      "Latency of language model calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model", "kind"}),
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labapi",
			Name:      "requests_total",
			Help:      "Lab API calls by operation and status",
		}, []string{"operation", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "labapi",
			Name:      "request_latency_seconds",
			Help:      "Latency of lab API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "evicted_total",
			Help:      "Sessions removed by the idle sweep",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions held in memory after the last sweep",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.llmTotal, m.llmLatency,
		m.backendTotal, m.backendLatency, m.sessionsEvicted, m.sessionsActive)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(labelOrNone(intent), outcome).Inc()
	m.turnLatency.WithLabelValues(labelOrNone(intent)).Observe(elapsed.Seconds())
}

func (m *ChatMetrics) ObserveLLMRequest(model, kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmTotal.WithLabelValues(model, kind, status).Inc()
	m.llmLatency.WithLabelValues(model, kind).Observe(elapsed.Seconds())
}

func (m *ChatMetrics) ObserveBackendRequest(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(operation, status).Inc()
	m.backendLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *ChatMetrics) ObserveSweep(evicted, active int) {
	if m == nil {
		return
	}
	m.sessionsEvicted.Add(float64(evicted))
	m.sessionsActive.Set(float64(active))
}

func labelOrNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
