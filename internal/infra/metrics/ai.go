package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerCallsTotal,
		providerCallsLatencyMs,
		providerFallbacksTotal,
		aiTokensIn,
	)
}

var (
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Calls to generation providers per kind/provider/outcome.",
		},
		[]string{"kind", "provider", "success"},
	)

	providerCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_calls_latency_ms",
			Help:    "Generation provider latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"kind", "provider"},
	)

	providerFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_fallbacks_total",
			Help: "Times a chain moved past a failed provider.",
		},
		[]string{"kind", "from"},
	)

	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of estimated prompt (input) tokens per model.",
		},
		[]string{"model"},
	)
)

// ObserveProviderCall records one call of kind text|image|audio|storage.
func ObserveProviderCall(kind, provider string, latencyMs int64, success bool) {
	providerCallsTotal.WithLabelValues(norm(kind), norm(provider), strconv.FormatBool(success)).Inc()
	providerCallsLatencyMs.WithLabelValues(norm(kind), norm(provider)).Observe(float64(latencyMs))
}

func IncFallback(kind, from string) {
	providerFallbacksTotal.WithLabelValues(norm(kind), norm(from)).Inc()
}

func AddPromptTokens(model string, n int) {
	aiTokensIn.WithLabelValues(norm(model)).Add(float64(n))
}
