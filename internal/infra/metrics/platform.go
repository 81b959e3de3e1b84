package metrics

import (
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo, dbConns, statusCacheTotal, httpRequestsTotal, httpRequestSeconds)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storybook_build_info",
			Help: "Always 1; labels carry the running version, commit and Go runtime.",
		},
		[]string{"version", "commit", "go"},
	)

	dbConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storybook_db_conns",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"},
	)

	statusCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_status_cache_total",
			Help: "Story status lookups by cache outcome (hit, miss, corrupt).",
		},
		[]string{"result"},
	)
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_http_requests_total",
			Help: "API requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storybook_http_request_seconds",
			Help:    "API request latency by route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route"},
	)
)

func ObserveHTTP(method, route string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestSeconds.WithLabelValues(route).Observe(seconds)
}

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}

// SetDBConns publishes a pool snapshot. max is the configured ceiling.
func SetDBConns(total, idle, acquired, max int32) {
	dbConns.WithLabelValues("total").Set(float64(total))
	dbConns.WithLabelValues("idle").Set(float64(idle))
	dbConns.WithLabelValues("acquired").Set(float64(acquired))
	dbConns.WithLabelValues("max").Set(float64(max))
}

func IncStatusCache(result string) { statusCacheTotal.WithLabelValues(norm(result)).Inc() }
