package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		storyJobsTotal,
		storyJobDurationSeconds,
		storyStageDurationSeconds,
		storyPagesTotal,
		storyJobsInFlight,
	)
}

var (
	storyJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_jobs_total",
			Help: "Total number of story generation jobs finished, labeled by final status.",
		},
		[]string{"status"}, // 'ready', 'failed'
	)

	storyJobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_job_duration_seconds",
			Help:    "Wall time of a story generation job.",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		},
		[]string{"status"},
	)

	storyStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_stage_duration_seconds",
			Help:    "Duration of each generation stage.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"stage"}, // 'text', 'images', 'persist', 'narration'
	)

	storyPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_pages_total",
			Help: "Pages produced, labeled by whether the illustration succeeded.",
		},
		[]string{"image"}, // 'ok', 'missing'
	)

	storyJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "story_jobs_in_flight",
			Help: "Story jobs currently running in the background pool.",
		},
	)
)

func IncStoryJob(status string, seconds float64) {
	storyJobsTotal.WithLabelValues(norm(status)).Inc()
	storyJobDurationSeconds.WithLabelValues(norm(status)).Observe(seconds)
}

func ObserveStage(stage string, seconds float64) {
	storyStageDurationSeconds.WithLabelValues(norm(stage)).Observe(seconds)
}

func AddPages(withImage, missing int) {
	storyPagesTotal.WithLabelValues("ok").Add(float64(withImage))
	storyPagesTotal.WithLabelValues("missing").Add(float64(missing))
}

func JobStarted()  { storyJobsInFlight.Inc() }
func JobFinished() { storyJobsInFlight.Dec() }
