package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_jobs_submitted_total",
		Help: "Total analysis jobs accepted by the API.",
	})
	jobsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_jobs_started_total",
		Help: "Total analysis jobs picked up by a worker.",
	})
	jobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_jobs_completed_total",
		Help: "Total analysis jobs that reached completed.",
	})
	jobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_jobs_failed_total",
		Help: "Total analysis jobs that reached failed, by error code.",
	}, []string{"code"})
	jobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_job_duration_seconds",
		Help:    "Wall time from processing start to a terminal state.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video_job_queue_depth",
		Help: "Messages waiting in the in-process job queue.",
	})
	jobsCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_jobs_cleaned_total",
		Help: "Terminal jobs removed by the retention janitor.",
	})
	workerMessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_worker_messages_received_total",
		Help: "Queue messages received by workers.",
	})
	workerMessagesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_worker_messages_discarded_total",
		Help: "Queue messages dropped as unrecoverable (empty, undecodable, unknown job).",
	})
)

// IncJobSubmitted increments the submitted counter.
func IncJobSubmitted() {
	jobsSubmittedTotal.Inc()
}

// IncJobStarted increments the started counter.
func IncJobStarted() {
	jobsStartedTotal.Inc()
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted() {
	jobsCompletedTotal.Inc()
}

// IncJobFailed increments the failed counter for the given error code.
func IncJobFailed(code string) {
	jobsFailedTotal.WithLabelValues(code).Inc()
}

// ObserveJobDurationSeconds records a job's processing wall time.
func ObserveJobDurationSeconds(value float64) {
	if value < 0 {
		value = 0
	}
	jobDurationSeconds.Observe(value)
}

// SetQueueDepth records the in-process queue backlog.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// AddJobsCleaned counts jobs removed by the janitor.
func AddJobsCleaned(count int) {
	if count > 0 {
		jobsCleanedTotal.Add(float64(count))
	}
}

// IncWorkerMessageReceived counts a received queue message.
func IncWorkerMessageReceived() {
	workerMessagesReceivedTotal.Inc()
}

// IncWorkerMessageDiscarded counts a message dropped as unrecoverable.
func IncWorkerMessageDiscarded() {
	workerMessagesDiscardedTotal.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
