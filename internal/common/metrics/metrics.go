// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages sent to the language model, by outcome",
		},
		[]string{"status"},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Reports generated, by analysis source and outcome",
		},
		[]string{"source", "status"},
	)

	ReportPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_pages",
			Help:    "Number of pages per generated report",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 12, 20},
		},
	)

	ChartRenderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_render_failures_total",
			Help: "Charts replaced by a placeholder because rendering failed",
		},
		[]string{"chart_type"},
	)

	AnalysisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_cache_total",
			Help: "Analysis cache lookups, by result",
		},
		[]string{"result"},
	)

	ArchiveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_archive_failures_total",
			Help: "Report archive writes that failed, by target",
		},
		[]string{"target"},
	)
)

// JobTimer tracks one in-flight job for a task type.
type JobTimer struct {
	taskType string
	start    time.Time
}

// StartJob increments the active gauge and starts timing.
func StartJob(taskType string) *JobTimer {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTimer{taskType: taskType, start: time.Now()}
}

// Done records the outcome. An empty errorCode counts as completed.
func (t *JobTimer) Done(errorCode string) time.Duration {
	elapsed := time.Since(t.start)
	WorkerJobsActive.WithLabelValues(t.taskType).Dec()
	WorkerJobDuration.WithLabelValues(t.taskType).Observe(elapsed.Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(t.taskType).Inc()
	} else {
		WorkerJobsFailed.WithLabelValues(t.taskType, errorCode).Inc()
	}
	return elapsed
}
