// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"zencalcs-assistant/internal/common/metrics"
)

// WorkerOptions controls job activation for one task type.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Concurrency   int
}

// CamundaWorker is an open job worker for a single task type.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker. Handler panics are recovered and logged so a
// single bad job cannot take the process down; the job then times out and is
// re-activated by the broker.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler worker.JobHandler, logger *zap.Logger) *CamundaWorker {
	log := logger.With(zap.String("taskType", taskType))

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			defer func() {
				if r := recover(); r != nil {
					metrics.WorkerJobsFailed.WithLabelValues(taskType, "PANIC").Inc()
					log.Error("job handler panicked", zap.Any("panic", r), zap.Int64("jobKey", job.Key))
				}
			}()
			handler(jc, job)
		})

	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}
	if opts.Concurrency > 0 {
		step = step.Concurrency(opts.Concurrency)
	}

	jw := step.Open()
	log.Info("worker started", zap.Int("maxJobsActive", opts.MaxJobsActive))

	return &CamundaWorker{worker: jw, logger: log, taskType: taskType}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the worker and waits for in-flight jobs until ctx expires.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker")
	w.worker.Close()

	done := make(chan struct{})
	go func() {
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not drain before shutdown deadline")
	}
}
