package generatereport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/report"
)

const (
	TaskType = "generate-report"
)

var (
	ErrNotArchived = errors.New("report was not archived")
)

// Generator is the report pipeline.
type Generator interface {
	Generate(ctx context.Context, sessionID string, history []models.Message) (*report.Artifact, error)
	FromData(ctx context.Context, sessionID string, data models.ReportData) (*report.Artifact, error)
}

type Handler struct {
	config    *Config
	generator Generator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, generator Generator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		generator: generator,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	timer := metrics.StartJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, timer, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, timer, err)
		return
	}

	h.completeJob(client, job, output)
	timer.Done("")
}

// execute prefers supplied analysis over the transcript.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var (
		art *report.Artifact
		err error
	)
	switch {
	case input.Analysis != nil:
		art, err = h.generator.FromData(ctx, input.SessionID, *input.Analysis)
	case len(input.ConversationHistory) > 0:
		art, err = h.generator.Generate(ctx, input.SessionID, input.ConversationHistory)
	default:
		return nil, apperrors.NewEmptyConversationError()
	}
	if err != nil {
		return nil, err
	}

	if h.config.RequireArchive && art.ObjectKey == "" {
		return nil, apperrors.NewReportStoreFailedError("s3", ErrNotArchived)
	}

	h.logger.Info("report generated", map[string]interface{}{
		"reportId":      art.ID,
		"sessionId":     input.SessionID,
		"pages":         art.PageCount,
		"chartFailures": art.ChartFailures,
		"source":        art.Source,
	})

	return &Output{
		ReportID:      art.ID,
		Filename:      art.Filename,
		ObjectKey:     art.ObjectKey,
		PageCount:     art.PageCount,
		ChartFailures: art.ChartFailures,
		FailedCharts:  art.FailedCharts,
		Source:        art.Source,
		Title:         art.Data.ReportTitle,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, err error) {
	timer.Done(string(apperrors.CodeOf(err)))
	h.errors.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
