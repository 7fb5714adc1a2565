package analyzeconversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"zencalcs-assistant/internal/analysis"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/models"
)

const (
	TaskType = "analyze-conversation"
)

var (
	ErrInvalidHistory = errors.New("INVALID_HISTORY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Resolver turns a transcript into report data.
type Resolver interface {
	Resolve(ctx context.Context, history []models.Message, preferRemote bool) (*analysis.Result, error)
}

type Handler struct {
	config   *Config
	resolver Resolver
	errors   *apperrors.ErrorHandler
	logger   Logger
	now      func() time.Time
}

func NewHandler(config *Config, resolver Resolver, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		resolver: resolver,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
		now:      time.Now,
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
		err = apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		timer.Done(string(apperrors.CodeOf(err)))
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		timer.Done(string(apperrors.CodeOf(err)))
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
	timer.Done("")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.ConversationHistory) == 0 {
		return nil, apperrors.NewEmptyConversationError()
	}
	if err := models.ValidateConversation(input.ConversationHistory); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%s: %v", ErrInvalidHistory, err))
	}

	preferRemote := h.config.PreferRemote
	if input.PreferRemote != nil {
		preferRemote = *input.PreferRemote
	}

	result, err := h.resolver.Resolve(ctx, input.ConversationHistory, preferRemote)
	if err != nil {
		return nil, err
	}

	h.logger.Info("conversation analyzed", map[string]interface{}{
		"source":    result.Source,
		"title":     result.Data.ReportTitle,
		"charts":    len(result.Data.Visualizations),
		"scenarios": len(result.Data.Scenarios),
		"messages":  len(input.ConversationHistory),
	})

	return &Output{
		Success:   true,
		Analysis:  result.Data,
		Source:    result.Source,
		Timestamp: h.now().UTC(),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
