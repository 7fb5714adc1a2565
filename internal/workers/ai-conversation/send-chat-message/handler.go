package sendchatmessage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
)

const (
	TaskType = "send-chat-message"
)

var (
	ErrMessageRequired = errors.New("MESSAGE_REQUIRED")
	ErrInvalidHistory  = errors.New("INVALID_HISTORY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Asker is the language model.
type Asker interface {
	Ask(ctx context.Context, message string, history []models.Message) (*llm.Reply, error)
}

type Handler struct {
	config *Config
	model  Asker
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, model Asker, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		model:  model,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
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
		h.fail(client, job, timer, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, timer, err)
		return
	}

	h.completeJob(client, job, output)
	timer.Done("")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewInvalidInputError(ErrMessageRequired.Error())
	}
	if err := models.ValidateConversation(input.ConversationHistory); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%s: %v", ErrInvalidHistory, err))
	}

	reply, err := h.model.Ask(ctx, message, input.ConversationHistory)
	if err != nil {
		metrics.ChatMessages.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.ChatMessages.WithLabelValues("success").Inc()

	history := make([]models.Message, 0, len(input.ConversationHistory)+2)
	history = append(history, input.ConversationHistory...)
	history = append(history,
		models.Message{Role: models.RoleUser, Content: message},
		models.Message{Role: models.RoleAssistant, Content: reply.Text},
	)

	h.logger.Info("chat reply received", map[string]interface{}{
		"conversationId": reply.ID,
		"inputTokens":    reply.Usage.InputTokens,
		"outputTokens":   reply.Usage.OutputTokens,
		"turns":          len(history) / 2,
	})

	return &Output{
		Response:            reply.Text,
		ConversationID:      reply.ID,
		Usage:               reply.Usage,
		ConversationHistory: history,
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

func (h *Handler) fail(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, err error) {
	timer.Done(string(apperrors.CodeOf(err)))
	h.errors.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
