package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/validation"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
)

// Completer runs a single-prompt completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*llm.Reply, error)
}

// Analyzer produces report data for a conversation.
type Analyzer interface {
	Analyze(ctx context.Context, history []models.Message) (*models.ReportData, error)
}

var (
	jsonFence  = regexp.MustCompile("(?s)```json\\n?(.*?)\\n?```")
	plainFence = regexp.MustCompile("(?s)```\\n?(.*?)\\n?```")
)

// Service asks the hosted model for a structured analysis.
type Service struct {
	model  Completer
	logger logger.Logger
}

func NewService(model Completer, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{model: model, logger: log.With(map[string]interface{}{"component": "analysis"})}
}

func (s *Service) Analyze(ctx context.Context, history []models.Message) (*models.ReportData, error) {
	if len(history) == 0 {
		return nil, apperrors.NewEmptyConversationError()
	}

	reply, err := s.model.Complete(ctx, llm.AnalysisPrompt(models.FormatTranscript(history)))
	if err != nil {
		return nil, err
	}

	data, err := Parse(reply.Text)
	if err != nil {
		s.logger.Warn("analysis reply rejected", map[string]interface{}{
			"error":       err.Error(),
			"rawResponse": apperrors.Truncate(reply.Text, 500),
		})
		return nil, err
	}

	s.logger.Info("analysis parsed", map[string]interface{}{
		"title":          data.ReportTitle,
		"scenarios":      len(data.Scenarios),
		"visualizations": len(data.Visualizations),
	})
	return data, nil
}

// ExtractJSON returns the body of the first ```json fence, else of the first
// plain fence, else text unchanged.
func ExtractJSON(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := plainFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// Parse extracts, validates and normalizes a model reply.
func Parse(raw string) (*models.ReportData, error) {
	body := strings.TrimSpace(ExtractJSON(raw))
	if !json.Valid([]byte(body)) {
		return nil, apperrors.NewAnalysisParseFailedError(raw, nil)
	}
	return decode([]byte(body), raw)
}

func decode(body []byte, raw string) (*models.ReportData, error) {
	if result := validation.ValidateReportData(body); !result.Valid {
		return nil, apperrors.NewAnalysisSchemaInvalidError(result.Summary())
	}

	var data models.ReportData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, apperrors.NewAnalysisParseFailedError(raw, err)
	}
	data.Normalize()
	return &data, nil
}
