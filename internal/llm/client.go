// Package llm talks to the hosted language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"zencalcs-assistant/internal/common/config"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/models"
)

type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	MaxTokens           int
	Temperature         float64
	AnalysisMaxTokens   int
	AnalysisTemperature float64
	Timeout             time.Duration
	MaxRetries          int
}

// ConfigFrom maps the application config onto the client settings.
func ConfigFrom(cfg *config.Config) Config {
	a := cfg.APIs.Anthropic
	return Config{
		APIKey:              a.APIKey,
		BaseURL:             a.BaseURL,
		Model:               a.Model,
		MaxTokens:           a.MaxTokens,
		Temperature:         a.Temperature,
		AnalysisMaxTokens:   a.AnalysisMaxTokens,
		AnalysisTemperature: a.AnalysisTemperature,
		Timeout:             time.Duration(a.Timeout) * time.Millisecond,
		MaxRetries:          a.MaxRetries,
	}
}

// Reply is one assistant completion.
type Reply struct {
	ID    string
	Text  string
	Usage models.Usage
}

type Client struct {
	api    anthropic.Client
	config Config
	logger logger.Logger
}

// NewClient builds a client. The SDK's own retries are disabled; Ask and
// Complete retry rate limits and server errors themselves.
func NewClient(cfg Config, log logger.Logger, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		api:    anthropic.NewClient(append(base, opts...)...),
		config: cfg,
		logger: log.With(map[string]interface{}{"component": "llm"}),
	}
}

// Ask sends message after history under the chat system prompt.
func (c *Client) Ask(ctx context.Context, message string, history []models.Message) (*Reply, error) {
	if err := models.ValidateConversation(history); err != nil {
		return nil, apperrors.NewLLMInvalidRequestError(err)
	}

	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	return c.send(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(c.config.Temperature),
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages:    msgs,
	})
}

// Complete runs a single-prompt completion with the analysis settings.
func (c *Client) Complete(ctx context.Context, prompt string) (*Reply, error) {
	return c.send(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.AnalysisMaxTokens),
		Temperature: anthropic.Float(c.config.AnalysisTemperature),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
}

func (c *Client) send(ctx context.Context, params anthropic.MessageNewParams) (*Reply, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, classify(ctx, ctx.Err())
			}
		}

		start := time.Now()
		msg, err := c.api.Messages.New(ctx, params)
		if err == nil {
			reply := toReply(msg)
			c.logger.Info("model reply received", map[string]interface{}{
				"model":        params.Model,
				"inputTokens":  reply.Usage.InputTokens,
				"outputTokens": reply.Usage.OutputTokens,
				"durationMs":   time.Since(start).Milliseconds(),
			})
			return reply, nil
		}

		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("model request failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	c.logger.Error("model request failed", map[string]interface{}{"error": lastErr.Error()})
	return nil, classify(ctx, lastErr)
}

func toReply(msg *anthropic.Message) *Reply {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Reply{
		ID:   msg.ID,
		Text: text.String(),
		Usage: models.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}

func statusOf(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func retryable(err error) bool {
	status := statusOf(err)
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// classify maps a transport failure onto the LLM error codes.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewLLMTimeoutError(err)
	}
	switch statusOf(err) {
	case http.StatusUnauthorized:
		return apperrors.NewLLMAuthFailedError(err)
	case http.StatusTooManyRequests:
		return apperrors.NewLLMRateLimitedError(err)
	case http.StatusBadRequest:
		return apperrors.NewLLMInvalidRequestError(err)
	}
	return apperrors.NewLLMUnavailableError(fmt.Errorf("model request: %w", err))
}

// HTTPStatus is the status the chat endpoint answers with for err, along
// with the user-facing message.
func HTTPStatus(err error) (int, string) {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeLLMAuthFailed:
		return http.StatusUnauthorized, "Invalid API key. Please check your ANTHROPIC_API_KEY environment variable."
	case apperrors.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."
	case apperrors.ErrCodeLLMInvalidRequest:
		return http.StatusBadRequest, "Invalid request. Please try rephrasing your question."
	case apperrors.ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout, "The assistant took too long to respond. Please try again."
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}
