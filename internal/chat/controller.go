// Package chat holds per-session conversation state.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/report"
)

// Fixed assistant messages.
const (
	MsgSendFailed   = "Sorry, I encountered an error. Please try again later."
	MsgNoHistory    = "There are no calculations to report yet. Please start a conversation first."
	MsgReportReady  = "📊 Your calculation report has been generated and downloaded as a PDF file."
	MsgReportFailed = "Sorry, I encountered an error generating the report. Please try again later."
	MsgConfirmNew   = "Are you sure you want to start a new calculation? This will clear the current conversation."
)

var (
	ErrBusy         = errors.New("session is awaiting a response")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoHistory    = errors.New("conversation is empty")
)

type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_response"
)

// Asker sends a message with prior history to the language model.
type Asker interface {
	Ask(ctx context.Context, message string, history []models.Message) (*llm.Reply, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, sessionID string, history []models.Message) (*report.Artifact, error)
}

// Turn is what the user sees after sending a message. Err is set when the
// model call failed and Message is the fixed apology.
type Turn struct {
	Message string
	Usage   models.Usage
	Err     error
}

// ReportOutcome is what the user sees after asking for a report.
type ReportOutcome struct {
	Message  string
	Artifact *report.Artifact
	Err      error
}

// Controller serializes operations on one conversation. Only one operation
// may be in flight; the lock is not held while the model or the report
// pipeline runs.
type Controller struct {
	id      string
	model   Asker
	reports ReportGenerator
	logger  logger.Logger

	mu      sync.Mutex
	state   State
	history []models.Message
}

func NewController(id string, model Asker, reports ReportGenerator, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Controller{
		id:      id,
		model:   model,
		reports: reports,
		logger:  log.With(map[string]interface{}{"sessionId": id}),
		state:   StateIdle,
	}
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of the conversation.
func (c *Controller) History() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.history...)
}

// begin moves to awaiting and snapshots the history.
func (c *Controller) begin() ([]models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaiting {
		return nil, ErrBusy
	}
	c.state = StateAwaiting
	return append([]models.Message(nil), c.history...), nil
}

func (c *Controller) end(appended ...models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, appended...)
	c.state = StateIdle
}

// Send asks the model. Empty text and sends while awaiting are ignored.
// History only grows when the model answered.
func (c *Controller) Send(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ChatMessages.WithLabelValues("ignored").Inc()
		return Turn{}, ErrEmptyMessage
	}

	history, err := c.begin()
	if err != nil {
		metrics.ChatMessages.WithLabelValues("ignored").Inc()
		return Turn{}, err
	}

	reply, err := c.model.Ask(ctx, text, history)
	if err != nil {
		c.end()
		metrics.ChatMessages.WithLabelValues("failed").Inc()
		c.logger.Error("chat message failed", map[string]interface{}{"error": err.Error()})
		return Turn{Message: MsgSendFailed, Err: err}, nil
	}

	c.end(
		models.Message{Role: models.RoleUser, Content: text},
		models.Message{Role: models.RoleAssistant, Content: reply.Text},
	)
	metrics.ChatMessages.WithLabelValues("success").Inc()
	return Turn{Message: reply.Text, Usage: reply.Usage}, nil
}

// GenerateReport runs the report pipeline over the current history.
func (c *Controller) GenerateReport(ctx context.Context) (ReportOutcome, error) {
	history, err := c.begin()
	if err != nil {
		return ReportOutcome{}, err
	}
	defer c.end()

	if len(history) == 0 {
		return ReportOutcome{Message: MsgNoHistory, Err: ErrNoHistory}, nil
	}

	art, err := c.reports.Generate(ctx, c.id, history)
	if err != nil {
		c.logger.Error("report generation failed", map[string]interface{}{"error": err.Error()})
		return ReportOutcome{Message: MsgReportFailed, Err: err}, nil
	}
	return ReportOutcome{Message: MsgReportReady, Artifact: art}, nil
}

// Narrative asks the model for a Markdown report of the conversation. The
// exchange is not added to the history.
func (c *Controller) Narrative(ctx context.Context) (string, error) {
	history, err := c.begin()
	if err != nil {
		return "", err
	}
	defer c.end()

	if len(history) == 0 {
		return "", ErrNoHistory
	}
	reply, err := c.model.Ask(ctx, llm.ReportPrompt, history)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// NewCalculation clears the conversation. A non-empty conversation is only
// cleared when confirm returns true; a nil confirm counts as yes.
func (c *Controller) NewCalculation(confirm func() bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaiting {
		return false, ErrBusy
	}
	if len(c.history) > 0 && confirm != nil && !confirm() {
		return false, nil
	}
	c.history = nil
	return true, nil
}
