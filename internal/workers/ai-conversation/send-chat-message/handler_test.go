package sendchatmessage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
)

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: map[string]interface{}{}}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

type mockModel struct {
	reply   *llm.Reply
	err     error
	message string
	history []models.Message
}

func (m *mockModel) Ask(_ context.Context, message string, history []models.Message) (*llm.Reply, error) {
	m.message = message
	m.history = history
	return m.reply, m.err
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func TestExecute_Success(t *testing.T) {
	model := &mockModel{reply: &llm.Reply{
		ID:    "msg_01",
		Text:  "Your monthly payment is $1,520.06.",
		Usage: models.Usage{InputTokens: 40, OutputTokens: 12},
	}}
	h := NewHandler(createTestConfig(), model, NewTestLogger(t))

	prior := []models.Message{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello! What would you like to calculate?"},
	}
	out, err := h.Execute(context.Background(), &Input{
		Message:             "  Mortgage of $300,000 at 5% for 30 years  ",
		ConversationHistory: prior,
	})
	require.NoError(t, err)

	assert.Equal(t, "Mortgage of $300,000 at 5% for 30 years", model.message)
	assert.Equal(t, prior, model.history)
	assert.Equal(t, "Your monthly payment is $1,520.06.", out.Response)
	assert.Equal(t, "msg_01", out.ConversationID)
	assert.Equal(t, int64(12), out.Usage.OutputTokens)

	require.Len(t, out.ConversationHistory, 4)
	assert.Equal(t, models.RoleUser, out.ConversationHistory[2].Role)
	assert.Equal(t, "Your monthly payment is $1,520.06.", out.ConversationHistory[3].Content)
	assert.Len(t, prior, 2, "input history must not be modified")
}

func TestExecute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{name: "empty message", input: &Input{Message: "   "}},
		{
			name: "unknown role",
			input: &Input{
				Message:             "hi",
				ConversationHistory: []models.Message{{Role: "system", Content: "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &mockModel{}
			h := NewHandler(createTestConfig(), model, NewTestLogger(t))

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
			assert.Empty(t, model.message, "model must not be called")
		})
	}
}

func TestExecute_ModelErrorPassesThrough(t *testing.T) {
	model := &mockModel{err: apperrors.NewLLMRateLimitedError(errors.New("429"))}
	h := NewHandler(createTestConfig(), model, NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMRateLimited, apperrors.CodeOf(err))
	assert.Equal(t, 2, apperrors.GetRetryCount(apperrors.CodeOf(err)))
}
