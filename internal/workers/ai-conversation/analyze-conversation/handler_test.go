package analyzeconversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/analysis"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/models"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(map[string]interface{}) Logger { return l }

type mockResolver struct {
	result       *analysis.Result
	err          error
	called       bool
	preferRemote bool
}

func (m *mockResolver) Resolve(_ context.Context, _ []models.Message, preferRemote bool) (*analysis.Result, error) {
	m.called = true
	m.preferRemote = preferRemote
	return m.result, m.err
}

var transcript = []models.Message{
	{Role: models.RoleUser, Content: "I want to save $500 a month for 10 years"},
	{Role: models.RoleAssistant, Content: "At 5% you would have $77,641."},
}

func newTestHandler(t *testing.T, r Resolver, preferRemote bool) *Handler {
	h := NewHandler(&Config{Timeout: 5 * time.Second, PreferRemote: preferRemote}, r, &TestLogger{t: t})
	h.now = func() time.Time { return time.Date(2025, 3, 4, 9, 0, 0, 0, time.FixedZone("EST", -5*3600)) }
	return h
}

func TestExecute_Success(t *testing.T) {
	resolver := &mockResolver{result: &analysis.Result{
		Data:   models.ReportData{ReportTitle: "Savings Plan"},
		Source: analysis.SourceRemote,
	}}
	h := newTestHandler(t, resolver, true)

	out, err := h.Execute(context.Background(), &Input{ConversationHistory: transcript})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "Savings Plan", out.Analysis.ReportTitle)
	assert.Equal(t, analysis.SourceRemote, out.Source)
	assert.Equal(t, time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC), out.Timestamp)
	assert.True(t, resolver.preferRemote)
}

func TestExecute_PreferRemoteOverride(t *testing.T) {
	resolver := &mockResolver{result: &analysis.Result{Source: analysis.SourceLocal}}
	h := newTestHandler(t, resolver, true)

	local := false
	_, err := h.Execute(context.Background(), &Input{ConversationHistory: transcript, PreferRemote: &local})
	require.NoError(t, err)
	assert.False(t, resolver.preferRemote)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		resolved error
		wantCode apperrors.ErrorCode
		called   bool
	}{
		{
			name:     "empty conversation",
			input:    &Input{},
			wantCode: apperrors.ErrCodeEmptyConversation,
		},
		{
			name:     "bad role",
			input:    &Input{ConversationHistory: []models.Message{{Role: "tool"}}},
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "unparseable analysis",
			input:    &Input{ConversationHistory: transcript},
			resolved: apperrors.NewAnalysisParseFailedError("nope", nil),
			wantCode: apperrors.ErrCodeAnalysisParseFailed,
			called:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{err: tt.resolved}
			h := newTestHandler(t, resolver, false)

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, tt.called, resolver.called)
		})
	}
}
