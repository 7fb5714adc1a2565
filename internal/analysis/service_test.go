package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
)

const analysisJSON = `{
  "reportTitle": "Mortgage Payment Analysis",
  "calculationType": ["Financial"],
  "executiveSummary": {"keyResult": "$1,520.06 per month", "quickFacts": ["Loan: $300,000"], "bottomLine": "Affordable."},
  "inputs": [{"parameter": "Principal", "value": 300000, "unit": "$"}],
  "results": {"primary": {"value": "$1,520.06", "description": "Monthly payment"}},
  "scenarios": [],
  "visualizations": [{"type": "pie", "title": "Split", "data": {"labels": [2024, "Interest"], "values": [300000, 247220], "format": "currency"}}],
  "insights": ["Interest is 45% of total cost"],
  "recommendations": ["Consider a 15-year term"]
}`

type fakeCompleter struct {
	text   string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (*llm.Reply, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Reply{Text: f.text}, nil
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func sampleHistory() []models.Message {
	return []models.Message{
		{Role: models.RoleUser, Content: "Mortgage of $300,000 at 4.5% for 30 years"},
		{Role: models.RoleAssistant, Content: "Your monthly payment is $1,520.06"},
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"json fence", "Here:\n```json\n{\"a\":1}\n```\nDone", `{"a":1}`},
		{"plain fence", "```\n{\"b\":2}\n```", `{"b":2}`},
		{"json fence wins", "```\n[1]\n```\n```json\n{\"c\":3}\n```", `{"c":3}`},
		{"bare", `{"d":4}`, `{"d":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.text))
		})
	}
}

func TestService_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		reply          string
		history        []models.Message
		wantCode       apperrors.ErrorCode
		validateOutput func(t *testing.T, data *models.ReportData)
	}{
		{
			name:    "fenced reply",
			reply:   "```json\n" + analysisJSON + "\n```",
			history: sampleHistory(),
			validateOutput: func(t *testing.T, data *models.ReportData) {
				assert.Equal(t, "Mortgage Payment Analysis", data.ReportTitle)
				assert.Equal(t, "300000", data.Inputs[0].Value)
				require.Len(t, data.Visualizations, 1)
				assert.Equal(t, []string{"2024", "Interest"}, data.Visualizations[0].Data.Labels)
				assert.Equal(t, "$1,520.06 per month", data.ExecutiveSummary.KeyResult)
			},
		},
		{
			name:    "missing fields are normalized",
			reply:   `{"reportTitle": "Quick BMI"}`,
			history: sampleHistory(),
			validateOutput: func(t *testing.T, data *models.ReportData) {
				assert.Equal(t, []models.CalculationType{models.CalculationFinancial}, data.CalculationType)
				assert.Equal(t, models.FallbackResult, data.Results.Primary.Value)
			},
		},
		{
			name:     "prose reply",
			reply:    "I'm sorry, I can't analyze that.",
			history:  sampleHistory(),
			wantCode: apperrors.ErrCodeAnalysisParseFailed,
		},
		{
			name:     "schema violation",
			reply:    `{"visualizations": [{"type": "radar", "data": {"labels": [], "values": []}}]}`,
			history:  sampleHistory(),
			wantCode: apperrors.ErrCodeAnalysisSchemaInvalid,
		},
		{
			name:     "empty history",
			reply:    analysisJSON,
			wantCode: apperrors.ErrCodeEmptyConversation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeCompleter{text: tt.reply}
			svc := NewService(model, createTestLogger(t))

			data, err := svc.Analyze(context.Background(), tt.history)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, model.prompt, "USER: Mortgage of $300,000")
			assert.Contains(t, model.prompt, "\n\nASSISTANT: Your monthly payment")
			tt.validateOutput(t, data)
		})
	}
}

func TestService_ParseFailureKeepsTruncatedRaw(t *testing.T) {
	raw := strings.Repeat("x", 800)
	svc := NewService(&fakeCompleter{text: raw}, createTestLogger(t))

	_, err := svc.Analyze(context.Background(), sampleHistory())
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to parse analysis response", stdErr.Message)
	assert.Len(t, stdErr.Metadata["rawResponse"], 500)
}

func TestService_ModelErrorPassesThrough(t *testing.T) {
	svc := NewService(&fakeCompleter{err: apperrors.NewLLMRateLimitedError(nil)}, createTestLogger(t))
	_, err := svc.Analyze(context.Background(), sampleHistory())
	assert.Equal(t, apperrors.ErrCodeLLMRateLimited, apperrors.CodeOf(err))
}
