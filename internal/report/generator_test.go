package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"zencalcs-assistant/internal/analysis"
	"zencalcs-assistant/internal/chart"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/observability"
	"zencalcs-assistant/internal/layout"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/pdf"
)

var fixedNow = time.Date(2025, time.March, 4, 23, 30, 0, 0, time.UTC)

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func sampleHistory() []models.Message {
	return []models.Message{
		{Role: models.RoleUser, Content: "I want to save $500 per month for 10 years"},
		{Role: models.RoleAssistant, Content: "You would contribute $60,000 and end with about $82,000, then $86,500"},
		{Role: models.RoleUser, Content: "What if I save $700 instead?"},
		{Role: models.RoleAssistant, Content: "Saving $700 gives about $121,100"},
		{Role: models.RoleUser, Content: "What if I save $300?"},
		{Role: models.RoleAssistant, Content: "Saving $300 gives about $51,900"},
	}
}

func newPipeline(t *testing.T, opts ...Option) *Generator {
	measurer := pdf.NewMeasurer()
	engine := layout.NewEngine(
		layout.DefaultConfig(),
		measurer,
		layout.NewGridTableRenderer(measurer),
		chart.NewRenderer(),
		layout.WithClock(func() time.Time { return fixedNow }),
	)
	base := []Option{WithLogger(createTestLogger(t)), WithClock(func() time.Time { return fixedNow })}
	return NewGenerator(analysis.NewSource(), engine, pdf.NewRenderer("ZenCalcs"), append(base, opts...)...)
}

func TestGenerate_EndToEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := observability.New("report-test", observability.WithSpanProcessor(recorder))
	defer obs.Shutdown()

	gen := newPipeline(t, WithObservability(obs))
	art, err := gen.Generate(context.Background(), "session-1", sampleHistory())
	require.NoError(t, err)

	assert.NotEmpty(t, art.ID)
	assert.Equal(t, "session-1", art.SessionID)
	assert.Equal(t, "ZenCalcs_Financial_Report_2025-03-04.pdf", art.Filename)
	assert.True(t, bytes.HasPrefix(art.PDF, []byte("%PDF-")))
	assert.GreaterOrEqual(t, art.PageCount, 1)
	assert.Zero(t, art.ChartFailures)
	assert.Equal(t, analysis.SourceLocal, art.Source)
	assert.Len(t, art.Data.Scenarios, 2)
	assert.Empty(t, art.ObjectKey)

	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"report.generate", "report.analyze", "report.layout", "report.render"} {
		assert.True(t, names[want], "missing span %s", want)
	}
}

func TestGenerate_EmptyConversation(t *testing.T) {
	_, err := newPipeline(t).Generate(context.Background(), "s", nil)
	assert.Equal(t, apperrors.ErrCodeEmptyConversation, apperrors.CodeOf(err))
}

func TestFromData_Normalizes(t *testing.T) {
	art, err := newPipeline(t).FromData(context.Background(), "s", models.ReportData{
		CalculationType: []models.CalculationType{models.CalculationHealth},
	})
	require.NoError(t, err)

	assert.Equal(t, "ZenCalcs_Health_Report_2025-03-04.pdf", art.Filename)
	assert.Equal(t, models.FallbackResult, art.Data.Results.Primary.Value)
	assert.Equal(t, "Health Calculation Report", art.Data.ReportTitle)
	assert.Equal(t, "supplied", art.Source)
}

func TestFromData_ChartFailureIsRecovered(t *testing.T) {
	data := models.ReportData{
		Visualizations: []models.ChartSpec{
			{Type: "radar", Title: "Unsupported", Data: models.ChartData{Labels: []string{"a"}, Values: []float64{1}}},
			{Type: models.ChartBar, Title: "Ok", Data: models.ChartData{Labels: []string{"a", "b"}, Values: []float64{1, 2}}},
		},
	}
	art, err := newPipeline(t).FromData(context.Background(), "s", data)
	require.NoError(t, err)
	assert.Equal(t, 1, art.ChartFailures)
	assert.Equal(t, []string{"radar"}, art.FailedCharts)
}

type brokenRenderer struct{}

func (brokenRenderer) Render(*layout.Document) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestGenerate_ErrorMapping(t *testing.T) {
	t.Run("missing capability", func(t *testing.T) {
		engine := layout.NewEngine(layout.DefaultConfig(), nil, nil, nil)
		gen := NewGenerator(analysis.NewSource(), engine, pdf.NewRenderer("ZenCalcs"))

		_, err := gen.Generate(context.Background(), "s", sampleHistory())
		assert.Equal(t, apperrors.ErrCodeCapabilityMissing, apperrors.CodeOf(err))
	})

	t.Run("pdf failure", func(t *testing.T) {
		m := layout.ApproxMeasurer{}
		engine := layout.NewEngine(layout.DefaultConfig(), m, layout.NewGridTableRenderer(m), chart.NewRenderer())
		gen := NewGenerator(analysis.NewSource(), engine, brokenRenderer{})

		_, err := gen.Generate(context.Background(), "s", sampleHistory())
		assert.Equal(t, apperrors.ErrCodeReportRenderFailed, apperrors.CodeOf(err))
	})
}

func TestFilename(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2025, time.March, 5, 8, 0, 0, 0, loc)

	tests := []struct {
		name  string
		types []models.CalculationType
		want  string
	}{
		{"default type", nil, "ZenCalcs_Financial_Report_2025-03-04.pdf"},
		{"first type wins", []models.CalculationType{"Fitness", "Health"}, "ZenCalcs_Fitness_Report_2025-03-04.pdf"},
		{"unsafe characters", []models.CalculationType{"Debt / Payoff"}, "ZenCalcs_Debt___Payoff_Report_2025-03-04.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(models.ReportData{CalculationType: tt.types}, local))
		})
	}
}
