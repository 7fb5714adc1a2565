package generatereport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/report"
)

type mockGenerator struct {
	artifact *report.Artifact
	err      error
	calls    []string
	session  string
}

func (m *mockGenerator) Generate(_ context.Context, sessionID string, _ []models.Message) (*report.Artifact, error) {
	m.calls = append(m.calls, "generate")
	m.session = sessionID
	return m.artifact, m.err
}

func (m *mockGenerator) FromData(_ context.Context, sessionID string, _ models.ReportData) (*report.Artifact, error) {
	m.calls = append(m.calls, "fromData")
	m.session = sessionID
	return m.artifact, m.err
}

func archivedArtifact() *report.Artifact {
	return &report.Artifact{
		ID:            "3f1c",
		Filename:      "ZenCalcs_Financial_Report_2025-03-04.pdf",
		PageCount:     3,
		ChartFailures: 1,
		FailedCharts:  []string{"radar"},
		Source:        "remote",
		ObjectKey:     "reports/3f1c.pdf",
		Data:          models.ReportData{ReportTitle: "Loan Payoff"},
	}
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, RequireArchive: true}
}

func TestExecute_FromConversation(t *testing.T) {
	gen := &mockGenerator{artifact: archivedArtifact()}
	h := NewHandler(createTestConfig(), gen, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		SessionID:           "sess-1",
		ConversationHistory: []models.Message{{Role: models.RoleUser, Content: "loan"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"generate"}, gen.calls)
	assert.Equal(t, "sess-1", gen.session)
	assert.Equal(t, &Output{
		ReportID:      "3f1c",
		Filename:      "ZenCalcs_Financial_Report_2025-03-04.pdf",
		ObjectKey:     "reports/3f1c.pdf",
		PageCount:     3,
		ChartFailures: 1,
		FailedCharts:  []string{"radar"},
		Source:        "remote",
		Title:         "Loan Payoff",
	}, out)
}

func TestExecute_AnalysisWinsOverHistory(t *testing.T) {
	gen := &mockGenerator{artifact: archivedArtifact()}
	h := NewHandler(createTestConfig(), gen, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		ConversationHistory: []models.Message{{Role: models.RoleUser, Content: "loan"}},
		Analysis:            &models.ReportData{ReportTitle: "Supplied"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fromData"}, gen.calls)
}

func TestExecute_Errors(t *testing.T) {
	unarchived := archivedArtifact()
	unarchived.ObjectKey = ""

	tests := []struct {
		name     string
		input    *Input
		gen      *mockGenerator
		config   *Config
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "nothing to report",
			input:    &Input{},
			gen:      &mockGenerator{},
			config:   createTestConfig(),
			wantCode: apperrors.ErrCodeEmptyConversation,
		},
		{
			name:     "render failure",
			input:    &Input{Analysis: &models.ReportData{}},
			gen:      &mockGenerator{err: apperrors.NewReportRenderFailedError(errors.New("fpdf"))},
			config:   createTestConfig(),
			wantCode: apperrors.ErrCodeReportRenderFailed,
		},
		{
			name:     "archive missing",
			input:    &Input{Analysis: &models.ReportData{}},
			gen:      &mockGenerator{artifact: unarchived},
			config:   createTestConfig(),
			wantCode: apperrors.ErrCodeReportStoreFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.config, tt.gen, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}

func TestExecute_ArchiveOptional(t *testing.T) {
	art := archivedArtifact()
	art.ObjectKey = ""
	h := NewHandler(&Config{Timeout: time.Second}, &mockGenerator{artifact: art}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Analysis: &models.ReportData{}})
	require.NoError(t, err)
	assert.Empty(t, out.ObjectKey)
}
