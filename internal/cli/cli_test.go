package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/models"
)

const transcript = `[
	{"role": "user", "content": "I want to borrow $300,000 for a mortgage at 4.5% over 30 years"},
	{"role": "assistant", "content": "Your monthly payment would be $1,520.06, total interest $247,220.13."},
	{"role": "user", "content": "What if I pay it over 15 years instead?"},
	{"role": "assistant", "content": "Over 15 years the payment is $2,294.98 and total interest drops to $113,096.48."}
]`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseTranscript(t *testing.T) {
	history, err := parseTranscript([]byte(transcript))
	require.NoError(t, err)
	assert.Len(t, history, 4)
	assert.Equal(t, models.RoleAssistant, history[1].Role)

	wrapped, err := parseTranscript([]byte(`{"conversationHistory": [{"role": "user", "content": "hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, wrapped)

	_, err = parseTranscript([]byte("  "))
	assert.Error(t, err)

	_, err = parseTranscript([]byte(`[{"role": "system", "content": "x"}]`))
	assert.Error(t, err)

	_, err = parseTranscript([]byte(`{"conversationHistory": `))
	assert.Error(t, err)
}

func TestAnalyze_Local(t *testing.T) {
	out, err := run(t, transcript, "analyze", "-")
	require.NoError(t, err)

	var got struct {
		Source   string            `json:"source"`
		Analysis models.ReportData `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "local", got.Source)
	assert.Equal(t, []models.CalculationType{models.CalculationFinancial}, got.Analysis.CalculationType)
	assert.Len(t, got.Analysis.Scenarios, 1)
}

func TestAnalyze_RequiresFile(t *testing.T) {
	_, err := run(t, "", "analyze")
	assert.Error(t, err)

	_, err = run(t, "", "analyze", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReport_FromTranscript(t *testing.T) {
	in := writeFile(t, "chat.json", transcript)
	outPath := filepath.Join(t.TempDir(), "report.pdf")

	out, err := run(t, "", "report", in, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "source local")

	pdf, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestReport_FromData(t *testing.T) {
	data := writeFile(t, "data.json", `{
		"reportTitle": "Health Calculation Report",
		"calculationType": ["Health"],
		"executiveSummary": {"keyResult": "BMI 22.9", "quickFacts": ["Height: 180 cm"], "bottomLine": "Healthy range."},
		"inputs": [{"parameter": "Weight", "value": "74", "unit": "kg"}],
		"results": {"primary": {"value": "22.9", "description": "Body mass index"}}
	}`)
	outPath := filepath.Join(t.TempDir(), "health.pdf")

	out, err := run(t, "", "report", "--data", data, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "source supplied")

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestReport_ArgumentRules(t *testing.T) {
	_, err := run(t, "", "report")
	assert.EqualError(t, err, "pass either a transcript or --data")

	in := writeFile(t, "chat.json", transcript)
	_, err = run(t, "", "report", in, "--data", in)
	assert.EqualError(t, err, "pass either a transcript or --data")
}

func TestRender(t *testing.T) {
	md := writeFile(t, "answer.md", "## Summary\n\nPayment is **$1,520.06**.\n\nTerm is 30 years.\n\nRate is fixed.\n\n## Details\n\nMore here.\n")

	out, err := run(t, "", "render", md)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>$1,520.06</strong>")

	out, err = run(t, "", "render", md, "--collapsible")
	require.NoError(t, err)
	var c struct {
		Summary  string `json:"summary"`
		Expanded string `json:"expanded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Contains(t, c.Summary, "Summary")
	assert.Contains(t, c.Expanded, "Details")
}

func TestRegistry(t *testing.T) {
	shipped := filepath.Join("..", "..", "configs", "activities.json")

	out, err := run(t, "", "registry", "check", "--path", shipped)
	require.NoError(t, err)
	assert.Contains(t, out, "all 5 worker task types are registered")

	out, err = run(t, "", "registry", "list", "--path", shipped)
	require.NoError(t, err)
	for _, tt := range WorkerTaskTypes {
		assert.Contains(t, out, tt)
	}

	partial := writeFile(t, "activities.json", `{"activities": [{"id": "search-reports", "taskType": "search-reports"}]}`)
	_, err = run(t, "", "registry", "check", "--path", partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate-report")
}

func TestRegistry_Validate(t *testing.T) {
	shipped := filepath.Join("..", "..", "configs", "activities.json")

	out, err := run(t, `{"message": "hello"}`, "registry", "validate", "send-chat-message", "-", "--path", shipped)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	_, err = run(t, `{"conversationHistory": []}`, "registry", "validate", "send-chat-message", "-", "--path", shipped)
	assert.Error(t, err)

	_, err = run(t, `{}`, "registry", "validate", "unknown-task", "-", "--path", shipped)
	assert.Error(t, err)
}
