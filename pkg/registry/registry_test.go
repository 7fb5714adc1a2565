package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"version": "1.0.0",
	"activities": [
		{
			"id": "deliver-report",
			"taskType": "deliver-report",
			"inputSchema": {
				"type": "object",
				"required": ["reportId", "recipientEmail"],
				"properties": {"reportId": {"type": "string"}, "recipientEmail": {"type": "string"}}
			},
			"errorCodes": ["REPORT_NOT_FOUND", "DELIVERY_FAILED"]
		},
		{"id": "search-reports", "taskType": "search-reports"}
	]
}`

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	require.Len(t, reg.Activities, 2)

	a, ok := reg.Find("deliver-report")
	require.True(t, ok)
	assert.Equal(t, []string{"REPORT_NOT_FOUND", "DELIVERY_FAILED"}, a.ErrorCodes)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"activities": [`))
	assert.Error(t, err)
}

func TestMissing(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"generate-report"}, reg.Missing("deliver-report", "generate-report", "search-reports"))
	assert.Empty(t, reg.Missing("search-reports"))
}

func TestValidateInput(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)

	res, err := reg.ValidateInput("deliver-report", map[string]interface{}{"reportId": "r1", "recipientEmail": "a@b.io"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = reg.ValidateInput("deliver-report", map[string]interface{}{"reportId": "r1"})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = reg.ValidateInput("search-reports", map[string]interface{}{"anything": 1})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = reg.ValidateInput("nope", nil)
	assert.Error(t, err)
}

func TestShippedRegistry(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activities.json"))
	require.NoError(t, err)

	assert.Empty(t, reg.Missing(
		"send-chat-message",
		"analyze-conversation",
		"generate-report",
		"deliver-report",
		"search-reports",
	))

	res, err := reg.ValidateInput("generate-report", map[string]interface{}{"sessionId": "s1"})
	require.NoError(t, err)
	assert.False(t, res.Valid, "history or analysis is required")

	res, err = reg.ValidateInput("deliver-report", map[string]interface{}{
		"reportId":       "rep-1",
		"objectKey":      "reports/rep-1.pdf",
		"recipientEmail": "user@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)
}

func TestParse_RejectsInconsistentEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "duplicate task type",
			body: `{"activities": [{"id": "a", "taskType": "generate-report"}, {"id": "b", "taskType": "generate-report"}]}`,
			want: "registered twice",
		},
		{
			name: "missing task type",
			body: `{"activities": [{"id": "a"}]}`,
			want: "has no taskType",
		},
		{
			name: "unknown error code",
			body: `{"activities": [{"id": "a", "taskType": "deliver-report", "errorCodes": ["MAILBOX_FULL"]}]}`,
			want: "MAILBOX_FULL",
		},
		{
			name: "bad timeout",
			body: `{"activities": [{"id": "a", "taskType": "deliver-report", "timeout": "ten seconds"}]}`,
			want: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTimeoutDuration(t *testing.T) {
	d, err := Activity{Timeout: "2m"}.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = Activity{}.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)
}
