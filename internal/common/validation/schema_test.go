package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"reportId", "email"},
		"properties": map[string]interface{}{
			"reportId": map[string]interface{}{"type": "string", "minLength": 1},
			"email":    map[string]interface{}{"type": "string"},
		},
	}

	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		field     string
	}{
		{
			name:      "valid document",
			doc:       map[string]interface{}{"reportId": "rep-1", "email": "a@b.io"},
			wantValid: true,
		},
		{
			name:      "missing required field",
			doc:       map[string]interface{}{"reportId": "rep-1"},
			wantValid: false,
			field:     "(root)",
		},
		{
			name:      "wrong type",
			doc:       map[string]interface{}{"reportId": 42, "email": "a@b.io"},
			wantValid: false,
			field:     "reportId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocument(schema, tt.doc)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				assert.True(t, result.HasErrors(tt.field), result.Summary())
			}
		})
	}
}

func TestValidateDocument_BadSchema(t *testing.T) {
	result := ValidateDocument(map[string]interface{}{"type": 12}, map[string]interface{}{})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SCHEMA_INVALID", result.Errors[0].Code)
}

func TestValidateReportData(t *testing.T) {
	t.Run("accepts numbers where strings are expected", func(t *testing.T) {
		doc := `{
			"reportTitle": "Mortgage",
			"calculationType": ["Financial"],
			"inputs": [{"parameter": "Principal", "value": 300000, "unit": "$"}],
			"results": {"primary": {"value": 1520.06}},
			"visualizations": [{"type": "bar", "data": {"labels": ["a"], "values": [1.5]}}]
		}`
		result := ValidateReportData([]byte(doc))
		assert.True(t, result.Valid, result.Summary())
	})

	t.Run("rejects unknown chart type", func(t *testing.T) {
		doc := `{"visualizations": [{"type": "radar", "data": {"labels": [], "values": []}}]}`
		result := ValidateReportData([]byte(doc))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.GetErrorMessages())
	})

	t.Run("rejects non-object root", func(t *testing.T) {
		result := ValidateReportData([]byte(`["not", "a", "report"]`))
		assert.False(t, result.Valid)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		result := ValidateReportData([]byte(`{"reportTitle":`))
		assert.False(t, result.Valid)
		require.NotEmpty(t, result.Errors)
		assert.Equal(t, "INVALID_JSON", result.Errors[0].Code)
	})
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.False(t, ValidateEmail("user@"))
	assert.False(t, ValidateEmail(""))
}
