package deliverreport

import (
	"fmt"

	"zencalcs-assistant/internal/common/validation"
)

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"reportId", "objectKey", "recipientEmail"},
	"properties": map[string]interface{}{
		"reportId":       map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 64},
		"objectKey":      map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1024},
		"filename":       map[string]interface{}{"type": "string", "maxLength": 255},
		"recipientEmail": map[string]interface{}{"type": "string", "minLength": 5, "maxLength": 255},
		"notifyTopicArn": map[string]interface{}{"type": "string", "pattern": "^(arn:aws[a-z-]*:sns:.+)?$"},
		"title":          map[string]interface{}{"type": "string", "maxLength": 500},
	},
})

func validateInput(input *Input) error {
	if result := inputSchema.Validate(input); !result.Valid {
		return fmt.Errorf("invalid input: %s", result.Summary())
	}
	if !validation.ValidateEmail(input.RecipientEmail) {
		return fmt.Errorf("invalid recipient email: %q", input.RecipientEmail)
	}
	return nil
}
