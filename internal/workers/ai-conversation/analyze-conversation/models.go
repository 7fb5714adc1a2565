package analyzeconversation

import (
	"time"

	"zencalcs-assistant/internal/models"
)

type Input struct {
	ConversationHistory []models.Message `json:"conversationHistory"`
	PreferRemote        *bool            `json:"preferRemote,omitempty"`
}

type Output struct {
	Success   bool              `json:"success"`
	Analysis  models.ReportData `json:"analysis"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
}
