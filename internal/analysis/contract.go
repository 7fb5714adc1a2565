// Package analysis turns a conversation into report data, either through the
// hosted model or the deterministic local analyzer.
package analysis

import (
	"encoding/json"
	"time"

	"zencalcs-assistant/internal/models"
)

// Path is where the analysis endpoint is served.
const Path = "/api/analyze-conversation"

const (
	MsgNoHistory   = "No conversation history provided"
	MsgParseFailed = "Failed to parse analysis response"
	MsgInternal    = "Internal server error"
)

type Request struct {
	ConversationHistory []models.Message `json:"conversationHistory"`
}

type Response struct {
	Success   bool               `json:"success"`
	Analysis  *models.ReportData `json:"analysis"`
	Timestamp time.Time          `json:"timestamp"`
}

type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// wireResponse keeps the analysis raw so the client can validate it before
// decoding.
type wireResponse struct {
	Success  bool            `json:"success"`
	Analysis json.RawMessage `json:"analysis"`
}
