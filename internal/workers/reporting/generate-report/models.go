package generatereport

import "zencalcs-assistant/internal/models"

type Input struct {
	SessionID           string             `json:"sessionId"`
	ConversationHistory []models.Message   `json:"conversationHistory"`
	Analysis            *models.ReportData `json:"analysis,omitempty"`
}

type Output struct {
	ReportID      string   `json:"reportId"`
	Filename      string   `json:"filename"`
	ObjectKey     string   `json:"objectKey"`
	PageCount     int      `json:"pageCount"`
	ChartFailures int      `json:"chartFailures"`
	FailedCharts  []string `json:"failedCharts,omitempty"`
	Source        string   `json:"source"`
	Title         string   `json:"title"`
}
