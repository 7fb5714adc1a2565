package deliverreport

import "time"

const (
	StatusSent = "sent"
)

type Input struct {
	ReportID       string `json:"reportId"`
	ObjectKey      string `json:"objectKey"`
	Filename       string `json:"filename"`
	RecipientEmail string `json:"recipientEmail"`
	NotifyTopicARN string `json:"notifyTopicArn,omitempty"`
	Title          string `json:"title,omitempty"`
}

type Output struct {
	DeliveryID string    `json:"deliveryId"`
	Status     string    `json:"status"`
	MessageID  string    `json:"messageId"`
	Notified   bool      `json:"notified"`
	SentAt     time.Time `json:"sentAt"`
}
