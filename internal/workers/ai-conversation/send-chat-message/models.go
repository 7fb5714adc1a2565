package sendchatmessage

import "zencalcs-assistant/internal/models"

type Input struct {
	Message             string           `json:"message"`
	ConversationHistory []models.Message `json:"conversationHistory"`
}

// Output carries the reply plus the updated history so the process can feed
// it into the next turn.
type Output struct {
	Response            string           `json:"response"`
	ConversationID      string           `json:"conversationId"`
	Usage               models.Usage     `json:"usage"`
	ConversationHistory []models.Message `json:"conversationHistory"`
}
