package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"zencalcs-assistant/internal/models"
)

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseTranscript accepts a bare message array or an object with a
// conversationHistory field.
func parseTranscript(data []byte) ([]models.Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("transcript is empty")
	}

	var history []models.Message
	if data[0] == '[' {
		if err := json.Unmarshal(data, &history); err != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
	} else {
		var wrapped struct {
			ConversationHistory []models.Message `json:"conversationHistory"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
		history = wrapped.ConversationHistory
	}

	if err := models.ValidateConversation(history); err != nil {
		return nil, err
	}
	return history, nil
}
