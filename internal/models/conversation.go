// internal/models/conversation.go
package models

import (
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn of a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a model reply.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatResponse is returned by the chat endpoint and the send-chat-message worker.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	Usage          Usage  `json:"usage"`
}

// FormatTranscript renders a conversation as "USER: ..." / "ASSISTANT: ..." blocks
// separated by blank lines.
func FormatTranscript(conversation []Message) string {
	parts := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(string(msg.Role)), msg.Content))
	}
	return strings.Join(parts, "\n\n")
}

// ValidateConversation rejects unknown roles.
func ValidateConversation(conversation []Message) error {
	for i, msg := range conversation {
		if !msg.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q", i, msg.Role)
		}
	}
	return nil
}
