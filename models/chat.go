package models

// ChatRole represents the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage represents one turn of a contract conversation
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
