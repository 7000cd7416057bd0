package types

// Message is a single conversation turn
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// MessageRole defines the role of a message sender
type MessageRole string

const RoleUser MessageRole = "user"

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
