package brain

import "context"

// Provider is one chat completion backend (Claude, Gemini, OpenAI).
type Provider interface {
	Send(ctx context.Context, systemPrompt string, history []Message) (*Response, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role
	Text string
}

// Response holds the generated text of a single Send.
type Response struct {
	Text string
}
