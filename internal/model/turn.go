// Package model defines data structures for the stack agent platform.
package model

import (
	"encoding/json"
	"time"
)

// Role represents the role of a turn's speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn represents one message in a conversation transcript.
//
// A turn is immutable once appended; recognized tag blocks are stripped
// from assistant content before the turn is built, so Content is always
// the display text.
type Turn struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Proposals extracted from an assistant completion, if any.
	Proposals []StackProposal `json:"proposals,omitempty"`

	// Raw is the opaque provider payload, kept for diagnostics.
	Raw json.RawMessage `json:"raw,omitempty"`

	// Model names the backing model that produced an assistant turn.
	Model string `json:"model,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content     string      `json:"content"`
	Preferences Preferences `json:"preferences,omitempty"`
}

// AgentReply is what the caller sees after an exchange. Proposals and
// postscript text are withheld while clarification questions are pending.
type AgentReply struct {
	ConversationID string `json:"conversation_id"`
	UserTurn       *Turn  `json:"user_turn,omitempty"`
	AssistantTurn  *Turn  `json:"assistant_turn,omitempty"`

	// Text is the visible assistant narration for this exchange.
	Text string `json:"text"`

	// Proposals visible to the user (empty while clarifications pend).
	Proposals []StackProposal `json:"proposals,omitempty"`

	// PendingQuestion is the next clarification to answer, if any.
	PendingQuestion string `json:"pending_question,omitempty"`
	PendingCount    int    `json:"pending_count,omitempty"`

	// Postscript carries narration that was buffered until all
	// clarifications resolved. Set at most once per clarification cycle.
	Postscript string `json:"postscript,omitempty"`

	// Model names the backing model that served the exchange.
	Model string `json:"model,omitempty"`

	// ModelEscalated is set when the exchange was retried on a fallback
	// model after the provider rejected the previous one.
	ModelEscalated bool `json:"model_escalated,omitempty"`
}

// ListTurnsResponse is the response for listing a conversation's turns.
type ListTurnsResponse struct {
	Turns []Turn `json:"turns"`
	Total int    `json:"total"`
}
