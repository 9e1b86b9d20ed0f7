package model

import (
	"time"
)

// Conversation represents a persisted conversation thread.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Turns is populated on fetch, ordered oldest first.
	Turns []Turn `json:"turns,omitempty"`

	TurnCount int  `json:"turn_count,omitempty"`
	Deleted   bool `json:"deleted,omitempty"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	HasMore       bool           `json:"has_more"`
}

// Preferences hold user defaults folded into the prompt.
type Preferences struct {
	Industry        string `json:"industry"`
	ExperienceLevel string `json:"experience_level"`
}

// WithDefaults fills unset preference fields.
func (p Preferences) WithDefaults() Preferences {
	if p.Industry == "" {
		p.Industry = "general"
	}
	if p.ExperienceLevel == "" {
		p.ExperienceLevel = "beginner"
	}
	return p
}
