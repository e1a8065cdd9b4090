// Package domain defines the core types shared across Parley.
package domain

import "time"

// Role constants for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is the durable record of one conversation, keyed by a
// caller-supplied user identifier.
type Session struct {
	UserID       string         `json:"userId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActivity time.Time      `json:"lastActivity"`
	Messages     []Message      `json:"messages,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Message is a single turn in a conversation. Messages are immutable once
// appended; history is append-only.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Source is an opaque citation record attached to an assistant message.
type Source struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FSMState is a workflow checkpoint persisted inside session metadata.
// Parley stores and returns it without interpreting the state or context.
type FSMState struct {
	State     string         `json:"state"`
	Context   map[string]any `json:"context,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}
