package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageMetadata holds generation telemetry attached to assistant messages.
type MessageMetadata struct {
	Model            string   `json:"model,omitempty"`
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	TotalTokens      int      `json:"total_tokens,omitempty"`
	Cost             float64  `json:"cost,omitempty"`
	LatencyMs        int64    `json:"latency_ms,omitempty"`
	RAGSources       []string `json:"rag_sources,omitempty"`
}

// Message represents one turn in a session. Messages are append-only and
// immutable once created.
type Message struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SendMessageRequest is the request to send a new user message.
type SendMessageRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id,omitempty"`
}

// MessageTurn is the result of one orchestrated pipeline run.
type MessageTurn struct {
	UserMessage      *Message `json:"user_message"`
	AssistantMessage *Message `json:"assistant_message"`
	Escalated        bool     `json:"escalated"`
}
