package model

import (
	"time"
)

// SessionStatus is the lifecycle state of a conversation.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionEscalated SessionStatus = "escalated"
	SessionResolved  SessionStatus = "resolved"
	SessionAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether the status permits no further pipeline runs.
func (s SessionStatus) Terminal() bool {
	return s == SessionResolved || s == SessionAbandoned
}

// Session represents one customer conversation.
type Session struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenant_id"`
	UserID          string        `json:"user_id,omitempty"`
	Channel         string        `json:"channel,omitempty"`
	Status          SessionStatus `json:"status"`
	AssignedAgentID *string       `json:"assigned_agent_id,omitempty"`
	Sentiment       *float64      `json:"sentiment,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ClosedAt        *time.Time    `json:"closed_at,omitempty"`
}

// SessionPatch carries partial updates applied by the record store.
// Nil fields are left untouched.
type SessionPatch struct {
	Status          *SessionStatus `json:"status,omitempty"`
	AssignedAgentID *string        `json:"assigned_agent_id,omitempty"`
	Sentiment       *float64       `json:"sentiment,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
}

// CreateSessionRequest is the request to open a new session.
type CreateSessionRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Channel string `json:"channel,omitempty"`
}
