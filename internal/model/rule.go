package model

import (
	"time"
)

// RuleConditions is the condition set of an escalation rule. A rule matches
// when any one populated condition is satisfied.
type RuleConditions struct {
	MessageCount       *int     `json:"message_count,omitempty"`
	SentimentThreshold *float64 `json:"sentiment_threshold,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
}

// RuleActions is the action set applied when a rule matches.
type RuleActions struct {
	AssignTo    *string  `json:"assign_to,omitempty"`
	NotifyChat  bool     `json:"notify_chat,omitempty"`
	NotifyEmail []string `json:"notify_email,omitempty"`
}

// EscalationRule is a tenant-defined, priority-ordered condition/action pair
// determining when a session is handed to a human agent. Lower priority
// numbers are evaluated first.
type EscalationRule struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       string         `json:"name"`
	Priority   int            `json:"priority"`
	Enabled    bool           `json:"enabled"`
	Conditions RuleConditions `json:"conditions"`
	Actions    RuleActions    `json:"actions"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EscalationDecision is the outcome of rule evaluation against a session.
type EscalationDecision struct {
	RuleID   string  `json:"rule_id"`
	AssignTo *string `json:"assign_to,omitempty"`
}
