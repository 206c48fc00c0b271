package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/pkg/logger"
)

const (
	// StreamName is the name of the escalations stream.
	StreamName = "ESCALATIONS"

	// SubjectPrefix is the prefix for all escalation subjects.
	SubjectPrefix = "escalations"
)

// Notifier is the outbound escalation notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, session *model.Session, rule *model.EscalationRule)
}

// EscalationEvent is the payload published when a session escalates.
type EscalationEvent struct {
	SessionID       string    `json:"session_id"`
	TenantID        string    `json:"tenant_id"`
	RuleID          string    `json:"rule_id"`
	RuleName        string    `json:"rule_name"`
	AssignedAgentID *string   `json:"assigned_agent_id,omitempty"`
	NotifyChat      bool      `json:"notify_chat,omitempty"`
	NotifyEmail     []string  `json:"notify_email,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NATSNotifier publishes escalation events to JetStream. Downstream
// consumers fan the event out to chat and email.
type NATSNotifier struct {
	client *Client
	logger *logger.Logger
}

// NewNATSNotifier creates a JetStream-backed notifier.
func NewNATSNotifier(client *Client, log *logger.Logger) *NATSNotifier {
	return &NATSNotifier{client: client, logger: log}
}

// EnsureStream ensures the escalations stream exists.
func (n *NATSNotifier) EnsureStream(ctx context.Context) error {
	_, err := n.client.JetStream().CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure escalations stream: %w", err)
	}
	return nil
}

// Notify publishes an escalation event. Failures are logged and swallowed;
// the pipeline never waits on or fails with notification delivery.
func (n *NATSNotifier) Notify(ctx context.Context, session *model.Session, rule *model.EscalationRule) {
	event := EscalationEvent{
		SessionID:       session.ID,
		TenantID:        session.TenantID,
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		AssignedAgentID: rule.Actions.AssignTo,
		NotifyChat:      rule.Actions.NotifyChat,
		NotifyEmail:     rule.Actions.NotifyEmail,
		OccurredAt:      time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to encode escalation event",
			zap.String("session_id", session.ID), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s", SubjectPrefix, session.TenantID)
	if _, err := n.client.JetStream().Publish(ctx, subject, data); err != nil {
		n.logger.Error("failed to publish escalation event",
			zap.String("session_id", session.ID),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}

	n.logger.Info("escalation notification published",
		zap.String("session_id", session.ID),
		zap.String("tenant_id", session.TenantID),
		zap.String("rule_id", rule.ID),
	)
}

// NoopNotifier drops notifications. Used when NATS is not configured.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(ctx context.Context, session *model.Session, rule *model.EscalationRule) {}
