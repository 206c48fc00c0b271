// Package escalate evaluates tenant escalation rules against session
// state. Evaluation is a pure function of its inputs: it never touches the
// record store, which keeps rule evaluation decoupled from persistence
// timing and trivially testable.
package escalate

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// Evaluate walks the tenant's rules in ascending priority order and
// returns a decision for the first enabled rule whose condition set
// matches, or nil when no rule matches. Condition matching is a logical
// OR across the populated fields of one rule. Malformed rules (no
// populated conditions) are skipped with a warning, never fatal.
func Evaluate(session *model.Session, messages []model.Message, rules []model.EscalationRule, log *logger.Logger) *model.EscalationDecision {
	ordered := make([]model.EscalationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}
		if empty(rule.Conditions) {
			log.Warn("escalation rule has no conditions, skipping",
				zap.String("rule_id", rule.ID),
				zap.String("tenant_id", rule.TenantID),
			)
			continue
		}

		if matches(rule.Conditions, session, messages) {
			return &model.EscalationDecision{
				RuleID:   rule.ID,
				AssignTo: rule.Actions.AssignTo,
			}
		}
	}

	return nil
}

func empty(c model.RuleConditions) bool {
	return c.MessageCount == nil && c.SentimentThreshold == nil && len(c.Keywords) == 0
}

func matches(c model.RuleConditions, session *model.Session, messages []model.Message) bool {
	if c.MessageCount != nil && len(messages) >= *c.MessageCount {
		return true
	}

	// The literal comparison is preserved: more negative sentiment
	// escalates, and a rule with this condition never matches when
	// sentiment was never recorded.
	if c.SentimentThreshold != nil && session.Sentiment != nil && *session.Sentiment <= *c.SentimentThreshold {
		return true
	}

	if len(c.Keywords) > 0 && len(messages) > 0 {
		// Keywords match against the most recent message only.
		latest := strings.ToLower(messages[len(messages)-1].Content)
		for _, kw := range c.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(latest, strings.ToLower(kw)) {
				return true
			}
		}
	}

	return false
}
