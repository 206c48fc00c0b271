package escalate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/pkg/logger"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return log
}

func userMessages(contents ...string) []model.Message {
	msgs := make([]model.Message, len(contents))
	for i, c := range contents {
		msgs[i] = model.Message{Role: model.RoleUser, Content: c}
	}
	return msgs
}

func TestEvaluateNoRules(t *testing.T) {
	decision := Evaluate(&model.Session{}, userMessages("help"), nil, testLogger(t))
	assert.Nil(t, decision)
}

func TestEvaluateMessageCount(t *testing.T) {
	rules := []model.EscalationRule{{
		ID:         "rule-1",
		Priority:   1,
		Enabled:    true,
		Conditions: model.RuleConditions{MessageCount: intPtr(3)},
		Actions:    model.RuleActions{AssignTo: strPtr("agent-7")},
	}}

	tests := []struct {
		name     string
		messages []model.Message
		want     bool
	}{
		{"below threshold", userMessages("a", "b"), false},
		{"at threshold", userMessages("a", "b", "c"), true},
		{"above threshold", userMessages("a", "b", "c", "d"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(&model.Session{}, tt.messages, rules, testLogger(t))
			if tt.want {
				require.NotNil(t, decision)
				assert.Equal(t, "rule-1", decision.RuleID)
				require.NotNil(t, decision.AssignTo)
				assert.Equal(t, "agent-7", *decision.AssignTo)
			} else {
				assert.Nil(t, decision)
			}
		})
	}
}

func TestEvaluateSentiment(t *testing.T) {
	rules := []model.EscalationRule{{
		ID:         "rule-sentiment",
		Priority:   1,
		Enabled:    true,
		Conditions: model.RuleConditions{SentimentThreshold: floatPtr(-0.5)},
	}}

	t.Run("below threshold matches", func(t *testing.T) {
		session := &model.Session{Sentiment: floatPtr(-0.8)}
		decision := Evaluate(session, userMessages("a"), rules, testLogger(t))
		require.NotNil(t, decision)
		assert.Equal(t, "rule-sentiment", decision.RuleID)
	})

	t.Run("equal threshold matches", func(t *testing.T) {
		session := &model.Session{Sentiment: floatPtr(-0.5)}
		decision := Evaluate(session, userMessages("a"), rules, testLogger(t))
		assert.NotNil(t, decision)
	})

	t.Run("above threshold no match", func(t *testing.T) {
		session := &model.Session{Sentiment: floatPtr(0.2)}
		decision := Evaluate(session, userMessages("a"), rules, testLogger(t))
		assert.Nil(t, decision)
	})

	t.Run("unrecorded sentiment never matches", func(t *testing.T) {
		decision := Evaluate(&model.Session{}, userMessages("a"), rules, testLogger(t))
		assert.Nil(t, decision)
	})
}

func TestEvaluateKeywords(t *testing.T) {
	rules := []model.EscalationRule{{
		ID:         "rule-kw",
		Priority:   1,
		Enabled:    true,
		Conditions: model.RuleConditions{Keywords: []string{"refund", "lawyer"}},
	}}

	t.Run("case-insensitive match", func(t *testing.T) {
		decision := Evaluate(&model.Session{}, userMessages("hello", "I want a REFUND now"), rules, testLogger(t))
		require.NotNil(t, decision)
		assert.Equal(t, "rule-kw", decision.RuleID)
	})

	t.Run("only latest message is checked", func(t *testing.T) {
		decision := Evaluate(&model.Session{}, userMessages("give me a refund", "thanks anyway"), rules, testLogger(t))
		assert.Nil(t, decision)
	})

	t.Run("no messages no match", func(t *testing.T) {
		decision := Evaluate(&model.Session{}, nil, rules, testLogger(t))
		assert.Nil(t, decision)
	})
}

func TestEvaluatePriorityOrder(t *testing.T) {
	// Both rules match; the lower priority number wins regardless of
	// slice order.
	rules := []model.EscalationRule{
		{
			ID:         "rule-low",
			Priority:   5,
			Enabled:    true,
			Conditions: model.RuleConditions{Keywords: []string{"refund"}},
		},
		{
			ID:         "rule-high",
			Priority:   1,
			Enabled:    true,
			Conditions: model.RuleConditions{MessageCount: intPtr(1)},
		},
	}

	decision := Evaluate(&model.Session{}, userMessages("refund please"), rules, testLogger(t))
	require.NotNil(t, decision)
	assert.Equal(t, "rule-high", decision.RuleID)
}

func TestEvaluateSkipsDisabledAndEmptyRules(t *testing.T) {
	rules := []model.EscalationRule{
		{
			ID:         "rule-disabled",
			Priority:   1,
			Enabled:    false,
			Conditions: model.RuleConditions{MessageCount: intPtr(1)},
		},
		{
			ID:       "rule-empty",
			Priority: 2,
			Enabled:  true,
		},
		{
			ID:         "rule-live",
			Priority:   3,
			Enabled:    true,
			Conditions: model.RuleConditions{MessageCount: intPtr(1)},
		},
	}

	decision := Evaluate(&model.Session{}, userMessages("a"), rules, testLogger(t))
	require.NotNil(t, decision)
	assert.Equal(t, "rule-live", decision.RuleID)
}

func TestEvaluateORSemantics(t *testing.T) {
	// One rule with two conditions; either alone is enough.
	rules := []model.EscalationRule{{
		ID:       "rule-or",
		Priority: 1,
		Enabled:  true,
		Conditions: model.RuleConditions{
			MessageCount: intPtr(10),
			Keywords:     []string{"urgent"},
		},
	}}

	decision := Evaluate(&model.Session{}, userMessages("this is urgent"), rules, testLogger(t))
	require.NotNil(t, decision)
	assert.Equal(t, "rule-or", decision.RuleID)
}
