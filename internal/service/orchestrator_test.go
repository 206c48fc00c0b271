package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-ai/support-platform/internal/llm"
	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/internal/vector"
	"github.com/echo-ai/support-platform/pkg/logger"
)

type fakeRetriever struct {
	results []vector.Result
	err     error
	queries []string
}

func (f *fakeRetriever) Query(ctx context.Context, tenantID, query string) ([]vector.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeChat struct {
	resp     *llm.ChatResponse
	err      error
	requests []*llm.ChatRequest
}

func (f *fakeChat) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sessions []string
	rules    []string
}

func (f *fakeNotifier) Notify(ctx context.Context, session *model.Session, rule *model.EscalationRule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session.ID)
	f.rules = append(f.rules, rule.ID)
}

type fixture struct {
	store     *store.MemoryStore
	retriever *fakeRetriever
	chat      *fakeChat
	notifier  *fakeNotifier
	orch      *Orchestrator
	session   *model.Session
}

func defaultResponse() *llm.ChatResponse {
	return &llm.ChatResponse{
		Content:   "Happy to help with that.",
		Model:     "gpt-4o",
		Usage:     llm.TokenUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
		Cost:      0.0007,
		LatencyMs: 150,
	}
}

func newFixture(t *testing.T, settings model.TenantSettings) *fixture {
	t.Helper()

	log, err := logger.NewDevelopment()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	if settings.DefaultProvider == "" {
		settings.DefaultProvider = "openai"
	}
	if settings.DefaultModel == "" {
		settings.DefaultModel = "gpt-4o"
	}
	st.PutTenant(&model.Tenant{ID: "tenant-1", Name: "Acme", Settings: settings})

	session := &model.Session{
		ID:       "c2b5f1ce-0000-7000-8000-000000000001",
		TenantID: "tenant-1",
		Status:   model.SessionActive,
	}
	require.NoError(t, st.CreateSession(context.Background(), session))

	f := &fixture{
		store:     st,
		retriever: &fakeRetriever{},
		chat:      &fakeChat{resp: defaultResponse()},
		notifier:  &fakeNotifier{},
		session:   session,
	}
	f.orch = NewOrchestrator(st, f.retriever, f.chat, f.notifier, Options{
		ContextWindow: 20,
		ModelTimeout:  5 * time.Second,
	}, log)
	return f
}

func TestHandleMessageHappyPath(t *testing.T) {
	f := newFixture(t, model.TenantSettings{})
	ctx := context.Background()

	turn, err := f.orch.HandleMessage(ctx, f.session.ID, &model.SendMessageRequest{Content: "Where is my order?"})
	require.NoError(t, err)

	assert.Equal(t, "Where is my order?", turn.UserMessage.Content)
	assert.Equal(t, model.RoleUser, turn.UserMessage.Role)
	assert.Equal(t, "Happy to help with that.", turn.AssistantMessage.Content)
	assert.Equal(t, model.RoleAssistant, turn.AssistantMessage.Role)
	assert.False(t, turn.Escalated)

	// Metadata carries provenance.
	meta := turn.AssistantMessage.Metadata
	require.NotNil(t, meta)
	assert.Equal(t, "gpt-4o", meta.Model)
	assert.Equal(t, 160, meta.TotalTokens)
	assert.InDelta(t, 0.0007, meta.Cost, 1e-9)

	// Both sides of the turn persisted.
	msgs, err := f.store.ListMessages(ctx, f.session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	// RAG disabled: retriever never consulted, prompt is bare.
	assert.Empty(t, f.retriever.queries)
	require.Len(t, f.chat.requests, 1)
	sent := f.chat.requests[0]
	assert.Equal(t, llm.ProviderOpenAI, sent.Provider)
	require.NotEmpty(t, sent.Messages)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.NotContains(t, sent.Messages[0].Content, "Context from knowledge base")

	// Usage metered.
	records, err := f.store.ListUsageSince(ctx, "tenant-1", "2000-01-01")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 120, records[0].PromptTokens)
	assert.Equal(t, 40, records[0].CompletionTokens)
}

func TestHandleMessageWithRAG(t *testing.T) {
	f := newFixture(t, model.TenantSettings{RAGEnabled: true})
	f.retriever.results = []vector.Result{
		{ID: "doc-1_chunk_0", Score: 0.9, Content: "Orders ship within 2 days.", DocumentID: "doc-1"},
		{ID: "doc-1_chunk_3", Score: 0.8, Content: "Tracking emails are automatic.", DocumentID: "doc-1"},
	}

	turn, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{Content: "Where is my order?"})
	require.NoError(t, err)

	require.Len(t, f.retriever.queries, 1)
	assert.Equal(t, "Where is my order?", f.retriever.queries[0])

	sent := f.chat.requests[0]
	assert.Contains(t, sent.Messages[0].Content, "Context from knowledge base:")
	assert.Contains(t, sent.Messages[0].Content, "Orders ship within 2 days.")

	// Sources deduplicated per document.
	require.NotNil(t, turn.AssistantMessage.Metadata)
	assert.Equal(t, []string{"doc-1"}, turn.AssistantMessage.Metadata.RAGSources)
}

func TestHandleMessageRetrievalFailureAborts(t *testing.T) {
	f := newFixture(t, model.TenantSettings{RAGEnabled: true})
	f.retriever.err = errors.New("vector store down")

	_, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge retrieval")

	// The model was never called.
	assert.Empty(t, f.chat.requests)
}

func TestHandleMessageModelFailure(t *testing.T) {
	f := newFixture(t, model.TenantSettings{})
	f.chat.err = errors.New("provider unavailable")

	_, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{Content: "hi"})
	require.Error(t, err)

	// The user message persisted; no assistant message was added.
	msgs, listErr := f.store.ListMessages(context.Background(), f.session.ID, 0)
	require.NoError(t, listErr)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
}

func TestHandleMessageTerminalSessionRejected(t *testing.T) {
	f := newFixture(t, model.TenantSettings{})
	status := model.SessionResolved
	require.NoError(t, f.store.PatchSession(context.Background(), f.session.ID, model.SessionPatch{Status: &status}))

	_, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolved")
	assert.Empty(t, f.chat.requests)
}

func TestHandleMessageTooLong(t *testing.T) {
	f := newFixture(t, model.TenantSettings{})

	_, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{
		Content: strings.Repeat("x", MaxMessageLength+1),
	})
	require.Error(t, err)
	assert.Empty(t, f.chat.requests)
}

func TestHandleMessagePIIRedaction(t *testing.T) {
	f := newFixture(t, model.TenantSettings{PIIRedactionEnabled: true})

	turn, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{
		Content: "my email is jane@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "my email is [EMAIL_REDACTED]", turn.UserMessage.Content)
	// The model sees the redacted content, never the original.
	assert.NotContains(t, f.chat.requests[0].Messages[1].Content, "jane@example.com")
}

func TestHandleMessageAutoEscalation(t *testing.T) {
	f := newFixture(t, model.TenantSettings{AutoEscalateEnabled: true})
	agent := "agent-9"
	f.store.PutRules("tenant-1", []model.EscalationRule{{
		ID:         "rule-kw",
		TenantID:   "tenant-1",
		Priority:   1,
		Enabled:    true,
		Conditions: model.RuleConditions{Keywords: []string{"lawyer"}},
		Actions:    model.RuleActions{AssignTo: &agent},
	}})

	turn, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{
		Content: "I will call my lawyer",
	})
	require.NoError(t, err)
	assert.True(t, turn.Escalated)

	session, err := f.store.GetSession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEscalated, session.Status)
	require.NotNil(t, session.AssignedAgentID)
	assert.Equal(t, "agent-9", *session.AssignedAgentID)

	assert.Equal(t, []string{f.session.ID}, f.notifier.sessions)
	assert.Equal(t, []string{"rule-kw"}, f.notifier.rules)
}

func TestHandleMessageEscalationDisabled(t *testing.T) {
	f := newFixture(t, model.TenantSettings{AutoEscalateEnabled: false})
	f.store.PutRules("tenant-1", []model.EscalationRule{{
		ID:         "rule-kw",
		TenantID:   "tenant-1",
		Priority:   1,
		Enabled:    true,
		Conditions: model.RuleConditions{Keywords: []string{"lawyer"}},
	}})

	turn, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{
		Content: "I will call my lawyer",
	})
	require.NoError(t, err)
	assert.False(t, turn.Escalated)
	assert.Empty(t, f.notifier.sessions)

	session, err := f.store.GetSession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, session.Status)
}

func TestHandleMessageContextWindowTrimmed(t *testing.T) {
	f := newFixture(t, model.TenantSettings{})

	// Seed more history than the window allows.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		require.NoError(t, f.store.AppendMessage(context.Background(), &model.Message{
			ID:        fmt.Sprintf("msg-%d", i),
			SessionID: f.session.ID,
			Role:      model.RoleUser,
			Content:   "old message",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	_, err := f.orch.HandleMessage(context.Background(), f.session.ID, &model.SendMessageRequest{Content: "latest"})
	require.NoError(t, err)

	// system prompt + at most ContextWindow history messages.
	sent := f.chat.requests[0]
	assert.LessOrEqual(t, len(sent.Messages), 21)
	assert.Equal(t, "latest", sent.Messages[len(sent.Messages)-1].Content)
}
