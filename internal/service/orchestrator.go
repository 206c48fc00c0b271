// Package service provides the conversation orchestration pipeline and
// session/document business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/escalate"
	"github.com/echo-ai/support-platform/internal/llm"
	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/notify"
	"github.com/echo-ai/support-platform/internal/rag"
	"github.com/echo-ai/support-platform/internal/redact"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/internal/vector"
	"github.com/echo-ai/support-platform/pkg/logger"
	"github.com/echo-ai/support-platform/pkg/metrics"
)

// DefaultSystemPrompt frames the assistant for customer support.
const DefaultSystemPrompt = `You are Echo, an AI customer support assistant. You are helpful, friendly, and professional.
Always aim to resolve customer issues efficiently while maintaining a warm, empathetic tone.

Guidelines:
- Be concise but thorough in your responses
- Ask clarifying questions when needed
- Use the knowledge base to provide accurate information
- Escalate to human agents when appropriate
- Never make promises you can't keep
- Protect customer privacy and data`

// MaxMessageLength bounds inbound user content.
const MaxMessageLength = 10000

// PipelineState names the stages of one per-message run. Transitions only
// move forward; any failure ends the run.
type PipelineState string

const (
	StateReceived          PipelineState = "received"
	StateRetrieved         PipelineState = "retrieved"
	StateGenerated         PipelineState = "generated"
	StatePersisted         PipelineState = "persisted"
	StateEscalationChecked PipelineState = "escalation-checked"
	StateDone              PipelineState = "done"
	StateFailed            PipelineState = "failed"
)

// ChatClient is the model-invocation surface the orchestrator uses.
type ChatClient interface {
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Retriever is the knowledge-lookup surface the orchestrator uses.
type Retriever interface {
	Query(ctx context.Context, tenantID, query string) ([]vector.Result, error)
}

// Options holds orchestrator tunables.
type Options struct {
	ContextWindow int
	Temperature   float64
	MaxTokens     int
	ModelTimeout  time.Duration
}

// Orchestrator runs the per-message control flow: retrieve, generate,
// persist, meter, escalate. Each user message is one independent unit of
// work; sessions process fully in parallel with no shared mutable state
// beyond the usage counter, which the store increments atomically.
type Orchestrator struct {
	store     store.Store
	retriever Retriever
	chat      ChatClient
	notifier  notify.Notifier
	opts      Options
	logger    *logger.Logger
}

// NewOrchestrator creates the per-message pipeline.
func NewOrchestrator(st store.Store, retriever Retriever, chat ChatClient, notifier notify.Notifier, opts Options, log *logger.Logger) *Orchestrator {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 20
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 30 * time.Second
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}

	return &Orchestrator{
		store:     st,
		retriever: retriever,
		chat:      chat,
		notifier:  notifier,
		opts:      opts,
		logger:    log,
	}
}

// HandleMessage runs the full pipeline for one inbound user message. A
// failure at any step aborts the run and propagates; subsequent steps are
// skipped and the session keeps its prior status. The next user message
// restarts from the beginning.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, req *model.SendMessageRequest) (*model.MessageTurn, error) {
	state := StateReceived
	tenantID := "unknown"
	defer func() {
		metrics.PipelineRunsTotal.WithLabelValues(tenantID, string(state)).Inc()
	}()

	if len(req.Content) > MaxMessageLength {
		state = StateFailed
		return nil, fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}

	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		state = StateFailed
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	tenantID = session.TenantID
	if session.Status.Terminal() {
		state = StateFailed
		return nil, fmt.Errorf("session %s is %s", sessionID, session.Status)
	}

	tenant, err := o.store.GetTenant(ctx, session.TenantID)
	if err != nil {
		state = StateFailed
		return nil, fmt.Errorf("fetch tenant %s: %w", session.TenantID, err)
	}

	log := o.logger.WithContext("", tenant.ID, session.ID)

	content := req.Content
	if tenant.Settings.PIIRedactionEnabled {
		content = redact.PII(content)
	}

	userMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: session.ID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := o.store.AppendMessage(ctx, userMsg); err != nil {
		state = StateFailed
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tenant.ID, string(model.RoleUser)).Inc()

	// Retrieval.
	systemPrompt := DefaultSystemPrompt
	var ragSources []string
	if tenant.Settings.RAGEnabled {
		results, err := o.retriever.Query(ctx, tenant.ID, content)
		if err != nil {
			state = StateFailed
			return nil, fmt.Errorf("knowledge retrieval: %w", err)
		}
		if ragContext := rag.BuildContext(results); ragContext != "" {
			systemPrompt = systemPrompt + "\n\n" + ragContext
			ragSources = sourceIDs(results)
		}
	}
	state = StateRetrieved

	// Generation.
	window, err := o.store.ListMessages(ctx, session.ID, o.opts.ContextWindow)
	if err != nil {
		state = StateFailed
		return nil, fmt.Errorf("load message window: %w", err)
	}

	chatMessages := make([]llm.ChatMessage, 0, len(window)+1)
	chatMessages = append(chatMessages, llm.ChatMessage{Role: string(model.RoleSystem), Content: systemPrompt})
	for _, msg := range window {
		chatMessages = append(chatMessages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	modelCtx, cancel := context.WithTimeout(ctx, o.opts.ModelTimeout)
	resp, err := o.chat.Chat(modelCtx, &llm.ChatRequest{
		Provider:    llm.Provider(tenant.Settings.DefaultProvider),
		Model:       tenant.Settings.DefaultModel,
		Messages:    chatMessages,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	cancel()
	if err != nil {
		state = StateFailed
		return nil, fmt.Errorf("generate response: %w", err)
	}
	state = StateGenerated

	// Persistence.
	assistantMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: session.ID,
		Role:      model.RoleAssistant,
		Content:   resp.Content,
		Metadata: &model.MessageMetadata{
			Model:            resp.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Cost:             resp.Cost,
			LatencyMs:        resp.LatencyMs,
			RAGSources:       ragSources,
		},
		CreatedAt: time.Now(),
	}
	if err := o.store.AppendMessage(ctx, assistantMsg); err != nil {
		state = StateFailed
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tenant.ID, string(model.RoleAssistant)).Inc()
	state = StatePersisted

	// Usage metering is best-effort: a write failure must not fail the
	// response already delivered to the user.
	if err := o.store.RecordUsage(ctx, model.UsageDelta{
		TenantID:         tenant.ID,
		Date:             time.Now().UTC().Format("2006-01-02"),
		Provider:         tenant.Settings.DefaultProvider,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Cost:             resp.Cost,
	}); err != nil {
		log.Warn("failed to record usage", zap.Error(err))
	}

	// Escalation.
	escalated := false
	if tenant.Settings.AutoEscalateEnabled {
		escalated, err = o.checkEscalation(ctx, session, log)
		if err != nil {
			state = StateFailed
			return nil, err
		}
	}
	state = StateEscalationChecked
	state = StateDone

	return &model.MessageTurn{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Escalated:        escalated,
	}, nil
}

// checkEscalation evaluates the tenant's rules against the session and,
// on a match, escalates the session and triggers the notification
// collaborator.
func (o *Orchestrator) checkEscalation(ctx context.Context, session *model.Session, log *logger.Logger) (bool, error) {
	history, err := o.store.ListMessages(ctx, session.ID, 0)
	if err != nil {
		return false, fmt.Errorf("load history for escalation check: %w", err)
	}

	rules, err := o.store.ListRules(ctx, session.TenantID)
	if err != nil {
		return false, fmt.Errorf("load escalation rules: %w", err)
	}

	decision := escalate.Evaluate(session, history, rules, log)
	if decision == nil {
		return false, nil
	}

	status := model.SessionEscalated
	if err := o.store.PatchSession(ctx, session.ID, model.SessionPatch{
		Status:          &status,
		AssignedAgentID: decision.AssignTo,
	}); err != nil {
		return false, fmt.Errorf("escalate session: %w", err)
	}

	metrics.EscalationsTotal.WithLabelValues(session.TenantID, decision.RuleID).Inc()
	log.Info("session escalated",
		zap.String("rule_id", decision.RuleID),
		zap.Stringp("assigned_agent", decision.AssignTo),
	)

	for _, rule := range rules {
		if rule.ID == decision.RuleID {
			o.notifier.Notify(ctx, session, &rule)
			break
		}
	}

	return true, nil
}

func sourceIDs(results []vector.Result) []string {
	seen := make(map[string]bool, len(results))
	var ids []string
	for _, r := range results {
		if r.DocumentID == "" || seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true
		ids = append(ids, r.DocumentID)
	}
	return ids
}
