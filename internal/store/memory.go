package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echo-ai/support-platform/internal/model"
)

// MemoryStore is an in-memory Store used in tests and local development.
// The single mutex makes RecordUsage an atomic increment-or-create.
type MemoryStore struct {
	mu        sync.RWMutex
	tenants   map[string]*model.Tenant
	sessions  map[string]*model.Session
	messages  map[string][]model.Message // keyed by session ID
	rules     map[string][]model.EscalationRule
	documents map[string]*model.Document
	usage     map[string]*model.UsageRecord // keyed by tenant|date|provider|model
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:   make(map[string]*model.Tenant),
		sessions:  make(map[string]*model.Session),
		messages:  make(map[string][]model.Message),
		rules:     make(map[string][]model.EscalationRule),
		documents: make(map[string]*model.Document),
		usage:     make(map[string]*model.UsageRecord),
	}
}

// PutTenant seeds a tenant.
func (s *MemoryStore) PutTenant(t *model.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// PutRules seeds escalation rules for a tenant.
func (s *MemoryStore) PutRules(tenantID string, rules []model.EscalationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[tenantID] = rules
}

// GetTenant retrieves a tenant by ID.
func (s *MemoryStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTenants returns every tenant.
func (s *MemoryStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenants := make([]model.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		tenants = append(tenants, *t)
	}
	return tenants, nil
}

// CreateSession stores a new session.
func (s *MemoryStore) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession retrieves a session by ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// PatchSession applies a partial update to a session.
func (s *MemoryStore) PatchSession(ctx context.Context, id string, patch model.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Status != nil {
		sess.Status = *patch.Status
	}
	if patch.AssignedAgentID != nil {
		sess.AssignedAgentID = patch.AssignedAgentID
	}
	if patch.Sentiment != nil {
		sess.Sentiment = patch.Sentiment
	}
	if patch.ClosedAt != nil {
		sess.ClosedAt = patch.ClosedAt
	}
	sess.UpdatedAt = time.Now()
	return nil
}

// AppendMessage appends a message to its session.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[msg.SessionID]; !ok {
		return ErrNotFound
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], *msg)
	return nil
}

// ListMessages returns the most-recent limit messages in chronological order.
func (s *MemoryStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// CountMessages returns the total message count for a session.
func (s *MemoryStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[sessionID]), nil
}

// DeleteMessagesBefore removes messages older than the cutoff for a tenant.
func (s *MemoryStore) DeleteMessagesBefore(ctx context.Context, tenantID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for sessionID, msgs := range s.messages {
		sess, ok := s.sessions[sessionID]
		if !ok || sess.TenantID != tenantID {
			continue
		}
		kept := msgs[:0]
		for _, m := range msgs {
			if m.CreatedAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, m)
		}
		s.messages[sessionID] = kept
	}
	return deleted, nil
}

// ListRules returns a tenant's escalation rules.
func (s *MemoryStore) ListRules(ctx context.Context, tenantID string) ([]model.EscalationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]model.EscalationRule, len(s.rules[tenantID]))
	copy(rules, s.rules[tenantID])
	return rules, nil
}

// CreateDocument stores a new document record.
func (s *MemoryStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

// GetDocument retrieves a document by ID.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

// ListDocumentsByTenant returns all documents belonging to a tenant.
func (s *MemoryStore) ListDocumentsByTenant(ctx context.Context, tenantID string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []model.Document
	for _, doc := range s.documents {
		if doc.TenantID == tenantID {
			docs = append(docs, *doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// PatchDocumentStatus applies an indexing-status update.
func (s *MemoryStore) PatchDocumentStatus(ctx context.Context, id string, patch model.DocumentStatusPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = patch.Status
	if patch.ChunkCount != nil {
		doc.ChunkCount = *patch.ChunkCount
	}
	if patch.VectorCount != nil {
		doc.VectorCount = *patch.VectorCount
	}
	if patch.Error != nil {
		doc.Error = *patch.Error
	} else if patch.Status != model.DocumentFailed {
		doc.Error = ""
	}
	doc.UpdatedAt = time.Now()
	return nil
}

func usageKey(tenantID, date, provider, mdl string) string {
	return fmt.Sprintf("%s|%s|%s|%s", tenantID, date, provider, mdl)
}

// RecordUsage applies an additive increment-or-create under the store lock,
// so concurrent completions for the same key never lose an update.
func (s *MemoryStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey(delta.TenantID, delta.Date, delta.Provider, delta.Model)
	rec, ok := s.usage[key]
	if !ok {
		rec = &model.UsageRecord{
			ID:       uuid.Must(uuid.NewV7()).String(),
			TenantID: delta.TenantID,
			Date:     delta.Date,
			Provider: delta.Provider,
			Model:    delta.Model,
		}
		s.usage[key] = rec
	}

	rec.PromptTokens += delta.PromptTokens
	rec.CompletionTokens += delta.CompletionTokens
	rec.TotalTokens += delta.PromptTokens + delta.CompletionTokens
	rec.EstimatedCost += delta.Cost
	rec.RequestCount++
	return nil
}

// ListUsageSince returns a tenant's usage records with date >= fromDate.
func (s *MemoryStore) ListUsageSince(ctx context.Context, tenantID, fromDate string) ([]model.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []model.UsageRecord
	for _, rec := range s.usage {
		if rec.TenantID == tenantID && rec.Date >= fromDate {
			records = append(records, *rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	return records, nil
}
