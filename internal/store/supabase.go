package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/echo-ai/support-platform/internal/model"
)

// SupabaseConfig holds Supabase connection configuration.
type SupabaseConfig struct {
	URL    string
	APIKey string
}

// SupabaseStore implements Store against a Supabase project. Usage
// increments go through the record_usage database function so the
// increment-or-create is a single server-side statement — concurrent
// completions for the same key serialize at the database, not here.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a Supabase-backed record store.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("store: supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("store: supabase API key is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("store: create supabase client: %w", err)
	}

	return &SupabaseStore{client: client}, nil
}

// GetTenant retrieves a tenant by ID.
func (s *SupabaseStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var tenants []model.Tenant
	_, err := s.client.From("tenants").
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&tenants)
	if err != nil {
		return nil, fmt.Errorf("store: get tenant %s: %w", id, err)
	}
	if len(tenants) == 0 {
		return nil, ErrNotFound
	}
	return &tenants[0], nil
}

// ListTenants returns every tenant row.
func (s *SupabaseStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	_, err := s.client.From("tenants").
		Select("*", "", false).
		ExecuteTo(&tenants)
	if err != nil {
		return nil, fmt.Errorf("store: list tenants: %w", err)
	}
	return tenants, nil
}

// CreateSession inserts a new session row.
func (s *SupabaseStore) CreateSession(ctx context.Context, session *model.Session) error {
	_, _, err := s.client.From("sessions").
		Insert(session, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SupabaseStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sessions []model.Session
	_, err := s.client.From("sessions").
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&sessions)
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", id, err)
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return &sessions[0], nil
}

// PatchSession applies a partial update to a session row.
func (s *SupabaseStore) PatchSession(ctx context.Context, id string, patch model.SessionPatch) error {
	update := map[string]any{"updated_at": time.Now()}
	if patch.Status != nil {
		update["status"] = *patch.Status
	}
	if patch.AssignedAgentID != nil {
		update["assigned_agent_id"] = *patch.AssignedAgentID
	}
	if patch.Sentiment != nil {
		update["sentiment"] = *patch.Sentiment
	}
	if patch.ClosedAt != nil {
		update["closed_at"] = *patch.ClosedAt
	}

	_, _, err := s.client.From("sessions").
		Update(update, "", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("store: patch session %s: %w", id, err)
	}
	return nil
}

// AppendMessage inserts a message row.
func (s *SupabaseStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	_, _, err := s.client.From("messages").
		Insert(msg, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

// ListMessages returns the most-recent limit messages in chronological
// order. The query fetches newest-first and the result is reversed.
func (s *SupabaseStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	query := s.client.From("messages").
		Select("*", "", false).
		Eq("session_id", sessionID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if limit > 0 {
		query = query.Limit(limit, "")
	}

	var msgs []model.Message
	if _, err := query.ExecuteTo(&msgs); err != nil {
		return nil, fmt.Errorf("store: list messages for session %s: %w", sessionID, err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CountMessages returns the total message count for a session.
func (s *SupabaseStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	_, count, err := s.client.From("messages").
		Select("id", "exact", false).
		Eq("session_id", sessionID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("store: count messages for session %s: %w", sessionID, err)
	}
	return int(count), nil
}

// DeleteMessagesBefore removes a tenant's messages older than the cutoff
// via the delete_expired_messages database function.
func (s *SupabaseStore) DeleteMessagesBefore(ctx context.Context, tenantID string, cutoff time.Time) (int, error) {
	params, err := json.Marshal(map[string]any{
		"p_tenant_id": tenantID,
		"p_cutoff":    cutoff.Format(time.RFC3339),
	})
	if err != nil {
		return 0, fmt.Errorf("store: encode retention params: %w", err)
	}

	result := s.client.Rpc("delete_expired_messages", "", json.RawMessage(params))
	deleted, err := strconv.Atoi(result)
	if err != nil {
		return 0, fmt.Errorf("store: delete expired messages for tenant %s: unexpected result %q", tenantID, result)
	}
	return deleted, nil
}

// ListRules returns a tenant's escalation rules ordered by priority.
func (s *SupabaseStore) ListRules(ctx context.Context, tenantID string) ([]model.EscalationRule, error) {
	var rules []model.EscalationRule
	_, err := s.client.From("escalation_rules").
		Select("*", "", false).
		Eq("tenant_id", tenantID).
		Order("priority", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rules)
	if err != nil {
		return nil, fmt.Errorf("store: list rules for tenant %s: %w", tenantID, err)
	}
	return rules, nil
}

// CreateDocument inserts a document row.
func (s *SupabaseStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	_, _, err := s.client.From("documents").
		Insert(doc, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("store: create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *SupabaseStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var docs []model.Document
	_, err := s.client.From("documents").
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&docs)
	if err != nil {
		return nil, fmt.Errorf("store: get document %s: %w", id, err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

// ListDocumentsByTenant returns all documents belonging to a tenant.
func (s *SupabaseStore) ListDocumentsByTenant(ctx context.Context, tenantID string) ([]model.Document, error) {
	var docs []model.Document
	_, err := s.client.From("documents").
		Select("*", "", false).
		Eq("tenant_id", tenantID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&docs)
	if err != nil {
		return nil, fmt.Errorf("store: list documents for tenant %s: %w", tenantID, err)
	}
	return docs, nil
}

// PatchDocumentStatus applies an indexing-status update to a document row.
func (s *SupabaseStore) PatchDocumentStatus(ctx context.Context, id string, patch model.DocumentStatusPatch) error {
	update := map[string]any{
		"status":     patch.Status,
		"updated_at": time.Now(),
	}
	if patch.ChunkCount != nil {
		update["chunk_count"] = *patch.ChunkCount
	}
	if patch.VectorCount != nil {
		update["vector_count"] = *patch.VectorCount
	}
	if patch.Error != nil {
		update["error"] = *patch.Error
	}

	_, _, err := s.client.From("documents").
		Update(update, "", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("store: patch document %s: %w", id, err)
	}
	return nil
}

// RecordUsage applies the additive usage increment through the
// record_usage database function, which upserts the
// (tenant, date, provider, model) row in one statement.
func (s *SupabaseStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	params, err := json.Marshal(map[string]any{
		"p_tenant_id":         delta.TenantID,
		"p_date":              delta.Date,
		"p_provider":          delta.Provider,
		"p_model":             delta.Model,
		"p_prompt_tokens":     delta.PromptTokens,
		"p_completion_tokens": delta.CompletionTokens,
		"p_cost":              delta.Cost,
	})
	if err != nil {
		return fmt.Errorf("store: encode usage params: %w", err)
	}

	result := s.client.Rpc("record_usage", "", json.RawMessage(params))
	if result == "" {
		return fmt.Errorf("store: record usage for tenant %s: rpc returned no result", delta.TenantID)
	}
	return nil
}

// ListUsageSince returns a tenant's usage records with date >= fromDate.
func (s *SupabaseStore) ListUsageSince(ctx context.Context, tenantID, fromDate string) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	_, err := s.client.From("usage").
		Select("*", "", false).
		Eq("tenant_id", tenantID).
		Gte("date", fromDate).
		Order("date", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&records)
	if err != nil {
		return nil, fmt.Errorf("store: list usage for tenant %s: %w", tenantID, err)
	}
	return records, nil
}
