package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// SessionService manages the conversation lifecycle outside the
// per-message pipeline: creation, manual escalation, closing, and usage
// reporting.
type SessionService struct {
	store  store.Store
	logger *logger.Logger
}

func NewSessionService(st store.Store, log *logger.Logger) *SessionService {
	return &SessionService{store: st, logger: log}
}

// Create opens a new active session for the tenant.
func (s *SessionService) Create(ctx context.Context, tenantID string, req *model.CreateSessionRequest) (*model.Session, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("fetch tenant %s: %w", tenantID, err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		UserID:    req.UserID,
		Channel:   req.Channel,
		Status:    model.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get returns the session, scoped to the tenant.
func (s *SessionService) Get(ctx context.Context, tenantID, sessionID string) (*model.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return session, nil
}

// Messages returns the most recent limit messages in chronological order.
// A limit of 0 returns the full history.
func (s *SessionService) Messages(ctx context.Context, tenantID, sessionID string, limit int) ([]model.Message, error) {
	if _, err := s.Get(ctx, tenantID, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID, limit)
}

// Escalate hands the session to a human agent. Unlike rule-driven
// escalation it never consults the rule engine; an operator decided.
func (s *SessionService) Escalate(ctx context.Context, tenantID, sessionID string, agentID *string) (*model.Session, error) {
	session, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session %s is %s", sessionID, session.Status)
	}

	status := model.SessionEscalated
	if err := s.store.PatchSession(ctx, sessionID, model.SessionPatch{
		Status:          &status,
		AssignedAgentID: agentID,
	}); err != nil {
		return nil, fmt.Errorf("escalate session: %w", err)
	}
	return s.store.GetSession(ctx, sessionID)
}

// Close resolves or abandons the session. Terminal statuses are final;
// closing an already-closed session is an error.
func (s *SessionService) Close(ctx context.Context, tenantID, sessionID string, status model.SessionStatus) (*model.Session, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("status %q does not close a session", status)
	}

	session, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session %s is already %s", sessionID, session.Status)
	}

	now := time.Now()
	if err := s.store.PatchSession(ctx, sessionID, model.SessionPatch{
		Status:   &status,
		ClosedAt: &now,
	}); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	return s.store.GetSession(ctx, sessionID)
}

// SetSentiment records an externally computed sentiment score for the
// session, consumed by the escalation rule engine on later messages.
func (s *SessionService) SetSentiment(ctx context.Context, tenantID, sessionID string, sentiment float64) error {
	if _, err := s.Get(ctx, tenantID, sessionID); err != nil {
		return err
	}
	return s.store.PatchSession(ctx, sessionID, model.SessionPatch{Sentiment: &sentiment})
}

// Usage returns per-day usage records for the tenant since fromDate
// (YYYY-MM-DD, inclusive) along with rolled-up totals.
func (s *SessionService) Usage(ctx context.Context, tenantID, fromDate string) ([]model.UsageRecord, model.UsageTotals, error) {
	records, err := s.store.ListUsageSince(ctx, tenantID, fromDate)
	if err != nil {
		return nil, model.UsageTotals{}, fmt.Errorf("list usage: %w", err)
	}

	var totals model.UsageTotals
	for _, r := range records {
		totals.TotalTokens += r.TotalTokens
		totals.TotalCost += r.EstimatedCost
		totals.TotalRequests += r.RequestCount
	}
	return records, totals, nil
}
