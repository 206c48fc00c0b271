// Package store defines the record-store boundary: tenants, sessions,
// messages, documents, escalation rules and usage counters live in an
// external document database reached through these operations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/echo-ai/support-platform/internal/model"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the full record-store contract used by the platform.
type Store interface {
	// Tenants are read-only to the pipeline.
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	// ListTenants is used by background jobs that sweep every tenant.
	ListTenants(ctx context.Context) ([]model.Tenant, error)

	// Sessions.
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	PatchSession(ctx context.Context, id string, patch model.SessionPatch) error

	// Messages are append-only, ordered by creation time.
	AppendMessage(ctx context.Context, msg *model.Message) error
	// ListMessages returns the most-recent limit messages in
	// chronological order. limit <= 0 means no limit.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	// DeleteMessagesBefore removes messages older than the cutoff for a
	// tenant. Used by the retention job.
	DeleteMessagesBefore(ctx context.Context, tenantID string, cutoff time.Time) (int, error)

	// Escalation rules, read-only to the pipeline.
	ListRules(ctx context.Context, tenantID string) ([]model.EscalationRule, error)

	// Documents.
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocumentsByTenant(ctx context.Context, tenantID string) ([]model.Document, error)
	PatchDocumentStatus(ctx context.Context, id string, patch model.DocumentStatusPatch) error

	// RecordUsage applies an additive increment-or-create keyed by
	// (tenant, date, provider, model). Implementations must make the
	// update atomic so concurrent completions never lose counts.
	RecordUsage(ctx context.Context, delta model.UsageDelta) error
	// ListUsageSince returns records for a tenant with date >= fromDate
	// (YYYY-MM-DD).
	ListUsageSince(ctx context.Context, tenantID, fromDate string) ([]model.UsageRecord, error)
}
