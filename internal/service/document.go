package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/queue"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// Enqueuer hands ingest jobs to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.IngestJob) error
}

// Reindexer rebuilds a tenant's knowledge namespace from scratch.
type Reindexer interface {
	Reindex(ctx context.Context, tenantID string) (int, error)
}

// DocumentService registers knowledge documents and schedules their
// indexing. Actual chunking and embedding happens in the worker.
type DocumentService struct {
	store     store.Store
	enqueuer  Enqueuer
	reindexer Reindexer
	logger    *logger.Logger
}

func NewDocumentService(st store.Store, enqueuer Enqueuer, reindexer Reindexer, log *logger.Logger) *DocumentService {
	return &DocumentService{store: st, enqueuer: enqueuer, reindexer: reindexer, logger: log}
}

// Create registers a document as pending and enqueues it for ingestion.
func (s *DocumentService) Create(ctx context.Context, tenantID string, req *model.CreateDocumentRequest) (*model.Document, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("document name is required")
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid document url %q", req.URL)
	}
	docType := req.Type
	if docType == "" {
		docType = "text"
	}
	if docType != "text" && docType != "markdown" {
		return nil, fmt.Errorf("unsupported document type %q", docType)
	}

	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("fetch tenant %s: %w", tenantID, err)
	}

	now := time.Now()
	doc := &model.Document{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		Name:      req.Name,
		URL:       req.URL,
		Type:      docType,
		Status:    model.DocumentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.enqueuer.Enqueue(ctx, queue.IngestJob{DocumentID: doc.ID, TenantID: tenantID}); err != nil {
		// The document stays pending; reindex or a retry will pick it up.
		s.logger.Warn("failed to enqueue ingest job",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}

	return doc, nil
}

// Get returns the document, scoped to the tenant.
func (s *DocumentService) Get(ctx context.Context, tenantID, documentID string) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

// List returns all of the tenant's documents.
func (s *DocumentService) List(ctx context.Context, tenantID string) ([]model.Document, error) {
	return s.store.ListDocumentsByTenant(ctx, tenantID)
}

// Reindex wipes and rebuilds the tenant's knowledge namespace. Returns
// the number of documents that indexed successfully.
func (s *DocumentService) Reindex(ctx context.Context, tenantID string) (int, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return 0, fmt.Errorf("fetch tenant %s: %w", tenantID, err)
	}
	return s.reindexer.Reindex(ctx, tenantID)
}
