package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/queue"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/pkg/logger"
)

type fakeEnqueuer struct {
	jobs []queue.IngestJob
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job queue.IngestJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeReindexer struct {
	tenants []string
	indexed int
}

func (f *fakeReindexer) Reindex(ctx context.Context, tenantID string) (int, error) {
	f.tenants = append(f.tenants, tenantID)
	return f.indexed, nil
}

func newDocumentService(t *testing.T) (*DocumentService, *fakeEnqueuer, *fakeReindexer) {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	st.PutTenant(&model.Tenant{ID: "tenant-1", Name: "Acme"})

	enq := &fakeEnqueuer{}
	re := &fakeReindexer{indexed: 3}
	return NewDocumentService(st, enq, re, log), enq, re
}

func TestDocumentCreateEnqueuesIngest(t *testing.T) {
	svc, enq, _ := newDocumentService(t)

	doc, err := svc.Create(context.Background(), "tenant-1", &model.CreateDocumentRequest{
		Name: "FAQ",
		URL:  "https://example.com/faq.md",
		Type: "markdown",
	})
	require.NoError(t, err)

	assert.Equal(t, model.DocumentPending, doc.Status)
	assert.Equal(t, "markdown", doc.Type)

	require.Len(t, enq.jobs, 1)
	assert.Equal(t, doc.ID, enq.jobs[0].DocumentID)
	assert.Equal(t, "tenant-1", enq.jobs[0].TenantID)
}

func TestDocumentCreateValidation(t *testing.T) {
	svc, _, _ := newDocumentService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.CreateDocumentRequest
	}{
		{"missing name", model.CreateDocumentRequest{URL: "https://example.com/x"}},
		{"bad url", model.CreateDocumentRequest{Name: "x", URL: "not a url"}},
		{"bad type", model.CreateDocumentRequest{Name: "x", URL: "https://example.com/x", Type: "pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "tenant-1", &tt.req)
			assert.Error(t, err)
		})
	}
}

func TestDocumentCreateSurvivesEnqueueFailure(t *testing.T) {
	svc, enq, _ := newDocumentService(t)
	enq.err = errors.New("redis down")

	doc, err := svc.Create(context.Background(), "tenant-1", &model.CreateDocumentRequest{
		Name: "FAQ",
		URL:  "https://example.com/faq",
	})
	require.NoError(t, err)

	// Document is registered pending; a later reindex picks it up.
	assert.Equal(t, model.DocumentPending, doc.Status)
}

func TestDocumentGetScopedToTenant(t *testing.T) {
	svc, _, _ := newDocumentService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "tenant-1", &model.CreateDocumentRequest{
		Name: "FAQ",
		URL:  "https://example.com/faq",
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "tenant-2", doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocumentReindex(t *testing.T) {
	svc, _, re := newDocumentService(t)

	indexed, err := svc.Reindex(context.Background(), "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, 3, indexed)
	assert.Equal(t, []string{"tenant-1"}, re.tenants)
}
