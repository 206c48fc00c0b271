package rag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/vector"
	"github.com/echo-ai/support-platform/pkg/logger"
	"github.com/echo-ai/support-platform/pkg/metrics"
)

// reindexConcurrency bounds how many documents re-ingest in parallel.
const reindexConcurrency = 4

// DocumentStore is the record-store slice the pipeline needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocumentsByTenant(ctx context.Context, tenantID string) ([]model.Document, error)
	PatchDocumentStatus(ctx context.Context, id string, patch model.DocumentStatusPatch) error
}

// Index is the vector-store surface used by the pipeline.
type Index interface {
	Upsert(ctx context.Context, tenantID string, records []vector.Record) error
	Query(ctx context.Context, tenantID, queryText string, topK int, threshold float64, filters map[string]string) ([]vector.Result, error)
	DeleteNamespace(ctx context.Context, tenantID string) error
}

// Options configures chunking and query behavior.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	ScoreThreshold float64
}

// Pipeline orchestrates chunking, embedding and vector upserts for
// ingestion, and similarity queries for per-message knowledge lookup.
type Pipeline struct {
	store      DocumentStore
	embedder   vector.Embedder
	index      Index
	httpClient *http.Client
	opts       Options
	logger     *logger.Logger
}

// NewPipeline creates a retrieval pipeline.
func NewPipeline(store DocumentStore, embedder vector.Embedder, index Index, opts Options, log *logger.Logger) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = 0.7
	}

	return &Pipeline{
		store:      store,
		embedder:   embedder,
		index:      index,
		httpClient: http.DefaultClient,
		opts:       opts,
		logger:     log,
	}
}

// Ingest runs the single-document pipeline: fetch, extract, chunk, embed,
// upsert, then record the outcome on the document. Failures mark the
// document failed; vectors upserted before the failure are not rolled
// back — re-ingestion is safe because upsert is idempotent by ID.
func (p *Pipeline) Ingest(ctx context.Context, documentID string) error {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	if err := p.store.PatchDocumentStatus(ctx, documentID, model.DocumentStatusPatch{
		Status: model.DocumentProcessing,
	}); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	chunkCount, err := p.ingest(ctx, doc)
	if err != nil {
		msg := err.Error()
		if patchErr := p.store.PatchDocumentStatus(ctx, documentID, model.DocumentStatusPatch{
			Status: model.DocumentFailed,
			Error:  &msg,
		}); patchErr != nil {
			p.logger.Error("failed to record document failure",
				zap.String("document_id", documentID), zap.Error(patchErr))
		}
		metrics.DocumentsIngestedTotal.WithLabelValues(doc.TenantID, "failed").Inc()
		return err
	}

	if err := p.store.PatchDocumentStatus(ctx, documentID, model.DocumentStatusPatch{
		Status:      model.DocumentIndexed,
		ChunkCount:  &chunkCount,
		VectorCount: &chunkCount,
	}); err != nil {
		return fmt.Errorf("mark document indexed: %w", err)
	}

	metrics.DocumentsIngestedTotal.WithLabelValues(doc.TenantID, "indexed").Inc()
	metrics.ChunksIndexedTotal.WithLabelValues(doc.TenantID).Add(float64(chunkCount))

	p.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.String("tenant_id", doc.TenantID),
		zap.Int("chunks", chunkCount),
	)
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, doc *model.Document) (int, error) {
	content, err := p.fetchContent(ctx, doc.URL)
	if err != nil {
		return 0, err
	}

	text := content
	if doc.Type == "markdown" {
		text = ExtractTextFromMarkdown(content)
	}

	chunks := ChunkText(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Record{
			ID:     fmt.Sprintf("%s_chunk_%d", doc.ID, i),
			Vector: vectors[i],
			Metadata: map[string]any{
				"document_id":   doc.ID,
				"document_name": doc.Name,
				"content":       c.Content,
				"chunk_index":   int64(c.Index),
				"total_chunks":  int64(c.TotalChunks),
			},
		}
	}

	if err := p.index.Upsert(ctx, doc.TenantID, records); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

func (p *Pipeline) fetchContent(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build document request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch document: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document body: %w", err)
	}
	return string(body), nil
}

// Query runs a top-K similarity lookup in the tenant's namespace. No
// matches above the threshold yields an empty slice, not an error.
func (p *Pipeline) Query(ctx context.Context, tenantID, query string) ([]vector.Result, error) {
	return p.index.Query(ctx, tenantID, query, p.opts.TopK, p.opts.ScoreThreshold, nil)
}

// BuildContext assembles retrieval results into the text prepended to the
// model's system prompt. Empty results yield an empty string.
func BuildContext(results []vector.Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return "Context from knowledge base:\n" + strings.Join(parts, "\n\n")
}

// Reindex deletes the tenant's namespace and re-ingests every document
// concurrently. Per-document failures are logged and do not block the
// others. Returns the number of documents that indexed successfully.
func (p *Pipeline) Reindex(ctx context.Context, tenantID string) (int, error) {
	docs, err := p.store.ListDocumentsByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("list documents for tenant %s: %w", tenantID, err)
	}

	if err := p.index.DeleteNamespace(ctx, tenantID); err != nil {
		return 0, err
	}

	var succeeded int
	var g errgroup.Group
	g.SetLimit(reindexConcurrency)

	results := make([]error, len(docs))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			results[i] = p.Ingest(ctx, doc.ID)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err != nil {
			p.logger.Warn("reindex: document failed",
				zap.String("tenant_id", tenantID),
				zap.String("document_id", docs[i].ID),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}

	return succeeded, nil
}
