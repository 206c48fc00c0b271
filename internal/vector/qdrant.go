// Package vector provides the tenant-scoped vector index client backed by
// Qdrant.
package vector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/pkg/logger"
)

// Embedder turns query text into a vector before similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one vector to upsert, idempotent by ID.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Result is one similarity match carrying the original chunk content.
type Result struct {
	ID         string         `json:"id"`
	Score      float32        `json:"score"`
	Content    string         `json:"content"`
	DocumentID string         `json:"document_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StoreError wraps a Qdrant failure. Terminal per call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Config holds connection settings for Qdrant.
type Config struct {
	URL        string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey     string
	Collection string
	Dims       uint64
}

// Index is the tenant-namespaced vector store. All vectors carry a
// tenant_id payload field and every query and delete filters on it, so
// cross-tenant leakage is prevented structurally.
type Index struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	embedder   Embedder
	logger     *logger.Logger
}

// parseURL extracts host, port, and TLS flag from a Qdrant URL. The REST
// port 6333 is mapped to the gRPC port 6334.
func parseURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("vector: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("vector: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewIndex connects to Qdrant via gRPC.
func NewIndex(cfg Config, embedder Embedder, log *logger.Logger) (*Index, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vector: connect to qdrant at %s:%d: %w", host, port, err)
	}

	dims := cfg.Dims
	if dims == 0 {
		dims = 1536
	}

	return &Index{
		client:     client,
		collection: cfg.Collection,
		dims:       dims,
		embedder:   embedder,
		logger:     log,
	}, nil
}

// EnsureCollection creates the collection and payload indexes if absent.
// CreateFieldIndex is idempotent on Qdrant, so it is always attempted.
func (i *Index) EnsureCollection(ctx context.Context) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return &StoreError{Op: "check collection", Err: err}
	}

	if !exists {
		if err := i.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: i.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     i.dims,
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return &StoreError{Op: fmt.Sprintf("create collection %q", i.collection), Err: err}
		}
		i.logger.Info("qdrant collection created",
			zap.String("collection", i.collection), zap.Uint64("dims", i.dims))
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	for _, field := range []string{"tenant_id", "document_id"} {
		if _, err := i.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: i.collection,
			FieldName:      field,
			FieldType:      &keywordType,
		}); err != nil {
			return &StoreError{Op: fmt.Sprintf("ensure index on %q", field), Err: err}
		}
	}

	return nil
}

// pointID derives a stable UUID from a record ID so re-upserting the same
// ID replaces the existing point.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// Upsert writes records into the tenant's namespace.
func (i *Index) Upsert(ctx context.Context, tenantID string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for n, rec := range records {
		payload := map[string]any{
			"id":        rec.ID,
			"tenant_id": tenantID,
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}
		points[n] = &qdrant.PointStruct{
			Id:      pointID(rec.ID),
			Vectors: qdrant.NewVectorsDense(rec.Vector),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return &StoreError{Op: fmt.Sprintf("upsert %d points", len(points)), Err: err}
	}
	return nil
}

// Query embeds the query text and returns at most topK matches above the
// score threshold, ordered by descending score.
func (i *Index) Query(ctx context.Context, tenantID, queryText string, topK int, threshold float64, filters map[string]string) ([]Result, error) {
	vec, err := i.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	must := []*qdrant.Condition{
		qdrant.NewMatch("tenant_id", tenantID),
	}
	for field, value := range filters {
		must = append(must, qdrant.NewMatch(field, value))
	}

	limit := uint64(topK) //nolint:gosec
	scored, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQueryDense(vec),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	results := make([]Result, 0, len(scored))
	for _, sp := range scored {
		results = append(results, resultFromPoint(sp))
	}

	return FilterResults(results, threshold, topK), nil
}

func resultFromPoint(sp *qdrant.ScoredPoint) Result {
	payload := sp.GetPayload()
	metadata := make(map[string]any, len(payload))
	for k, v := range payload {
		metadata[k] = valueToAny(v)
	}

	res := Result{
		Score:    sp.GetScore(),
		Metadata: metadata,
	}
	if id, ok := metadata["id"].(string); ok {
		res.ID = id
	}
	if content, ok := metadata["content"].(string); ok {
		res.Content = content
	}
	if docID, ok := metadata["document_id"].(string); ok {
		res.DocumentID = docID
	}
	return res
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

// FilterResults drops matches below the threshold and truncates to topK.
// Input order (descending score) is preserved.
func FilterResults(results []Result, threshold float64, topK int) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < threshold {
			continue
		}
		kept = append(kept, r)
		if len(kept) == topK {
			break
		}
	}
	return kept
}

// DeleteNamespace irreversibly removes every vector belonging to a tenant.
// Used on reindex.
func (i *Index) DeleteNamespace(ctx context.Context, tenantID string) error {
	_, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("tenant_id", tenantID),
					},
				},
			},
		},
	})
	if err != nil {
		return &StoreError{Op: fmt.Sprintf("delete namespace %s", tenantID), Err: err}
	}
	return nil
}

// Close shuts down the Qdrant gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}
