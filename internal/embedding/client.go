// Package embedding converts text into fixed-dimension vectors via the
// OpenAI embeddings API.
package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Dimensions is the vector size produced by the default embedding model.
const Dimensions = 1536

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// EmbeddingError wraps a provider or network failure. The caller decides
// whether to abort or skip — there is no retry inside this client, so
// partial-batch failures can be handled per use case.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Client generates embeddings for single texts and batches.
type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewClient creates an embedding client for the given model.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
	}
}

// Embed generates a vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("provider returned no vectors")}
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts in one provider call.
// All vectors share the same dimensionality within a deployment.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
