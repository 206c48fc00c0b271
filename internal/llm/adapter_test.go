package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-ai/support-platform/pkg/logger"
)

func testAdapter(t *testing.T) (*Adapter, *[]time.Duration) {
	t.Helper()

	log, err := logger.NewDevelopment()
	require.NoError(t, err)

	a := NewAdapter(APIKeys{}, DefaultPricing(), log)

	var delays []time.Duration
	a.sleep = func(d time.Duration) { delays = append(delays, d) }
	return a, &delays
}

func okResponse() *ChatResponse {
	return &ChatResponse{
		Content: "hello",
		Model:   "gpt-4o",
		Usage:   TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

func TestChatRetriesTransportErrors(t *testing.T) {
	a, delays := testAdapter(t)

	attempts := 0
	a.call = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset")
		}
		return okResponse(), nil
	}

	resp, err := a.Chat(context.Background(), &ChatRequest{Provider: ProviderOpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
	assert.Equal(t, "hello", resp.Content)
}

func TestChatExhaustsRetries(t *testing.T) {
	a, delays := testAdapter(t)

	transportErr := errors.New("connection reset")
	attempts := 0
	a.call = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		attempts++
		return nil, transportErr
	}

	_, err := a.Chat(context.Background(), &ChatRequest{Provider: ProviderAnthropic, Model: "claude-3-5-sonnet-20241022"})
	require.Error(t, err)

	var reqErr *ModelRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, ProviderAnthropic, reqErr.Provider)
	assert.Equal(t, 3, reqErr.Attempts)
	assert.ErrorIs(t, err, transportErr)

	assert.Equal(t, 3, attempts)
	// Only two sleeps for three attempts.
	assert.Len(t, *delays, 2)
}

func TestChatEmptyResponseIsTerminal(t *testing.T) {
	a, delays := testAdapter(t)

	attempts := 0
	a.call = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		attempts++
		return nil, ErrEmptyResponse
	}

	_, err := a.Chat(context.Background(), &ChatRequest{Provider: ProviderOpenAI, Model: "gpt-4o"})
	require.ErrorIs(t, err, ErrEmptyResponse)

	assert.Equal(t, 1, attempts)
	assert.Empty(t, *delays)
	var reqErr *ModelRequestError
	assert.False(t, errors.As(err, &reqErr), "terminal errors must not be wrapped as retry exhaustion")
}

func TestChatUnsupportedProvider(t *testing.T) {
	a, delays := testAdapter(t)

	_, err := a.Chat(context.Background(), &ChatRequest{Provider: Provider("cohere"), Model: "command-r"})
	require.Error(t, err)

	var unsupported *UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, Provider("cohere"), unsupported.Provider)
	assert.Empty(t, *delays)
}

func TestChatComputesCost(t *testing.T) {
	a, _ := testAdapter(t)

	a.call = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return okResponse(), nil
	}

	resp, err := a.Chat(context.Background(), &ChatRequest{Provider: ProviderOpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	// 100 prompt tokens at $2.50/1M plus 50 completion tokens at $10/1M.
	assert.InDelta(t, 100*2.5/1_000_000+50*10.0/1_000_000, resp.Cost, 1e-12)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestPricingCost(t *testing.T) {
	pricing := DefaultPricing()

	tests := []struct {
		name             string
		provider         Provider
		model            string
		prompt, complete int
		want             float64
	}{
		{
			name:     "known model",
			provider: ProviderGrok,
			model:    "grok-beta",
			prompt:   1_000_000,
			complete: 1_000_000,
			want:     20.0,
		},
		{
			name:     "unknown model prices at zero",
			provider: ProviderOpenAI,
			model:    "gpt-99",
			prompt:   1_000_000,
			complete: 1_000_000,
			want:     0,
		},
		{
			name:     "zero tokens",
			provider: ProviderOpenAI,
			model:    "gpt-4o",
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Cost(tt.provider, tt.model, tt.prompt, tt.complete)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}
