package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/pkg/logger"
	"github.com/echo-ai/support-platform/pkg/metrics"
)

const (
	maxAttempts       = 3
	initialRetryDelay = time.Second
	retryMultiplier   = 2

	grokBaseURL = "https://api.x.ai/v1"
)

// APIKeys holds provider credentials for an adapter instance.
type APIKeys struct {
	OpenAI    string
	Anthropic string
	Gemini    string
	Grok      string
}

// Adapter routes chat requests to one of four providers and normalizes
// their responses. Retry with exponential backoff wraps the whole dispatch.
type Adapter struct {
	openai    *openai.Client
	anthropic *anthropic.Client
	gemini    *geminiClient
	grok      *openai.Client
	pricing   Pricing
	logger    *logger.Logger

	// sleep and call are swapped out in tests to observe backoff
	// delays and to stub provider responses.
	sleep func(time.Duration)
	call  func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// NewAdapter creates an adapter with clients for all four providers.
func NewAdapter(keys APIKeys, pricing Pricing, log *logger.Logger) *Adapter {
	grokCfg := openai.DefaultConfig(keys.Grok)
	grokCfg.BaseURL = grokBaseURL

	a := &Adapter{
		openai:    openai.NewClient(keys.OpenAI),
		anthropic: anthropic.NewClient(option.WithAPIKey(keys.Anthropic)),
		gemini:    newGeminiClient(keys.Gemini),
		grok:      openai.NewClientWithConfig(grokCfg),
		pricing:   pricing,
		logger:    log,
		sleep:     time.Sleep,
	}
	a.call = a.dispatch
	return a
}

// Chat sends a completion request to the provider named in the request.
// Transport errors are retried up to 3 attempts with 1s/2s backoff; empty
// responses and unsupported providers are terminal. Latency covers the full
// call including retries.
func (a *Adapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	resp, err := a.withRetry(ctx, req)
	latency := time.Since(start)

	if err != nil {
		metrics.ModelRequestDuration.WithLabelValues(string(req.Provider), req.Model, "error").Observe(latency.Seconds())
		return nil, err
	}

	resp.LatencyMs = latency.Milliseconds()
	resp.Cost = a.pricing.Cost(req.Provider, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	metrics.RecordModelRequest(string(req.Provider), resp.Model, "success", latency.Seconds(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Cost)

	return resp, nil
}

func (a *Adapter) withRetry(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	delay := initialRetryDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := a.call(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		a.logger.Warn("model request failed, retrying",
			zap.String("provider", string(req.Provider)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		metrics.ModelRetriesTotal.WithLabelValues(string(req.Provider)).Inc()

		a.sleep(delay)
		delay *= retryMultiplier
	}

	return nil, &ModelRequestError{Provider: req.Provider, Attempts: maxAttempts, Err: lastErr}
}

// retryable reports whether an error is a transport-level failure worth
// another attempt. Empty responses and unsupported providers are terminal.
func retryable(err error) bool {
	if errors.Is(err, ErrEmptyResponse) {
		return false
	}
	var unsupported *UnsupportedProviderError
	return !errors.As(err, &unsupported)
}

// dispatch selects exactly one provider path. Adding a provider means
// adding one case and one handler, nothing else.
func (a *Adapter) dispatch(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	switch req.Provider {
	case ProviderOpenAI:
		return a.chatOpenAI(ctx, a.openai, req)
	case ProviderAnthropic:
		return a.chatAnthropic(ctx, req)
	case ProviderGemini:
		return a.chatGemini(ctx, req)
	case ProviderGrok:
		// Grok exposes an OpenAI-compatible API.
		return a.chatOpenAI(ctx, a.grok, req)
	default:
		return nil, &UnsupportedProviderError{Provider: req.Provider}
	}
}
