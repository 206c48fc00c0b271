// Package llm unifies heterogeneous chat-completion providers behind one
// request/response contract with retry, backoff and cost accounting.
package llm

// Provider identifies a supported chat-completion provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderGrok      Provider = "grok"
)

// ChatMessage is a role-tagged message in provider-neutral form.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Provider    Provider
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// TokenUsage normalizes provider token reporting. Providers that do not
// report counts yield zeros, never negative or missing values.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the normalized result of a completion call.
type ChatResponse struct {
	Content   string     `json:"content"`
	Model     string     `json:"model"`
	Usage     TokenUsage `json:"usage"`
	Cost      float64    `json:"cost"`
	LatencyMs int64      `json:"latency_ms"`
}
