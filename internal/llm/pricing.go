package llm

import (
	"fmt"
)

// Rates holds per-token dollar prices for one provider:model pair.
type Rates struct {
	Input  float64
	Output float64
}

// Pricing maps "provider:model" keys to token rates. The table is injected
// at construction so deployments can reprice without a rebuild. Unknown
// keys price at zero — cost is telemetry, not a billing primitive.
type Pricing map[string]Rates

// DefaultPricing returns the built-in rate table.
func DefaultPricing() Pricing {
	return Pricing{
		"openai:gpt-4o":                      {Input: 2.5 / 1_000_000, Output: 10.0 / 1_000_000},
		"openai:gpt-4o-mini":                 {Input: 0.15 / 1_000_000, Output: 0.6 / 1_000_000},
		"anthropic:claude-3-5-sonnet-20241022": {Input: 3.0 / 1_000_000, Output: 15.0 / 1_000_000},
		"anthropic:claude-3-5-haiku-20241022":  {Input: 1.0 / 1_000_000, Output: 5.0 / 1_000_000},
		"gemini:gemini-2.0-flash-exp":        {Input: 0, Output: 0},
		"grok:grok-beta":                     {Input: 5.0 / 1_000_000, Output: 15.0 / 1_000_000},
	}
}

// Cost computes the estimated dollar cost for a completion.
func (p Pricing) Cost(provider Provider, model string, promptTokens, completionTokens int) float64 {
	rates := p[fmt.Sprintf("%s:%s", provider, model)]
	return float64(promptTokens)*rates.Input + float64(completionTokens)*rates.Output
}
