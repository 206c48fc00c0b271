package model

// UsageRecord accumulates per-day token and cost counters for a tenant.
// The (tenant, date, provider, model) key is unique per day; updates are
// additive, never overwritten.
type UsageRecord struct {
	ID               string  `json:"id"`
	TenantID         string  `json:"tenant_id"`
	Date             string  `json:"date"` // YYYY-MM-DD
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
	RequestCount     int     `json:"request_count"`
}

// UsageDelta is one additive increment applied to a usage record.
type UsageDelta struct {
	TenantID         string  `json:"tenant_id"`
	Date             string  `json:"date"`
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// UsageTotals summarizes usage over a period.
type UsageTotals struct {
	TotalTokens   int     `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
	TotalRequests int     `json:"total_requests"`
}
