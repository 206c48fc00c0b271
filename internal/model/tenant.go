// Package model defines data structures for the support platform.
package model

import (
	"time"
)

// TenantSettings holds per-tenant feature configuration.
type TenantSettings struct {
	DefaultModel          string  `json:"default_model"`
	DefaultProvider       string  `json:"default_provider"`
	RAGEnabled            bool    `json:"rag_enabled"`
	AutoEscalateEnabled   bool    `json:"auto_escalate_enabled"`
	AutoEscalateThreshold float64 `json:"auto_escalate_threshold"`
	PIIRedactionEnabled   bool    `json:"pii_redaction_enabled"`
	RetentionDays         int     `json:"retention_days"`
}

// Tenant represents a configuration scope for sessions, documents and rules.
// Tenants are owned by the record store and read-only to the pipeline.
type Tenant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Settings  TenantSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
