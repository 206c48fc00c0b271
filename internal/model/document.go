package model

import (
	"time"
)

// DocumentStatus is the indexing state of a knowledge document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentIndexed    DocumentStatus = "indexed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is an ingestible knowledge source belonging to a tenant.
type Document struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Type        string         `json:"type"` // text, markdown
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	VectorCount int            `json:"vector_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentStatusPatch carries an indexing-status update for a document.
type DocumentStatusPatch struct {
	Status      DocumentStatus `json:"status"`
	ChunkCount  *int           `json:"chunk_count,omitempty"`
	VectorCount *int           `json:"vector_count,omitempty"`
	Error       *string        `json:"error,omitempty"`
}

// CreateDocumentRequest is the request to register a new document.
type CreateDocumentRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}
