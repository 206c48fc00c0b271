package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/middleware"
	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/service"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// DocumentHandler handles knowledge base document endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
	logger    *logger.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(documents *service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: log}
}

// Create handles POST /api/v1/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req model.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateDocumentName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.documents.Create(ctx, tenantID, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	docs, err := h.documents.List(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// Get handles GET /api/v1/documents/:id
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	documentID := chi.URLParam(r, "id")

	if err := middleware.ValidateDocumentID(documentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.documents.Get(ctx, tenantID, documentID)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Reindex handles POST /api/v1/documents/reindex. Admin scope only; it
// wipes and rebuilds the tenant's entire knowledge namespace.
func (h *DocumentHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	indexed, err := h.documents.Reindex(ctx, tenantID)
	if err != nil {
		h.logger.Error("reindex failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"indexed": indexed})
}
