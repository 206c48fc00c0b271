// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/middleware"
	"github.com/echo-ai/support-platform/internal/model"
	"github.com/echo-ai/support-platform/internal/service"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// SessionHandler handles session and message endpoints.
type SessionHandler struct {
	sessions     *service.SessionService
	orchestrator *service.Orchestrator
	logger       *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, orch *service.Orchestrator, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		orchestrator: orch,
		logger:       log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(ctx)
	}

	session, err := h.sessions.Create(ctx, tenantID, &req)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Messages handles GET /api/v1/sessions/:id/messages
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	messages, err := h.sessions.Messages(ctx, tenantID, sessionID, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if s := statusFor(err); s == http.StatusNotFound {
			status = s
		}
		writeError(w, status, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

// Send handles POST /api/v1/sessions/:id/messages. It runs the full
// pipeline synchronously and returns both sides of the turn.
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.sessions.Get(ctx, tenantID, sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.orchestrator.HandleMessage(ctx, sessionID, &req)
	if err != nil {
		h.logger.Error("pipeline run failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to generate response")
		return
	}

	writeJSON(w, http.StatusCreated, turn)
}

// Escalate handles POST /api/v1/sessions/:id/escalate
func (h *SessionHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		AgentID *string `json:"agent_id,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.sessions.Escalate(ctx, tenantID, sessionID, req.AgentID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Close handles POST /api/v1/sessions/:id/close
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := model.SessionResolved
	var req struct {
		Status model.SessionStatus `json:"status,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Status != "" {
			status = req.Status
		}
	}

	session, err := h.sessions.Close(ctx, tenantID, sessionID, status)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Sentiment handles PUT /api/v1/sessions/:id/sentiment
func (h *SessionHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Sentiment float64 `json:"sentiment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sentiment < -1 || req.Sentiment > 1 {
		writeError(w, http.StatusBadRequest, "sentiment must be between -1 and 1")
		return
	}

	if err := h.sessions.SetSentiment(ctx, tenantID, sessionID, req.Sentiment); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
