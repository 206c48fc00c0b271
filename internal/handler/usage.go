package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/middleware"
	"github.com/echo-ai/support-platform/internal/service"
	"github.com/echo-ai/support-platform/pkg/logger"
)

// UsageHandler handles usage reporting endpoints.
type UsageHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(sessions *service.SessionService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{sessions: sessions, logger: log}
}

// Get handles GET /api/v1/usage?since=YYYY-MM-DD. Defaults to the last
// 30 days.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	since := r.URL.Query().Get("since")
	if since == "" {
		since = time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", since); err != nil {
		writeError(w, http.StatusBadRequest, "since must be YYYY-MM-DD")
		return
	}

	records, totals, err := h.sessions.Usage(ctx, tenantID, since)
	if err != nil {
		h.logger.Error("failed to fetch usage", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch usage")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"since":   since,
		"records": records,
		"totals":  totals,
	})
}
