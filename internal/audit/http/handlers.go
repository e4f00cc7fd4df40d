package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-pricing/internal/audit"
	"github.com/meridian-erp/meridian-pricing/internal/platform/httpx"
)

// Handler serves the audit timeline for administrative tooling.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
}

// TimelineService is the read surface the handler needs from the audit package.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		EventType: q.Get("event_type"),
		EntityID:  q.Get("entity_id"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be RFC3339")
			return
		}
		filters.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be RFC3339")
			return
		}
		filters.To = t
	}
	if v := q.Get("page"); v != "" {
		filters.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("page_size"); v != "" {
		filters.PageSize, _ = strconv.Atoi(v)
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
