package reservations

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// HandleSlots serves GET /reservations/slots?date=YYYY-MM-DD. The date
// defaults to today.
func (h *Handler) HandleSlots(w http.ResponseWriter, r *http.Request) {
	day := h.service.clock()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, day.Location())
		if err != nil {
			httpx.WriteError(w, h.logger, domain.Invalid("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	slots, err := h.service.AvailableSlots(r.Context(), day)
	if err != nil {
		h.fail(w, "failed to list available slots", err)
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, slots, map[string]any{
		"count":        len(slots),
		"total_tables": h.service.Config().TotalTables,
	})
}

// HandleTables serves GET /reservations/tables?slot=RFC3339.
func (h *Handler) HandleTables(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("slot")
	if raw == "" {
		httpx.WriteError(w, h.logger, domain.Invalid("slot is required"))
		return
	}
	start, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpx.WriteError(w, h.logger, domain.Invalid("slot must be an RFC3339 timestamp"))
		return
	}

	availability, err := h.service.TablesForSlot(r.Context(), start)
	if err != nil {
		h.fail(w, "failed to list tables", err)
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, availability, nil)
}

// HandleNext serves GET /reservations/next?from=RFC3339.
func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	var from time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, h.logger, domain.Invalid("from must be an RFC3339 timestamp"))
			return
		}
		from = parsed
	}

	next, err := h.service.NextAvailableSlot(r.Context(), from)
	if err != nil {
		h.fail(w, "failed to find next slot", err)
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, next, nil)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	httpx.WriteError(w, h.logger, err)
}
