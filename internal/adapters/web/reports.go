package web

import (
	"net/http"
	"time"
)

// periodParams parses the from/to query parameters as RFC 3339 dates or
// timestamps. Absent values default to the last 30 days.
func periodParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	parse := func(name string, fallback time.Time) (time.Time, bool) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return fallback, true
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t, true
		}
		writeError(w, r, "invalid "+name+" parameter, want RFC 3339 or YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return time.Time{}, false
	}

	now := time.Now().UTC()
	from, ok := parse("from", now.AddDate(0, 0, -30))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parse("to", now)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if !to.After(from) {
		writeError(w, r, "to must be after from", "BAD_REQUEST", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) inventoryValuationReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.InventoryValuationReport(r.Context(), queryInt64(r, "location_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) movementSummaryReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := periodParams(w, r)
	if !ok {
		return
	}
	report, err := h.svc.MovementSummaryReport(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) jobRevenueReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := periodParams(w, r)
	if !ok {
		return
	}
	report, err := h.svc.JobRevenueReport(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, report)
}
