package web

import (
	"net/http"

	"partsledger/internal/core"
)

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	f := core.AlertFilter{
		Type:       core.AlertType(r.URL.Query().Get("type")),
		Severity:   core.AlertSeverity(r.URL.Query().Get("severity")),
		LocationID: queryInt64(r, "location_id"),
		Unresolved: r.URL.Query().Get("unresolved") == "true",
		Limit:      queryInt(r, "limit"),
	}
	alerts, err := h.svc.ListAlerts(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"alerts": alerts})
}

func (h *Handler) sweepAlerts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SweepAlerts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	alertID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := h.svc.ResolveAlert(r.Context(), alertID, actor, body.Notes); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "resolved"})
}
