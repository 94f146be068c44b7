package web

import (
	"net/http"
	"time"

	"partsledger/internal/app"
	"partsledger/internal/core"
)

func (h *Handler) listStockLevels(w http.ResponseWriter, r *http.Request) {
	f := core.StockFilter{
		LocationID:   queryInt64(r, "location_id"),
		LowStockOnly: r.URL.Query().Get("low_stock") == "true",
		OutOfStock:   r.URL.Query().Get("out_of_stock") == "true",
	}
	levels, err := h.svc.ListStockLevels(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"stock": levels})
}

func (h *Handler) getStockLevel(w http.ResponseWriter, r *http.Request) {
	partID, ok := idParam(w, r, "partID")
	if !ok {
		return
	}
	locationID, ok := idParam(w, r, "locationID")
	if !ok {
		return
	}
	level, err := h.svc.GetStockLevel(r.Context(), partID, locationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	f := core.MovementFilter{
		SparePartID: queryInt64(r, "spare_part_id"),
		LocationID:  queryInt64(r, "location_id"),
		Type:        core.MovementType(r.URL.Query().Get("type")),
		Limit:       queryInt(r, "limit"),
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, r, "invalid since parameter, want RFC 3339", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		f.Since = &t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, r, "invalid until parameter, want RFC 3339", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		f.Until = &t
	}
	movements, err := h.svc.ListMovements(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"movements": movements})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ActorID = actor

	level, err := h.svc.AdjustStock(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) transferStock(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req app.TransferStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ActorID = actor

	if err := h.svc.TransferStock(r.Context(), req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "transferred"})
}
