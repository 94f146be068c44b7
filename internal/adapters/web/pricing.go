package web

import (
	"net/http"
)

func (h *Handler) computeSellingPrice(w http.ResponseWriter, r *http.Request) {
	partID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	quote, err := h.svc.ComputeSellingPrice(r.Context(), partID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

func (h *Handler) repriceCatalog(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RepriceCatalog(r.Context(), actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) listMarkupRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.ListMarkupRules(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"rules": rules})
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"locations": locations})
}

func (h *Handler) setDefaultLocation(w http.ResponseWriter, r *http.Request) {
	locationID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.SetDefaultLocation(r.Context(), locationID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
