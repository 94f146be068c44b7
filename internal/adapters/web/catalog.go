package web

import (
	"net/http"

	"partsledger/internal/core"
)

func (h *Handler) createPart(w http.ResponseWriter, r *http.Request) {
	var in core.SparePartInput
	if !decodeJSON(w, r, &in) {
		return
	}
	part, err := h.svc.CreatePart(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, part)
}

func (h *Handler) updatePart(w http.ResponseWriter, r *http.Request) {
	partID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in core.SparePartInput
	if !decodeJSON(w, r, &in) {
		return
	}
	part, err := h.svc.UpdatePart(r.Context(), partID, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, part)
}

func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	partID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	part, err := h.svc.GetPart(r.Context(), partID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, part)
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	f := core.PartFilter{
		CategoryID: queryInt64(r, "category_id"),
		SupplierID: queryInt64(r, "supplier_id"),
		Search:     r.URL.Query().Get("q"),
		Limit:      queryInt(r, "limit"),
	}
	parts, err := h.svc.ListParts(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"parts": parts})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"categories": categories})
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in core.SupplierInput
	if !decodeJSON(w, r, &in) {
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, supplier)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	supplier, err := h.svc.GetSupplier(r.Context(), supplierID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"suppliers": suppliers})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"users": users})
}
