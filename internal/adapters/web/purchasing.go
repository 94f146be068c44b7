package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"partsledger/internal/app"
	"partsledger/internal/core"
)

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	f := core.POFilter{
		SupplierID: queryInt64(r, "supplier_id"),
		Status:     core.POStatus(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit"),
	}
	orders, err := h.svc.ListPurchaseOrders(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"purchase_orders": orders})
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req app.CreatePORequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ActorID = actor

	po, err := h.svc.CreatePurchaseOrder(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, po)
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	po, err := h.svc.GetPurchaseOrder(r.Context(), poID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) submitPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	po, err := h.svc.SubmitPurchaseOrder(r.Context(), poID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) approvePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	po, err := h.svc.ApprovePurchaseOrder(r.Context(), poID, actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) sendPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	po, err := h.svc.SendPurchaseOrder(r.Context(), poID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) receivePurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}

	var body struct {
		Quantity int64            `json:"quantity"`
		UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	po, err := h.svc.ReceivePurchaseOrderItem(r.Context(), app.ReceiveItemRequest{
		PurchaseOrderID: poID,
		ItemID:          itemID,
		Quantity:        body.Quantity,
		UnitCost:        body.UnitCost,
		ActorID:         actor,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	poID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	po, err := h.svc.CancelPurchaseOrder(r.Context(), poID, body.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}
