package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"partsledger/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Stock ─────────────────────────────────────────────────────────────
		r.Get("/api/stock", h.listStockLevels)
		r.Get("/api/stock/{partID}/{locationID}", h.getStockLevel)
		r.Get("/api/stock/movements", h.listMovements)
		r.Post("/api/stock/adjust", h.adjustStock)
		r.Post("/api/stock/transfer", h.transferStock)

		// ── Purchase orders ───────────────────────────────────────────────────
		r.Get("/api/purchase-orders", h.listPurchaseOrders)
		r.Post("/api/purchase-orders", h.createPurchaseOrder)
		r.Get("/api/purchase-orders/{id}", h.getPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/submit", h.submitPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/approve", h.approvePurchaseOrder)
		r.Post("/api/purchase-orders/{id}/send", h.sendPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/items/{itemID}/receive", h.receivePurchaseOrderItem)
		r.Post("/api/purchase-orders/{id}/cancel", h.cancelPurchaseOrder)

		// ── Service jobs ──────────────────────────────────────────────────────
		r.Get("/api/service-jobs", h.listServiceJobs)
		r.Post("/api/service-jobs", h.createServiceJob)
		r.Get("/api/service-jobs/{id}", h.getServiceJob)
		r.Post("/api/service-jobs/{id}/start", h.startServiceJob)
		r.Post("/api/service-jobs/{id}/waiting-parts", h.markJobWaitingParts)
		r.Post("/api/service-jobs/{id}/parts", h.addJobPart)
		r.Post("/api/service-jobs/{id}/parts/{partID}/use", h.useJobPart)
		r.Post("/api/service-jobs/{id}/parts/{partID}/return", h.returnJobPart)
		r.Post("/api/service-jobs/{id}/complete", h.completeServiceJob)
		r.Post("/api/service-jobs/{id}/cancel", h.cancelServiceJob)

		// ── Alerts ────────────────────────────────────────────────────────────
		r.Get("/api/alerts", h.listAlerts)
		r.Post("/api/alerts/sweep", h.sweepAlerts)
		r.Post("/api/alerts/{id}/resolve", h.resolveAlert)

		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/api/parts", h.listParts)
		r.Post("/api/parts", h.createPart)
		r.Get("/api/parts/{id}", h.getPart)
		r.Put("/api/parts/{id}", h.updatePart)
		r.Get("/api/categories", h.listCategories)
		r.Get("/api/suppliers", h.listSuppliers)
		r.Post("/api/suppliers", h.createSupplier)
		r.Get("/api/suppliers/{id}", h.getSupplier)
		r.Get("/api/users", h.listUsers)

		// ── Reports ───────────────────────────────────────────────────────────
		r.Get("/api/reports/valuation", h.inventoryValuationReport)
		r.Get("/api/reports/movements", h.movementSummaryReport)
		r.Get("/api/reports/job-revenue", h.jobRevenueReport)

		// ── Pricing ───────────────────────────────────────────────────────────
		r.Get("/api/parts/{id}/selling-price", h.computeSellingPrice)
		r.Post("/api/pricing/reprice", h.repriceCatalog)
		r.Get("/api/pricing/rules", h.listMarkupRules)

		// ── Locations ─────────────────────────────────────────────────────────
		r.Get("/api/locations", h.listLocations)
		r.Post("/api/locations/{id}/default", h.setDefaultLocation)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam parses the named URL parameter as an int64 ID. Writes a 400 and
// returns false on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// actorID resolves the acting user from the X-Actor-ID header. Mutations
// require it for audit attribution.
func actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Actor-ID")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		writeError(w, r, "missing or invalid X-Actor-ID header", "MISSING_ACTOR", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// queryInt64 parses an optional integer query parameter; absent means 0.
func queryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
