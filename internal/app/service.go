package app

import (
	"context"
	"time"

	"partsledger/internal/core"
)

// ApplicationService is the single interface all adapters call. It decouples
// presentation from business logic: implementations contain no display logic
// of any kind.
type ApplicationService interface {
	// AdjustStock records a manual stock adjustment, damage write-off,
	// customer return or initial stock load, depending on the movement type.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.StockLevel, error)

	// TransferStock moves quantity of one part between two locations.
	TransferStock(ctx context.Context, req TransferStockRequest) error

	// GetStockLevel returns the ledger entry for one (part, location) key.
	GetStockLevel(ctx context.Context, partID, locationID int64) (*core.StockLevel, error)

	// ListStockLevels returns stock levels, optionally filtered.
	ListStockLevels(ctx context.Context, f core.StockFilter) ([]core.StockLevel, error)

	// ListMovements returns movement history, newest first.
	ListMovements(ctx context.Context, f core.MovementFilter) ([]core.StockMovement, error)

	// CreatePurchaseOrder creates a draft purchase order.
	CreatePurchaseOrder(ctx context.Context, req CreatePORequest) (*core.PurchaseOrder, error)

	// SubmitPurchaseOrder transitions draft → pending.
	SubmitPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error)

	// ApprovePurchaseOrder transitions pending → approved.
	ApprovePurchaseOrder(ctx context.Context, poID, actorID int64) (*core.PurchaseOrder, error)

	// SendPurchaseOrder transitions approved → sent.
	SendPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error)

	// ReceivePurchaseOrderItem records a receipt against one PO item.
	ReceivePurchaseOrderItem(ctx context.Context, req ReceiveItemRequest) (*core.PurchaseOrder, error)

	// CancelPurchaseOrder cancels a non-terminal purchase order.
	CancelPurchaseOrder(ctx context.Context, poID int64, reason string) (*core.PurchaseOrder, error)

	// GetPurchaseOrder returns one purchase order with items.
	GetPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error)

	// ListPurchaseOrders returns purchase orders, optionally filtered.
	ListPurchaseOrders(ctx context.Context, f core.POFilter) ([]core.PurchaseOrder, error)

	// CreateServiceJob opens a pending service job.
	CreateServiceJob(ctx context.Context, req CreateJobRequest) (*core.ServiceJob, error)

	// StartServiceJob transitions pending/waiting_parts → in_progress.
	StartServiceJob(ctx context.Context, jobID int64) (*core.ServiceJob, error)

	// MarkJobWaitingParts transitions in_progress → waiting_parts.
	MarkJobWaitingParts(ctx context.Context, jobID int64) (*core.ServiceJob, error)

	// AddJobPart allocates stock to a job.
	AddJobPart(ctx context.Context, req AddJobPartRequest) (*core.ServiceJobPart, error)

	// UseJobPart consumes an allocated part.
	UseJobPart(ctx context.Context, jobID, jobPartID, actorID int64) (*core.ServiceJob, error)

	// ReturnJobPart puts an allocated part back.
	ReturnJobPart(ctx context.Context, jobID, jobPartID, actorID int64) (*core.ServiceJob, error)

	// CompleteServiceJob finishes a job, force-using remaining allocations.
	CompleteServiceJob(ctx context.Context, req CompleteJobRequest) (*core.ServiceJob, error)

	// CancelServiceJob cancels a job and releases its allocations.
	CancelServiceJob(ctx context.Context, jobID, actorID int64) (*core.ServiceJob, error)

	// GetServiceJob returns one job with its part lines.
	GetServiceJob(ctx context.Context, jobID int64) (*core.ServiceJob, error)

	// ListServiceJobs returns jobs, optionally filtered.
	ListServiceJobs(ctx context.Context, f core.JobFilter) ([]core.ServiceJob, error)

	// SweepAlerts evaluates all stock rows and raises or refreshes alerts.
	SweepAlerts(ctx context.Context) (*core.SweepResult, error)

	// ResolveAlert closes one alert.
	ResolveAlert(ctx context.Context, alertID, actorID int64, notes string) error

	// ListAlerts returns alerts, optionally filtered.
	ListAlerts(ctx context.Context, f core.AlertFilter) ([]core.LowStockAlert, error)

	// ComputeSellingPrice prices one part via the markup rules, served from
	// the price cache when warm.
	ComputeSellingPrice(ctx context.Context, partID int64) (*core.PriceQuote, error)

	// RepriceCatalog applies the markup rules to every active part and
	// persists the new selling prices.
	RepriceCatalog(ctx context.Context, actorID int64) (*core.RepriceResult, error)

	// ListMarkupRules returns the active rules in evaluation order.
	ListMarkupRules(ctx context.Context) ([]core.MarkupRule, error)

	// ListLocations returns all active locations.
	ListLocations(ctx context.Context) ([]core.Location, error)

	// SetDefaultLocation makes one location the default.
	SetDefaultLocation(ctx context.Context, locationID int64) error

	// CreatePart adds a spare part to the catalog.
	CreatePart(ctx context.Context, in core.SparePartInput) (*core.SparePart, error)

	// UpdatePart replaces the mutable fields of a catalog part.
	UpdatePart(ctx context.Context, partID int64, in core.SparePartInput) (*core.SparePart, error)

	// GetPart returns one catalog part.
	GetPart(ctx context.Context, partID int64) (*core.SparePart, error)

	// ListParts returns catalog parts, optionally filtered.
	ListParts(ctx context.Context, f core.PartFilter) ([]core.SparePart, error)

	// ListCategories returns all active part categories.
	ListCategories(ctx context.Context) ([]core.Category, error)

	// CreateSupplier registers a supplier.
	CreateSupplier(ctx context.Context, in core.SupplierInput) (*core.Supplier, error)

	// GetSupplier returns one supplier.
	GetSupplier(ctx context.Context, supplierID int64) (*core.Supplier, error)

	// ListSuppliers returns active suppliers ordered by code.
	ListSuppliers(ctx context.Context) ([]core.Supplier, error)

	// ListUsers returns all active users.
	ListUsers(ctx context.Context) ([]core.User, error)

	// InventoryValuationReport prices on-hand stock at weighted-average cost.
	InventoryValuationReport(ctx context.Context, locationID int64) (*core.ValuationReport, error)

	// MovementSummaryReport aggregates movements by type for a period.
	MovementSummaryReport(ctx context.Context, from, to time.Time) (*core.MovementSummaryReport, error)

	// JobRevenueReport summarises completed jobs for a period.
	JobRevenueReport(ctx context.Context, from, to time.Time) (*core.JobRevenueReport, error)
}
