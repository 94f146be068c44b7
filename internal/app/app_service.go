package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"partsledger/internal/cache"
	"partsledger/internal/core"
)

// priceCacheTTL bounds how stale a cached selling price may be.
const priceCacheTTL = 5 * time.Minute

type appService struct {
	pool       *pgxpool.Pool
	stock      core.StockService
	purchasing core.PurchaseOrderService
	jobs       core.ServiceJobService
	alerts     core.AlertService
	pricing    core.PricingService
	locations  core.LocationService
	parts      core.PartService
	suppliers  core.SupplierService
	users      core.UserService
	reports    core.ReportingService
	prices     cache.PriceCache
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	stock core.StockService,
	purchasing core.PurchaseOrderService,
	jobs core.ServiceJobService,
	alerts core.AlertService,
	pricing core.PricingService,
	locations core.LocationService,
	parts core.PartService,
	suppliers core.SupplierService,
	users core.UserService,
	reports core.ReportingService,
	prices cache.PriceCache,
) ApplicationService {
	return &appService{
		pool:       pool,
		stock:      stock,
		purchasing: purchasing,
		jobs:       jobs,
		alerts:     alerts,
		pricing:    pricing,
		locations:  locations,
		parts:      parts,
		suppliers:  suppliers,
		users:      users,
		reports:    reports,
		prices:     prices,
	}
}

// ── Stock ─────────────────────────────────────────────────────────────────────

// AdjustStock routes a signed manual mutation to the right ledger operation.
func (s *appService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.StockLevel, error) {
	if req.Quantity == 0 {
		return nil, fmt.Errorf("adjust stock: %w (got 0)", core.ErrInvalidQuantity)
	}

	switch req.Type {
	case core.MovementAdjustment, core.MovementReturn, core.MovementInitialStock,
		core.MovementSale, core.MovementDamage:
	default:
		return nil, fmt.Errorf("movement type %q is not a manual adjustment type", req.Type)
	}

	var err error
	if req.Quantity > 0 {
		switch req.Type {
		case core.MovementSale, core.MovementDamage:
			return nil, fmt.Errorf("movement type %q removes stock, quantity must be negative", req.Type)
		}
		err = s.stock.AddStock(ctx, req.SparePartID, req.LocationID, req.Quantity,
			req.UnitCost, req.Type, core.NoRef, req.ActorID)
	} else {
		switch req.Type {
		case core.MovementReturn, core.MovementInitialStock:
			return nil, fmt.Errorf("movement type %q adds stock, quantity must be positive", req.Type)
		}
		err = s.stock.RemoveStock(ctx, req.SparePartID, req.LocationID, -req.Quantity,
			req.UnitPrice, req.Type, core.NoRef, req.ActorID)
	}
	if err != nil {
		return nil, err
	}
	return s.stock.GetStockLevel(ctx, req.SparePartID, req.LocationID)
}

func (s *appService) TransferStock(ctx context.Context, req TransferStockRequest) error {
	return s.stock.TransferStock(ctx, req.SparePartID, req.FromLocationID, req.ToLocationID,
		req.Quantity, req.ActorID)
}

func (s *appService) GetStockLevel(ctx context.Context, partID, locationID int64) (*core.StockLevel, error) {
	return s.stock.GetStockLevel(ctx, partID, locationID)
}

func (s *appService) ListStockLevels(ctx context.Context, f core.StockFilter) ([]core.StockLevel, error) {
	return s.stock.ListStockLevels(ctx, f)
}

func (s *appService) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.StockMovement, error) {
	return s.stock.ListMovements(ctx, f)
}

// ── Purchase orders ───────────────────────────────────────────────────────────

func (s *appService) CreatePurchaseOrder(ctx context.Context, req CreatePORequest) (*core.PurchaseOrder, error) {
	return s.purchasing.CreatePO(ctx, req.SupplierID, req.LocationID, req.OrderDate,
		req.ExpectedDeliveryDate, req.Items, req.ShippingCost, req.Notes, req.ActorID)
}

func (s *appService) SubmitPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error) {
	if err := s.purchasing.SubmitPO(ctx, poID); err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, poID)
}

func (s *appService) ApprovePurchaseOrder(ctx context.Context, poID, actorID int64) (*core.PurchaseOrder, error) {
	if err := s.purchasing.ApprovePO(ctx, poID, actorID); err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, poID)
}

func (s *appService) SendPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error) {
	if err := s.purchasing.SendPO(ctx, poID); err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, poID)
}

func (s *appService) ReceivePurchaseOrderItem(ctx context.Context, req ReceiveItemRequest) (*core.PurchaseOrder, error) {
	if err := s.purchasing.ReceiveItem(ctx, req.PurchaseOrderID, req.ItemID, req.Quantity, req.UnitCost, req.ActorID); err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, req.PurchaseOrderID)
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, poID int64, reason string) (*core.PurchaseOrder, error) {
	if err := s.purchasing.CancelPO(ctx, poID, reason); err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, poID)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, poID int64) (*core.PurchaseOrder, error) {
	return s.purchasing.GetPO(ctx, poID)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, f core.POFilter) ([]core.PurchaseOrder, error) {
	return s.purchasing.ListPOs(ctx, f)
}

// ── Service jobs ──────────────────────────────────────────────────────────────

func (s *appService) CreateServiceJob(ctx context.Context, req CreateJobRequest) (*core.ServiceJob, error) {
	return s.jobs.CreateJob(ctx, req.Job, req.ActorID)
}

func (s *appService) StartServiceJob(ctx context.Context, jobID int64) (*core.ServiceJob, error) {
	if err := s.jobs.StartJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) MarkJobWaitingParts(ctx context.Context, jobID int64) (*core.ServiceJob, error) {
	if err := s.jobs.MarkWaitingParts(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) AddJobPart(ctx context.Context, req AddJobPartRequest) (*core.ServiceJobPart, error) {
	return s.jobs.AddPart(ctx, req.ServiceJobID, req.SparePartID, req.LocationID, req.Quantity, req.UnitPrice, req.ActorID)
}

func (s *appService) UseJobPart(ctx context.Context, jobID, jobPartID, actorID int64) (*core.ServiceJob, error) {
	if err := s.jobs.UsePart(ctx, jobID, jobPartID, actorID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) ReturnJobPart(ctx context.Context, jobID, jobPartID, actorID int64) (*core.ServiceJob, error) {
	if err := s.jobs.ReturnPart(ctx, jobID, jobPartID, actorID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) CompleteServiceJob(ctx context.Context, req CompleteJobRequest) (*core.ServiceJob, error) {
	if err := s.jobs.CompleteJob(ctx, req.ServiceJobID, req.WorkDescription, req.ActorID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, req.ServiceJobID)
}

func (s *appService) CancelServiceJob(ctx context.Context, jobID, actorID int64) (*core.ServiceJob, error) {
	if err := s.jobs.CancelJob(ctx, jobID, actorID); err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) GetServiceJob(ctx context.Context, jobID int64) (*core.ServiceJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *appService) ListServiceJobs(ctx context.Context, f core.JobFilter) ([]core.ServiceJob, error) {
	return s.jobs.ListJobs(ctx, f)
}

// ── Alerts ────────────────────────────────────────────────────────────────────

func (s *appService) SweepAlerts(ctx context.Context) (*core.SweepResult, error) {
	return s.alerts.Sweep(ctx)
}

func (s *appService) ResolveAlert(ctx context.Context, alertID, actorID int64, notes string) error {
	return s.alerts.Resolve(ctx, alertID, actorID, notes)
}

func (s *appService) ListAlerts(ctx context.Context, f core.AlertFilter) ([]core.LowStockAlert, error) {
	return s.alerts.ListAlerts(ctx, f)
}

// ── Pricing ───────────────────────────────────────────────────────────────────

func priceCacheKey(partID int64) string {
	return fmt.Sprintf("price:part:%d", partID)
}

// ComputeSellingPrice serves from the cache when warm. Cache failures are
// logged and treated as misses; the pricing engine is the source of truth.
func (s *appService) ComputeSellingPrice(ctx context.Context, partID int64) (*core.PriceQuote, error) {
	key := priceCacheKey(partID)
	if quote, ok, err := s.prices.Get(ctx, key); err != nil {
		log.Printf("price cache get %s: %v", key, err)
	} else if ok {
		return quote, nil
	}

	quote, err := s.pricing.ComputeSellingPrice(ctx, partID)
	if err != nil {
		return nil, err
	}
	if err := s.prices.Set(ctx, key, quote, priceCacheTTL); err != nil {
		log.Printf("price cache set %s: %v", key, err)
	}
	return quote, nil
}

// RepriceCatalog reprices every active part and drops the cached quotes so
// the next lookup serves the new prices.
func (s *appService) RepriceCatalog(ctx context.Context, actorID int64) (*core.RepriceResult, error) {
	result, err := s.pricing.ApplyRulesToAllParts(ctx, actorID)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.ListParts(ctx, core.PartFilter{})
	if err != nil {
		log.Printf("price cache: list parts after reprice: %v", err)
		return result, nil
	}
	for _, p := range parts {
		if err := s.prices.Invalidate(ctx, priceCacheKey(p.ID)); err != nil {
			log.Printf("price cache invalidate %s: %v", priceCacheKey(p.ID), err)
		}
	}
	return result, nil
}

func (s *appService) ListMarkupRules(ctx context.Context) ([]core.MarkupRule, error) {
	return s.pricing.ListRules(ctx)
}

// ── Locations ─────────────────────────────────────────────────────────────────

func (s *appService) ListLocations(ctx context.Context) ([]core.Location, error) {
	return s.locations.ListLocations(ctx)
}

func (s *appService) SetDefaultLocation(ctx context.Context, locationID int64) error {
	return s.locations.SetDefault(ctx, locationID)
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *appService) CreatePart(ctx context.Context, in core.SparePartInput) (*core.SparePart, error) {
	return s.parts.CreatePart(ctx, in)
}

// UpdatePart updates the catalog and drops the part's cached price quote,
// since cost and selling price may both have changed.
func (s *appService) UpdatePart(ctx context.Context, partID int64, in core.SparePartInput) (*core.SparePart, error) {
	part, err := s.parts.UpdatePart(ctx, partID, in)
	if err != nil {
		return nil, err
	}
	if err := s.prices.Invalidate(ctx, priceCacheKey(partID)); err != nil {
		log.Printf("price cache invalidate %s: %v", priceCacheKey(partID), err)
	}
	return part, nil
}

func (s *appService) GetPart(ctx context.Context, partID int64) (*core.SparePart, error) {
	return s.parts.GetPart(ctx, partID)
}

func (s *appService) ListParts(ctx context.Context, f core.PartFilter) ([]core.SparePart, error) {
	return s.parts.ListParts(ctx, f)
}

func (s *appService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.parts.ListCategories(ctx)
}

// ── Suppliers and users ───────────────────────────────────────────────────────

func (s *appService) CreateSupplier(ctx context.Context, in core.SupplierInput) (*core.Supplier, error) {
	return s.suppliers.CreateSupplier(ctx, in)
}

func (s *appService) GetSupplier(ctx context.Context, supplierID int64) (*core.Supplier, error) {
	return s.suppliers.GetSupplier(ctx, supplierID)
}

func (s *appService) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	return s.suppliers.ListSuppliers(ctx)
}

func (s *appService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.users.ListUsers(ctx)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) InventoryValuationReport(ctx context.Context, locationID int64) (*core.ValuationReport, error) {
	return s.reports.InventoryValuation(ctx, locationID)
}

func (s *appService) MovementSummaryReport(ctx context.Context, from, to time.Time) (*core.MovementSummaryReport, error) {
	return s.reports.MovementSummary(ctx, from, to)
}

func (s *appService) JobRevenueReport(ctx context.Context, from, to time.Time) (*core.JobRevenueReport, error) {
	return s.reports.JobRevenue(ctx, from, to)
}
