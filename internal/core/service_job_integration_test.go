package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"partsledger/internal/core"

	"github.com/shopspring/decimal"
)

// newTestJob opens a job at the workshop location (2) with 500 labor.
func newTestJob(t *testing.T, ctx context.Context, jobSvc core.ServiceJobService) *core.ServiceJob {
	t.Helper()
	job, err := jobSvc.CreateJob(ctx, core.ServiceJobInput{
		CustomerName:       "Budi Santoso",
		CustomerPhone:      "0812000111",
		VehicleBrand:       "Toyota",
		VehicleModel:       "Avanza",
		VehicleYear:        "2019",
		LicensePlate:       "B 1234 XYZ",
		ServiceDate:        time.Now(),
		ProblemDescription: "engine rattle at idle",
		LaborCost:          decimal.NewFromInt(500),
		LocationID:         2,
	}, 1)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	return job
}

// stockAtWorkshop puts qty units of the part at location 2 at the given cost.
func stockAtWorkshop(t *testing.T, ctx context.Context, stockSvc core.StockService, partID, qty int64, cost float64) {
	t.Helper()
	if err := stockSvc.AddStock(ctx, partID, 2, qty, decPtr(cost), core.MovementInitialStock, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestServiceJob_CreateAndLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	job := newTestJob(t, ctx, jobSvc)
	if job.Status != core.JobStatusPending {
		t.Errorf("Expected pending, got %s", job.Status)
	}
	if job.JobNumber == "" {
		t.Error("Expected a generated job number")
	}
	if !job.TotalCost.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected total_cost=500 (labor only), got %s", job.TotalCost)
	}

	if err := jobSvc.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if err := jobSvc.MarkWaitingParts(ctx, job.ID); err != nil {
		t.Fatalf("MarkWaitingParts failed: %v", err)
	}
	// waiting_parts can be restarted
	if err := jobSvc.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("Restart from waiting_parts failed: %v", err)
	}

	// pending-only transitions rejected out of order
	if err := jobSvc.MarkWaitingParts(ctx, job.ID); err != nil {
		t.Fatalf("MarkWaitingParts failed: %v", err)
	}
	if err := jobSvc.MarkWaitingParts(ctx, job.ID); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Double waiting_parts: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestServiceJob_AddPartReservesStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	stockAtWorkshop(t, ctx, stockSvc, 1, 10, 100)
	job := newTestJob(t, ctx, jobSvc)

	jp, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 4, nil, 1)
	if err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}
	if jp.Status != core.JobPartAllocated {
		t.Errorf("Expected allocated, got %s", jp.Status)
	}
	// Cost snapshots the stock average; price defaults to the catalog
	if !jp.UnitCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected unit_cost=100 (stock average), got %s", jp.UnitCost)
	}
	if !jp.UnitPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected unit_price=150 (catalog), got %s", jp.UnitPrice)
	}
	if !jp.TotalPrice.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected total_price=600 (4 × 150), got %s", jp.TotalPrice)
	}

	sl := getStock(t, ctx, stockSvc, 1, 2)
	if sl.Quantity != 10 || sl.ReservedQuantity != 4 || sl.AvailableQuantity != 6 {
		t.Errorf("After allocation: expected 10/4/6, got %d/%d/%d",
			sl.Quantity, sl.ReservedQuantity, sl.AvailableQuantity)
	}

	// Allocated lines count toward job costs right away
	job, err = jobSvc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if !job.PartsCost.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected parts_cost=600 after allocation, got %s", job.PartsCost)
	}
	if !job.TotalCost.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Expected total_cost=1100 after allocation, got %s", job.TotalCost)
	}

	// Allocation beyond availability is refused
	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 7, nil, 1); !errors.Is(err, core.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock, got %v", err)
	}

	// Explicit price overrides the catalog
	jp2, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 2, decPtr(120), 1)
	if err != nil {
		t.Fatalf("AddPart with explicit price failed: %v", err)
	}
	if !jp2.UnitPrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected unit_price=120, got %s", jp2.UnitPrice)
	}
}

func TestServiceJob_UsePart(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	stockAtWorkshop(t, ctx, stockSvc, 1, 10, 100)
	job := newTestJob(t, ctx, jobSvc)
	jp, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 4, nil, 1)
	if err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}

	if err := jobSvc.UsePart(ctx, job.ID, jp.ID, 2); err != nil {
		t.Fatalf("UsePart failed: %v", err)
	}

	// On-hand down by 4, reservation fully released
	sl := getStock(t, ctx, stockSvc, 1, 2)
	if sl.Quantity != 6 || sl.ReservedQuantity != 0 || sl.AvailableQuantity != 6 {
		t.Errorf("After use: expected 6/0/6, got %d/%d/%d",
			sl.Quantity, sl.ReservedQuantity, sl.AvailableQuantity)
	}

	// service_usage movement referencing the job part line
	movs, err := stockSvc.ListMovements(ctx, core.MovementFilter{SparePartID: 1, Type: core.MovementServiceUsage})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movs) != 1 {
		t.Fatalf("Expected 1 service_usage movement, got %d", len(movs))
	}
	if movs[0].Ref.Kind != core.RefServiceJobPart || movs[0].Ref.ID != jp.ID {
		t.Errorf("Expected reference service_job_part/%d, got %s/%d", jp.ID, movs[0].Ref.Kind, movs[0].Ref.ID)
	}

	// Costs: parts 4 × 150 = 600, total = 500 labor + 600
	job, err = jobSvc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if !job.PartsCost.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected parts_cost=600, got %s", job.PartsCost)
	}
	if !job.TotalCost.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Expected total_cost=1100, got %s", job.TotalCost)
	}

	// A used line cannot be used or returned again
	if err := jobSvc.UsePart(ctx, job.ID, jp.ID, 2); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Double use: expected ErrInvalidStateTransition, got %v", err)
	}
	if err := jobSvc.ReturnPart(ctx, job.ID, jp.ID, 2); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Return after use: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestServiceJob_ReturnPart(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	stockAtWorkshop(t, ctx, stockSvc, 1, 10, 100)
	job := newTestJob(t, ctx, jobSvc)
	jp, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 4, nil, 1)
	if err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}

	if err := jobSvc.ReturnPart(ctx, job.ID, jp.ID, 1); err != nil {
		t.Fatalf("ReturnPart failed: %v", err)
	}

	// Reservation released, on-hand untouched, no movement written
	sl := getStock(t, ctx, stockSvc, 1, 2)
	if sl.Quantity != 10 || sl.ReservedQuantity != 0 {
		t.Errorf("After return: expected 10/0, got %d/%d", sl.Quantity, sl.ReservedQuantity)
	}
	movs, err := stockSvc.ListMovements(ctx, core.MovementFilter{SparePartID: 1, Type: core.MovementServiceUsage})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movs) != 0 {
		t.Errorf("Expected no service_usage movements after return, got %d", len(movs))
	}

	// Returned parts do not count toward job costs
	job, err = jobSvc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if !job.PartsCost.IsZero() {
		t.Errorf("Expected parts_cost=0 after return, got %s", job.PartsCost)
	}
}

func TestServiceJob_CompleteForcesAllocatedParts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	stockAtWorkshop(t, ctx, stockSvc, 1, 10, 100)
	stockAtWorkshop(t, ctx, stockSvc, 2, 5, 200)
	job := newTestJob(t, ctx, jobSvc)

	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 3, nil, 1); err != nil {
		t.Fatalf("AddPart 1 failed: %v", err)
	}
	if _, err := jobSvc.AddPart(ctx, job.ID, 2, 0, 1, nil, 1); err != nil {
		t.Fatalf("AddPart 2 failed: %v", err)
	}

	if err := jobSvc.CompleteJob(ctx, job.ID, "replaced filter and pads", 1); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	job, err := jobSvc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != core.JobStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if job.CompletionDate == nil {
		t.Error("Expected completion_date to be set")
	}
	if job.WorkDescription != "replaced filter and pads" {
		t.Errorf("Unexpected work_description %q", job.WorkDescription)
	}
	for _, jp := range job.Parts {
		if jp.Status != core.JobPartUsed {
			t.Errorf("Part line %d: expected used, got %s", jp.ID, jp.Status)
		}
	}

	// Both reservations converted into consumption
	sl1 := getStock(t, ctx, stockSvc, 1, 2)
	sl2 := getStock(t, ctx, stockSvc, 2, 2)
	if sl1.Quantity != 7 || sl1.ReservedQuantity != 0 {
		t.Errorf("Part 1: expected 7/0, got %d/%d", sl1.Quantity, sl1.ReservedQuantity)
	}
	if sl2.Quantity != 4 || sl2.ReservedQuantity != 0 {
		t.Errorf("Part 2: expected 4/0, got %d/%d", sl2.Quantity, sl2.ReservedQuantity)
	}

	// parts_cost = 3×150 + 1×300 = 750; total = 500 + 750
	if !job.PartsCost.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected parts_cost=750, got %s", job.PartsCost)
	}
	if !job.TotalCost.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Expected total_cost=1250, got %s", job.TotalCost)
	}

	// Completing a completed job is a no-op, not an error
	if err := jobSvc.CompleteJob(ctx, job.ID, "", 1); err != nil {
		t.Errorf("Second CompleteJob should be a no-op, got %v", err)
	}
	sl1 = getStock(t, ctx, stockSvc, 1, 2)
	if sl1.Quantity != 7 {
		t.Errorf("Idempotent complete must not consume again: expected 7, got %d", sl1.Quantity)
	}
}

func TestServiceJob_CancelReleasesAllocations(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	stockAtWorkshop(t, ctx, stockSvc, 1, 10, 100)
	job := newTestJob(t, ctx, jobSvc)
	jp, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 5, nil, 1)
	if err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}
	// One line already consumed before the cancel
	if err := jobSvc.UsePart(ctx, job.ID, jp.ID, 1); err != nil {
		t.Fatalf("UsePart failed: %v", err)
	}
	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 2, nil, 1); err != nil {
		t.Fatalf("Second AddPart failed: %v", err)
	}

	if err := jobSvc.CancelJob(ctx, job.ID, 1); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}

	job, err = jobSvc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != core.JobStatusCancelled {
		t.Errorf("Expected cancelled, got %s", job.Status)
	}
	// Used line stays used; the open allocation was returned
	if job.Parts[0].Status != core.JobPartUsed || job.Parts[1].Status != core.JobPartReturned {
		t.Errorf("Expected [used, returned], got [%s, %s]", job.Parts[0].Status, job.Parts[1].Status)
	}

	sl := getStock(t, ctx, stockSvc, 1, 2)
	if sl.Quantity != 5 || sl.ReservedQuantity != 0 {
		t.Errorf("After cancel: expected 5/0, got %d/%d", sl.Quantity, sl.ReservedQuantity)
	}

	// Costs drop the returned allocation and keep the used line
	if !job.PartsCost.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected parts_cost=750 after cancel, got %s", job.PartsCost)
	}
	if !job.TotalCost.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Expected total_cost=1250 after cancel, got %s", job.TotalCost)
	}

	// Terminal states cannot be cancelled
	if err := jobSvc.CancelJob(ctx, job.ID, 1); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Double cancel: expected ErrInvalidStateTransition, got %v", err)
	}

	// And a cancelled job refuses further parts
	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 1, nil, 1); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("AddPart to cancelled job: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestServiceJob_AddPartFromOtherLocation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	ctx := context.Background()

	// Stock only at the warehouse (1); the job runs at the workshop (2)
	if err := stockSvc.AddStock(ctx, 1, 1, 10, decPtr(80), core.MovementInitialStock, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	job := newTestJob(t, ctx, jobSvc)

	jp, err := jobSvc.AddPart(ctx, job.ID, 1, 1, 3, nil, 1)
	if err != nil {
		t.Fatalf("AddPart from warehouse failed: %v", err)
	}
	if jp.LocationID != 1 {
		t.Errorf("Expected line at location 1, got %d", jp.LocationID)
	}
	// Cost snapshots the warehouse average, not the workshop's
	if !jp.UnitCost.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected unit_cost=80, got %s", jp.UnitCost)
	}

	sl := getStock(t, ctx, stockSvc, 1, 1)
	if sl.Quantity != 10 || sl.ReservedQuantity != 3 || sl.AvailableQuantity != 7 {
		t.Errorf("Warehouse after allocation: expected 10/3/7, got %d/%d/%d",
			sl.Quantity, sl.ReservedQuantity, sl.AvailableQuantity)
	}

	// The workshop has no stock; defaulting to the job's location must fail
	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 1, nil, 1); !errors.Is(err, core.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock at the job location, got %v", err)
	}
}
