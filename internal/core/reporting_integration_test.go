package core_test

import (
	"context"
	"testing"
	"time"

	"partsledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestReporting_InventoryValuation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	svc := core.NewReportingService(pool)
	ctx := context.Background()

	// 10 filters @ 100 and 10 @ 200 at the warehouse (avg 150), plus
	// 5 brake pad sets @ 200 on the workshop floor.
	if err := stockSvc.AddStock(ctx, 1, 1, 10, decPtr(100), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	if err := stockSvc.AddStock(ctx, 1, 1, 10, decPtr(200), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	if err := stockSvc.AddStock(ctx, 2, 2, 5, decPtr(200), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}

	report, err := svc.InventoryValuation(ctx, 0)
	if err != nil {
		t.Fatalf("InventoryValuation failed: %v", err)
	}
	if len(report.Lines) != 2 {
		t.Fatalf("Expected 2 valuation lines, got %d", len(report.Lines))
	}
	// Ordered by location code then SKU: WH-MAIN before WS-FLOOR.
	wh := report.Lines[0]
	if wh.LocationCode != "WH-MAIN" || wh.SKU != "OIL-FLT-001" {
		t.Fatalf("Unexpected first line: %+v", wh)
	}
	if wh.Quantity != 20 || !wh.AverageCost.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected 20 @ avg 150, got %d @ %s", wh.Quantity, wh.AverageCost)
	}
	if !wh.TotalValue.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected line value 3000, got %s", wh.TotalValue)
	}
	if !report.TotalValue.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("Expected total value 4000, got %s", report.TotalValue)
	}

	// Scoped to the workshop floor only.
	floor, err := svc.InventoryValuation(ctx, 2)
	if err != nil {
		t.Fatalf("InventoryValuation(location) failed: %v", err)
	}
	if len(floor.Lines) != 1 || floor.Lines[0].SKU != "BRK-PAD-001" {
		t.Fatalf("Expected only the brake pads, got %+v", floor.Lines)
	}
	if !floor.TotalValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected total value 1000, got %s", floor.TotalValue)
	}
}

func TestReporting_MovementSummary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	svc := core.NewReportingService(pool)
	ctx := context.Background()

	if err := stockSvc.AddStock(ctx, 1, 1, 10, decPtr(100), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	if err := stockSvc.AddStock(ctx, 1, 1, 5, decPtr(100), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	if err := stockSvc.RemoveStock(ctx, 1, 1, 3, decPtr(150), core.MovementSale, core.NoRef, 1); err != nil {
		t.Fatalf("RemoveStock failed: %v", err)
	}

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)
	report, err := svc.MovementSummary(ctx, from, to)
	if err != nil {
		t.Fatalf("MovementSummary failed: %v", err)
	}

	byType := make(map[core.MovementType]core.MovementSummaryLine)
	for _, ln := range report.Lines {
		byType[ln.MovementType] = ln
	}

	purchases, ok := byType[core.MovementPurchase]
	if !ok {
		t.Fatal("Expected a purchase summary line")
	}
	if purchases.MovementCount != 2 || purchases.TotalQuantity != 15 {
		t.Errorf("Expected 2 purchases totalling 15, got %d totalling %d",
			purchases.MovementCount, purchases.TotalQuantity)
	}
	if !purchases.TotalCost.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected purchase cost 1500, got %s", purchases.TotalCost)
	}

	sales, ok := byType[core.MovementSale]
	if !ok {
		t.Fatal("Expected a sale summary line")
	}
	// Outbound quantities are signed negative in the summary.
	if sales.MovementCount != 1 || sales.TotalQuantity != -3 {
		t.Errorf("Expected 1 sale totalling -3, got %d totalling %d",
			sales.MovementCount, sales.TotalQuantity)
	}

	// A window before any movement is empty.
	empty, err := svc.MovementSummary(ctx, from.Add(-48*time.Hour), from)
	if err != nil {
		t.Fatalf("MovementSummary(empty) failed: %v", err)
	}
	if len(empty.Lines) != 0 {
		t.Errorf("Expected no lines for an empty window, got %d", len(empty.Lines))
	}
}

func TestReporting_JobRevenue(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	jobSvc := core.NewServiceJobService(pool, stockSvc)
	svc := core.NewReportingService(pool)
	ctx := context.Background()

	if err := stockSvc.AddStock(ctx, 1, 2, 10, decPtr(100), core.MovementPurchase, core.NoRef, 1); err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}

	job, err := jobSvc.CreateJob(ctx, core.ServiceJobInput{
		CustomerName: "Budi Santoso",
		LocationID:   2,
		ServiceDate:  time.Now().UTC(),
		LaborCost:    decimal.NewFromInt(500),
	}, 1)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := jobSvc.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if _, err := jobSvc.AddPart(ctx, job.ID, 1, 0, 4, nil, 1); err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}
	if err := jobSvc.CompleteJob(ctx, job.ID, "oil service", 2); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	from := time.Now().UTC().AddDate(0, 0, -1)
	to := time.Now().UTC().AddDate(0, 0, 1)
	report, err := svc.JobRevenue(ctx, from, to)
	if err != nil {
		t.Fatalf("JobRevenue failed: %v", err)
	}
	if report.JobsCompleted != 1 {
		t.Fatalf("Expected 1 completed job, got %d", report.JobsCompleted)
	}
	if !report.LaborRevenue.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected labor revenue 500, got %s", report.LaborRevenue)
	}
	// 4 filters sold at the catalog price of 150.
	if !report.PartsRevenue.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected parts revenue 600, got %s", report.PartsRevenue)
	}
	if !report.TotalRevenue.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Expected total revenue 1100, got %s", report.TotalRevenue)
	}
	// Consumed at the weighted-average cost of 100.
	if !report.PartsCost.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected parts cost 400, got %s", report.PartsCost)
	}
	if !report.GrossProfit.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected gross profit 700, got %s", report.GrossProfit)
	}

	// Cancelled jobs never count.
	cancelled, err := jobSvc.CreateJob(ctx, core.ServiceJobInput{
		CustomerName: "Siti Rahma",
		LocationID:   2,
		ServiceDate:  time.Now().UTC(),
		LaborCost:    decimal.NewFromInt(900),
	}, 1)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := jobSvc.CancelJob(ctx, cancelled.ID, 1); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	again, err := svc.JobRevenue(ctx, from, to)
	if err != nil {
		t.Fatalf("JobRevenue failed: %v", err)
	}
	if again.JobsCompleted != 1 || !again.TotalRevenue.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Expected cancelled job excluded, got %d jobs revenue %s",
			again.JobsCompleted, again.TotalRevenue)
	}
}
