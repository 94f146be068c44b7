package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"partsledger/internal/core"

	"github.com/shopspring/decimal"
)

// createSentPO drives a fresh PO through draft → pending → approved → sent.
func createSentPO(t *testing.T, ctx context.Context, poSvc core.PurchaseOrderService,
	items []core.PurchaseOrderItemInput, shipping decimal.Decimal) *core.PurchaseOrder {
	t.Helper()

	po, err := poSvc.CreatePO(ctx, 1, 1, time.Now(), nil, items, shipping, "", 1)
	if err != nil {
		t.Fatalf("CreatePO failed: %v", err)
	}
	if err := poSvc.SubmitPO(ctx, po.ID); err != nil {
		t.Fatalf("SubmitPO failed: %v", err)
	}
	if err := poSvc.ApprovePO(ctx, po.ID, 1); err != nil {
		t.Fatalf("ApprovePO failed: %v", err)
	}
	if err := poSvc.SendPO(ctx, po.ID); err != nil {
		t.Fatalf("SendPO failed: %v", err)
	}
	po, err = poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	return po
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestPurchaseOrder_CreateComputesTotals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po, err := poSvc.CreatePO(ctx, 1, 1, time.Now(), nil,
		[]core.PurchaseOrderItemInput{
			{SparePartID: 1, Quantity: 30, UnitCost: decimal.NewFromInt(100)},
			{SparePartID: 2, Quantity: 5, UnitCost: decimal.NewFromInt(200)},
		},
		decimal.NewFromInt(50), "rush order", 1)
	if err != nil {
		t.Fatalf("CreatePO failed: %v", err)
	}

	if po.Status != core.POStatusDraft {
		t.Errorf("Expected draft status, got %s", po.Status)
	}
	// subtotal 30×100 + 5×200 = 4000; tax 11% of 4000 = 440; total 4000+440+50
	if !po.Subtotal.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("Expected subtotal=4000, got %s", po.Subtotal)
	}
	if !po.TaxAmount.Equal(decimal.NewFromInt(440)) {
		t.Errorf("Expected tax_amount=440, got %s", po.TaxAmount)
	}
	if !po.TotalAmount.Equal(decimal.NewFromInt(4490)) {
		t.Errorf("Expected total_amount=4490, got %s", po.TotalAmount)
	}
	if len(po.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(po.Items))
	}
	if po.Items[0].QuantityPending != 30 || po.Items[0].Status != core.POItemPending {
		t.Errorf("Item 1: expected pending=30 status=pending, got %d/%s",
			po.Items[0].QuantityPending, po.Items[0].Status)
	}
	if po.PONumber == "" {
		t.Error("Expected a generated PO number")
	}
}

func TestPurchaseOrder_LifecycleAndReceipt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 30, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero)
	item := po.Items[0]

	// Partial receipt: 20 of 30
	if err := poSvc.ReceiveItem(ctx, po.ID, item.ID, 20, nil, 1); err != nil {
		t.Fatalf("ReceiveItem(20) failed: %v", err)
	}
	po, err := poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po.Status != core.POStatusPartiallyReceived {
		t.Errorf("Expected partially_received, got %s", po.Status)
	}
	if po.Items[0].QuantityReceived != 20 || po.Items[0].QuantityPending != 10 {
		t.Errorf("Expected received=20 pending=10, got %d/%d",
			po.Items[0].QuantityReceived, po.Items[0].QuantityPending)
	}
	if po.Items[0].Status != core.POItemPartiallyReceived {
		t.Errorf("Expected item status partially_received, got %s", po.Items[0].Status)
	}

	// Stock arrived at the PO's location at the item's unit cost
	sl := getStock(t, ctx, stockSvc, 1, 1)
	if sl.Quantity != 20 {
		t.Errorf("Expected quantity=20 after receipt, got %d", sl.Quantity)
	}
	if !sl.AverageCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected average_cost=100, got %s", sl.AverageCost)
	}

	// The movement references the PO item
	movs, err := stockSvc.ListMovements(ctx, core.MovementFilter{SparePartID: 1, Type: core.MovementPurchase})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movs) != 1 {
		t.Fatalf("Expected 1 purchase movement, got %d", len(movs))
	}
	if movs[0].Ref.Kind != core.RefPurchaseOrderItem || movs[0].Ref.ID != item.ID {
		t.Errorf("Expected movement reference purchase_order_item/%d, got %s/%d",
			item.ID, movs[0].Ref.Kind, movs[0].Ref.ID)
	}

	// Final receipt: remaining 10
	if err := poSvc.ReceiveItem(ctx, po.ID, item.ID, 10, nil, 1); err != nil {
		t.Fatalf("ReceiveItem(10) failed: %v", err)
	}
	po, err = poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po.Status != core.POStatusReceived {
		t.Errorf("Expected received, got %s", po.Status)
	}
	if po.ActualDeliveryDate == nil {
		t.Error("Expected actual_delivery_date to be set on full receipt")
	}
	if po.Items[0].Status != core.POItemReceived {
		t.Errorf("Expected item status received, got %s", po.Items[0].Status)
	}
}

func TestPurchaseOrder_OverReceipt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 10, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero)

	err := poSvc.ReceiveItem(ctx, po.ID, po.Items[0].ID, 11, nil, 1)
	if !errors.Is(err, core.ErrOverReceipt) {
		t.Fatalf("Expected ErrOverReceipt, got %v", err)
	}

	// Nothing recorded: no stock, item untouched
	if _, err := stockSvc.GetStockLevel(ctx, 1, 1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected no stock row after failed receipt, got %v", err)
	}
	po, err = poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po.Items[0].QuantityReceived != 0 {
		t.Errorf("Expected received=0 after failed receipt, got %d", po.Items[0].QuantityReceived)
	}
}

func TestPurchaseOrder_InvalidTransitions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po, err := poSvc.CreatePO(ctx, 1, 1, time.Now(), nil,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 5, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero, "", 1)
	if err != nil {
		t.Fatalf("CreatePO failed: %v", err)
	}

	// draft cannot be approved, sent, or received against
	if err := poSvc.ApprovePO(ctx, po.ID, 1); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Approve draft: expected ErrInvalidStateTransition, got %v", err)
	}
	if err := poSvc.SendPO(ctx, po.ID); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Send draft: expected ErrInvalidStateTransition, got %v", err)
	}
	if err := poSvc.ReceiveItem(ctx, po.ID, po.Items[0].ID, 1, nil, 1); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Receive against draft: expected ErrInvalidStateTransition, got %v", err)
	}

	// Submitting twice fails the second time
	if err := poSvc.SubmitPO(ctx, po.ID); err != nil {
		t.Fatalf("SubmitPO failed: %v", err)
	}
	if err := poSvc.SubmitPO(ctx, po.ID); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Double submit: expected ErrInvalidStateTransition, got %v", err)
	}

	if err := poSvc.SubmitPO(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Submit unknown PO: expected ErrNotFound, got %v", err)
	}
}

func TestPurchaseOrder_Approval(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po, err := poSvc.CreatePO(ctx, 1, 1, time.Now(), nil,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 5, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero, "", 1)
	if err != nil {
		t.Fatalf("CreatePO failed: %v", err)
	}
	if err := poSvc.SubmitPO(ctx, po.ID); err != nil {
		t.Fatalf("SubmitPO failed: %v", err)
	}
	if err := poSvc.ApprovePO(ctx, po.ID, 2); err != nil {
		t.Fatalf("ApprovePO failed: %v", err)
	}

	po, err = poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po.Status != core.POStatusApproved {
		t.Errorf("Expected approved, got %s", po.Status)
	}
	if po.ApprovedBy == nil || *po.ApprovedBy != 2 {
		t.Errorf("Expected approved_by=2, got %v", po.ApprovedBy)
	}
	if po.ApprovedAt == nil {
		t.Error("Expected approved_at to be set")
	}
}

func TestPurchaseOrder_Cancel(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 10, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero)

	if err := poSvc.CancelPO(ctx, po.ID, "supplier out of business"); err != nil {
		t.Fatalf("CancelPO failed: %v", err)
	}
	po, err := poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po.Status != core.POStatusCancelled {
		t.Errorf("Expected cancelled, got %s", po.Status)
	}
	if po.Items[0].Status != core.POItemCancelled {
		t.Errorf("Expected item cancelled (nothing received), got %s", po.Items[0].Status)
	}

	// Cancelling again is a state error, as is cancelling a received order
	if err := poSvc.CancelPO(ctx, po.ID, ""); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Double cancel: expected ErrInvalidStateTransition, got %v", err)
	}

	po2 := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 2, Quantity: 3, UnitCost: decimal.NewFromInt(200)}},
		decimal.Zero)
	if err := poSvc.ReceiveItem(ctx, po2.ID, po2.Items[0].ID, 3, nil, 1); err != nil {
		t.Fatalf("ReceiveItem failed: %v", err)
	}
	if err := poSvc.CancelPO(ctx, po2.ID, ""); !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("Cancel received PO: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestPurchaseOrder_ListFilters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := poSvc.CreatePO(ctx, 1, 1, time.Now(), nil,
			[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 1, UnitCost: decimal.NewFromInt(100)}},
			decimal.Zero, "", 1); err != nil {
			t.Fatalf("CreatePO %d failed: %v", i, err)
		}
	}

	drafts, err := poSvc.ListPOs(ctx, core.POFilter{Status: core.POStatusDraft})
	if err != nil {
		t.Fatalf("ListPOs failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Errorf("Expected 3 drafts, got %d", len(drafts))
	}

	limited, err := poSvc.ListPOs(ctx, core.POFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListPOs with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 with limit, got %d", len(limited))
	}
}

func TestPurchaseOrder_ReceiveWithCostOverride(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stockSvc := core.NewStockService(pool)
	poSvc := core.NewPurchaseOrderService(pool, stockSvc)
	ctx := context.Background()

	po := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 1, Quantity: 10, UnitCost: decimal.NewFromInt(100)}},
		decimal.Zero)
	item := po.Items[0]

	// The invoice came in at 120, not the ordered 100.
	if err := poSvc.ReceiveItem(ctx, po.ID, item.ID, 10, decPtr(120), 1); err != nil {
		t.Fatalf("ReceiveItem with cost override failed: %v", err)
	}

	po, err := poSvc.GetPO(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if !po.Items[0].UnitCost.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected item unit_cost updated to 120, got %s", po.Items[0].UnitCost)
	}
	if po.Items[0].QuantityReceived != 10 {
		t.Errorf("Expected 10 received, got %d", po.Items[0].QuantityReceived)
	}

	// Stock entered the ledger at the actual cost.
	sl := getStock(t, ctx, stockSvc, 1, 1)
	if sl.Quantity != 10 || !sl.AverageCost.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected 10 @ avg 120, got %d @ %s", sl.Quantity, sl.AverageCost)
	}
	if !sl.TotalValue.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("Expected total value 1200, got %s", sl.TotalValue)
	}

	movs, err := stockSvc.ListMovements(ctx, core.MovementFilter{SparePartID: 1, Type: core.MovementPurchase})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movs) != 1 {
		t.Fatalf("Expected 1 purchase movement, got %d", len(movs))
	}
	if movs[0].UnitCost == nil || !movs[0].UnitCost.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected movement unit cost 120, got %v", movs[0].UnitCost)
	}

	// A negative override is rejected before anything is recorded.
	po2 := createSentPO(t, ctx, poSvc,
		[]core.PurchaseOrderItemInput{{SparePartID: 2, Quantity: 4, UnitCost: decimal.NewFromInt(200)}},
		decimal.Zero)
	if err := poSvc.ReceiveItem(ctx, po2.ID, po2.Items[0].ID, 4, decPtr(-1), 1); err == nil {
		t.Error("Expected error for negative cost override")
	}
	po2, err = poSvc.GetPO(ctx, po2.ID)
	if err != nil {
		t.Fatalf("GetPO failed: %v", err)
	}
	if po2.Items[0].QuantityReceived != 0 {
		t.Errorf("Expected nothing received after rejected override, got %d", po2.Items[0].QuantityReceived)
	}
}
