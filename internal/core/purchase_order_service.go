package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// purchaseTaxRate is applied to the item subtotal when creating an order.
var purchaseTaxRate = decimal.NewFromFloat(0.11)

type purchaseOrderService struct {
	pool  *pgxpool.Pool
	stock StockService
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by
// PostgreSQL. Receipts mutate the ledger through the given StockService.
func NewPurchaseOrderService(pool *pgxpool.Pool, stock StockService) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, stock: stock}
}

func newPONumber(orderDate time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("PO-%s-%s", orderDate.Format("20060102"), suffix)
}

// CreatePO creates a draft purchase order with computed totals.
func (s *purchaseOrderService) CreatePO(ctx context.Context, supplierID, locationID int64, orderDate time.Time,
	expectedDelivery *time.Time, items []PurchaseOrderItemInput,
	shippingCost decimal.Decimal, notes string, actorID int64) (*PurchaseOrder, error) {

	if len(items) == 0 {
		return nil, fmt.Errorf("purchase order must have at least one item")
	}
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: %w (got %d)", i+1, ErrInvalidQuantity, it.Quantity)
		}
		if it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("item %d: unit cost must not be negative", i+1)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1 AND is_active = true AND deleted_at IS NULL)",
		supplierID,
	).Scan(&supplierExists); err != nil {
		return nil, fmt.Errorf("validate supplier: %w", err)
	}
	if !supplierExists {
		return nil, fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
	}

	var locationExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1 AND is_active = true AND deleted_at IS NULL)",
		locationID,
	).Scan(&locationExists); err != nil {
		return nil, fmt.Errorf("validate location: %w", err)
	}
	if !locationExists {
		return nil, fmt.Errorf("location %d: %w", locationID, ErrNotFound)
	}

	var subtotal decimal.Decimal
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitCost.Mul(decimal.NewFromInt(it.Quantity)))
	}
	taxAmount := subtotal.Mul(purchaseTaxRate).Round(2)
	totalAmount := subtotal.Add(taxAmount).Add(shippingCost)

	var toNotes *string
	if notes != "" {
		toNotes = &notes
	}
	var expected *string
	if expectedDelivery != nil {
		v := expectedDelivery.Format("2006-01-02")
		expected = &v
	}

	var poID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (po_number, supplier_id, location_id, order_date,
		                             expected_delivery_date, status, subtotal, tax_amount,
		                             shipping_cost, total_amount, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, 'draft', $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		newPONumber(orderDate), supplierID, locationID, orderDate.Format("2006-01-02"),
		expected, subtotal, taxAmount, shippingCost, totalAmount, toNotes, actorID,
	).Scan(&poID); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for i, it := range items {
		lineTotal := it.UnitCost.Mul(decimal.NewFromInt(it.Quantity))
		var partExists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM spare_parts WHERE id = $1 AND deleted_at IS NULL)",
			it.SparePartID,
		).Scan(&partExists); err != nil {
			return nil, fmt.Errorf("item %d: validate spare part: %w", i+1, err)
		}
		if !partExists {
			return nil, fmt.Errorf("item %d: spare part %d: %w", i+1, it.SparePartID, ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items
			            (purchase_order_id, spare_part_id, quantity_ordered, quantity_received,
			             quantity_pending, unit_cost, subtotal, total_amount, status)
			VALUES ($1, $2, $3, 0, $3, $4, $5, $5, 'pending')`,
			poID, it.SparePartID, it.Quantity, it.UnitCost, lineTotal,
		); err != nil {
			return nil, fmt.Errorf("insert PO item %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// transition moves a PO from one exact status to another.
func (s *purchaseOrderService) transition(ctx context.Context, poID int64, from, to POStatus, extraSet string, extraArgs ...any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status POStatus
	if err := tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		poID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	if status != from {
		return fmt.Errorf("purchase order %d is %s, want %s: %w", poID, status, from, ErrInvalidStateTransition)
	}

	query := "UPDATE purchase_orders SET status = $1, updated_at = NOW()"
	args := []any{to}
	if extraSet != "" {
		query += ", " + extraSet
		args = append(args, extraArgs...)
	}
	query += fmt.Sprintf(" WHERE id = $%d", len(args)+1)
	args = append(args, poID)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("transition purchase order %d to %s: %w", poID, to, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *purchaseOrderService) SubmitPO(ctx context.Context, poID int64) error {
	return s.transition(ctx, poID, POStatusDraft, POStatusPending, "")
}

func (s *purchaseOrderService) ApprovePO(ctx context.Context, poID int64, actorID int64) error {
	return s.transition(ctx, poID, POStatusPending, POStatusApproved,
		"approved_by = $2, approved_at = NOW()", actorID)
}

func (s *purchaseOrderService) SendPO(ctx context.Context, poID int64) error {
	return s.transition(ctx, poID, POStatusApproved, POStatusSent, "")
}

// ReceiveItem records a receipt against one PO item. The item counters, the
// stock ledger mutation, its movement, and the order's aggregate status all
// commit in one transaction. A non-nil unitCost overrides the ordered cost
// when the invoiced price differs; the item keeps the actual cost.
func (s *purchaseOrderService) ReceiveItem(ctx context.Context, poID, itemID, qty int64, unitCost *decimal.Decimal, actorID int64) error {
	if qty <= 0 {
		return fmt.Errorf("receive item: %w (got %d)", ErrInvalidQuantity, qty)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status POStatus
	var locationID int64
	if err := tx.QueryRow(ctx,
		"SELECT status, location_id FROM purchase_orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		poID,
	).Scan(&status, &locationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	if status != POStatusSent && status != POStatusPartiallyReceived {
		return fmt.Errorf("purchase order %d is %s, receiving requires sent or partially_received: %w",
			poID, status, ErrInvalidStateTransition)
	}

	var partID, ordered, received int64
	var orderedCost decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT spare_part_id, quantity_ordered, quantity_received, unit_cost
		FROM purchase_order_items
		WHERE id = $1 AND purchase_order_id = $2
		FOR UPDATE`,
		itemID, poID,
	).Scan(&partID, &ordered, &received, &orderedCost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase order %d item %d: %w", poID, itemID, ErrNotFound)
		}
		return fmt.Errorf("fetch PO item %d: %w", itemID, err)
	}

	if received+qty > ordered {
		return fmt.Errorf("item %d: receiving %d would exceed ordered %d (already received %d): %w",
			itemID, qty, ordered, received, ErrOverReceipt)
	}

	received += qty
	itemStatus := POItemPartiallyReceived
	if received == ordered {
		itemStatus = POItemReceived
	}
	actualCost := orderedCost
	if unitCost != nil {
		if unitCost.IsNegative() {
			return fmt.Errorf("item %d: unit cost must not be negative (got %s)", itemID, unitCost)
		}
		actualCost = *unitCost
	}
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_order_items
		SET quantity_received = $1,
		    quantity_pending  = quantity_ordered - $1,
		    status            = $2,
		    unit_cost         = $3,
		    actual_delivery_date = CASE WHEN $2 = 'received' THEN NOW()::date ELSE actual_delivery_date END,
		    updated_at        = NOW()
		WHERE id = $4`,
		received, itemStatus, actualCost, itemID,
	); err != nil {
		return fmt.Errorf("update PO item %d: %w", itemID, err)
	}

	if err := s.stock.AddStockTx(ctx, tx, partID, locationID, qty, &actualCost,
		MovementPurchase, MovementRef{Kind: RefPurchaseOrderItem, ID: itemID}, actorID); err != nil {
		return fmt.Errorf("add received stock for PO item %d: %w", itemID, err)
	}

	// Derive the order's aggregate status from its items.
	var pendingItems, receivedItems int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE quantity_received < quantity_ordered AND status <> 'cancelled'),
		       COUNT(*) FILTER (WHERE quantity_received > 0)
		FROM purchase_order_items
		WHERE purchase_order_id = $1`,
		poID,
	).Scan(&pendingItems, &receivedItems); err != nil {
		return fmt.Errorf("aggregate PO %d items: %w", poID, err)
	}

	newStatus := status
	if pendingItems == 0 {
		newStatus = POStatusReceived
	} else if receivedItems > 0 {
		newStatus = POStatusPartiallyReceived
	}
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $1,
		    actual_delivery_date = CASE WHEN $1 = 'received' THEN NOW()::date ELSE actual_delivery_date END,
		    updated_at = NOW()
		WHERE id = $2`,
		newStatus, poID,
	); err != nil {
		return fmt.Errorf("update PO %d status: %w", poID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit receipt: %w", err)
	}
	return nil
}

// CancelPO cancels a non-terminal order.
func (s *purchaseOrderService) CancelPO(ctx context.Context, poID int64, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status POStatus
	if err := tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		poID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	if status == POStatusReceived || status == POStatusCancelled {
		return fmt.Errorf("purchase order %d is %s and cannot be cancelled: %w",
			poID, status, ErrInvalidStateTransition)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = 'cancelled',
		    notes = CASE WHEN $1 <> '' THEN COALESCE(notes || E'\n', '') || 'Cancelled: ' || $1 ELSE notes END,
		    updated_at = NOW()
		WHERE id = $2`,
		reason, poID,
	); err != nil {
		return fmt.Errorf("cancel purchase order %d: %w", poID, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_order_items
		SET status = 'cancelled', updated_at = NOW()
		WHERE purchase_order_id = $1 AND quantity_received = 0`,
		poID,
	); err != nil {
		return fmt.Errorf("cancel items of purchase order %d: %w", poID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancellation: %w", err)
	}
	return nil
}

const poColumns = `
	po.id, po.po_number, po.supplier_id, sup.code, sup.name, po.location_id,
	po.status, po.order_date, po.expected_delivery_date, po.actual_delivery_date,
	po.subtotal, po.tax_amount, po.shipping_cost, po.total_amount,
	COALESCE(po.notes, ''), po.created_by, po.approved_by, po.approved_at, po.created_at`

func scanPO(row pgx.Row) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(
		&po.ID, &po.PONumber, &po.SupplierID, &po.SupplierCode, &po.SupplierName, &po.LocationID,
		&po.Status, &po.OrderDate, &po.ExpectedDeliveryDate, &po.ActualDeliveryDate,
		&po.Subtotal, &po.TaxAmount, &po.ShippingCost, &po.TotalAmount,
		&po.Notes, &po.CreatedBy, &po.ApprovedBy, &po.ApprovedAt, &po.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// GetPO returns a purchase order by ID including all items.
func (s *purchaseOrderService) GetPO(ctx context.Context, poID int64) (*PurchaseOrder, error) {
	po, err := scanPO(s.pool.QueryRow(ctx, `
		SELECT `+poColumns+`
		FROM purchase_orders po
		JOIN suppliers sup ON sup.id = po.supplier_id
		WHERE po.id = $1 AND po.deleted_at IS NULL`,
		poID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", poID, err)
	}

	items, err := s.fetchItems(ctx, poID)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return po, nil
}

// ListPOs returns purchase orders matching the filter, newest first.
// Items are not loaded; use GetPO for the full document.
func (s *purchaseOrderService) ListPOs(ctx context.Context, f POFilter) ([]PurchaseOrder, error) {
	query := `
		SELECT ` + poColumns + `
		FROM purchase_orders po
		JOIN suppliers sup ON sup.id = po.supplier_id
		WHERE po.deleted_at IS NULL`
	var args []any
	if f.SupplierID != 0 {
		args = append(args, f.SupplierID)
		query += fmt.Sprintf(" AND po.supplier_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND po.status = $%d", len(args))
	}
	query += " ORDER BY po.created_at DESC, po.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, *po)
	}
	return orders, rows.Err()
}

func (s *purchaseOrderService) fetchItems(ctx context.Context, poID int64) ([]PurchaseOrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.purchase_order_id, i.spare_part_id, p.sku, p.name,
		       i.quantity_ordered, i.quantity_received, i.quantity_pending,
		       i.unit_cost, i.total_amount, i.status
		FROM purchase_order_items i
		JOIN spare_parts p ON p.id = i.spare_part_id
		WHERE i.purchase_order_id = $1
		ORDER BY i.id`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items for purchase order %d: %w", poID, err)
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(
			&it.ID, &it.PurchaseOrderID, &it.SparePartID, &it.SKU, &it.PartName,
			&it.QuantityOrdered, &it.QuantityReceived, &it.QuantityPending,
			&it.UnitCost, &it.TotalAmount, &it.Status,
		); err != nil {
			return nil, fmt.Errorf("scan PO item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
