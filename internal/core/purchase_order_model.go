package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// POStatus is the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusDraft             POStatus = "draft"
	POStatusPending           POStatus = "pending"
	POStatusApproved          POStatus = "approved"
	POStatusSent              POStatus = "sent"
	POStatusPartiallyReceived POStatus = "partially_received"
	POStatusReceived          POStatus = "received"
	POStatusCancelled         POStatus = "cancelled"
)

// POItemStatus is the receipt state of a single purchase order item.
type POItemStatus string

const (
	POItemPending           POItemStatus = "pending"
	POItemPartiallyReceived POItemStatus = "partially_received"
	POItemReceived          POItemStatus = "received"
	POItemCancelled         POItemStatus = "cancelled"
)

// PurchaseOrder is a purchase order header with its items.
type PurchaseOrder struct {
	ID                   int64               `json:"id"`
	PONumber             string              `json:"po_number"`
	SupplierID           int64               `json:"supplier_id"`
	SupplierCode         string              `json:"supplier_code"`
	SupplierName         string              `json:"supplier_name"`
	LocationID           int64               `json:"location_id"`
	Status               POStatus            `json:"status"`
	OrderDate            time.Time           `json:"order_date"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time          `json:"actual_delivery_date,omitempty"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	TaxAmount            decimal.Decimal     `json:"tax_amount"`
	ShippingCost         decimal.Decimal     `json:"shipping_cost"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Notes                string              `json:"notes,omitempty"`
	CreatedBy            int64               `json:"created_by"`
	ApprovedBy           *int64              `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time          `json:"approved_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	Items                []PurchaseOrderItem `json:"items"`
}

// PurchaseOrderItem is a single part line on a purchase order.
type PurchaseOrderItem struct {
	ID               int64           `json:"id"`
	PurchaseOrderID  int64           `json:"purchase_order_id"`
	SparePartID      int64           `json:"spare_part_id"`
	SKU              string          `json:"sku"`
	PartName         string          `json:"part_name"`
	QuantityOrdered  int64           `json:"quantity_ordered"`
	QuantityReceived int64           `json:"quantity_received"`
	QuantityPending  int64           `json:"quantity_pending"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           POItemStatus    `json:"status"`
}

// PurchaseOrderItemInput holds the fields required to create a PO item.
type PurchaseOrderItemInput struct {
	SparePartID int64           `json:"spare_part_id"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// POFilter narrows ListPOs. Zero fields are ignored.
type POFilter struct {
	SupplierID int64
	Status     POStatus
	Limit      int
}

// PurchaseOrderService drives a purchase order through its lifecycle:
//
//	draft → pending → approved → sent → partially_received → received
//
// with cancellation possible from any non-terminal state. Receipts feed the
// stock ledger item by item; the order's aggregate status is derived from
// its items after every receipt.
type PurchaseOrderService interface {
	// CreatePO creates a draft purchase order with computed item and order
	// totals. Tax is applied on the item subtotal; shipping is added on top.
	CreatePO(ctx context.Context, supplierID, locationID int64, orderDate time.Time,
		expectedDelivery *time.Time, items []PurchaseOrderItemInput,
		shippingCost decimal.Decimal, notes string, actorID int64) (*PurchaseOrder, error)

	// SubmitPO transitions draft → pending.
	SubmitPO(ctx context.Context, poID int64) error

	// ApprovePO transitions pending → approved, recording the approver.
	ApprovePO(ctx context.Context, poID int64, actorID int64) error

	// SendPO transitions approved → sent. Only a sent order can receive goods.
	SendPO(ctx context.Context, poID int64) error

	// ReceiveItem records a receipt of qty units against one PO item: the
	// item's counters advance, stock is added at the item's unit cost with a
	// purchase movement referencing the item, and the order's aggregate
	// status is recomputed. A non-nil unitCost overrides the ordered cost
	// (the delivered invoice price) and is persisted to the item.
	// Over-receiving fails with ErrOverReceipt and nothing is recorded.
	ReceiveItem(ctx context.Context, poID, itemID, qty int64, unitCost *decimal.Decimal, actorID int64) error

	// CancelPO cancels a non-terminal order. Received and cancelled orders
	// cannot be cancelled (again).
	CancelPO(ctx context.Context, poID int64, reason string) error

	// GetPO returns a purchase order by ID including all items, or ErrNotFound.
	GetPO(ctx context.Context, poID int64) (*PurchaseOrder, error)

	// ListPOs returns purchase orders matching the filter, newest first.
	ListPOs(ctx context.Context, f POFilter) ([]PurchaseOrder, error)
}
