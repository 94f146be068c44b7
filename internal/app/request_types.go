package app

import (
	"time"

	"github.com/shopspring/decimal"

	"partsledger/internal/core"
)

// AdjustStockRequest is the input for a manual stock mutation. Positive
// movement types (adjustment with positive qty, return, initial_stock) add
// stock; negative ones (adjustment with negative qty, damage, sale) remove it.
type AdjustStockRequest struct {
	SparePartID int64             `json:"spare_part_id"`
	LocationID  int64             `json:"location_id"`
	Quantity    int64             `json:"quantity"` // signed: positive adds, negative removes
	Type        core.MovementType `json:"movement_type"`
	UnitCost    *decimal.Decimal  `json:"unit_cost,omitempty"`
	UnitPrice   *decimal.Decimal  `json:"unit_price,omitempty"`
	ActorID     int64             `json:"-"`
}

// TransferStockRequest is the input for moving stock between locations.
type TransferStockRequest struct {
	SparePartID    int64 `json:"spare_part_id"`
	FromLocationID int64 `json:"from_location_id"`
	ToLocationID   int64 `json:"to_location_id"`
	Quantity       int64 `json:"quantity"`
	ActorID        int64 `json:"-"`
}

// CreatePORequest is the input for creating a purchase order.
type CreatePORequest struct {
	SupplierID           int64                         `json:"supplier_id"`
	LocationID           int64                         `json:"location_id"`
	OrderDate            time.Time                     `json:"order_date"`
	ExpectedDeliveryDate *time.Time                    `json:"expected_delivery_date,omitempty"`
	Items                []core.PurchaseOrderItemInput `json:"items"`
	ShippingCost         decimal.Decimal               `json:"shipping_cost"`
	Notes                string                        `json:"notes"`
	ActorID              int64                         `json:"-"`
}

// ReceiveItemRequest is the input for receiving goods against one PO item.
type ReceiveItemRequest struct {
	PurchaseOrderID int64            `json:"purchase_order_id"`
	ItemID          int64            `json:"item_id"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"` // nil means the ordered cost
	ActorID         int64            `json:"-"`
}

// CreateJobRequest is the input for opening a service job.
type CreateJobRequest struct {
	Job     core.ServiceJobInput `json:"job"`
	ActorID int64                `json:"-"`
}

// AddJobPartRequest is the input for allocating a part to a job.
type AddJobPartRequest struct {
	ServiceJobID int64            `json:"service_job_id"`
	SparePartID  int64            `json:"spare_part_id"`
	LocationID   int64            `json:"location_id,omitempty"` // zero means the job's location
	Quantity     int64            `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"` // nil means catalog selling price
	ActorID      int64            `json:"-"`
}

// CompleteJobRequest is the input for completing a service job.
type CompleteJobRequest struct {
	ServiceJobID    int64  `json:"service_job_id"`
	WorkDescription string `json:"work_description"`
	ActorID         int64  `json:"-"`
}
