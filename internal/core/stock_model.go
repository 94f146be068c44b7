package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement by the business event behind it.
type MovementType string

const (
	MovementPurchase     MovementType = "purchase"
	MovementSale         MovementType = "sale"
	MovementServiceUsage MovementType = "service_usage"
	MovementTransferIn   MovementType = "transfer_in"
	MovementTransferOut  MovementType = "transfer_out"
	MovementAdjustment   MovementType = "adjustment"
	MovementReturn       MovementType = "return"
	MovementDamage       MovementType = "damage"
	MovementInitialStock MovementType = "initial_stock"
)

// MovementDirection is the sign of a movement relative to on-hand quantity.
type MovementDirection string

const (
	DirectionIn  MovementDirection = "in"
	DirectionOut MovementDirection = "out"
)

// RefKind identifies the kind of document a stock movement originated from.
type RefKind string

const (
	RefNone              RefKind = "none"
	RefPurchaseOrder     RefKind = "purchase_order"
	RefPurchaseOrderItem RefKind = "purchase_order_item"
	RefServiceJob        RefKind = "service_job"
	RefServiceJobPart    RefKind = "service_job_part"
)

// MovementRef is a typed link from a movement to its originating document.
// The zero value means "no reference".
type MovementRef struct {
	Kind RefKind `json:"kind"`
	ID   int64   `json:"id,omitempty"`
}

// NoRef is the empty movement reference.
var NoRef = MovementRef{Kind: RefNone}

// StockLevel is the quantity/reservation/valuation record for one
// (spare part, location) pair. AvailableQuantity and the three boolean flags
// are derived and recomputed atomically with every mutation.
type StockLevel struct {
	ID                int64           `json:"id"`
	SparePartID       int64           `json:"spare_part_id"`
	SKU               string          `json:"sku"`
	PartName          string          `json:"part_name"`
	LocationID        int64           `json:"location_id"`
	LocationCode      string          `json:"location_code"`
	Quantity          int64           `json:"quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	AvailableQuantity int64           `json:"available_quantity"` // = Quantity - ReservedQuantity
	MinStockLevel     int64           `json:"min_stock_level"`
	MaxStockLevel     int64           `json:"max_stock_level"`
	ReorderPoint      int64           `json:"reorder_point"`
	AverageCost       decimal.Decimal `json:"average_cost"` // weighted average purchase cost
	TotalValue        decimal.Decimal `json:"total_value"`  // = Quantity × AverageCost
	IsLowStock        bool            `json:"is_low_stock"`
	IsOutOfStock      bool            `json:"is_out_of_stock"`
	IsOverStock       bool            `json:"is_over_stock"`
	LastMovementAt    *time.Time      `json:"last_movement_at,omitempty"`
}

// StockMovement is one immutable audit record of a ledger-affecting event.
type StockMovement struct {
	ID               int64             `json:"id"`
	SparePartID      int64             `json:"spare_part_id"`
	LocationID       int64             `json:"location_id"`
	Type             MovementType      `json:"movement_type"`
	Direction        MovementDirection `json:"direction"`
	Quantity         int64             `json:"quantity"`
	PreviousQuantity int64             `json:"previous_quantity"`
	NewQuantity      int64             `json:"new_quantity"`
	UnitCost         *decimal.Decimal  `json:"unit_cost,omitempty"`
	UnitPrice        *decimal.Decimal  `json:"unit_price,omitempty"`
	TotalCost        *decimal.Decimal  `json:"total_cost,omitempty"`
	TotalPrice       *decimal.Decimal  `json:"total_price,omitempty"`
	Ref              MovementRef       `json:"reference"`
	Notes            string            `json:"notes,omitempty"`
	CreatedBy        int64             `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
}

// MovementFilter narrows ListMovements. Zero fields are ignored.
type MovementFilter struct {
	SparePartID int64
	LocationID  int64
	Type        MovementType
	Since       *time.Time
	Until       *time.Time
	Limit       int
}

// StockFilter narrows ListStockLevels. Zero fields are ignored.
type StockFilter struct {
	LocationID   int64
	LowStockOnly bool
	OutOfStock   bool
}

// StockService is the sole authority over on-hand/reserved/available
// quantities and weighted-average cost per (spare part, location).
//
// Every mutation locks the stock row FOR UPDATE, applies the change,
// recomputes the derived fields, and appends exactly one stock movement —
// all inside one transaction. A ledger change without its movement record
// (or the reverse) is a correctness bug, never an accepted outcome.
//
// The Tx-scoped variants work within a caller-provided transaction; the
// purchase order and service job workflows use them to keep their own state
// transitions atomic with the ledger mutation.
type StockService interface {
	// AddStock increases on-hand quantity. When unitCost is non-nil the
	// average cost is recomputed as a quantity-weighted blend of existing and
	// received stock. Fails with ErrInvalidQuantity when qty <= 0.
	AddStock(ctx context.Context, partID, locationID, qty int64, unitCost *decimal.Decimal,
		mt MovementType, ref MovementRef, actorID int64) error
	AddStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64, unitCost *decimal.Decimal,
		mt MovementType, ref MovementRef, actorID int64) error

	// RemoveStock decreases on-hand quantity. Fails with ErrInsufficientStock
	// when the result would be negative and the location does not allow
	// negative stock.
	RemoveStock(ctx context.Context, partID, locationID, qty int64, unitPrice *decimal.Decimal,
		mt MovementType, ref MovementRef, actorID int64) error
	RemoveStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64, unitPrice *decimal.Decimal,
		mt MovementType, ref MovementRef, actorID int64) error

	// ReserveStock commits available stock against future consumption.
	// Returns (false, ErrInsufficientAvailableStock) when available < qty;
	// the caller decides how to react. Reservations do not change on-hand
	// quantity and therefore append no movement.
	ReserveStock(ctx context.Context, partID, locationID, qty int64) (bool, error)
	ReserveStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64) (bool, error)

	// ReleaseStock undoes a reservation. Fails with ErrOverRelease when qty
	// exceeds the current reservation.
	ReleaseStock(ctx context.Context, partID, locationID, qty int64) error
	ReleaseStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64) error

	// TransferStock moves qty between two locations in one transaction:
	// a transfer_out movement at the source (insufficient-stock rules apply)
	// and a transfer_in at the destination carrying the source's average cost.
	TransferStock(ctx context.Context, partID, fromLocationID, toLocationID, qty int64, actorID int64) error

	// GetStockLevel returns the ledger entry for one (part, location) key,
	// or ErrNotFound if no stock event has touched that key yet.
	GetStockLevel(ctx context.Context, partID, locationID int64) (*StockLevel, error)

	// ListStockLevels returns ledger entries matching the filter.
	ListStockLevels(ctx context.Context, f StockFilter) ([]StockLevel, error)

	// ListMovements returns the movement history matching the filter,
	// newest first.
	ListMovements(ctx context.Context, f MovementFilter) ([]StockMovement, error)
}
