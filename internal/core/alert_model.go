package core

import (
	"context"
	"time"
)

// AlertType classifies a stock alert.
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
	AlertOverStock  AlertType = "over_stock"
)

// AlertSeverity ranks how urgently an alert needs attention.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// LowStockAlert is one open or resolved replenishment alert for a
// (spare part, location) pair.
type LowStockAlert struct {
	ID              int64         `json:"id"`
	SparePartID     int64         `json:"spare_part_id"`
	SKU             string        `json:"sku"`
	PartName        string        `json:"part_name"`
	LocationID      int64         `json:"location_id"`
	LocationCode    string        `json:"location_code"`
	CurrentQuantity int64         `json:"current_quantity"`
	ReorderPoint    int64         `json:"reorder_point"`
	MinStockLevel   int64         `json:"min_stock_level"`
	Type            AlertType     `json:"alert_type"`
	Severity        AlertSeverity `json:"severity"`
	IsResolved      bool          `json:"is_resolved"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy      *int64        `json:"resolved_by,omitempty"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// AlertFilter narrows ListAlerts. Zero fields are ignored.
type AlertFilter struct {
	Type       AlertType
	Severity   AlertSeverity
	LocationID int64
	Unresolved bool
	Limit      int
}

// SweepResult summarizes one evaluation pass over the stock ledger.
type SweepResult struct {
	Evaluated int `json:"evaluated"`
	Raised    int `json:"raised"`
	Updated   int `json:"updated"`
}

// AlertService evaluates stock levels against their thresholds and maintains
// at most one unresolved alert per (part, location, type). A sweep updates
// the open alert in place when the condition persists, rather than stacking
// duplicates; severity follows how far below the reorder point the available
// quantity has fallen.
type AlertService interface {
	// Sweep evaluates every stock row and raises or refreshes alerts.
	Sweep(ctx context.Context) (*SweepResult, error)

	// Resolve closes one alert. Resolving an already-resolved alert fails
	// with ErrAlreadyResolved; resolution is one-way.
	Resolve(ctx context.Context, alertID int64, actorID int64, notes string) error

	// ListAlerts returns alerts matching the filter, newest first.
	ListAlerts(ctx context.Context, f AlertFilter) ([]LowStockAlert, error)
}

// SeverityFor ranks an alert by how far available quantity has fallen
// relative to the reorder point:
//
//	<= 0            critical (out of stock)
//	<= 50% reorder  critical
//	<= reorder      high
//	<= 150% reorder medium
//	otherwise       low
func SeverityFor(available, reorderPoint int64) AlertSeverity {
	switch {
	case available <= 0:
		return SeverityCritical
	case available*2 <= reorderPoint:
		return SeverityCritical
	case available <= reorderPoint:
		return SeverityHigh
	case available*2 <= reorderPoint*3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
