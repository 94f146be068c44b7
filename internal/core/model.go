package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationType classifies a stock location by its role in the workshop.
type LocationType string

const (
	LocationWarehouse LocationType = "warehouse"
	LocationStore     LocationType = "store"
	LocationWorkshop  LocationType = "workshop"
	LocationSupplier  LocationType = "supplier"
	LocationCustomer  LocationType = "customer"
)

type Location struct {
	ID                 int64        `json:"id"`
	Code               string       `json:"code"`
	Name               string       `json:"name"`
	Type               LocationType `json:"type"`
	Address            string       `json:"address,omitempty"`
	IsActive           bool         `json:"is_active"`
	IsDefault          bool         `json:"is_default"`
	AllowNegativeStock bool         `json:"allow_negative_stock"`
}

type Category struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

type Supplier struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// SparePart is the master record for one part. Cost and selling price here
// are catalog values; per-location quantities and valuation live on the
// stock rows.
type SparePart struct {
	ID               int64           `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	CategoryID       *int64          `json:"category_id,omitempty"`
	SupplierID       *int64          `json:"supplier_id,omitempty"`
	Unit             string          `json:"unit"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	SellingPrice     decimal.Decimal `json:"selling_price"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	MinStockLevel    int64           `json:"min_stock_level"`
	MaxStockLevel    int64           `json:"max_stock_level"`
	ReorderPoint     int64           `json:"reorder_point"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
