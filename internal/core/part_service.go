package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SparePartInput holds the fields required to create or update a spare part.
type SparePartInput struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CategoryID    *int64          `json:"category_id"`
	SupplierID    *int64          `json:"supplier_id"`
	Unit          string          `json:"unit"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	MinStockLevel int64           `json:"min_stock_level"`
	MaxStockLevel int64           `json:"max_stock_level"`
	ReorderPoint  int64           `json:"reorder_point"`
}

// PartFilter narrows ListParts. Zero fields are ignored. Search matches
// SKU and name, case-insensitive.
type PartFilter struct {
	CategoryID int64
	SupplierID int64
	Search     string
	Limit      int
}

// PartService manages the spare part catalog. Prices here are catalog
// values; per-location quantities and valuation live on the stock ledger.
type PartService interface {
	// CreatePart adds a part to the catalog. The SKU must be unique.
	CreatePart(ctx context.Context, in SparePartInput) (*SparePart, error)

	// UpdatePart replaces the mutable fields of a part. SKU is immutable.
	UpdatePart(ctx context.Context, partID int64, in SparePartInput) (*SparePart, error)

	// GetPart returns a part by ID, or ErrNotFound.
	GetPart(ctx context.Context, partID int64) (*SparePart, error)

	// GetPartBySKU returns a part by its SKU, or ErrNotFound.
	GetPartBySKU(ctx context.Context, sku string) (*SparePart, error)

	// ListParts returns active parts matching the filter, ordered by SKU.
	ListParts(ctx context.Context, f PartFilter) ([]SparePart, error)

	// ListCategories returns all active categories ordered by code.
	ListCategories(ctx context.Context) ([]Category, error)
}

type partService struct {
	pool *pgxpool.Pool
}

// NewPartService constructs a PartService backed by PostgreSQL.
func NewPartService(pool *pgxpool.Pool) PartService {
	return &partService{pool: pool}
}

const partColumns = `
	id, sku, name, COALESCE(description, ''), category_id, supplier_id, unit,
	cost_price, selling_price, markup_percentage,
	min_stock_level, max_stock_level, reorder_point,
	is_active, created_at, updated_at`

func scanPart(row pgx.Row) (*SparePart, error) {
	var p SparePart
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.SupplierID, &p.Unit,
		&p.CostPrice, &p.SellingPrice, &p.MarkupPercentage,
		&p.MinStockLevel, &p.MaxStockLevel, &p.ReorderPoint,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func validatePartInput(in SparePartInput) error {
	if in.SKU == "" || in.Name == "" {
		return fmt.Errorf("part SKU and name are required")
	}
	if in.CostPrice.IsNegative() || in.SellingPrice.IsNegative() {
		return fmt.Errorf("part prices must not be negative")
	}
	if in.MinStockLevel < 0 || in.MaxStockLevel < 0 || in.ReorderPoint < 0 {
		return fmt.Errorf("stock thresholds must not be negative")
	}
	return nil
}

// derivedMarkup computes markup_percentage from cost and selling price.
func derivedMarkup(cost, selling decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return selling.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
}

func (s *partService) CreatePart(ctx context.Context, in SparePartInput) (*SparePart, error) {
	if err := validatePartInput(in); err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}

	p, err := scanPart(s.pool.QueryRow(ctx, `
		INSERT INTO spare_parts (sku, name, description, category_id, supplier_id, unit,
		                         cost_price, selling_price, markup_percentage,
		                         min_stock_level, max_stock_level, reorder_point)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+partColumns,
		in.SKU, in.Name, in.Description, in.CategoryID, in.SupplierID, unit,
		in.CostPrice, in.SellingPrice, derivedMarkup(in.CostPrice, in.SellingPrice),
		in.MinStockLevel, in.MaxStockLevel, in.ReorderPoint,
	))
	if err != nil {
		return nil, fmt.Errorf("create part %q: %w", in.SKU, err)
	}
	return p, nil
}

func (s *partService) UpdatePart(ctx context.Context, partID int64, in SparePartInput) (*SparePart, error) {
	if err := validatePartInput(in); err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}

	p, err := scanPart(s.pool.QueryRow(ctx, `
		UPDATE spare_parts
		SET name = $1, description = NULLIF($2, ''), category_id = $3, supplier_id = $4,
		    unit = $5, cost_price = $6, selling_price = $7, markup_percentage = $8,
		    min_stock_level = $9, max_stock_level = $10, reorder_point = $11,
		    updated_at = NOW()
		WHERE id = $12 AND deleted_at IS NULL
		RETURNING `+partColumns,
		in.Name, in.Description, in.CategoryID, in.SupplierID,
		unit, in.CostPrice, in.SellingPrice, derivedMarkup(in.CostPrice, in.SellingPrice),
		in.MinStockLevel, in.MaxStockLevel, in.ReorderPoint, partID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("spare part %d: %w", partID, ErrNotFound)
		}
		return nil, fmt.Errorf("update part %d: %w", partID, err)
	}
	return p, nil
}

func (s *partService) GetPart(ctx context.Context, partID int64) (*SparePart, error) {
	p, err := scanPart(s.pool.QueryRow(ctx, `
		SELECT `+partColumns+`
		FROM spare_parts
		WHERE id = $1 AND deleted_at IS NULL`,
		partID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("spare part %d: %w", partID, ErrNotFound)
		}
		return nil, fmt.Errorf("get part %d: %w", partID, err)
	}
	return p, nil
}

func (s *partService) GetPartBySKU(ctx context.Context, sku string) (*SparePart, error) {
	p, err := scanPart(s.pool.QueryRow(ctx, `
		SELECT `+partColumns+`
		FROM spare_parts
		WHERE sku = $1 AND deleted_at IS NULL`,
		sku,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("spare part %q: %w", sku, ErrNotFound)
		}
		return nil, fmt.Errorf("get part %q: %w", sku, err)
	}
	return p, nil
}

func (s *partService) ListParts(ctx context.Context, f PartFilter) ([]SparePart, error) {
	query := `
		SELECT ` + partColumns + `
		FROM spare_parts
		WHERE is_active = true AND deleted_at IS NULL`
	var args []any
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.SupplierID != 0 {
		args = append(args, f.SupplierID)
		query += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (sku ILIKE $%d OR name ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY sku"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []SparePart
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

func (s *partService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, parent_id, is_active
		FROM categories
		WHERE is_active = true AND deleted_at IS NULL
		ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.ParentID, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
