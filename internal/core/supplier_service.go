package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SupplierInput holds the fields required to create a supplier.
type SupplierInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// SupplierService provides supplier master data operations.
type SupplierService interface {
	// CreateSupplier creates a new supplier record.
	CreateSupplier(ctx context.Context, in SupplierInput) (*Supplier, error)

	// GetSupplier returns a supplier by ID, or ErrNotFound.
	GetSupplier(ctx context.Context, supplierID int64) (*Supplier, error)

	// GetSupplierByCode returns a supplier by its unique code, or ErrNotFound.
	GetSupplierByCode(ctx context.Context, code string) (*Supplier, error)

	// ListSuppliers returns all active suppliers ordered by code.
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}

type supplierService struct {
	pool *pgxpool.Pool
}

// NewSupplierService constructs a SupplierService backed by PostgreSQL.
func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

const supplierColumns = `
	id, code, name, COALESCE(contact_name, ''), COALESCE(phone, ''),
	COALESCE(email, ''), COALESCE(address, ''), is_active`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var sup Supplier
	err := row.Scan(&sup.ID, &sup.Code, &sup.Name, &sup.ContactName,
		&sup.Phone, &sup.Email, &sup.Address, &sup.IsActive)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, in SupplierInput) (*Supplier, error) {
	if in.Code == "" || in.Name == "" {
		return nil, fmt.Errorf("supplier code and name are required")
	}

	toPtr := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}

	sup, err := scanSupplier(s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (code, name, contact_name, phone, email, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+supplierColumns,
		in.Code, in.Name, toPtr(in.ContactName), toPtr(in.Phone), toPtr(in.Email), toPtr(in.Address),
	))
	if err != nil {
		return nil, fmt.Errorf("create supplier %q: %w", in.Code, err)
	}
	return sup, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, supplierID int64) (*Supplier, error) {
	sup, err := scanSupplier(s.pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE id = $1 AND deleted_at IS NULL`,
		supplierID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
		}
		return nil, fmt.Errorf("get supplier %d: %w", supplierID, err)
	}
	return sup, nil
}

func (s *supplierService) GetSupplierByCode(ctx context.Context, code string) (*Supplier, error) {
	sup, err := scanSupplier(s.pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE code = $1 AND deleted_at IS NULL`,
		code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("supplier %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("get supplier %q: %w", code, err)
	}
	return sup, nil
}

func (s *supplierService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE is_active = true AND deleted_at IS NULL
		ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, *sup)
	}
	return suppliers, rows.Err()
}
