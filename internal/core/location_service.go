package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationService manages stock locations. At most one location is the
// default at any time; SetDefault swaps the flag atomically.
type LocationService interface {
	// SetDefault makes the given location the default, clearing the flag
	// from any previous holder in the same transaction.
	SetDefault(ctx context.Context, locationID int64) error

	// GetDefault returns the default location, or ErrNotFound if none is set.
	GetDefault(ctx context.Context) (*Location, error)

	// GetLocation returns one location by ID, or ErrNotFound.
	GetLocation(ctx context.Context, locationID int64) (*Location, error)

	// ListLocations returns all active locations ordered by code.
	ListLocations(ctx context.Context) ([]Location, error)
}

type locationService struct {
	pool *pgxpool.Pool
}

// NewLocationService constructs a LocationService backed by PostgreSQL.
func NewLocationService(pool *pgxpool.Pool) LocationService {
	return &locationService{pool: pool}
}

func (s *locationService) SetDefault(ctx context.Context, locationID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1 AND is_active = true AND deleted_at IS NULL)",
		locationID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("validate location %d: %w", locationID, err)
	}
	if !exists {
		return fmt.Errorf("location %d: %w", locationID, ErrNotFound)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE locations SET is_default = false, updated_at = NOW() WHERE is_default = true AND id <> $1",
		locationID,
	); err != nil {
		return fmt.Errorf("clear default location: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE locations SET is_default = true, updated_at = NOW() WHERE id = $1",
		locationID,
	); err != nil {
		return fmt.Errorf("set default location %d: %w", locationID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit default location change: %w", err)
	}
	return nil
}

const locationColumns = `
	id, code, name, type, COALESCE(address, ''), is_active, is_default, allow_negative_stock`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.Type, &l.Address,
		&l.IsActive, &l.IsDefault, &l.AllowNegativeStock)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *locationService) GetDefault(ctx context.Context) (*Location, error) {
	l, err := scanLocation(s.pool.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE is_default = true AND deleted_at IS NULL`,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("default location: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get default location: %w", err)
	}
	return l, nil
}

func (s *locationService) GetLocation(ctx context.Context, locationID int64) (*Location, error) {
	l, err := scanLocation(s.pool.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id = $1 AND deleted_at IS NULL`,
		locationID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %d: %w", locationID, ErrNotFound)
		}
		return nil, fmt.Errorf("get location %d: %w", locationID, err)
	}
	return l, nil
}

func (s *locationService) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE is_active = true AND deleted_at IS NULL
		ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}
