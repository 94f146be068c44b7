package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type stockService struct {
	pool *pgxpool.Pool
}

// NewStockService constructs a StockService backed by PostgreSQL.
func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

// stockRow is the locked working state of one stock row plus the location's
// negative-stock policy. All mutations operate on this struct and write it
// back through updateStockRow.
type stockRow struct {
	id            int64
	partID        int64
	locationID    int64
	quantity      int64
	reserved      int64
	minLevel      int64
	maxLevel      int64
	reorderPoint  int64
	averageCost   decimal.Decimal
	allowNegative bool
}

// lockStockRow locks the stock row for (partID, locationID) FOR UPDATE,
// lazily creating it on the first stock event for that key. Thresholds of a
// freshly created row are seeded from the spare part's master data.
func (s *stockService) lockStockRow(ctx context.Context, tx pgx.Tx, partID, locationID int64) (*stockRow, error) {
	var allowNegative bool
	err := tx.QueryRow(ctx, `
		SELECT l.allow_negative_stock
		FROM locations l
		WHERE l.id = $1 AND l.deleted_at IS NULL
	`, locationID).Scan(&allowNegative)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %d: %w", locationID, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve location %d: %w", locationID, err)
	}

	// Lazy creation: the row exists after the first event and is never deleted.
	_, err = tx.Exec(ctx, `
		INSERT INTO stock (spare_part_id, location_id, min_stock_level, max_stock_level, reorder_point)
		SELECT p.id, $2, p.min_stock_level, p.max_stock_level, p.reorder_point
		FROM spare_parts p
		WHERE p.id = $1 AND p.deleted_at IS NULL
		ON CONFLICT (spare_part_id, location_id) DO NOTHING
	`, partID, locationID)
	if err != nil {
		return nil, fmt.Errorf("upsert stock row: %w", err)
	}

	row := &stockRow{partID: partID, locationID: locationID, allowNegative: allowNegative}
	err = tx.QueryRow(ctx, `
		SELECT id, quantity, reserved_quantity, min_stock_level, max_stock_level, reorder_point, average_cost
		FROM stock
		WHERE spare_part_id = $1 AND location_id = $2
		FOR UPDATE
	`, partID, locationID).Scan(
		&row.id, &row.quantity, &row.reserved, &row.minLevel, &row.maxLevel, &row.reorderPoint, &row.averageCost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Insert touched nothing and no row exists: the part is unknown.
			return nil, fmt.Errorf("spare part %d: %w", partID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock stock row (part=%d, location=%d): %w", partID, locationID, err)
	}
	return row, nil
}

// updateStockRow writes the row back, recomputing available_quantity, the
// three boolean flags, and total_value in the same statement. Derived state
// is never left stale. markMovement stamps last_movement_at for operations
// that changed on-hand quantity.
func (s *stockService) updateStockRow(ctx context.Context, tx pgx.Tx, row *stockRow, markMovement bool) error {
	available := row.quantity - row.reserved
	totalValue := decimal.NewFromInt(row.quantity).Mul(row.averageCost)
	_, err := tx.Exec(ctx, `
		UPDATE stock
		SET quantity           = $1,
		    reserved_quantity  = $2,
		    available_quantity = $3,
		    average_cost       = $4,
		    total_value        = $5,
		    is_low_stock       = $6,
		    is_out_of_stock    = $7,
		    is_over_stock      = $8,
		    last_movement_at   = CASE WHEN $9 THEN NOW() ELSE last_movement_at END,
		    updated_at         = NOW()
		WHERE id = $10
	`, row.quantity, row.reserved, available, row.averageCost, totalValue,
		available <= row.reorderPoint,
		available <= 0,
		available > row.maxLevel,
		markMovement, row.id,
	)
	if err != nil {
		return fmt.Errorf("update stock row %d: %w", row.id, err)
	}
	return nil
}

// appendMovement inserts the single audit record documenting a mutation.
// It runs in the mutation's own transaction: the ledger change and its
// movement land together or not at all.
func (s *stockService) appendMovement(ctx context.Context, tx pgx.Tx, row *stockRow,
	mt MovementType, dir MovementDirection, qty, prevQty int64,
	unitCost, unitPrice *decimal.Decimal, ref MovementRef, actorID int64) error {

	var totalCost, totalPrice *decimal.Decimal
	if unitCost != nil {
		v := unitCost.Mul(decimal.NewFromInt(qty))
		totalCost = &v
	}
	if unitPrice != nil {
		v := unitPrice.Mul(decimal.NewFromInt(qty))
		totalPrice = &v
	}

	kind := ref.Kind
	if kind == "" {
		kind = RefNone
	}
	var refID *int64
	if kind != RefNone {
		refID = &ref.ID
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements
		            (spare_part_id, location_id, movement_type, direction, quantity,
		             previous_quantity, new_quantity, unit_cost, unit_price,
		             total_cost, total_price, reference_kind, reference_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, row.partID, row.locationID, mt, dir, qty, prevQty, row.quantity,
		unitCost, unitPrice, totalCost, totalPrice, kind, refID, actorID)
	if err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}
	return nil
}

// ── Add ───────────────────────────────────────────────────────────────────────

func (s *stockService) AddStock(ctx context.Context, partID, locationID, qty int64, unitCost *decimal.Decimal,
	mt MovementType, ref MovementRef, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.AddStockTx(ctx, tx, partID, locationID, qty, unitCost, mt, ref, actorID)
	})
}

func (s *stockService) AddStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64, unitCost *decimal.Decimal,
	mt MovementType, ref MovementRef, actorID int64) error {

	if qty <= 0 {
		return fmt.Errorf("add stock: %w (got %d)", ErrInvalidQuantity, qty)
	}

	row, err := s.lockStockRow(ctx, tx, partID, locationID)
	if err != nil {
		return err
	}

	prev := row.quantity
	newQty := row.quantity + qty
	if unitCost != nil {
		// Weighted average: new_avg = (old_qty*old_avg + qty*cost) / (old_qty + qty).
		if newQty == 0 {
			row.averageCost = *unitCost
		} else {
			existing := decimal.NewFromInt(row.quantity).Mul(row.averageCost)
			incoming := decimal.NewFromInt(qty).Mul(*unitCost)
			row.averageCost = existing.Add(incoming).Div(decimal.NewFromInt(newQty))
		}
	}
	row.quantity = newQty

	if err := s.updateStockRow(ctx, tx, row, true); err != nil {
		return err
	}
	return s.appendMovement(ctx, tx, row, mt, DirectionIn, qty, prev, unitCost, nil, ref, actorID)
}

// ── Remove ────────────────────────────────────────────────────────────────────

func (s *stockService) RemoveStock(ctx context.Context, partID, locationID, qty int64, unitPrice *decimal.Decimal,
	mt MovementType, ref MovementRef, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.RemoveStockTx(ctx, tx, partID, locationID, qty, unitPrice, mt, ref, actorID)
	})
}

func (s *stockService) RemoveStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64, unitPrice *decimal.Decimal,
	mt MovementType, ref MovementRef, actorID int64) error {

	if qty <= 0 {
		return fmt.Errorf("remove stock: %w (got %d)", ErrInvalidQuantity, qty)
	}

	row, err := s.lockStockRow(ctx, tx, partID, locationID)
	if err != nil {
		return err
	}

	prev := row.quantity
	newQty := row.quantity - qty
	if newQty < 0 && !row.allowNegative {
		return fmt.Errorf("remove %d of part %d at location %d (on hand %d): %w",
			qty, partID, locationID, row.quantity, ErrInsufficientStock)
	}
	row.quantity = newQty

	if err := s.updateStockRow(ctx, tx, row, true); err != nil {
		return err
	}
	// The cost side of an outbound movement is the current weighted average.
	avg := row.averageCost
	return s.appendMovement(ctx, tx, row, mt, DirectionOut, qty, prev, &avg, unitPrice, ref, actorID)
}

// ── Reserve / Release ─────────────────────────────────────────────────────────

func (s *stockService) ReserveStock(ctx context.Context, partID, locationID, qty int64) (bool, error) {
	var ok bool
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		ok, err = s.ReserveStockTx(ctx, tx, partID, locationID, qty)
		return err
	})
	return ok, err
}

func (s *stockService) ReserveStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("reserve stock: %w (got %d)", ErrInvalidQuantity, qty)
	}

	row, err := s.lockStockRow(ctx, tx, partID, locationID)
	if err != nil {
		return false, err
	}

	available := row.quantity - row.reserved
	if available < qty {
		return false, fmt.Errorf("reserve %d of part %d at location %d (available %d): %w",
			qty, partID, locationID, available, ErrInsufficientAvailableStock)
	}

	row.reserved += qty
	if err := s.updateStockRow(ctx, tx, row, false); err != nil {
		return false, err
	}
	return true, nil
}

func (s *stockService) ReleaseStock(ctx context.Context, partID, locationID, qty int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.ReleaseStockTx(ctx, tx, partID, locationID, qty)
	})
}

func (s *stockService) ReleaseStockTx(ctx context.Context, tx pgx.Tx, partID, locationID, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("release stock: %w (got %d)", ErrInvalidQuantity, qty)
	}

	row, err := s.lockStockRow(ctx, tx, partID, locationID)
	if err != nil {
		return err
	}

	if qty > row.reserved {
		return fmt.Errorf("release %d of part %d at location %d (reserved %d): %w",
			qty, partID, locationID, row.reserved, ErrOverRelease)
	}

	row.reserved -= qty
	return s.updateStockRow(ctx, tx, row, false)
}

// ── Transfer ──────────────────────────────────────────────────────────────────

func (s *stockService) TransferStock(ctx context.Context, partID, fromLocationID, toLocationID, qty int64, actorID int64) error {
	if qty <= 0 {
		return fmt.Errorf("transfer stock: %w (got %d)", ErrInvalidQuantity, qty)
	}
	if fromLocationID == toLocationID {
		return fmt.Errorf("transfer stock: source and destination are the same location %d", fromLocationID)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		// Lock both rows in ascending location order so opposing transfers
		// on the same part cannot deadlock.
		first, second := fromLocationID, toLocationID
		if second < first {
			first, second = second, first
		}
		rows := make(map[int64]*stockRow, 2)
		for _, loc := range []int64{first, second} {
			row, err := s.lockStockRow(ctx, tx, partID, loc)
			if err != nil {
				return err
			}
			rows[loc] = row
		}
		src, dst := rows[fromLocationID], rows[toLocationID]

		prevSrc := src.quantity
		if src.quantity-qty < 0 && !src.allowNegative {
			return fmt.Errorf("transfer %d of part %d from location %d (on hand %d): %w",
				qty, partID, fromLocationID, src.quantity, ErrInsufficientStock)
		}
		src.quantity -= qty
		if err := s.updateStockRow(ctx, tx, src, true); err != nil {
			return err
		}
		srcAvg := src.averageCost
		if err := s.appendMovement(ctx, tx, src, MovementTransferOut, DirectionOut, qty, prevSrc, &srcAvg, nil, NoRef, actorID); err != nil {
			return err
		}

		// The destination receives at the source's average cost, blending it
		// into its own weighted average.
		prevDst := dst.quantity
		newQty := dst.quantity + qty
		if newQty == 0 {
			dst.averageCost = srcAvg
		} else {
			existing := decimal.NewFromInt(dst.quantity).Mul(dst.averageCost)
			incoming := decimal.NewFromInt(qty).Mul(srcAvg)
			dst.averageCost = existing.Add(incoming).Div(decimal.NewFromInt(newQty))
		}
		dst.quantity = newQty
		if err := s.updateStockRow(ctx, tx, dst, true); err != nil {
			return err
		}
		return s.appendMovement(ctx, tx, dst, MovementTransferIn, DirectionIn, qty, prevDst, &srcAvg, nil, NoRef, actorID)
	})
}

// ── Reads ─────────────────────────────────────────────────────────────────────

const stockLevelColumns = `
	s.id, s.spare_part_id, p.sku, p.name, s.location_id, l.code,
	s.quantity, s.reserved_quantity, s.available_quantity,
	s.min_stock_level, s.max_stock_level, s.reorder_point,
	s.average_cost, s.total_value,
	s.is_low_stock, s.is_out_of_stock, s.is_over_stock, s.last_movement_at`

func scanStockLevel(row pgx.Row) (*StockLevel, error) {
	var sl StockLevel
	err := row.Scan(
		&sl.ID, &sl.SparePartID, &sl.SKU, &sl.PartName, &sl.LocationID, &sl.LocationCode,
		&sl.Quantity, &sl.ReservedQuantity, &sl.AvailableQuantity,
		&sl.MinStockLevel, &sl.MaxStockLevel, &sl.ReorderPoint,
		&sl.AverageCost, &sl.TotalValue,
		&sl.IsLowStock, &sl.IsOutOfStock, &sl.IsOverStock, &sl.LastMovementAt,
	)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (s *stockService) GetStockLevel(ctx context.Context, partID, locationID int64) (*StockLevel, error) {
	sl, err := scanStockLevel(s.pool.QueryRow(ctx, `
		SELECT `+stockLevelColumns+`
		FROM stock s
		JOIN spare_parts p ON p.id = s.spare_part_id
		JOIN locations l   ON l.id = s.location_id
		WHERE s.spare_part_id = $1 AND s.location_id = $2
	`, partID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stock (part=%d, location=%d): %w", partID, locationID, ErrNotFound)
		}
		return nil, fmt.Errorf("get stock level (part=%d, location=%d): %w", partID, locationID, err)
	}
	return sl, nil
}

func (s *stockService) ListStockLevels(ctx context.Context, f StockFilter) ([]StockLevel, error) {
	query := `
		SELECT ` + stockLevelColumns + `
		FROM stock s
		JOIN spare_parts p ON p.id = s.spare_part_id AND p.deleted_at IS NULL
		JOIN locations l   ON l.id = s.location_id   AND l.deleted_at IS NULL
		WHERE 1=1`
	var args []any
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		query += fmt.Sprintf(" AND s.location_id = $%d", len(args))
	}
	if f.LowStockOnly {
		query += " AND s.is_low_stock = true"
	}
	if f.OutOfStock {
		query += " AND s.is_out_of_stock = true"
	}
	query += " ORDER BY p.sku, l.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		sl, err := scanStockLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels = append(levels, *sl)
	}
	return levels, rows.Err()
}

func (s *stockService) ListMovements(ctx context.Context, f MovementFilter) ([]StockMovement, error) {
	query := `
		SELECT id, spare_part_id, location_id, movement_type, direction, quantity,
		       previous_quantity, new_quantity, unit_cost, unit_price, total_cost, total_price,
		       reference_kind, reference_id, COALESCE(notes, ''), created_by, created_at
		FROM stock_movements
		WHERE 1=1`
	var args []any
	if f.SparePartID != 0 {
		args = append(args, f.SparePartID)
		query += fmt.Sprintf(" AND spare_part_id = $%d", len(args))
	}
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND movement_type = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		var refID *int64
		if err := rows.Scan(
			&m.ID, &m.SparePartID, &m.LocationID, &m.Type, &m.Direction, &m.Quantity,
			&m.PreviousQuantity, &m.NewQuantity, &m.UnitCost, &m.UnitPrice, &m.TotalCost, &m.TotalPrice,
			&m.Ref.Kind, &refID, &m.Notes, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		if refID != nil {
			m.Ref.ID = *refID
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// inTx runs fn inside a transaction with rollback-on-error semantics.
func (s *stockService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
