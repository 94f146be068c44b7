package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type alertService struct {
	pool *pgxpool.Pool
}

// NewAlertService constructs an AlertService backed by PostgreSQL.
func NewAlertService(pool *pgxpool.Pool) AlertService {
	return &alertService{pool: pool}
}

// Sweep walks every stock row of an active part/location and reconciles the
// open alerts with the current quantities. Conditions that persist update
// the existing alert in place; conditions that appeared raise a new one.
// Alerts whose condition cleared are left open for a human to resolve.
func (s *alertService) Sweep(ctx context.Context) (*SweepResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT s.spare_part_id, s.location_id, s.available_quantity,
		       s.min_stock_level, s.max_stock_level, s.reorder_point
		FROM stock s
		JOIN spare_parts p ON p.id = s.spare_part_id AND p.deleted_at IS NULL
		JOIN locations l   ON l.id = s.location_id   AND l.deleted_at IS NULL
		ORDER BY s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("scan stock for alerts: %w", err)
	}

	type stockState struct {
		partID, locationID          int64
		available                   int64
		minLevel, maxLevel, reorder int64
	}
	var states []stockState
	for rows.Next() {
		var st stockState
		if err := rows.Scan(&st.partID, &st.locationID, &st.available,
			&st.minLevel, &st.maxLevel, &st.reorder); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		states = append(states, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan stock for alerts: %w", err)
	}

	type condition struct {
		alertType AlertType
		severity  AlertSeverity
	}

	result := &SweepResult{Evaluated: len(states)}
	for _, st := range states {
		var conditions []condition
		if st.available <= 0 {
			conditions = append(conditions, condition{AlertOutOfStock, SeverityCritical})
		} else if st.available <= st.reorder {
			conditions = append(conditions, condition{AlertLowStock, SeverityFor(st.available, st.reorder)})
		}
		if st.available > st.maxLevel {
			conditions = append(conditions, condition{AlertOverStock, SeverityLow})
		}

		// The alert snapshots available quantity, the same number severity
		// was derived from.
		for _, c := range conditions {
			raised, err := s.upsertAlert(ctx, tx, st.partID, st.locationID,
				st.available, st.reorder, st.minLevel, c.alertType, c.severity)
			if err != nil {
				return nil, err
			}
			if raised {
				result.Raised++
			} else {
				result.Updated++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit alert sweep: %w", err)
	}
	return result, nil
}

// upsertAlert refreshes the single unresolved alert for (part, location,
// type), creating it if none is open. Returns true when a new alert was
// raised.
func (s *alertService) upsertAlert(ctx context.Context, tx pgx.Tx,
	partID, locationID, available, reorderPoint, minLevel int64,
	alertType AlertType, severity AlertSeverity) (bool, error) {

	ct, err := tx.Exec(ctx, `
		UPDATE low_stock_alerts
		SET current_quantity = $1,
		    reorder_point    = $2,
		    min_stock_level  = $3,
		    severity         = $4,
		    updated_at       = NOW()
		WHERE spare_part_id = $5 AND location_id = $6 AND alert_type = $7 AND is_resolved = false`,
		available, reorderPoint, minLevel, severity, partID, locationID, alertType,
	)
	if err != nil {
		return false, fmt.Errorf("refresh alert (part=%d, location=%d, type=%s): %w",
			partID, locationID, alertType, err)
	}
	if ct.RowsAffected() > 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO low_stock_alerts
		            (spare_part_id, location_id, current_quantity, reorder_point,
		             min_stock_level, alert_type, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		partID, locationID, available, reorderPoint, minLevel, alertType, severity,
	)
	if err != nil {
		return false, fmt.Errorf("raise alert (part=%d, location=%d, type=%s): %w",
			partID, locationID, alertType, err)
	}
	return true, nil
}

// Resolve closes one alert. Resolution is one-way.
func (s *alertService) Resolve(ctx context.Context, alertID int64, actorID int64, notes string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var resolved bool
	if err := tx.QueryRow(ctx,
		"SELECT is_resolved FROM low_stock_alerts WHERE id = $1 FOR UPDATE",
		alertID,
	).Scan(&resolved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("alert %d: %w", alertID, ErrNotFound)
		}
		return fmt.Errorf("fetch alert %d: %w", alertID, err)
	}
	if resolved {
		return fmt.Errorf("alert %d: %w", alertID, ErrAlreadyResolved)
	}

	var toNotes *string
	if notes != "" {
		toNotes = &notes
	}
	if _, err := tx.Exec(ctx, `
		UPDATE low_stock_alerts
		SET is_resolved = true,
		    resolved_at = NOW(),
		    resolved_by = $1,
		    resolution_notes = $2,
		    updated_at  = NOW()
		WHERE id = $3`,
		actorID, toNotes, alertID,
	); err != nil {
		return fmt.Errorf("resolve alert %d: %w", alertID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit alert resolution: %w", err)
	}
	return nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *alertService) ListAlerts(ctx context.Context, f AlertFilter) ([]LowStockAlert, error) {
	query := `
		SELECT a.id, a.spare_part_id, p.sku, p.name, a.location_id, l.code,
		       a.current_quantity, a.reorder_point, a.min_stock_level,
		       a.alert_type, a.severity, a.is_resolved, a.resolved_at, a.resolved_by,
		       COALESCE(a.resolution_notes, ''), a.created_at
		FROM low_stock_alerts a
		JOIN spare_parts p ON p.id = a.spare_part_id
		JOIN locations l   ON l.id = a.location_id
		WHERE 1=1`
	var args []any
	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND a.alert_type = $%d", len(args))
	}
	if f.Severity != "" {
		args = append(args, f.Severity)
		query += fmt.Sprintf(" AND a.severity = $%d", len(args))
	}
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		query += fmt.Sprintf(" AND a.location_id = $%d", len(args))
	}
	if f.Unresolved {
		query += " AND a.is_resolved = false"
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []LowStockAlert
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(
			&a.ID, &a.SparePartID, &a.SKU, &a.PartName, &a.LocationID, &a.LocationCode,
			&a.CurrentQuantity, &a.ReorderPoint, &a.MinStockLevel,
			&a.Type, &a.Severity, &a.IsResolved, &a.ResolvedAt, &a.ResolvedBy,
			&a.ResolutionNotes, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
