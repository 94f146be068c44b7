package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type serviceJobService struct {
	pool  *pgxpool.Pool
	stock StockService
}

// NewServiceJobService constructs a ServiceJobService backed by PostgreSQL.
// Part allocation and usage mutate the ledger through the given StockService.
func NewServiceJobService(pool *pgxpool.Pool, stock StockService) ServiceJobService {
	return &serviceJobService{pool: pool, stock: stock}
}

// CreateJob opens a pending service job.
func (s *serviceJobService) CreateJob(ctx context.Context, in ServiceJobInput, actorID int64) (*ServiceJob, error) {
	if in.CustomerName == "" {
		return nil, fmt.Errorf("customer name is required")
	}
	if in.LaborCost.IsNegative() {
		return nil, fmt.Errorf("labor cost must not be negative")
	}

	jobNumber := fmt.Sprintf("SVC-%s-%s",
		in.ServiceDate.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))

	var jobID int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO service_jobs (job_number, customer_name, customer_phone,
		                          vehicle_brand, vehicle_model, vehicle_year, license_plate, mileage,
		                          service_date, status, problem_description,
		                          labor_cost, total_cost, location_id, mechanic_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $11, $11, $12, $13, $14)
		RETURNING id`,
		jobNumber, in.CustomerName, in.CustomerPhone,
		in.VehicleBrand, in.VehicleModel, in.VehicleYear, in.LicensePlate, in.Mileage,
		in.ServiceDate.Format("2006-01-02"), in.ProblemDescription,
		in.LaborCost, in.LocationID, in.MechanicID, actorID,
	).Scan(&jobID)
	if err != nil {
		return nil, fmt.Errorf("insert service job: %w", err)
	}
	return s.GetJob(ctx, jobID)
}

// lockJob locks the job row FOR UPDATE and returns its status and location.
func (s *serviceJobService) lockJob(ctx context.Context, tx pgx.Tx, jobID int64) (JobStatus, int64, error) {
	var status JobStatus
	var locationID int64
	err := tx.QueryRow(ctx,
		"SELECT status, location_id FROM service_jobs WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		jobID,
	).Scan(&status, &locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, fmt.Errorf("service job %d: %w", jobID, ErrNotFound)
		}
		return "", 0, fmt.Errorf("fetch service job %d: %w", jobID, err)
	}
	return status, locationID, nil
}

func (s *serviceJobService) StartJob(ctx context.Context, jobID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status != JobStatusPending && status != JobStatusWaitingParts {
			return fmt.Errorf("service job %d is %s, starting requires pending or waiting_parts: %w",
				jobID, status, ErrInvalidStateTransition)
		}
		_, err = tx.Exec(ctx,
			"UPDATE service_jobs SET status = 'in_progress', updated_at = NOW() WHERE id = $1", jobID)
		if err != nil {
			return fmt.Errorf("start service job %d: %w", jobID, err)
		}
		return nil
	})
}

func (s *serviceJobService) MarkWaitingParts(ctx context.Context, jobID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status != JobStatusInProgress {
			return fmt.Errorf("service job %d is %s, want in_progress: %w",
				jobID, status, ErrInvalidStateTransition)
		}
		_, err = tx.Exec(ctx,
			"UPDATE service_jobs SET status = 'waiting_parts', updated_at = NOW() WHERE id = $1", jobID)
		if err != nil {
			return fmt.Errorf("mark service job %d waiting for parts: %w", jobID, err)
		}
		return nil
	})
}

// AddPart allocates stock to a job: reserves qty at the given location
// (the job's own location when zero) and records the allocation line with
// cost and price snapshots. The job's costs include the new line.
func (s *serviceJobService) AddPart(ctx context.Context, jobID, partID, locationID, qty int64, unitPrice *decimal.Decimal, actorID int64) (*ServiceJobPart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("add part: %w (got %d)", ErrInvalidQuantity, qty)
	}

	var jobPartID int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		status, jobLocationID, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status == JobStatusCompleted || status == JobStatusCancelled {
			return fmt.Errorf("service job %d is %s, parts can no longer be added: %w",
				jobID, status, ErrInvalidStateTransition)
		}
		if locationID == 0 {
			locationID = jobLocationID
		}

		if _, err := s.stock.ReserveStockTx(ctx, tx, partID, locationID, qty); err != nil {
			if errors.Is(err, ErrInsufficientAvailableStock) {
				return fmt.Errorf("allocate %d of part %d to job %d: %w",
					qty, partID, jobID, ErrInsufficientStock)
			}
			return err
		}

		// Cost snapshots the weighted average at allocation time; price
		// defaults to the catalog selling price.
		var avgCost, sellingPrice decimal.Decimal
		err = tx.QueryRow(ctx, `
			SELECT st.average_cost, p.selling_price
			FROM stock st
			JOIN spare_parts p ON p.id = st.spare_part_id
			WHERE st.spare_part_id = $1 AND st.location_id = $2`,
			partID, locationID,
		).Scan(&avgCost, &sellingPrice)
		if err != nil {
			return fmt.Errorf("snapshot cost for part %d: %w", partID, err)
		}
		price := sellingPrice
		if unitPrice != nil {
			price = *unitPrice
		}
		qtyDec := decimal.NewFromInt(qty)

		err = tx.QueryRow(ctx, `
			INSERT INTO service_job_parts (service_job_id, spare_part_id, location_id, quantity_used,
			                               unit_cost, unit_price, total_cost, total_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'allocated')
			RETURNING id`,
			jobID, partID, locationID, qty,
			avgCost, price, avgCost.Mul(qtyDec), price.Mul(qtyDec),
		).Scan(&jobPartID)
		if err != nil {
			return fmt.Errorf("insert job part: %w", err)
		}
		return s.recalcJobCosts(ctx, tx, jobID)
	})
	if err != nil {
		return nil, err
	}
	return s.getJobPart(ctx, jobPartID)
}

// lockJobPart locks one allocation line of the given job FOR UPDATE.
func (s *serviceJobService) lockJobPart(ctx context.Context, tx pgx.Tx, jobID, jobPartID int64) (*ServiceJobPart, error) {
	var jp ServiceJobPart
	err := tx.QueryRow(ctx, `
		SELECT id, service_job_id, spare_part_id, location_id, quantity_used,
		       unit_cost, unit_price, total_cost, total_price, status
		FROM service_job_parts
		WHERE id = $1 AND service_job_id = $2
		FOR UPDATE`,
		jobPartID, jobID,
	).Scan(
		&jp.ID, &jp.ServiceJobID, &jp.SparePartID, &jp.LocationID, &jp.Quantity,
		&jp.UnitCost, &jp.UnitPrice, &jp.TotalCost, &jp.TotalPrice, &jp.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service job %d part %d: %w", jobID, jobPartID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch job part %d: %w", jobPartID, err)
	}
	return &jp, nil
}

// usePartTx converts one allocation into consumption: the stock leaves the
// ledger, then the reservation taken at allocation is released. Both steps
// share the transaction, so the reservation is released exactly once per
// allocation no matter how use and return interleave.
func (s *serviceJobService) usePartTx(ctx context.Context, tx pgx.Tx, jp *ServiceJobPart, actorID int64) error {
	if err := s.stock.RemoveStockTx(ctx, tx, jp.SparePartID, jp.LocationID, jp.Quantity, &jp.UnitPrice,
		MovementServiceUsage, MovementRef{Kind: RefServiceJobPart, ID: jp.ID}, actorID); err != nil {
		return err
	}
	if err := s.stock.ReleaseStockTx(ctx, tx, jp.SparePartID, jp.LocationID, jp.Quantity); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE service_job_parts SET status = 'used', updated_at = NOW() WHERE id = $1", jp.ID,
	); err != nil {
		return fmt.Errorf("mark job part %d used: %w", jp.ID, err)
	}
	return nil
}

func (s *serviceJobService) UsePart(ctx context.Context, jobID, jobPartID int64, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status == JobStatusCompleted || status == JobStatusCancelled {
			return fmt.Errorf("service job %d is %s: %w", jobID, status, ErrInvalidStateTransition)
		}
		jp, err := s.lockJobPart(ctx, tx, jobID, jobPartID)
		if err != nil {
			return err
		}
		if jp.Status != JobPartAllocated {
			return fmt.Errorf("job part %d is %s, want allocated: %w", jobPartID, jp.Status, ErrInvalidStateTransition)
		}
		if err := s.usePartTx(ctx, tx, jp, actorID); err != nil {
			return err
		}
		return s.recalcJobCosts(ctx, tx, jobID)
	})
}

func (s *serviceJobService) ReturnPart(ctx context.Context, jobID, jobPartID int64, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status == JobStatusCompleted || status == JobStatusCancelled {
			return fmt.Errorf("service job %d is %s: %w", jobID, status, ErrInvalidStateTransition)
		}
		jp, err := s.lockJobPart(ctx, tx, jobID, jobPartID)
		if err != nil {
			return err
		}
		if jp.Status != JobPartAllocated {
			return fmt.Errorf("job part %d is %s, want allocated: %w", jobPartID, jp.Status, ErrInvalidStateTransition)
		}
		if err := s.stock.ReleaseStockTx(ctx, tx, jp.SparePartID, jp.LocationID, jp.Quantity); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE service_job_parts SET status = 'returned', updated_at = NOW() WHERE id = $1", jp.ID,
		); err != nil {
			return fmt.Errorf("mark job part %d returned: %w", jp.ID, err)
		}
		return s.recalcJobCosts(ctx, tx, jobID)
	})
}

// recalcJobCosts rederives parts_cost and total_cost. Allocated and used
// lines both count; only returned parts drop out of the total.
func (s *serviceJobService) recalcJobCosts(ctx context.Context, tx pgx.Tx, jobID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE service_jobs j
		SET parts_cost = agg.parts,
		    total_cost = j.labor_cost + agg.parts,
		    updated_at = NOW()
		FROM (
			SELECT COALESCE(SUM(total_price) FILTER (WHERE status <> 'returned'), 0) AS parts
			FROM service_job_parts
			WHERE service_job_id = $1
		) agg
		WHERE j.id = $1`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("recalculate costs for service job %d: %w", jobID, err)
	}
	return nil
}

// CompleteJob finishes a job. Parts still allocated at completion are
// force-used: whatever was set aside for the vehicle is considered consumed.
func (s *serviceJobService) CompleteJob(ctx context.Context, jobID int64, workDescription string, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status == JobStatusCompleted {
			return nil
		}
		if status == JobStatusCancelled {
			return fmt.Errorf("service job %d is cancelled: %w", jobID, ErrInvalidStateTransition)
		}

		rows, err := tx.Query(ctx,
			"SELECT id FROM service_job_parts WHERE service_job_id = $1 AND status = 'allocated' ORDER BY id",
			jobID,
		)
		if err != nil {
			return fmt.Errorf("list allocated parts for job %d: %w", jobID, err)
		}
		var allocated []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan job part id: %w", err)
			}
			allocated = append(allocated, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list allocated parts for job %d: %w", jobID, err)
		}

		for _, id := range allocated {
			jp, err := s.lockJobPart(ctx, tx, jobID, id)
			if err != nil {
				return err
			}
			if err := s.usePartTx(ctx, tx, jp, actorID); err != nil {
				return err
			}
		}

		if err := s.recalcJobCosts(ctx, tx, jobID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE service_jobs
			SET status = 'completed',
			    completion_date = NOW()::date,
			    work_description = CASE WHEN $1 <> '' THEN $1 ELSE work_description END,
			    updated_at = NOW()
			WHERE id = $2`,
			workDescription, jobID,
		)
		if err != nil {
			return fmt.Errorf("complete service job %d: %w", jobID, err)
		}
		return nil
	})
}

// CancelJob cancels a non-terminal job and releases all open allocations.
func (s *serviceJobService) CancelJob(ctx context.Context, jobID int64, actorID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, _, err := s.lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if status == JobStatusCompleted || status == JobStatusCancelled {
			return fmt.Errorf("service job %d is %s and cannot be cancelled: %w",
				jobID, status, ErrInvalidStateTransition)
		}

		rows, err := tx.Query(ctx,
			"SELECT id FROM service_job_parts WHERE service_job_id = $1 AND status = 'allocated' ORDER BY id",
			jobID,
		)
		if err != nil {
			return fmt.Errorf("list allocated parts for job %d: %w", jobID, err)
		}
		var allocated []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan job part id: %w", err)
			}
			allocated = append(allocated, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list allocated parts for job %d: %w", jobID, err)
		}

		for _, id := range allocated {
			jp, err := s.lockJobPart(ctx, tx, jobID, id)
			if err != nil {
				return err
			}
			if err := s.stock.ReleaseStockTx(ctx, tx, jp.SparePartID, jp.LocationID, jp.Quantity); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				"UPDATE service_job_parts SET status = 'returned', updated_at = NOW() WHERE id = $1", id,
			); err != nil {
				return fmt.Errorf("return job part %d: %w", id, err)
			}
		}

		if err := s.recalcJobCosts(ctx, tx, jobID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			"UPDATE service_jobs SET status = 'cancelled', updated_at = NOW() WHERE id = $1", jobID)
		if err != nil {
			return fmt.Errorf("cancel service job %d: %w", jobID, err)
		}
		return nil
	})
}

const jobColumns = `
	j.id, j.job_number, j.customer_name, COALESCE(j.customer_phone, ''),
	COALESCE(j.vehicle_brand, ''), COALESCE(j.vehicle_model, ''),
	COALESCE(j.vehicle_year, ''), COALESCE(j.license_plate, ''), j.mileage,
	j.service_date, j.completion_date, j.status,
	COALESCE(j.problem_description, ''), COALESCE(j.work_description, ''),
	j.labor_cost, j.parts_cost, j.total_cost,
	j.location_id, j.mechanic_id, j.created_by, j.created_at`

func scanJob(row pgx.Row) (*ServiceJob, error) {
	var j ServiceJob
	err := row.Scan(
		&j.ID, &j.JobNumber, &j.CustomerName, &j.CustomerPhone,
		&j.VehicleBrand, &j.VehicleModel,
		&j.VehicleYear, &j.LicensePlate, &j.Mileage,
		&j.ServiceDate, &j.CompletionDate, &j.Status,
		&j.ProblemDescription, &j.WorkDescription,
		&j.LaborCost, &j.PartsCost, &j.TotalCost,
		&j.LocationID, &j.MechanicID, &j.CreatedBy, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob returns a job by ID including all part lines.
func (s *serviceJobService) GetJob(ctx context.Context, jobID int64) (*ServiceJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM service_jobs j
		WHERE j.id = $1 AND j.deleted_at IS NULL`,
		jobID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service job %d: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("get service job %d: %w", jobID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT jp.id, jp.service_job_id, jp.spare_part_id, p.sku, p.name, jp.location_id,
		       jp.quantity_used, jp.unit_cost, jp.unit_price, jp.total_cost, jp.total_price, jp.status
		FROM service_job_parts jp
		JOIN spare_parts p ON p.id = jp.spare_part_id
		WHERE jp.service_job_id = $1
		ORDER BY jp.id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch parts for service job %d: %w", jobID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var jp ServiceJobPart
		if err := rows.Scan(
			&jp.ID, &jp.ServiceJobID, &jp.SparePartID, &jp.SKU, &jp.PartName, &jp.LocationID,
			&jp.Quantity, &jp.UnitCost, &jp.UnitPrice, &jp.TotalCost, &jp.TotalPrice, &jp.Status,
		); err != nil {
			return nil, fmt.Errorf("scan job part: %w", err)
		}
		j.Parts = append(j.Parts, jp)
	}
	return j, rows.Err()
}

func (s *serviceJobService) getJobPart(ctx context.Context, jobPartID int64) (*ServiceJobPart, error) {
	var jp ServiceJobPart
	err := s.pool.QueryRow(ctx, `
		SELECT jp.id, jp.service_job_id, jp.spare_part_id, p.sku, p.name, jp.location_id,
		       jp.quantity_used, jp.unit_cost, jp.unit_price, jp.total_cost, jp.total_price, jp.status
		FROM service_job_parts jp
		JOIN spare_parts p ON p.id = jp.spare_part_id
		WHERE jp.id = $1`,
		jobPartID,
	).Scan(
		&jp.ID, &jp.ServiceJobID, &jp.SparePartID, &jp.SKU, &jp.PartName, &jp.LocationID,
		&jp.Quantity, &jp.UnitCost, &jp.UnitPrice, &jp.TotalCost, &jp.TotalPrice, &jp.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("get job part %d: %w", jobPartID, err)
	}
	return &jp, nil
}

// ListJobs returns jobs matching the filter, newest first. Part lines are
// not loaded; use GetJob for the full document.
func (s *serviceJobService) ListJobs(ctx context.Context, f JobFilter) ([]ServiceJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM service_jobs j
		WHERE j.deleted_at IS NULL`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND j.status = $%d", len(args))
	}
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		query += fmt.Sprintf(" AND j.location_id = $%d", len(args))
	}
	query += " ORDER BY j.created_at DESC, j.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list service jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ServiceJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *serviceJobService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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
