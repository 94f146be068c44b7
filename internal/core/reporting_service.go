package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ValuationLine is one part's position at one location, priced at the
// location's weighted-average cost.
type ValuationLine struct {
	LocationCode string          `json:"location_code"`
	LocationName string          `json:"location_name"`
	SKU          string          `json:"sku"`
	PartName     string          `json:"part_name"`
	Quantity     int64           `json:"quantity"`
	Reserved     int64           `json:"reserved"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// ValuationReport prices the on-hand inventory of every location at
// weighted-average cost. TotalValue is the sum over all lines.
type ValuationReport struct {
	AsOf       time.Time       `json:"as_of"`
	Lines      []ValuationLine `json:"lines"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// MovementSummaryLine aggregates stock movements of one type over a period.
type MovementSummaryLine struct {
	MovementType  MovementType    `json:"movement_type"`
	MovementCount int64           `json:"movement_count"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// MovementSummaryReport groups the movement audit trail by movement type
// for a date range. Quantities are signed by direction, so outbound types
// appear as negative totals.
type MovementSummaryReport struct {
	From  time.Time             `json:"from"`
	To    time.Time             `json:"to"`
	Lines []MovementSummaryLine `json:"lines"`
}

// JobRevenueReport summarises completed service jobs over a period.
// GrossProfit is revenue minus the average-cost value of parts consumed.
type JobRevenueReport struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	JobsCompleted int64           `json:"jobs_completed"`
	LaborRevenue  decimal.Decimal `json:"labor_revenue"`
	PartsRevenue  decimal.Decimal `json:"parts_revenue"`
	PartsCost     decimal.Decimal `json:"parts_cost"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
}

// ── Service ───────────────────────────────────────────────────────────────────

// ReportingService produces read-only aggregate reports over the stock
// ledger, the movement trail, and completed service jobs.
type ReportingService interface {
	// InventoryValuation prices current on-hand stock at weighted-average
	// cost. locationID 0 covers all locations.
	InventoryValuation(ctx context.Context, locationID int64) (*ValuationReport, error)

	// MovementSummary aggregates movements by type between from and to
	// (inclusive start, exclusive end).
	MovementSummary(ctx context.Context, from, to time.Time) (*MovementSummaryReport, error)

	// JobRevenue summarises jobs completed between from and to.
	JobRevenue(ctx context.Context, from, to time.Time) (*JobRevenueReport, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by PostgreSQL.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) InventoryValuation(ctx context.Context, locationID int64) (*ValuationReport, error) {
	query := `
		SELECT l.code, l.name, p.sku, p.name,
		       st.quantity, st.reserved_quantity, st.average_cost, st.total_value
		FROM stock st
		JOIN locations l ON l.id = st.location_id
		JOIN spare_parts p ON p.id = st.part_id
		WHERE st.quantity <> 0`
	var args []any
	if locationID != 0 {
		args = append(args, locationID)
		query += fmt.Sprintf(" AND st.location_id = $%d", len(args))
	}
	query += " ORDER BY l.code, p.sku"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory valuation: %w", err)
	}
	defer rows.Close()

	report := &ValuationReport{AsOf: time.Now().UTC()}
	for rows.Next() {
		var ln ValuationLine
		err := rows.Scan(&ln.LocationCode, &ln.LocationName, &ln.SKU, &ln.PartName,
			&ln.Quantity, &ln.Reserved, &ln.AverageCost, &ln.TotalValue)
		if err != nil {
			return nil, fmt.Errorf("scan valuation line: %w", err)
		}
		report.Lines = append(report.Lines, ln)
		report.TotalValue = report.TotalValue.Add(ln.TotalValue)
	}
	return report, rows.Err()
}

func (s *reportingService) MovementSummary(ctx context.Context, from, to time.Time) (*MovementSummaryReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT movement_type, COUNT(*),
		       COALESCE(SUM(CASE WHEN direction = $1 THEN -quantity ELSE quantity END), 0),
		       COALESCE(SUM(COALESCE(total_cost, 0)), 0)
		FROM stock_movements
		WHERE created_at >= $2 AND created_at < $3
		GROUP BY movement_type
		ORDER BY movement_type`,
		DirectionOut, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("movement summary: %w", err)
	}
	defer rows.Close()

	report := &MovementSummaryReport{From: from, To: to}
	for rows.Next() {
		var ln MovementSummaryLine
		err := rows.Scan(&ln.MovementType, &ln.MovementCount, &ln.TotalQuantity, &ln.TotalCost)
		if err != nil {
			return nil, fmt.Errorf("scan movement summary line: %w", err)
		}
		report.Lines = append(report.Lines, ln)
	}
	return report, rows.Err()
}

func (s *reportingService) JobRevenue(ctx context.Context, from, to time.Time) (*JobRevenueReport, error) {
	report := &JobRevenueReport{From: from, To: to}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(labor_cost), 0),
		       COALESCE(SUM(parts_cost), 0),
		       COALESCE(SUM(total_cost), 0)
		FROM service_jobs
		WHERE status = $1 AND completion_date >= $2 AND completion_date < $3`,
		JobStatusCompleted, from, to,
	).Scan(&report.JobsCompleted, &report.LaborRevenue, &report.PartsRevenue, &report.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("job revenue: %w", err)
	}

	// Parts consumed at weighted-average cost, taken from the service
	// usage movements each UsePart recorded.
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(m.total_cost), 0)
		FROM stock_movements m
		JOIN service_job_parts jp ON jp.id = m.reference_id
		JOIN service_jobs j ON j.id = jp.service_job_id
		WHERE m.reference_kind = $1 AND m.movement_type = $2
		  AND j.status = $3 AND j.completion_date >= $4 AND j.completion_date < $5`,
		RefServiceJobPart, MovementServiceUsage, JobStatusCompleted, from, to,
	).Scan(&report.PartsCost)
	if err != nil {
		return nil, fmt.Errorf("job parts cost: %w", err)
	}

	report.GrossProfit = report.TotalRevenue.Sub(report.PartsCost)
	return report, nil
}
