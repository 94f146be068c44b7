package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus is the lifecycle state of a service job.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusInProgress   JobStatus = "in_progress"
	JobStatusWaitingParts JobStatus = "waiting_parts"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusCancelled    JobStatus = "cancelled"
)

// JobPartStatus is the allocation state of a part attached to a job.
type JobPartStatus string

const (
	JobPartAllocated JobPartStatus = "allocated"
	JobPartUsed      JobPartStatus = "used"
	JobPartReturned  JobPartStatus = "returned"
)

// ServiceJob is a workshop service order for one vehicle visit.
type ServiceJob struct {
	ID                 int64            `json:"id"`
	JobNumber          string           `json:"job_number"`
	CustomerName       string           `json:"customer_name"`
	CustomerPhone      string           `json:"customer_phone,omitempty"`
	VehicleBrand       string           `json:"vehicle_brand,omitempty"`
	VehicleModel       string           `json:"vehicle_model,omitempty"`
	VehicleYear        string           `json:"vehicle_year,omitempty"`
	LicensePlate       string           `json:"license_plate,omitempty"`
	Mileage            *int64           `json:"mileage,omitempty"`
	ServiceDate        time.Time        `json:"service_date"`
	CompletionDate     *time.Time       `json:"completion_date,omitempty"`
	Status             JobStatus        `json:"status"`
	ProblemDescription string           `json:"problem_description,omitempty"`
	WorkDescription    string           `json:"work_description,omitempty"`
	LaborCost          decimal.Decimal  `json:"labor_cost"`
	PartsCost          decimal.Decimal  `json:"parts_cost"`
	TotalCost          decimal.Decimal  `json:"total_cost"`
	LocationID         int64            `json:"location_id"`
	MechanicID         *int64           `json:"mechanic_id,omitempty"`
	CreatedBy          int64            `json:"created_by"`
	CreatedAt          time.Time        `json:"created_at"`
	Parts              []ServiceJobPart `json:"parts"`
}

// ServiceJobPart is one part allocated to (or used by) a service job.
// UnitCost snapshots the stock row's weighted average at allocation time;
// UnitPrice is what the customer is charged per unit.
type ServiceJobPart struct {
	ID           int64           `json:"id"`
	ServiceJobID int64           `json:"service_job_id"`
	SparePartID  int64           `json:"spare_part_id"`
	SKU          string          `json:"sku"`
	PartName     string          `json:"part_name"`
	LocationID   int64           `json:"location_id"`
	Quantity     int64           `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Status       JobPartStatus   `json:"status"`
}

// ServiceJobInput holds the fields required to open a service job.
type ServiceJobInput struct {
	CustomerName       string          `json:"customer_name"`
	CustomerPhone      string          `json:"customer_phone"`
	VehicleBrand       string          `json:"vehicle_brand"`
	VehicleModel       string          `json:"vehicle_model"`
	VehicleYear        string          `json:"vehicle_year"`
	LicensePlate       string          `json:"license_plate"`
	Mileage            *int64          `json:"mileage,omitempty"`
	ServiceDate        time.Time       `json:"service_date"`
	ProblemDescription string          `json:"problem_description"`
	LaborCost          decimal.Decimal `json:"labor_cost"`
	LocationID         int64           `json:"location_id"`
	MechanicID         *int64          `json:"mechanic_id,omitempty"`
}

// JobFilter narrows ListJobs. Zero fields are ignored.
type JobFilter struct {
	Status     JobStatus
	LocationID int64
	Limit      int
}

// ServiceJobService manages workshop service orders and their parts.
//
// Adding a part reserves stock; using it converts the reservation into a
// service_usage removal; returning it releases the reservation. Whatever the
// order of use and return events, each allocation's reservation is released
// exactly once.
type ServiceJobService interface {
	// CreateJob opens a pending service job and assigns a job number.
	CreateJob(ctx context.Context, in ServiceJobInput, actorID int64) (*ServiceJob, error)

	// StartJob transitions pending or waiting_parts → in_progress.
	StartJob(ctx context.Context, jobID int64) error

	// MarkWaitingParts transitions in_progress → waiting_parts.
	MarkWaitingParts(ctx context.Context, jobID int64) error

	// AddPart allocates qty units of a part to an open job, reserving stock
	// at the given location (the job's own location when zero). Cost
	// snapshots the stock row's average cost; unitPrice of nil defaults to
	// the part's catalog selling price. The job's parts_cost and total_cost
	// include the allocation immediately. Fails with ErrInsufficientStock
	// when not enough is available.
	AddPart(ctx context.Context, jobID, partID, locationID, qty int64, unitPrice *decimal.Decimal, actorID int64) (*ServiceJobPart, error)

	// UsePart marks an allocated part as consumed: the stock leaves the
	// ledger as a service_usage movement and the reservation is released.
	UsePart(ctx context.Context, jobID, jobPartID int64, actorID int64) error

	// ReturnPart puts an allocated part back: the reservation is released
	// and the line no longer counts toward the job's parts cost.
	ReturnPart(ctx context.Context, jobID, jobPartID int64, actorID int64) error

	// CompleteJob finishes a job: any still-allocated parts are force-used,
	// costs are totalled, and the completion date is set. Completing an
	// already-completed job is a no-op.
	CompleteJob(ctx context.Context, jobID int64, workDescription string, actorID int64) error

	// CancelJob cancels a non-terminal job, releasing all open allocations.
	CancelJob(ctx context.Context, jobID int64, actorID int64) error

	// GetJob returns a job by ID including all part lines, or ErrNotFound.
	GetJob(ctx context.Context, jobID int64) (*ServiceJob, error)

	// ListJobs returns jobs matching the filter, newest first.
	ListJobs(ctx context.Context, f JobFilter) ([]ServiceJob, error)
}
