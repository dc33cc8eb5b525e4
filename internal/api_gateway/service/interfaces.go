package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/domain/trip"
	"github.com/fleet-diesel-ledger/internal/reconciliation/anomaly"
)

// RecordInput carries the fields of a manual fuel-fill entry
type RecordInput struct {
	FleetNumber   string
	Date          time.Time
	DriverName    string
	FuelStation   string
	LitresFilled  decimal.Decimal
	TotalCost     decimal.Decimal
	Currency      string
	KmReading     float64
	PreviousKm    float64
	IsReeferUnit  bool
	HoursOperated float64
	Notes         string
}

// RecordUpdate carries the mutable fields of an existing record. Nil fields
// are left unchanged.
type RecordUpdate struct {
	DriverName    *string
	FuelStation   *string
	LitresFilled  *decimal.Decimal
	TotalCost     *decimal.Decimal
	Currency      *string
	KmReading     *float64
	PreviousKm    *float64
	HoursOperated *float64
	Notes         *string
}

// RecordService defines the interface for fuel record operations
type RecordService interface {
	// CreateRecord creates a manual fuel-fill entry.
	// Returns diesel.ErrDuplicateRecord when an existing record matches
	// within the duplicate window.
	CreateRecord(ctx context.Context, actor string, in *RecordInput) (*diesel.Record, error)

	// GetRecord retrieves a record by its ID
	// Returns diesel.ErrRecordNotFound if the record doesn't exist
	GetRecord(ctx context.Context, id uuid.UUID) (*diesel.Record, error)

	// ListRecords retrieves a page of records, optionally narrowed to one fleet
	ListRecords(ctx context.Context, fleetNumber string, page, perPage int) ([]*diesel.Record, error)

	// UpdateRecord applies the non-nil fields, recomputes derived values and
	// synchronizes the linked trip cost entry when the cost changed
	UpdateRecord(ctx context.Context, actor string, id uuid.UUID, in *RecordUpdate) (*diesel.Record, error)

	// ApplyDebrief records the staff sign-off for a poor-efficiency fill.
	// Returns diesel.ErrAlreadyDebriefed on a second debrief.
	ApplyDebrief(ctx context.Context, actor string, id uuid.UUID, date time.Time, signedBy, notes string) (*diesel.Record, error)

	// RecordProbe stores an in-tank probe reading and/or marks it verified
	RecordProbe(ctx context.Context, actor string, id uuid.UUID, reading *decimal.Decimal, verify bool) (*diesel.Record, error)

	// Allocate links the record to a trip ledger, moving it when already linked
	Allocate(ctx context.Context, actor string, id, tripID uuid.UUID) error

	// Deallocate removes the record from its trip ledger; a no-op when unlinked
	Deallocate(ctx context.Context, actor string, id uuid.UUID) error

	// DeleteRecord removes the record, deallocating it first when linked
	DeleteRecord(ctx context.Context, actor string, id uuid.UUID) error

	// ExportCSV renders the full record population as comma-delimited rows
	ExportCSV(ctx context.Context) ([]byte, error)
}

// TxRunner runs a function inside one Postgres transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TripLinker coordinates the trip cost ledger changes that follow record
// mutations. Satisfied by linkage.Coordinator.
type TripLinker interface {
	Allocate(ctx context.Context, actor string, dieselID, tripID uuid.UUID) error
	Deallocate(ctx context.Context, actor string, dieselID uuid.UUID) error
	SyncCost(ctx context.Context, actor string, rec *diesel.Record) error
	Delete(ctx context.Context, actor string, dieselID uuid.UUID) error
}

// TripService defines the interface for trip ledger reads
type TripService interface {
	// GetTrip retrieves a trip with its cost ledger
	// Returns trip.ErrTripNotFound if the trip doesn't exist
	GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
}

// AlertService defines the interface for anomaly reporting
type AlertService interface {
	// ListAlerts scans the current record population and returns the derived
	// alerts, optionally narrowed to one category
	ListAlerts(ctx context.Context, category shared.AlertCategory) ([]anomaly.Alert, error)
}

// ImportService defines the interface for import batch submission
type ImportService interface {
	// SubmitBatch publishes an import batch for asynchronous processing and
	// returns the batch as published
	SubmitBatch(ctx context.Context, actor, source, correlationID string, rows []shared.ImportRow) (*shared.ImportBatch, error)

	// Trigger asks the external card provider integration to start an export.
	// Returns shared.ErrTriggerFailed when delivery exhausts its retries.
	Trigger(ctx context.Context, source string) error
}

// AuditService defines the interface for audit trail reads
type AuditService interface {
	// ListEntries retrieves a page of the audit trail, newest first, with the
	// total entry count. Entity and entityID narrow to one entity when set.
	ListEntries(ctx context.Context, entity, entityID string, page, perPage int) ([]*audit.Entry, int64, error)
}
