// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the fleet diesel ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
)

const dieselRecordColumns = `
	id, fleet_number, fill_date, driver_name, fuel_station,
	litres_filled, cost_per_litre, total_cost, currency,
	km_reading, previous_km_reading, km_per_litre,
	is_reefer_unit, hours_operated, litres_per_hour,
	probe_reading, probe_discrepancy, probe_verified,
	trip_id, debrief_date, debrief_signed_by, debrief_notes, notes,
	version, created_at, updated_at
`

// DieselRepository implements the diesel.Repository interface for PostgreSQL
type DieselRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDieselRepository creates a new PostgreSQL diesel record repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewDieselRepository(logger *slog.Logger, db *persistence.PostgresDB) diesel.Repository {
	return &DieselRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls.
func (r *DieselRepository) WithTx(tx pgx.Tx) diesel.Repository {
	return &DieselRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new fuel-fill record in the database
func (r *DieselRepository) Create(ctx context.Context, rec *diesel.Record) error {
	query := `
		INSERT INTO diesel_records (` + dieselRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.FleetNumber,
		rec.Date,
		rec.DriverName,
		rec.FuelStation,
		rec.LitresFilled,
		rec.CostPerLitre,
		rec.TotalCost,
		rec.Currency,
		rec.KmReading,
		rec.PreviousKmReading,
		rec.KmPerLitre,
		rec.IsReeferUnit,
		rec.HoursOperated,
		rec.LitresPerHour,
		rec.ProbeReading,
		rec.ProbeDiscrepancy,
		rec.ProbeVerified,
		rec.TripID,
		rec.DebriefDate,
		rec.DebriefSignedBy,
		rec.DebriefNotes,
		rec.Notes,
		rec.Version,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create diesel record", "error", err)
		return fmt.Errorf("failed to create diesel record: %w", err)
	}

	return nil
}

// GetByID retrieves a fuel-fill record by its ID
func (r *DieselRepository) GetByID(ctx context.Context, id uuid.UUID) (*diesel.Record, error) {
	query := `
		SELECT ` + dieselRecordColumns + `
		FROM diesel_records
		WHERE id = $1
	`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, diesel.ErrRecordNotFound{RecordID: id}
		}
		r.logger.Error("Failed to get diesel record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get diesel record: %w", err)
	}

	return rec, nil
}

// ListByDate retrieves all fuel-fill records whose fill date falls on the
// given calendar day
func (r *DieselRepository) ListByDate(ctx context.Context, date time.Time) ([]*diesel.Record, error) {
	query := `
		SELECT ` + dieselRecordColumns + `
		FROM diesel_records
		WHERE fill_date >= $1 AND fill_date < $2
		ORDER BY fill_date, created_at
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	rows, err := r.querier.Query(ctx, query, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		r.logger.Error("Failed to list diesel records by date", "date", dayStart, "error", err)
		return nil, fmt.Errorf("failed to list diesel records by date: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// ListByFleet retrieves fuel-fill records for a fleet unit with pagination,
// most recent fills first
func (r *DieselRepository) ListByFleet(ctx context.Context, fleetNumber string, limit, offset int) ([]*diesel.Record, error) {
	query := `
		SELECT ` + dieselRecordColumns + `
		FROM diesel_records
		WHERE fleet_number = $1
		ORDER BY fill_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, fleetNumber, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list diesel records by fleet", "fleetNumber", fleetNumber, "error", err)
		return nil, fmt.Errorf("failed to list diesel records by fleet: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// ListAll retrieves every fuel-fill record, oldest fills first
func (r *DieselRepository) ListAll(ctx context.Context) ([]*diesel.Record, error) {
	query := `
		SELECT ` + dieselRecordColumns + `
		FROM diesel_records
		ORDER BY fill_date, created_at
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list diesel records", "error", err)
		return nil, fmt.Errorf("failed to list diesel records: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// FindDuplicate locates an existing record on the same fleet unit and
// calendar day with the same odometer reading and litres within
// diesel.DuplicateWindow. Returns nil, nil when no duplicate exists.
func (r *DieselRepository) FindDuplicate(ctx context.Context, fleetNumber string, date time.Time, kmReading float64, litres decimal.Decimal) (*diesel.Record, error) {
	query := `
		SELECT ` + dieselRecordColumns + `
		FROM diesel_records
		WHERE fleet_number = $1
		  AND fill_date >= $2 AND fill_date < $3
		  AND km_reading = $4
		  AND ABS(litres_filled - $5) <= $6
		LIMIT 1
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query,
		fleetNumber, dayStart, dayStart.AddDate(0, 0, 1), kmReading, litres, diesel.DuplicateWindow))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No duplicate is not an error
		}
		r.logger.Error("Failed to check for duplicate diesel record", "fleetNumber", fleetNumber, "error", err)
		return nil, fmt.Errorf("failed to check for duplicate diesel record: %w", err)
	}

	return rec, nil
}

// Update writes a modified record back using optimistic locking. The version
// counter is advanced here; a mismatch against the loaded version returns
// ErrConcurrentModification.
func (r *DieselRepository) Update(ctx context.Context, rec *diesel.Record) error {
	query := `
		UPDATE diesel_records
		SET fleet_number = $1, fill_date = $2, driver_name = $3, fuel_station = $4,
		    litres_filled = $5, cost_per_litre = $6, total_cost = $7, currency = $8,
		    km_reading = $9, previous_km_reading = $10, km_per_litre = $11,
		    is_reefer_unit = $12, hours_operated = $13, litres_per_hour = $14,
		    probe_reading = $15, probe_discrepancy = $16, probe_verified = $17,
		    trip_id = $18, debrief_date = $19, debrief_signed_by = $20,
		    debrief_notes = $21, notes = $22,
		    version = version + 1, updated_at = $23
		WHERE id = $24 AND version = $25
	`

	result, err := r.querier.Exec(ctx, query,
		rec.FleetNumber,
		rec.Date,
		rec.DriverName,
		rec.FuelStation,
		rec.LitresFilled,
		rec.CostPerLitre,
		rec.TotalCost,
		rec.Currency,
		rec.KmReading,
		rec.PreviousKmReading,
		rec.KmPerLitre,
		rec.IsReeferUnit,
		rec.HoursOperated,
		rec.LitresPerHour,
		rec.ProbeReading,
		rec.ProbeDiscrepancy,
		rec.ProbeVerified,
		rec.TripID,
		rec.DebriefDate,
		rec.DebriefSignedBy,
		rec.DebriefNotes,
		rec.Notes,
		rec.UpdatedAt,
		rec.ID,
		rec.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update diesel record", "id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to update diesel record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return diesel.ErrConcurrentModification{RecordID: rec.ID}
	}

	rec.Version++
	return nil
}

// Delete removes a fuel-fill record
func (r *DieselRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM diesel_records WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete diesel record", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete diesel record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return diesel.ErrRecordNotFound{RecordID: id}
	}

	return nil
}

func (r *DieselRepository) scanRecord(row pgx.Row) (*diesel.Record, error) {
	var rec diesel.Record
	err := row.Scan(
		&rec.ID,
		&rec.FleetNumber,
		&rec.Date,
		&rec.DriverName,
		&rec.FuelStation,
		&rec.LitresFilled,
		&rec.CostPerLitre,
		&rec.TotalCost,
		&rec.Currency,
		&rec.KmReading,
		&rec.PreviousKmReading,
		&rec.KmPerLitre,
		&rec.IsReeferUnit,
		&rec.HoursOperated,
		&rec.LitresPerHour,
		&rec.ProbeReading,
		&rec.ProbeDiscrepancy,
		&rec.ProbeVerified,
		&rec.TripID,
		&rec.DebriefDate,
		&rec.DebriefSignedBy,
		&rec.DebriefNotes,
		&rec.Notes,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *DieselRepository) collectRecords(rows pgx.Rows) ([]*diesel.Record, error) {
	var records []*diesel.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan diesel record", "error", err)
			return nil, fmt.Errorf("failed to scan diesel record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diesel records: %w", err)
	}
	return records, nil
}
