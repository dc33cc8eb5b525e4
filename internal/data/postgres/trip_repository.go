package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/trip"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
)

// TripRepository implements the trip.Repository interface for PostgreSQL.
// Trips are stored as aggregates: the trips row plus its cost_entries rows
// are read and written together.
type TripRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTripRepository creates a new PostgreSQL trip repository
func NewTripRepository(logger *slog.Logger, db *persistence.PostgresDB) trip.Repository {
	return &TripRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *TripRepository) WithTx(tx pgx.Tx) trip.Repository {
	return &TripRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new trip and its cost entries
func (r *TripRepository) Create(ctx context.Context, t *trip.Trip) error {
	query := `
		INSERT INTO trips (id, fleet_number, revenue_currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.FleetNumber,
		t.RevenueCurrency,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trip", "error", err)
		return fmt.Errorf("failed to create trip: %w", err)
	}

	if err := r.insertCosts(ctx, t); err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a trip with its full cost ledger
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	query := `
		SELECT id, fleet_number, revenue_currency, version, created_at, updated_at
		FROM trips
		WHERE id = $1
	`

	var t trip.Trip
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.FleetNumber,
		&t.RevenueCurrency,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trip.ErrTripNotFound{TripID: id}
		}
		r.logger.Error("Failed to get trip", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	if err := r.loadCosts(ctx, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// ListByFleet retrieves trips for a fleet unit with pagination, most recent
// first, each with its cost ledger hydrated
func (r *TripRepository) ListByFleet(ctx context.Context, fleetNumber string, limit, offset int) ([]*trip.Trip, error) {
	query := `
		SELECT id, fleet_number, revenue_currency, version, created_at, updated_at
		FROM trips
		WHERE fleet_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, fleetNumber, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list trips by fleet", "fleetNumber", fleetNumber, "error", err)
		return nil, fmt.Errorf("failed to list trips by fleet: %w", err)
	}

	var trips []*trip.Trip
	for rows.Next() {
		var t trip.Trip
		if err := rows.Scan(&t.ID, &t.FleetNumber, &t.RevenueCurrency, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			r.logger.Error("Failed to scan trip", "error", err)
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, &t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}
	rows.Close()

	for _, t := range trips {
		if err := r.loadCosts(ctx, t); err != nil {
			return nil, err
		}
	}

	return trips, nil
}

// Update writes the trip aggregate back using optimistic locking on the trips
// row. The cost ledger is replaced wholesale inside the same statement batch;
// callers run Update within a transaction when atomicity with other writes
// matters.
func (r *TripRepository) Update(ctx context.Context, t *trip.Trip) error {
	query := `
		UPDATE trips
		SET fleet_number = $1, revenue_currency = $2,
		    version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		t.FleetNumber,
		t.RevenueCurrency,
		t.UpdatedAt,
		t.ID,
		t.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update trip", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to update trip: %w", err)
	}

	if result.RowsAffected() == 0 {
		return trip.ErrConcurrentModification{TripID: t.ID}
	}

	if _, err := r.querier.Exec(ctx, `DELETE FROM cost_entries WHERE trip_id = $1`, t.ID); err != nil {
		r.logger.Error("Failed to clear trip cost entries", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to clear trip cost entries: %w", err)
	}

	if err := r.insertCosts(ctx, t); err != nil {
		return err
	}

	t.Version++
	return nil
}

func (r *TripRepository) insertCosts(ctx context.Context, t *trip.Trip) error {
	query := `
		INSERT INTO cost_entries (id, trip_id, source_diesel_id, reference_number,
		                          description, amount, currency, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for i := range t.Costs {
		c := &t.Costs[i]
		_, err := r.querier.Exec(ctx, query,
			c.ID,
			t.ID,
			c.SourceDieselID,
			c.ReferenceNumber,
			c.Description,
			c.Amount,
			c.Currency,
			c.Notes,
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to insert trip cost entry", "tripID", t.ID.String(), "error", err)
			return fmt.Errorf("failed to insert trip cost entry: %w", err)
		}
	}

	return nil
}

func (r *TripRepository) loadCosts(ctx context.Context, t *trip.Trip) error {
	query := `
		SELECT id, source_diesel_id, reference_number, description,
		       amount, currency, notes, created_at, updated_at
		FROM cost_entries
		WHERE trip_id = $1
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, t.ID)
	if err != nil {
		r.logger.Error("Failed to load trip cost entries", "tripID", t.ID.String(), "error", err)
		return fmt.Errorf("failed to load trip cost entries: %w", err)
	}
	defer rows.Close()

	t.Costs = nil
	for rows.Next() {
		var c trip.CostEntry
		if err := rows.Scan(
			&c.ID,
			&c.SourceDieselID,
			&c.ReferenceNumber,
			&c.Description,
			&c.Amount,
			&c.Currency,
			&c.Notes,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan trip cost entry", "error", err)
			return fmt.Errorf("failed to scan trip cost entry: %w", err)
		}
		t.Costs = append(t.Costs, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate trip cost entries: %w", err)
	}

	return nil
}
