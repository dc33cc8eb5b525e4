package trip

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines trip persistence operations. Trips are loaded and
// stored as aggregates: GetByID hydrates the cost ledger and Update writes
// the ledger back through.
type Repository interface {
	Create(ctx context.Context, t *Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListByFleet(ctx context.Context, fleetNumber string, limit, offset int) ([]*Trip, error)

	// Update uses optimistic locking; a version mismatch returns
	// ErrConcurrentModification
	Update(ctx context.Context, t *Trip) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTripNotFound indicates a missing trip
type ErrTripNotFound struct {
	TripID uuid.UUID
}

func (e ErrTripNotFound) Error() string {
	return "trip not found: " + e.TripID.String()
}

// Is treats a target with the nil UUID as matching any ErrTripNotFound
func (e ErrTripNotFound) Is(target error) bool {
	t, ok := target.(ErrTripNotFound)
	if !ok {
		return false
	}
	return t.TripID == uuid.Nil || t.TripID == e.TripID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	TripID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for trip: " + e.TripID.String()
}
