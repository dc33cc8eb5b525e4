package diesel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DuplicateWindow is the litres tolerance for treating an imported row as a
// re-submission of an existing record
var DuplicateWindow = decimal.RequireFromString("0.1")

// Repository defines fuel record persistence operations
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Record, error)
	ListByFleet(ctx context.Context, fleetNumber string, limit, offset int) ([]*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)

	// FindDuplicate locates an existing record matching on
	// (fleet number, date, km reading, litres within DuplicateWindow).
	// Returns nil, nil when no duplicate exists.
	FindDuplicate(ctx context.Context, fleetNumber string, date time.Time, kmReading float64, litres decimal.Decimal) (*Record, error)

	// Update uses optimistic locking; a version mismatch returns
	// ErrConcurrentModification
	Update(ctx context.Context, record *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrRecordNotFound indicates a missing fuel record
type ErrRecordNotFound struct {
	RecordID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "diesel record not found: " + e.RecordID.String()
}

// Is treats a target with the nil UUID as matching any ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.RecordID == uuid.Nil || t.RecordID == e.RecordID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	RecordID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for diesel record: " + e.RecordID.String()
}

// ErrDuplicateRecord indicates an import row or manual entry matching an
// existing record within the duplicate window
type ErrDuplicateRecord struct {
	FleetNumber string
	Date        time.Time
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate diesel record for fleet " + e.FleetNumber + " on " + e.Date.Format("2006-01-02")
}

// Is matches any ErrDuplicateRecord when the target carries no fleet number
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	return t.FleetNumber == "" || (t.FleetNumber == e.FleetNumber && t.Date.Equal(e.Date))
}
