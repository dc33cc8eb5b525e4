package fuelcard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// Repository defines fuel-card transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*Transaction, error)
	ListByStatus(ctx context.Context, status shared.ReconcileStatus, limit, offset int) ([]*Transaction, error)
	CountByStatus(ctx context.Context, status shared.ReconcileStatus) (int64, error)

	// FindDuplicate locates a previously imported transaction matching on
	// (card number, fleet number, date, litres within the window).
	// Returns nil, nil when none exists.
	FindDuplicate(ctx context.Context, cardNumber, fleetNumber string, date time.Time, litres decimal.Decimal) (*Transaction, error)

	Update(ctx context.Context, txn *Transaction) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing fuel-card transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "fuel transaction not found: " + e.TransactionID.String()
}

// Is treats a target with the nil UUID as matching any ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || t.TransactionID == e.TransactionID
}
