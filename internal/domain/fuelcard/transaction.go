package fuelcard

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

var (
	ErrAlreadyReconciled = errors.New("transaction is already reconciled")
	ErrInvalidCurrency   = errors.New("currency must be ZAR or USD")
)

// Transaction represents an external fuel-card event imported from the card
// provider. Created by import; mutated only by the matching engine; immutable
// once reconciled.
type Transaction struct {
	ID              uuid.UUID              `json:"id"`
	BatchID         uuid.UUID              `json:"batch_id"`
	CardNumber      string                 `json:"card_number"`
	FleetNumber     string                 `json:"fleet_number"`
	DriverName      string                 `json:"driver_name"`
	FuelStation     string                 `json:"fuel_station"`
	Date            time.Time              `json:"date"`
	Litres          decimal.Decimal        `json:"litres"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Currency        string                 `json:"currency"`
	Odometer        float64                `json:"odometer,omitempty"`
	Status          shared.ReconcileStatus `json:"status"`
	MatchedRecordID *uuid.UUID             `json:"matched_record_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewTransaction creates an imported fuel-card transaction in the unmatched
// state. Currency defaults to ZAR when empty.
func NewTransaction(batchID uuid.UUID, cardNumber, fleetNumber string, date time.Time, litres decimal.Decimal, currency string) (*Transaction, error) {
	if currency == "" {
		currency = shared.CurrencyZAR
	}
	if currency != shared.CurrencyZAR && currency != shared.CurrencyUSD {
		return nil, ErrInvalidCurrency
	}

	now := time.Now()
	return &Transaction{
		ID:          uuid.New(),
		BatchID:     batchID,
		CardNumber:  cardNumber,
		FleetNumber: fleetNumber,
		Date:        date,
		Litres:      litres,
		Currency:    currency,
		Status:      shared.ReconcileStatusUnmatched,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkReconciled pairs the transaction with its internal record. Reconciled
// transactions are immutable; re-marking is rejected.
func (t *Transaction) MarkReconciled(recordID uuid.UUID) error {
	if t.Status == shared.ReconcileStatusReconciled {
		return ErrAlreadyReconciled
	}
	t.Status = shared.ReconcileStatusReconciled
	t.MatchedRecordID = &recordID
	t.UpdatedAt = time.Now()
	return nil
}

// MarkPending flags the transaction for manual resolution after an ambiguous
// match. No-op once reconciled.
func (t *Transaction) MarkPending() {
	if t.Status == shared.ReconcileStatusReconciled {
		return
	}
	t.Status = shared.ReconcileStatusPending
	t.MatchedRecordID = nil
	t.UpdatedAt = time.Now()
}

// MarkUnmatched records that no candidate satisfied the match criteria.
// No-op once reconciled.
func (t *Transaction) MarkUnmatched() {
	if t.Status == shared.ReconcileStatusReconciled {
		return
	}
	t.Status = shared.ReconcileStatusUnmatched
	t.MatchedRecordID = nil
	t.UpdatedAt = time.Now()
}
