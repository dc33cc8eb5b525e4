package trip

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyFleetNumber = errors.New("fleet number cannot be empty")

	// ErrDuplicateCostEntry guards the invariant that a trip ledger carries
	// at most one cost entry per source diesel record
	ErrDuplicateCostEntry = errors.New("trip already carries a cost entry for this diesel record")
)

// CostEntry is one ledger line on a trip. SourceDieselID is the explicit
// foreign key to the originating fuel record; ReferenceNumber keeps the
// DIESEL-<id> / DIESEL-REEFER-<id> encoding for export and reporting.
type CostEntry struct {
	ID              uuid.UUID       `json:"id"`
	SourceDieselID  uuid.UUID       `json:"source_diesel_id"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Trip owns the cost ledger that diesel records allocate into
type Trip struct {
	ID              uuid.UUID   `json:"id"`
	FleetNumber     string      `json:"fleet_number"`
	RevenueCurrency string      `json:"revenue_currency"`
	Costs           []CostEntry `json:"costs"`
	Version         int         `json:"version"` // For optimistic locking
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewTrip creates a trip with an empty cost ledger
func NewTrip(fleetNumber, revenueCurrency string) (*Trip, error) {
	if fleetNumber == "" {
		return nil, ErrEmptyFleetNumber
	}
	now := time.Now()
	return &Trip{
		ID:              uuid.New(),
		FleetNumber:     fleetNumber,
		RevenueCurrency: revenueCurrency,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AddCost appends a ledger line, rejecting a second entry for the same
// source diesel record
func (t *Trip) AddCost(entry CostEntry) error {
	if _, ok := t.FindCostForDiesel(entry.SourceDieselID); ok {
		return ErrDuplicateCostEntry
	}
	t.Costs = append(t.Costs, entry)
	t.touch()
	return nil
}

// RemoveCostForDiesel removes the ledger line originating from the given
// diesel record. Returns the removed entry and whether one existed.
func (t *Trip) RemoveCostForDiesel(dieselID uuid.UUID) (CostEntry, bool) {
	for i, c := range t.Costs {
		if c.SourceDieselID == dieselID {
			removed := c
			t.Costs = append(t.Costs[:i], t.Costs[i+1:]...)
			t.touch()
			return removed, true
		}
	}
	return CostEntry{}, false
}

// FindCostForDiesel returns a pointer into the ledger for in-place updates
func (t *Trip) FindCostForDiesel(dieselID uuid.UUID) (*CostEntry, bool) {
	for i := range t.Costs {
		if t.Costs[i].SourceDieselID == dieselID {
			return &t.Costs[i], true
		}
	}
	return nil, false
}

// TotalCosts sums the ledger in its recorded currencies
func (t *Trip) TotalCosts() decimal.Decimal {
	total := decimal.Zero
	for _, c := range t.Costs {
		total = total.Add(c.Amount)
	}
	return total
}

// touch refreshes the modification timestamp. The version counter is
// advanced by the repository inside its optimistic-lock update.
func (t *Trip) touch() {
	t.UpdatedAt = time.Now()
}
