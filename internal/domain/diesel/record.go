package diesel

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNonPositiveLitres = errors.New("litres filled must be positive")
	ErrEmptyFleetNumber  = errors.New("fleet number cannot be empty")
	ErrNoHoursOperated   = errors.New("reefer unit requires hours operated")
	ErrAlreadyDebriefed  = errors.New("record already has a debrief")
	ErrStillLinked       = errors.New("record is linked to a trip and must be deallocated first")
)

// Record represents one fuel-fill event for one vehicle. Horse (tractor)
// units measure consumption in km per litre; reefer units run independent of
// distance and measure litres per hour.
type Record struct {
	ID                uuid.UUID        `json:"id"`
	FleetNumber       string           `json:"fleet_number"`
	Date              time.Time        `json:"date"`
	DriverName        string           `json:"driver_name"`
	FuelStation       string           `json:"fuel_station"`
	LitresFilled      decimal.Decimal  `json:"litres_filled"`
	CostPerLitre      decimal.Decimal  `json:"cost_per_litre"`
	TotalCost         decimal.Decimal  `json:"total_cost"`
	Currency          string           `json:"currency"`
	KmReading         float64          `json:"km_reading"`
	PreviousKmReading float64          `json:"previous_km_reading"`
	KmPerLitre        float64          `json:"km_per_litre"`
	IsReeferUnit      bool             `json:"is_reefer_unit"`
	HoursOperated     float64          `json:"hours_operated"`
	LitresPerHour     float64          `json:"litres_per_hour"`
	ProbeReading      *decimal.Decimal `json:"probe_reading,omitempty"`
	ProbeDiscrepancy  *decimal.Decimal `json:"probe_discrepancy,omitempty"`
	ProbeVerified     bool             `json:"probe_verified"`
	TripID            *uuid.UUID       `json:"trip_id,omitempty"`
	DebriefDate       *time.Time       `json:"debrief_date,omitempty"`
	DebriefSignedBy   string           `json:"debrief_signed_by,omitempty"`
	DebriefNotes      string           `json:"debrief_notes,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Version           int              `json:"version"` // For optimistic locking
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewRecord creates a fuel-fill record and computes its derived consumption
// fields. For reefer units the km-based fields are not authoritative and
// litres per hour governs instead.
func NewRecord(fleetNumber string, date time.Time, litresFilled, totalCost decimal.Decimal, currency string) (*Record, error) {
	if fleetNumber == "" {
		return nil, ErrEmptyFleetNumber
	}
	if !litresFilled.IsPositive() {
		return nil, ErrNonPositiveLitres
	}

	now := time.Now()
	r := &Record{
		ID:           uuid.New(),
		FleetNumber:  fleetNumber,
		Date:         date,
		LitresFilled: litresFilled,
		TotalCost:    totalCost,
		Currency:     currency,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.Recompute()
	return r, nil
}

// Recompute refreshes all derived fields from the authoritative inputs:
// km/L, L/hr, cost per litre, and the probe discrepancy.
func (r *Record) Recompute() {
	litres := r.LitresFilled.InexactFloat64()

	if r.IsReeferUnit {
		r.KmPerLitre = 0
		if r.HoursOperated > 0 {
			r.LitresPerHour = litres / r.HoursOperated
		}
	} else {
		r.LitresPerHour = 0
		if distance := r.DistanceTravelled(); distance > 0 && litres > 0 {
			r.KmPerLitre = distance / litres
		}
	}

	if r.LitresFilled.IsPositive() {
		r.CostPerLitre = r.TotalCost.Div(r.LitresFilled).Round(4)
	}

	if r.ProbeReading != nil {
		d := r.ProbeReading.Sub(r.LitresFilled)
		r.ProbeDiscrepancy = &d
	} else {
		r.ProbeDiscrepancy = nil
	}
}

// DistanceTravelled returns the km driven since the previous fill
func (r *Record) DistanceTravelled() float64 {
	if r.KmReading <= r.PreviousKmReading {
		return 0
	}
	return r.KmReading - r.PreviousKmReading
}

// ReferenceNumber encodes this record's identity for its trip cost entry
func (r *Record) ReferenceNumber() string {
	if r.IsReeferUnit {
		return fmt.Sprintf("DIESEL-REEFER-%s", r.ID)
	}
	return fmt.Sprintf("DIESEL-%s", r.ID)
}

// SetProbeReading records the in-tank probe reading and recomputes the
// discrepancy against the filled amount
func (r *Record) SetProbeReading(reading decimal.Decimal) {
	r.ProbeReading = &reading
	r.Recompute()
	r.touch()
}

// VerifyProbe marks the probe reading as reviewed and accepted
func (r *Record) VerifyProbe() {
	r.ProbeVerified = true
	r.touch()
}

// ApplyDebrief records the staff sign-off that addresses a poor-efficiency
// fill. A record carries at most one debrief.
func (r *Record) ApplyDebrief(date time.Time, signedBy, notes string) error {
	if r.DebriefDate != nil {
		return ErrAlreadyDebriefed
	}
	if signedBy == "" {
		return errors.New("debrief must be signed")
	}
	r.DebriefDate = &date
	r.DebriefSignedBy = signedBy
	r.DebriefNotes = notes
	r.touch()
	return nil
}

// LinkToTrip associates the record with the trip whose ledger carries its cost
func (r *Record) LinkToTrip(tripID uuid.UUID) {
	r.TripID = &tripID
	r.touch()
}

// UnlinkFromTrip clears the trip association
func (r *Record) UnlinkFromTrip() {
	r.TripID = nil
	r.touch()
}

// IsLinked reports whether the record currently belongs to a trip ledger
func (r *Record) IsLinked() bool {
	return r.TripID != nil
}

// touch refreshes the modification timestamp. The version counter is
// advanced by the repository inside its optimistic-lock update.
func (r *Record) touch() {
	r.UpdatedAt = time.Now()
}
