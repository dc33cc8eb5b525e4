package norm

import (
	"errors"
	"time"
)

var ErrEmptyFleetNumber = errors.New("fleet number cannot be empty")

// Hard-coded fallbacks used when a fleet has no configured norm
const (
	DefaultExpectedKmPerLitre = 3.0
	DefaultLitresPerHour      = 3.5
	DefaultHorseTolerancePct  = 10.0
	DefaultReeferTolerancePct = 15.0
)

// Norm is the per-fleet expected efficiency and tolerance used for debrief
// decisions. Tolerance is a percentage (10 means 10%).
type Norm struct {
	FleetNumber         string    `json:"fleet_number"`
	ExpectedKmPerLitre  float64   `json:"expected_km_per_litre"`
	LitresPerHour       float64   `json:"litres_per_hour"`
	TolerancePercentage float64   `json:"tolerance_percentage"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// New creates a per-fleet norm, filling zero values with the defaults
func New(fleetNumber string, expectedKmPerLitre, litresPerHour, tolerancePct float64) (*Norm, error) {
	if fleetNumber == "" {
		return nil, ErrEmptyFleetNumber
	}
	if expectedKmPerLitre <= 0 {
		expectedKmPerLitre = DefaultExpectedKmPerLitre
	}
	if litresPerHour <= 0 {
		litresPerHour = DefaultLitresPerHour
	}
	if tolerancePct <= 0 {
		tolerancePct = DefaultHorseTolerancePct
	}

	now := time.Now()
	return &Norm{
		FleetNumber:         fleetNumber,
		ExpectedKmPerLitre:  expectedKmPerLitre,
		LitresPerHour:       litresPerHour,
		TolerancePercentage: tolerancePct,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}
