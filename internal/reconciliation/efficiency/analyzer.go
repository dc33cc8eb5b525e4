// Package efficiency computes consumption metrics against per-fleet norms
// and decides whether a driver debrief is required.
package efficiency

import (
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// Result is the efficiency classification of one fuel record
type Result struct {
	Metric          float64                 `json:"metric"`
	Expected        float64                 `json:"expected"`
	VarianceRatio   float64                 `json:"variance_ratio"`
	Status          shared.EfficiencyStatus `json:"status"`
	RequiresDebrief bool                    `json:"requires_debrief"`
}

// Analyzer classifies observed consumption against the applicable norm.
// The direction of "bad" differs by unit type: a horse unit is poor when its
// km/L falls below the tolerance band, a reefer is poor when its L/hr rises
// above it. Both senses must hold exactly.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze computes the metric, expected value, variance ratio, and status
// for the record. A nil norm falls back to the hard-coded defaults. A debrief
// is required only for a poor status on a record not yet debriefed.
func (a *Analyzer) Analyze(record *diesel.Record, n *norm.Norm) Result {
	var res Result

	if record.IsReeferUnit {
		res.Metric = record.LitresPerHour
		if res.Metric == 0 && record.HoursOperated > 0 {
			res.Metric = record.LitresFilled.InexactFloat64() / record.HoursOperated
		}
		res.Expected = norm.DefaultLitresPerHour
		tolerance := norm.DefaultReeferTolerancePct / 100
		if n != nil {
			if n.LitresPerHour > 0 {
				res.Expected = n.LitresPerHour
			}
			if n.TolerancePercentage > 0 {
				tolerance = n.TolerancePercentage / 100
			}
		}

		// Higher consumption is worse for reefer units
		switch {
		case res.Metric > res.Expected*(1+tolerance):
			res.Status = shared.EfficiencyStatusPoor
		case res.Metric < res.Expected*(1-tolerance):
			res.Status = shared.EfficiencyStatusExcellent
		default:
			res.Status = shared.EfficiencyStatusNormal
		}
	} else {
		res.Metric = record.KmPerLitre
		res.Expected = norm.DefaultExpectedKmPerLitre
		tolerance := norm.DefaultHorseTolerancePct / 100
		if n != nil {
			if n.ExpectedKmPerLitre > 0 {
				res.Expected = n.ExpectedKmPerLitre
			}
			if n.TolerancePercentage > 0 {
				tolerance = n.TolerancePercentage / 100
			}
		}

		// Lower km/L is worse for horse units, the inverse of the reefer sense
		switch {
		case res.Metric < res.Expected*(1-tolerance):
			res.Status = shared.EfficiencyStatusPoor
		case res.Metric > res.Expected*(1+tolerance):
			res.Status = shared.EfficiencyStatusExcellent
		default:
			res.Status = shared.EfficiencyStatusNormal
		}
	}

	if res.Metric > 0 && res.Expected > 0 {
		res.VarianceRatio = (res.Metric - res.Expected) / res.Expected
	}

	res.RequiresDebrief = res.Status == shared.EfficiencyStatusPoor && record.DebriefDate == nil

	if res.RequiresDebrief {
		a.logger.Info("Record requires driver debrief",
			"record_id", record.ID.String(),
			"fleet_number", record.FleetNumber,
			"metric", res.Metric,
			"expected", res.Expected,
		)
	}

	return res
}
