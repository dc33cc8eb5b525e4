// Package anomaly scans the fuel record population for probe discrepancies,
// efficiency outliers, missing verifications, and unlinked records.
package anomaly

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// Fixed alerting thresholds. These are deliberately independent of the
// per-fleet norms used for debrief decisions: alerting and debrief
// triggering are distinct notions of bad efficiency and may disagree.
const (
	ReeferLitresPerHourThreshold = 4.0
	HorseKmPerLitreThreshold     = 2.5
)

// ProbeDiscrepancyThresholdLitres is the absolute probe-vs-filled gap, in
// litres, above which a discrepancy alert is raised
var ProbeDiscrepancyThresholdLitres = decimal.NewFromInt(50)

// Alert is a derived finding over one fuel record. Alerts are never
// persisted; they are recomputed from the current record population on each
// scan, which keeps them impossible to go stale.
type Alert struct {
	Category    shared.AlertCategory `json:"category"`
	RecordID    uuid.UUID            `json:"record_id"`
	FleetNumber string               `json:"fleet_number"`
	Severity    shared.AlertSeverity `json:"severity"`
	Message     string               `json:"message"`
	Resolved    bool                 `json:"resolved"`
}

// Detector is stateless and pure: identical inputs always yield identical
// alert sets.
type Detector struct {
	logger *slog.Logger
}

func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Scan evaluates every record independently; a record may raise more than
// one alert. Records carrying a debrief, or a verified probe where a
// discrepancy existed, are excluded from the active categories and reported
// separately under the resolved category.
func (d *Detector) Scan(records []*diesel.Record, probeEquippedFleets map[string]struct{}) []Alert {
	var alerts []Alert
	for _, rec := range records {
		alerts = append(alerts, d.ScanRecord(rec, probeEquippedFleets)...)
	}
	return alerts
}

// ScanRecord evaluates a single record, enabling incremental re-scans after
// a mutation rather than full-population sweeps.
func (d *Detector) ScanRecord(rec *diesel.Record, probeEquippedFleets map[string]struct{}) []Alert {
	_, probeEquipped := probeEquippedFleets[rec.FleetNumber]

	if resolved(rec) {
		return []Alert{{
			Category:    shared.AlertCategoryResolved,
			RecordID:    rec.ID,
			FleetNumber: rec.FleetNumber,
			Severity:    shared.AlertSeverityInfo,
			Message:     "record has been debriefed or probe-verified",
			Resolved:    true,
		}}
	}

	var alerts []Alert

	if probeEquipped && rec.ProbeReading != nil && rec.ProbeDiscrepancy != nil {
		if rec.ProbeDiscrepancy.Abs().GreaterThan(ProbeDiscrepancyThresholdLitres) {
			alerts = append(alerts, Alert{
				Category:    shared.AlertCategoryProbeDiscrepancy,
				RecordID:    rec.ID,
				FleetNumber: rec.FleetNumber,
				Severity:    shared.AlertSeverityCritical,
				Message: fmt.Sprintf("probe reads %s litres against %s filled",
					rec.ProbeReading.StringFixed(1), rec.LitresFilled.StringFixed(1)),
			})
		}
	}

	if rec.IsReeferUnit {
		if rec.LitresPerHour > ReeferLitresPerHourThreshold {
			alerts = append(alerts, Alert{
				Category:    shared.AlertCategoryEfficiency,
				RecordID:    rec.ID,
				FleetNumber: rec.FleetNumber,
				Severity:    shared.AlertSeverityWarning,
				Message:     fmt.Sprintf("reefer consumption %.2f L/hr exceeds %.1f", rec.LitresPerHour, ReeferLitresPerHourThreshold),
			})
		}
	} else if rec.KmPerLitre > 0 && rec.KmPerLitre < HorseKmPerLitreThreshold {
		alerts = append(alerts, Alert{
			Category:    shared.AlertCategoryEfficiency,
			RecordID:    rec.ID,
			FleetNumber: rec.FleetNumber,
			Severity:    shared.AlertSeverityWarning,
			Message:     fmt.Sprintf("consumption %.2f km/L below %.1f", rec.KmPerLitre, HorseKmPerLitreThreshold),
		})
	}

	if probeEquipped && !rec.IsReeferUnit && !rec.ProbeVerified {
		alerts = append(alerts, Alert{
			Category:    shared.AlertCategoryMissingVerification,
			RecordID:    rec.ID,
			FleetNumber: rec.FleetNumber,
			Severity:    shared.AlertSeverityWarning,
			Message:     "probe-equipped fleet record has no probe verification",
		})
	}

	if !rec.IsReeferUnit && rec.TripID == nil {
		alerts = append(alerts, Alert{
			Category:    shared.AlertCategoryUnlinked,
			RecordID:    rec.ID,
			FleetNumber: rec.FleetNumber,
			Severity:    shared.AlertSeverityInfo,
			Message:     "record is not allocated to a trip",
		})
	}

	return alerts
}

// resolved reports whether the record has cleared its anomalies: a written
// debrief, or a verified probe where a discrepancy had been measured
func resolved(rec *diesel.Record) bool {
	if rec.DebriefDate != nil {
		return true
	}
	return rec.ProbeVerified && rec.ProbeDiscrepancy != nil
}
