package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/outbox"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/reconciliation/anomaly"
	"github.com/fleet-diesel-ledger/internal/reconciliation/efficiency"
)

// exportColumns is the fixed column order of the diesel export
var exportColumns = []string{
	"fleetNumber", "date", "kmReading", "previousKmReading", "litresFilled",
	"costPerLitre", "totalCost", "fuelStation", "driverName", "notes",
	"currency", "kmPerLitre", "distanceTravelled", "tripId", "isReeferUnit",
	"hoursOperated", "litresPerHour",
}

// RecordServiceImpl implements the RecordService interface. Every mutation
// runs in one Postgres transaction with its audit entry queued alongside;
// trip cost synchronization and linkage changes go through the coordinator.
type RecordServiceImpl struct {
	pgDB        TxRunner
	dieselRepo  diesel.Repository
	normRepo    norm.Repository
	outboxRepo  outbox.Repository
	coordinator TripLinker
	analyzer    *efficiency.Analyzer
	detector    *anomaly.Detector
	probeFleets map[string]struct{}
	logger      *slog.Logger
}

// NewRecordService creates a new fuel record service
func NewRecordService(
	logger *slog.Logger,
	pgDB TxRunner,
	dieselRepo diesel.Repository,
	normRepo norm.Repository,
	outboxRepo outbox.Repository,
	coordinator TripLinker,
	analyzer *efficiency.Analyzer,
	detector *anomaly.Detector,
	probeFleets map[string]struct{},
) RecordService {
	return &RecordServiceImpl{
		pgDB:        pgDB,
		dieselRepo:  dieselRepo,
		normRepo:    normRepo,
		outboxRepo:  outboxRepo,
		coordinator: coordinator,
		analyzer:    analyzer,
		detector:    detector,
		probeFleets: probeFleets,
		logger:      logger,
	}
}

// CreateRecord creates a manual fuel-fill entry, rejecting entries that fall
// within the duplicate window of an existing record
func (s *RecordServiceImpl) CreateRecord(ctx context.Context, actor string, in *RecordInput) (*diesel.Record, error) {
	existing, err := s.dieselRepo.FindDuplicate(ctx, in.FleetNumber, in.Date, in.KmReading, in.LitresFilled)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		return nil, diesel.ErrDuplicateRecord{FleetNumber: in.FleetNumber, Date: in.Date}
	}

	rec, err := diesel.NewRecord(in.FleetNumber, in.Date, in.LitresFilled, in.TotalCost, in.Currency)
	if err != nil {
		return nil, err
	}
	rec.DriverName = in.DriverName
	rec.FuelStation = in.FuelStation
	rec.KmReading = in.KmReading
	rec.PreviousKmReading = in.PreviousKm
	rec.IsReeferUnit = in.IsReeferUnit
	rec.HoursOperated = in.HoursOperated
	rec.Notes = in.Notes
	rec.Recompute()

	if rec.IsReeferUnit && rec.HoursOperated <= 0 {
		return nil, diesel.ErrNoHoursOperated
	}

	err = s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.dieselRepo.WithTx(tx).Create(ctx, rec); err != nil {
			return err
		}
		details := fmt.Sprintf("manual entry: %s litres for fleet %s", rec.LitresFilled.StringFixed(1), rec.FleetNumber)
		return s.queueAudit(ctx, tx, actor, shared.AuditActionCreate, rec.ID, details, nil, rec)
	})
	if err != nil {
		return nil, err
	}

	s.classify(ctx, rec)
	s.rescan(rec)

	s.logger.Info("Fuel record created",
		"record_id", rec.ID.String(),
		"fleet_number", rec.FleetNumber,
		"litres", rec.LitresFilled.String(),
	)
	return rec, nil
}

// GetRecord retrieves a record by its ID
func (s *RecordServiceImpl) GetRecord(ctx context.Context, id uuid.UUID) (*diesel.Record, error) {
	return s.dieselRepo.GetByID(ctx, id)
}

// ListRecords retrieves a page of records. An empty fleet number lists the
// whole population.
func (s *RecordServiceImpl) ListRecords(ctx context.Context, fleetNumber string, page, perPage int) ([]*diesel.Record, error) {
	offset := (page - 1) * perPage

	if fleetNumber != "" {
		return s.dieselRepo.ListByFleet(ctx, fleetNumber, perPage, offset)
	}

	all, err := s.dieselRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// UpdateRecord applies the non-nil fields and recomputes the derived values.
// When the total cost or notes changed on a linked record, the trip cost
// entry follows in its own transaction.
func (s *RecordServiceImpl) UpdateRecord(ctx context.Context, actor string, id uuid.UUID, in *RecordUpdate) (*diesel.Record, error) {
	var rec *diesel.Record
	costChanged := false

	err := s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repoTx := s.dieselRepo.WithTx(tx)

		var err error
		rec, err = repoTx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := *rec
		previousCost := rec.TotalCost

		applyUpdate(rec, in)
		rec.Recompute()
		if rec.IsReeferUnit && rec.HoursOperated <= 0 {
			return diesel.ErrNoHoursOperated
		}
		costChanged = !rec.TotalCost.Equal(previousCost) || rec.Notes != before.Notes

		if err := repoTx.Update(ctx, rec); err != nil {
			return err
		}
		return s.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, "record fields updated", &before, rec)
	})
	if err != nil {
		return nil, err
	}

	if costChanged {
		if err := s.coordinator.SyncCost(ctx, actor, rec); err != nil {
			return nil, fmt.Errorf("failed to synchronize trip cost: %w", err)
		}
	}

	s.classify(ctx, rec)
	s.rescan(rec)
	return rec, nil
}

// ApplyDebrief records the staff sign-off for a poor-efficiency fill
func (s *RecordServiceImpl) ApplyDebrief(ctx context.Context, actor string, id uuid.UUID, date time.Time, signedBy, notes string) (*diesel.Record, error) {
	var rec *diesel.Record

	err := s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repoTx := s.dieselRepo.WithTx(tx)

		var err error
		rec, err = repoTx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := *rec

		if err := rec.ApplyDebrief(date, signedBy, notes); err != nil {
			return err
		}
		if err := repoTx.Update(ctx, rec); err != nil {
			return err
		}
		details := fmt.Sprintf("debrief signed by %s", signedBy)
		return s.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, details, &before, rec)
	})
	if err != nil {
		return nil, err
	}

	s.rescan(rec)
	return rec, nil
}

// RecordProbe stores an in-tank probe reading and/or marks it verified
func (s *RecordServiceImpl) RecordProbe(ctx context.Context, actor string, id uuid.UUID, reading *decimal.Decimal, verify bool) (*diesel.Record, error) {
	var rec *diesel.Record

	err := s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repoTx := s.dieselRepo.WithTx(tx)

		var err error
		rec, err = repoTx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := *rec

		if reading != nil {
			rec.SetProbeReading(*reading)
		}
		if verify {
			rec.VerifyProbe()
		}
		if err := repoTx.Update(ctx, rec); err != nil {
			return err
		}

		details := "probe verified"
		if reading != nil {
			details = fmt.Sprintf("probe reading %s litres", reading.StringFixed(1))
			if verify {
				details += ", verified"
			}
		}
		return s.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, details, &before, rec)
	})
	if err != nil {
		return nil, err
	}

	s.rescan(rec)
	return rec, nil
}

// Allocate links the record into the trip's cost ledger
func (s *RecordServiceImpl) Allocate(ctx context.Context, actor string, id, tripID uuid.UUID) error {
	return s.coordinator.Allocate(ctx, actor, id, tripID)
}

// Deallocate removes the record from its trip ledger
func (s *RecordServiceImpl) Deallocate(ctx context.Context, actor string, id uuid.UUID) error {
	return s.coordinator.Deallocate(ctx, actor, id)
}

// DeleteRecord removes the record together with its trip cost entry
func (s *RecordServiceImpl) DeleteRecord(ctx context.Context, actor string, id uuid.UUID) error {
	return s.coordinator.Delete(ctx, actor, id)
}

// ExportCSV renders the full record population as comma-delimited rows.
// Commas inside notes are replaced with semicolons so the row stays aligned.
func (s *RecordServiceImpl) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.dieselRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Join(exportColumns, ","))
	buf.WriteByte('\n')

	for _, rec := range records {
		tripID := ""
		if rec.TripID != nil {
			tripID = rec.TripID.String()
		}
		fields := []string{
			rec.FleetNumber,
			rec.Date.Format("2006-01-02"),
			fmt.Sprintf("%.1f", rec.KmReading),
			fmt.Sprintf("%.1f", rec.PreviousKmReading),
			rec.LitresFilled.StringFixed(2),
			rec.CostPerLitre.StringFixed(4),
			rec.TotalCost.StringFixed(2),
			sanitizeField(rec.FuelStation),
			sanitizeField(rec.DriverName),
			sanitizeField(rec.Notes),
			rec.Currency,
			fmt.Sprintf("%.2f", rec.KmPerLitre),
			fmt.Sprintf("%.1f", rec.DistanceTravelled()),
			tripID,
			fmt.Sprintf("%t", rec.IsReeferUnit),
			fmt.Sprintf("%.1f", rec.HoursOperated),
			fmt.Sprintf("%.2f", rec.LitresPerHour),
		}
		buf.WriteString(strings.Join(fields, ","))
		buf.WriteByte('\n')
	}

	s.logger.Info("Exported diesel records", "count", len(records))
	return buf.Bytes(), nil
}

// classify runs the efficiency analysis for logging and debrief flagging.
// A norm lookup failure falls back to the package defaults rather than
// failing the mutation.
func (s *RecordServiceImpl) classify(ctx context.Context, rec *diesel.Record) {
	n, err := s.normRepo.GetByFleetNumber(ctx, rec.FleetNumber)
	if err != nil {
		s.logger.Warn("Norm lookup failed, using defaults",
			"fleet_number", rec.FleetNumber, "error", err)
		n = nil
	}
	res := s.analyzer.Analyze(rec, n)
	if res.RequiresDebrief {
		s.logger.Warn("Record flagged for driver debrief",
			"record_id", rec.ID.String(),
			"fleet_number", rec.FleetNumber,
			"metric", res.Metric,
			"expected", res.Expected,
		)
	}
}

// rescan re-evaluates just the mutated record against the alert rules and
// logs any active findings
func (s *RecordServiceImpl) rescan(rec *diesel.Record) {
	for _, alert := range s.detector.ScanRecord(rec, s.probeFleets) {
		if alert.Resolved {
			continue
		}
		s.logger.Warn("Alert raised on record",
			"record_id", alert.RecordID.String(),
			"category", string(alert.Category),
			"severity", string(alert.Severity),
			"message", alert.Message,
		)
	}
}

func (s *RecordServiceImpl) queueAudit(ctx context.Context, tx pgx.Tx, actor string, action shared.AuditAction, recordID uuid.UUID, details string, before, after interface{}) error {
	entry, err := audit.NewEntry(actor, action, "diesel_record", recordID.String(), details, before, after)
	if err != nil {
		return fmt.Errorf("failed to build audit entry: %w", err)
	}
	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}

func applyUpdate(rec *diesel.Record, in *RecordUpdate) {
	if in.DriverName != nil {
		rec.DriverName = *in.DriverName
	}
	if in.FuelStation != nil {
		rec.FuelStation = *in.FuelStation
	}
	if in.LitresFilled != nil {
		rec.LitresFilled = *in.LitresFilled
	}
	if in.TotalCost != nil {
		rec.TotalCost = *in.TotalCost
	}
	if in.Currency != nil {
		rec.Currency = *in.Currency
	}
	if in.KmReading != nil {
		rec.KmReading = *in.KmReading
	}
	if in.PreviousKm != nil {
		rec.PreviousKmReading = *in.PreviousKm
	}
	if in.HoursOperated != nil {
		rec.HoursOperated = *in.HoursOperated
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
	rec.UpdatedAt = time.Now()
}

func sanitizeField(v string) string {
	return strings.ReplaceAll(v, ",", ";")
}
