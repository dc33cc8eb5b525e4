package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
	"github.com/fleet-diesel-ledger/internal/reconciliation/efficiency"
)

type RecordCreatorImpl struct {
	dieselRepo   diesel.Repository
	fuelCardRepo fuelcard.Repository
	normRepo     norm.Repository
	analyzer     *efficiency.Analyzer
	logger       *slog.Logger
}

func NewRecordCreator(
	dieselRepo diesel.Repository,
	fuelCardRepo fuelcard.Repository,
	normRepo norm.Repository,
	analyzer *efficiency.Analyzer,
	logger *slog.Logger,
) service.RecordCreator {
	return &RecordCreatorImpl{
		dieselRepo:   dieselRepo,
		fuelCardRepo: fuelCardRepo,
		normRepo:     normRepo,
		analyzer:     analyzer,
		logger:       logger,
	}
}

// CreateImported persists the diesel record and its fuel-card transaction for
// one row inside the supplied transaction, then classifies the fresh record's
// efficiency against the fleet norm.
func (c *RecordCreatorImpl) CreateImported(ctx context.Context, tx pgx.Tx, batch *shared.ImportBatch, row *service.ImportedRow) (*diesel.Record, *fuelcard.Transaction, error) {
	record, err := diesel.NewRecord(row.FleetNumber, row.Date, row.Litres, row.TotalAmount, row.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build diesel record for fleet %s: %w", row.FleetNumber, err)
	}
	record.DriverName = row.DriverName
	record.FuelStation = row.FuelStation
	record.KmReading = row.Odometer
	record.Notes = fmt.Sprintf("Imported from %s", batch.Source)
	record.Recompute()

	if err = c.dieselRepo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to create diesel record for fleet %s: %w", row.FleetNumber, err)
	}

	txn, err := fuelcard.NewTransaction(batch.BatchID, row.CardNumber, row.FleetNumber, row.Date, row.Litres, row.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build fuel transaction for fleet %s: %w", row.FleetNumber, err)
	}
	txn.DriverName = row.DriverName
	txn.FuelStation = row.FuelStation
	txn.UnitPrice = row.UnitPrice
	txn.TotalAmount = row.TotalAmount
	txn.Odometer = row.Odometer

	if err = c.fuelCardRepo.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, nil, fmt.Errorf("failed to create fuel transaction for fleet %s: %w", row.FleetNumber, err)
	}

	c.classify(ctx, record)

	return record, txn, nil
}

// classify runs the efficiency analysis for the new record. Results are
// advisory at import time, so a norm lookup failure only logs.
func (c *RecordCreatorImpl) classify(ctx context.Context, record *diesel.Record) {
	fleetNorm, err := c.normRepo.GetByFleetNumber(ctx, record.FleetNumber)
	if err != nil {
		c.logger.Warn("Failed to load consumption norm, using defaults", "fleet_number", record.FleetNumber, "error", err)
		fleetNorm = nil
	}

	result := c.analyzer.Analyze(record, fleetNorm)
	if result.RequiresDebrief {
		c.logger.Warn("Imported record requires driver debrief",
			"record_id", record.ID.String(),
			"fleet_number", record.FleetNumber,
			"metric", result.Metric,
			"expected", result.Expected,
		)
		return
	}
	c.logger.Info("Imported record classified",
		"record_id", record.ID.String(),
		"fleet_number", record.FleetNumber,
		"status", result.Status,
	)
}
