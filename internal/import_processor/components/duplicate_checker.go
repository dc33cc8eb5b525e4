package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
)

type DuplicateCheckerImpl struct {
	dieselRepo   diesel.Repository
	fuelCardRepo fuelcard.Repository
	logger       *slog.Logger
}

func NewDuplicateChecker(dieselRepo diesel.Repository, fuelCardRepo fuelcard.Repository, logger *slog.Logger) service.DuplicateChecker {
	return &DuplicateCheckerImpl{
		dieselRepo:   dieselRepo,
		fuelCardRepo: fuelCardRepo,
		logger:       logger,
	}
}

// IsDuplicate reports whether the row re-submits a fill that is already in
// the store, either as a diesel record matching on
// (fleet number, date, km reading, litres within the window) or as a
// previously imported fuel-card transaction from the same card.
func (c *DuplicateCheckerImpl) IsDuplicate(ctx context.Context, row *service.ImportedRow) (bool, error) {
	record, err := c.dieselRepo.FindDuplicate(ctx, row.FleetNumber, row.Date, row.Odometer, row.Litres)
	if err != nil {
		return false, fmt.Errorf("diesel record duplicate lookup failed for fleet %s: %w", row.FleetNumber, err)
	}
	if record != nil {
		c.logger.Info("Row duplicates existing diesel record", "fleet_number", row.FleetNumber, "record_id", record.ID.String())
		return true, nil
	}

	txn, err := c.fuelCardRepo.FindDuplicate(ctx, row.CardNumber, row.FleetNumber, row.Date, row.Litres)
	if err != nil {
		return false, fmt.Errorf("fuel transaction duplicate lookup failed for fleet %s: %w", row.FleetNumber, err)
	}
	if txn != nil {
		c.logger.Info("Row duplicates previously imported transaction", "fleet_number", row.FleetNumber, "fuel_transaction_id", txn.ID.String())
		return true, nil
	}

	return false, nil
}
