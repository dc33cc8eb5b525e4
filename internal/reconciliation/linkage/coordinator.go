// Package linkage keeps a diesel record's trip association and its trip
// cost entry consistent, with an audit entry for every mutation.
package linkage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/outbox"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/domain/trip"
)

// TxRunner runs a function inside one Postgres transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Coordinator allocates and deallocates diesel records to trips. Every
// operation runs in a single Postgres transaction: the trip cost ledger and
// the record's trip association change together or not at all, and the audit
// entry is queued in the same transaction. Across all trips there is at most
// one cost entry per diesel record.
type Coordinator struct {
	pgDB       TxRunner
	dieselRepo diesel.Repository
	tripRepo   trip.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewCoordinator(
	pgDB TxRunner,
	dieselRepo diesel.Repository,
	tripRepo trip.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		pgDB:       pgDB,
		dieselRepo: dieselRepo,
		tripRepo:   tripRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Allocate links the record to the trip and appends the corresponding cost
// entry. A record already linked elsewhere is moved: its old cost entry is
// removed first. The cost entry amount is the record's total cost; its
// currency falls back to the trip's revenue currency when the record carries
// none.
func (c *Coordinator) Allocate(ctx context.Context, actor string, dieselID, tripID uuid.UUID) error {
	return c.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		dieselRepoTx := c.dieselRepo.WithTx(tx)
		tripRepoTx := c.tripRepo.WithTx(tx)

		rec, err := dieselRepoTx.GetByID(ctx, dieselID)
		if err != nil {
			return err
		}
		before := *rec

		target, err := tripRepoTx.GetByID(ctx, tripID)
		if err != nil {
			return err
		}

		if rec.TripID != nil {
			if err := c.removeExistingCost(ctx, tripRepoTx, rec, target); err != nil {
				return err
			}
		}

		currency := rec.Currency
		if currency == "" {
			currency = target.RevenueCurrency
		}

		now := time.Now()
		entry := trip.CostEntry{
			ID:              uuid.New(),
			SourceDieselID:  rec.ID,
			ReferenceNumber: rec.ReferenceNumber(),
			Description:     fmt.Sprintf("Diesel %s %s", rec.FleetNumber, rec.Date.Format("2006-01-02")),
			Amount:          rec.TotalCost,
			Currency:        currency,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := target.AddCost(entry); err != nil {
			return err
		}
		if err := tripRepoTx.Update(ctx, target); err != nil {
			return err
		}

		rec.LinkToTrip(tripID)
		if err := dieselRepoTx.Update(ctx, rec); err != nil {
			return err
		}

		c.logger.Info("Diesel record allocated to trip",
			"record_id", rec.ID.String(),
			"trip_id", tripID.String(),
			"amount", entry.Amount.String(),
			"currency", entry.Currency,
		)

		details := fmt.Sprintf("allocated to trip %s; cost entry %s for %s %s",
			tripID, entry.ReferenceNumber, entry.Amount.StringFixed(2), entry.Currency)
		return c.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, details, &before, rec)
	})
}

// Deallocate removes the record's cost entry from its trip and clears the
// association. A record that is not linked is a warning no-op, not an error.
func (c *Coordinator) Deallocate(ctx context.Context, actor string, dieselID uuid.UUID) error {
	return c.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		dieselRepoTx := c.dieselRepo.WithTx(tx)
		tripRepoTx := c.tripRepo.WithTx(tx)

		rec, err := dieselRepoTx.GetByID(ctx, dieselID)
		if err != nil {
			return err
		}

		if rec.TripID == nil {
			c.logger.Warn("Deallocate on unlinked diesel record is a no-op", "record_id", dieselID.String())
			return nil
		}
		before := *rec
		linkedTripID := *rec.TripID

		linked, err := tripRepoTx.GetByID(ctx, linkedTripID)
		if err != nil {
			return err
		}

		if removed, ok := linked.RemoveCostForDiesel(rec.ID); ok {
			if err := tripRepoTx.Update(ctx, linked); err != nil {
				return err
			}
			c.logger.Info("Removed trip cost entry",
				"record_id", rec.ID.String(),
				"trip_id", linked.ID.String(),
				"reference_number", removed.ReferenceNumber,
			)
		} else {
			c.logger.Warn("Linked trip carried no cost entry for record",
				"record_id", rec.ID.String(), "trip_id", linked.ID.String())
		}

		rec.UnlinkFromTrip()
		if err := dieselRepoTx.Update(ctx, rec); err != nil {
			return err
		}

		details := fmt.Sprintf("deallocated from trip %s", linkedTripID)
		return c.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, details, &before, rec)
	})
}

// SyncCost overwrites the linked trip's cost entry in place after the record
// changed: amount, currency, and notes follow the record, the reference
// number never changes. No-op for unlinked records.
func (c *Coordinator) SyncCost(ctx context.Context, actor string, rec *diesel.Record) error {
	if rec.TripID == nil {
		return nil
	}

	return c.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		tripRepoTx := c.tripRepo.WithTx(tx)

		linked, err := tripRepoTx.GetByID(ctx, *rec.TripID)
		if err != nil {
			return err
		}

		entry, ok := linked.FindCostForDiesel(rec.ID)
		if !ok {
			c.logger.Warn("Linked trip carried no cost entry to sync",
				"record_id", rec.ID.String(), "trip_id", linked.ID.String())
			return nil
		}

		entry.Amount = rec.TotalCost
		if rec.Currency != "" {
			entry.Currency = rec.Currency
		}
		entry.Notes = rec.Notes
		entry.UpdatedAt = time.Now()

		if err := tripRepoTx.Update(ctx, linked); err != nil {
			return err
		}

		details := fmt.Sprintf("synchronized cost entry %s on trip %s", entry.ReferenceNumber, linked.ID)
		return c.queueAudit(ctx, tx, actor, shared.AuditActionUpdate, rec.ID, details, nil, rec)
	})
}

// Delete removes the record, first removing its trip cost entry when linked
func (c *Coordinator) Delete(ctx context.Context, actor string, dieselID uuid.UUID) error {
	return c.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		dieselRepoTx := c.dieselRepo.WithTx(tx)
		tripRepoTx := c.tripRepo.WithTx(tx)

		rec, err := dieselRepoTx.GetByID(ctx, dieselID)
		if err != nil {
			return err
		}

		if rec.TripID != nil {
			linked, err := tripRepoTx.GetByID(ctx, *rec.TripID)
			if err != nil {
				return err
			}
			if _, ok := linked.RemoveCostForDiesel(rec.ID); ok {
				if err := tripRepoTx.Update(ctx, linked); err != nil {
					return err
				}
			}
		}

		if err := dieselRepoTx.Delete(ctx, dieselID); err != nil {
			return err
		}

		c.logger.Info("Diesel record deleted", "record_id", dieselID.String())
		return c.queueAudit(ctx, tx, actor, shared.AuditActionDelete, dieselID, "record deleted", rec, nil)
	})
}

// removeExistingCost strips the record's current cost entry before a move.
// The old trip may be the allocation target itself, in which case the entry
// is removed from the already-loaded aggregate.
func (c *Coordinator) removeExistingCost(ctx context.Context, tripRepoTx trip.Repository, rec *diesel.Record, target *trip.Trip) error {
	if *rec.TripID == target.ID {
		target.RemoveCostForDiesel(rec.ID)
		return nil
	}

	old, err := tripRepoTx.GetByID(ctx, *rec.TripID)
	if err != nil {
		return err
	}
	if _, ok := old.RemoveCostForDiesel(rec.ID); !ok {
		return nil
	}
	return tripRepoTx.Update(ctx, old)
}

// queueAudit writes the audit entry into the transactional outbox so the
// mutation and its trail commit atomically. Failed mutations roll the entry
// back with them.
func (c *Coordinator) queueAudit(ctx context.Context, tx pgx.Tx, actor string, action shared.AuditAction, recordID uuid.UUID, details string, before, after interface{}) error {
	entry, err := audit.NewEntry(actor, action, "diesel_record", recordID.String(), details, before, after)
	if err != nil {
		return fmt.Errorf("failed to build audit entry for record %s: %w", recordID, err)
	}

	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to build audit outbox message for record %s: %w", recordID, err)
	}

	if err := c.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to queue audit entry for record %s: %w", recordID, err)
	}
	return nil
}
