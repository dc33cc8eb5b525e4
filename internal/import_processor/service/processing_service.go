package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB             *persistence.PostgresDB
	validator        RowValidator
	duplicateChecker DuplicateChecker
	recordCreator    RecordCreator
	reconciler       BatchReconciler
	auditRecorder    AuditRecorder
	logger           *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator RowValidator,
	duplicateChecker DuplicateChecker,
	recordCreator RecordCreator,
	reconciler BatchReconciler,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:             pgDB,
		validator:        validator,
		duplicateChecker: duplicateChecker,
		recordCreator:    recordCreator,
		reconciler:       reconciler,
		auditRecorder:    auditRecorder,
		logger:           logger,
	}
}

// ProcessBatch handles the core logic for processing one import batch.
// Validation and duplicate conditions are recovered locally and reflected in
// the batch summary; only retryable infrastructure failures propagate to the
// Kafka consumer.
func (s *ProcessingServiceImpl) ProcessBatch(ctx context.Context, batch *shared.ImportBatch) error {
	logger := s.logger
	if batch.CorrelationID != "" {
		logger = s.logger.With("correlation_id", batch.CorrelationID)
	}

	logger.Info("Processing import batch", "batch_id", batch.BatchID.String(), "source", batch.Source, "rows", len(batch.Rows))

	summary := &shared.ImportSummary{
		BatchID: batch.BatchID,
		Total:   len(batch.Rows),
	}

	// 1. Validate and deduplicate every row before touching the store
	rows := make([]*ImportedRow, 0, len(batch.Rows))
	for i, raw := range batch.Rows {
		parsed, err := s.validator.Parse(batch, raw)
		if err != nil {
			if errors.Is(err, shared.ValidationError{}) {
				logger.Warn("Import row failed validation", "batch_id", batch.BatchID.String(), "row", i, "error", err)
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %s", i, err.Error()))
				continue
			}
			return fmt.Errorf("failed to parse row %d of batch %s: %w", i, batch.BatchID.String(), err)
		}

		duplicate, err := s.duplicateChecker.IsDuplicate(ctx, parsed)
		if err != nil {
			return fmt.Errorf("duplicate check failed for row %d of batch %s: %w", i, batch.BatchID.String(), err)
		}
		if duplicate {
			logger.Info("Import row skipped as duplicate", "batch_id", batch.BatchID.String(), "row", i, "fleet_number", parsed.FleetNumber)
			summary.Skipped++
			continue
		}

		rows = append(rows, parsed)
	}

	// 2. Snapshot match candidates before this batch adds records of its own
	candidates, err := s.reconciler.SnapshotCandidates(ctx, rows)
	if err != nil {
		return fmt.Errorf("failed to load match candidates for batch %s: %w", batch.BatchID.String(), err)
	}

	// 3. Persist each row in its own database transaction
	txns := make([]*fuelcard.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, err := s.importRow(ctx, logger, batch, row)
		if err != nil {
			return err
		}
		txns = append(txns, txn)
		summary.Imported++
	}

	// 4. Reconcile the imported transactions against the candidate snapshot
	counts, err := s.reconcileBatch(ctx, logger, batch, txns, candidates)
	if err != nil {
		return err
	}
	summary.Reconciled = counts.Reconciled
	summary.Pending = counts.Pending
	summary.Unmatched = counts.Unmatched

	// 5. Record the batch summary in the audit trail
	if err := s.auditRecorder.RecordSummary(ctx, batch, summary); err != nil {
		logger.Error("Failed to record import summary", "batch_id", batch.BatchID.String(), "error", err)
	}

	logger.Info("Import batch processed",
		"batch_id", batch.BatchID.String(),
		"total", summary.Total,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"reconciled", summary.Reconciled,
		"pending", summary.Pending,
		"unmatched", summary.Unmatched,
	)
	return nil
}

// importRow creates the diesel record and fuel-card transaction for one row,
// together with their audit entries, in a single database transaction.
func (s *ProcessingServiceImpl) importRow(ctx context.Context, logger *slog.Logger, batch *shared.ImportBatch, row *ImportedRow) (txn *fuelcard.Transaction, err error) {
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "batch_id", batch.BatchID.String(), "error", err)
		return nil, fmt.Errorf("failed to begin DB transaction for batch %s: %w", batch.BatchID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "batch_id", batch.BatchID.String())
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "batch_id", batch.BatchID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "batch_id", batch.BatchID.String())
			}
		}
	}()

	record, txn, err := s.recordCreator.CreateImported(ctx, tx, batch, row)
	if err != nil {
		return nil, err
	}

	entry, err := audit.NewEntry(batch.Actor, shared.AuditActionCreate, "diesel_record", record.ID.String(),
		fmt.Sprintf("Imported fuel fill for %s from %s", record.FleetNumber, batch.Source), nil, record)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit entry for record %s: %w", record.ID.String(), err)
	}
	if err = s.auditRecorder.QueueEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction", "batch_id", batch.BatchID.String(), "record_id", record.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to commit DB transaction for batch %s: %w", batch.BatchID.String(), err)
	}

	logger.Info("Import row persisted", "batch_id", batch.BatchID.String(), "record_id", record.ID.String(), "fuel_transaction_id", txn.ID.String())
	return txn, nil
}

// reconcileBatch applies the matching classifications in one database
// transaction so a batch's reconciliation state commits atomically.
func (s *ProcessingServiceImpl) reconcileBatch(ctx context.Context, logger *slog.Logger, batch *shared.ImportBatch, txns []*fuelcard.Transaction, candidates map[string][]*diesel.Record) (counts ReconcileCounts, err error) {
	if len(txns) == 0 {
		return ReconcileCounts{}, nil
	}

	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "batch_id", batch.BatchID.String(), "error", err)
		return ReconcileCounts{}, fmt.Errorf("failed to begin DB transaction for batch %s: %w", batch.BatchID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "batch_id", batch.BatchID.String())
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "batch_id", batch.BatchID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "batch_id", batch.BatchID.String())
			}
		}
	}()

	counts, err = s.reconciler.Reconcile(ctx, tx, batch, txns, candidates)
	if err != nil {
		return ReconcileCounts{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction", "batch_id", batch.BatchID.String(), "error", err)
		return ReconcileCounts{}, fmt.Errorf("failed to commit DB transaction for batch %s: %w", batch.BatchID.String(), err)
	}

	return counts, nil
}
